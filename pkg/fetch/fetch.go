// Package fetch resolves capture sources into local paths the extractor
// can read. Local files and directories pass through untouched; oci://
// references are pulled from an OCI registry into a temporary directory.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"

	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
)

var archiveExtensions = []string{".tar.gz", ".tgz", ".tar"}

// Fetcher resolves capture sources. The zero value is usable; WorkDir
// defaults to the system temporary directory.
type Fetcher struct {
	WorkDir string

	// PlainHTTP allows registry access without TLS, intended for local
	// test registries only.
	PlainHTTP bool
}

// Resolve returns a local path for the source plus a cleanup function for
// any intermediate files it created. Cleanup is never nil.
func (f *Fetcher) Resolve(ctx context.Context, source string) (string, func(), error) {
	noop := func() {}

	switch {
	case strings.HasPrefix(source, "oci://"):
		return f.pull(ctx, strings.TrimPrefix(source, "oci://"))

	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return "", noop, glerrors.Wrap(glerrors.ErrCodeInvalidRequest, "invalid file URI", err)
		}
		return u.Path, noop, nil

	default:
		if _, err := os.Stat(source); err != nil {
			return "", noop, glerrors.Wrapf(glerrors.ErrCodeNotFound, err,
				"capture source %q does not exist", source)
		}
		return source, noop, nil
	}
}

// pull downloads an archive artifact from an OCI registry. The artifact's
// layers are materialized into a temporary directory and the archive layer
// is returned.
func (f *Fetcher) pull(ctx context.Context, rawRef string) (string, func(), error) {
	noop := func() {}

	ref, err := registry.ParseReference(rawRef)
	if err != nil {
		return "", noop, glerrors.Wrapf(glerrors.ErrCodeInvalidRequest, err,
			"invalid OCI reference %q", rawRef)
	}
	if ref.Reference == "" {
		ref.Reference = "latest"
	}

	dest, err := os.MkdirTemp(f.WorkDir, "capture-pull-*")
	if err != nil {
		return "", noop, fmt.Errorf("creating pull directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dest) }

	fs, err := file.New(dest)
	if err != nil {
		cleanup()
		return "", noop, fmt.Errorf("creating artifact store: %w", err)
	}
	defer fs.Close()

	repo, err := remote.NewRepository(ref.Registry + "/" + ref.Repository)
	if err != nil {
		cleanup()
		return "", noop, glerrors.Wrapf(glerrors.ErrCodeInvalidRequest, err,
			"invalid OCI repository %q", rawRef)
	}
	repo.PlainHTTP = f.PlainHTTP

	desc, err := oras.Copy(ctx, repo, ref.Reference, fs, ref.Reference, oras.DefaultCopyOptions)
	if err != nil {
		cleanup()
		if ctx.Err() != nil {
			return "", noop, glerrors.Wrapf(glerrors.ErrCodeTimeout, err,
				"pulling %q cancelled", rawRef)
		}
		return "", noop, glerrors.Wrapf(glerrors.ErrCodeNotFound, err,
			"pulling %q", rawRef)
	}

	slog.Info("pulled capture artifact",
		slog.String("reference", rawRef),
		slog.String("digest", desc.Digest.String()),
		slog.String("mediaType", desc.MediaType),
	)

	archive, err := findArchive(dest)
	if err != nil {
		cleanup()
		return "", noop, err
	}
	return archive, cleanup, nil
}

// findArchive locates the pulled capture archive among the materialized
// layer files. Exactly one archive is expected per artifact.
func findArchive(dir string) (string, error) {
	var candidates []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		for _, ext := range archiveExtensions {
			if strings.HasSuffix(d.Name(), ext) {
				candidates = append(candidates, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scanning pulled artifact: %w", err)
	}

	switch len(candidates) {
	case 0:
		return "", glerrors.New(glerrors.ErrCodeParse, "pulled artifact contains no capture archive")
	case 1:
		return candidates[0], nil
	default:
		return "", glerrors.Newf(glerrors.ErrCodeParse,
			"pulled artifact contains %d archives, expected one", len(candidates))
	}
}

// ArchiveMediaType is the layer media type used when captures are pushed
// as OCI artifacts.
const ArchiveMediaType = v1.MediaTypeImageLayerGzip
