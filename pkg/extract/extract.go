// Package extract unpacks must-gather archives into a sandboxed working
// directory. Captures come from untrusted sources, so extraction guards
// against path traversal, symlink escapes and decompression bombs, and it
// enforces size and entry-count limits incrementally while unpacking.
package extract

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	glenserrors "github.com/gatherlens/gatherlens/pkg/errors"
)

// Limits bounds what an extraction may consume.
type Limits struct {
	// MaxTotalBytes caps the cumulative uncompressed size of all entries.
	MaxTotalBytes int64
	// MaxEntryBytes caps a single entry; oversized entries are skipped with
	// a warning unless they are required top-level metadata.
	MaxEntryBytes int64
	// MaxEntries caps the archive entry count.
	MaxEntries int
}

// Extractor unpacks archives or validates existing directory trees.
type Extractor struct {
	Limits Limits
}

// Result describes a completed extraction.
type Result struct {
	// Root is the directory containing the capture files.
	Root string
	// Sandbox reports whether Root was created by this extraction and is
	// owned by the caller.
	Sandbox bool
	// BytesWritten is the total uncompressed size extracted.
	BytesWritten int64
	// Entries is the number of archive entries processed.
	Entries int
	// Warnings records skipped entries.
	Warnings []string
}

// Extract unpacks source into a sandbox directory under workDir, or
// validates source in place when it is already a directory. On any fatal
// error the partial sandbox is removed.
func (e *Extractor) Extract(ctx context.Context, source, workDir string) (*Result, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, glenserrors.Wrap(glenserrors.ErrCodeNotFound,
			fmt.Sprintf("capture source %q", source), err)
	}

	if info.IsDir() {
		return &Result{Root: source}, nil
	}

	sandbox, err := os.MkdirTemp(workDir, "capture-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}

	res := &Result{Root: sandbox, Sandbox: true}
	if err := e.extractArchive(ctx, source, sandbox, res); err != nil {
		if rmErr := os.RemoveAll(sandbox); rmErr != nil {
			slog.Warn("failed to remove partial sandbox", "path", sandbox, "error", rmErr)
		}
		return nil, err
	}

	slog.Debug("extraction complete",
		slog.String("source", source),
		slog.Int("entries", res.Entries),
		slog.Int64("bytes", res.BytesWritten),
		slog.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

func (e *Extractor) extractArchive(ctx context.Context, source, sandbox string, res *Result) error {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if isGzip(source, f) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return glenserrors.Wrap(glenserrors.ErrCodeParse, "not a gzip archive", err)
		}
		defer gz.Close()
		reader = gz
	}

	tr := tar.NewReader(reader)
	for {
		if err := ctx.Err(); err != nil {
			return glenserrors.Wrap(glenserrors.ErrCodeTimeout, "extraction cancelled", err)
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return glenserrors.Wrap(glenserrors.ErrCodeParse, "corrupt archive", err)
		}

		res.Entries++
		if e.Limits.MaxEntries > 0 && res.Entries > e.Limits.MaxEntries {
			return glenserrors.Newf(glenserrors.ErrCodeCaptureTooLarge,
				"archive exceeds %d entries", e.Limits.MaxEntries).
				WithDetail("entry", hdr.Name)
		}

		target, err := safeJoin(sandbox, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", hdr.Name, err)
			}

		case tar.TypeSymlink, tar.TypeLink:
			// Links that stay inside the sandbox are recreated; anything
			// else is skipped rather than followed.
			if !linkWithinSandbox(sandbox, target, hdr.Linkname) {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("skipped link %q: target %q escapes sandbox", hdr.Name, hdr.Linkname))
				continue
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent of %q: %w", hdr.Name, err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("skipped link %q: %v", hdr.Name, err))
			}

		case tar.TypeReg:
			if e.Limits.MaxEntryBytes > 0 && hdr.Size > e.Limits.MaxEntryBytes {
				if isTopLevelMetadata(hdr.Name) {
					return glenserrors.Newf(glenserrors.ErrCodeCaptureTooLarge,
						"metadata file %q exceeds per-entry limit of %d bytes", hdr.Name, e.Limits.MaxEntryBytes)
				}
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("skipped %q: %d bytes exceeds per-entry limit", hdr.Name, hdr.Size))
				continue
			}
			n, err := e.writeFile(target, hdr, tr, res.BytesWritten)
			res.BytesWritten += n
			if err != nil {
				return err
			}

		default:
			// Devices, FIFOs and the like have no place in a capture.
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("skipped %q: unsupported entry type %d", hdr.Name, hdr.Typeflag))
		}
	}
}

// writeFile copies one entry to disk, counting actual bytes rather than
// trusting the header so a lying decompression-bomb entry still trips the
// total-size limit.
func (e *Extractor) writeFile(target string, hdr *tar.Header, tr *tar.Reader, written int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create parent of %q: %w", hdr.Name, err)
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", hdr.Name, err)
	}
	defer out.Close()

	var limit int64 = 1<<62 - 1
	if e.Limits.MaxTotalBytes > 0 {
		limit = e.Limits.MaxTotalBytes - written + 1
	}
	if e.Limits.MaxEntryBytes > 0 && e.Limits.MaxEntryBytes+1 < limit {
		limit = e.Limits.MaxEntryBytes + 1
	}

	n, err := io.Copy(out, io.LimitReader(tr, limit))
	if err != nil {
		return n, fmt.Errorf("failed to write %q: %w", hdr.Name, err)
	}
	if e.Limits.MaxTotalBytes > 0 && written+n > e.Limits.MaxTotalBytes {
		return n, glenserrors.Newf(glenserrors.ErrCodeCaptureTooLarge,
			"uncompressed size exceeds %d bytes", e.Limits.MaxTotalBytes).
			WithDetail("entry", hdr.Name)
	}
	if e.Limits.MaxEntryBytes > 0 && n > e.Limits.MaxEntryBytes {
		return n, glenserrors.Newf(glenserrors.ErrCodeCaptureTooLarge,
			"entry %q larger than its header declared", hdr.Name)
	}
	return n, nil
}

// safeJoin resolves an entry name inside the sandbox, rejecting absolute
// paths and any name that climbs out via "..".
func safeJoin(sandbox, name string) (string, error) {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) {
		return "", glenserrors.Newf(glenserrors.ErrCodeUnsafePath,
			"entry %q has an absolute path", name)
	}
	target := filepath.Join(sandbox, cleaned)
	rel, err := filepath.Rel(sandbox, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", glenserrors.Newf(glenserrors.ErrCodeUnsafePath,
			"entry %q escapes the sandbox", name)
	}
	return target, nil
}

func linkWithinSandbox(sandbox, linkPath, linkTarget string) bool {
	if filepath.IsAbs(linkTarget) {
		return false
	}
	resolved := filepath.Join(filepath.Dir(linkPath), linkTarget)
	rel, err := filepath.Rel(sandbox, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// isTopLevelMetadata reports whether an entry is one of the small metadata
// files expected at the root of a must-gather archive.
func isTopLevelMetadata(name string) bool {
	cleaned := filepath.ToSlash(filepath.Clean(name))
	parts := strings.Split(cleaned, "/")
	if len(parts) > 2 {
		return false
	}
	base := parts[len(parts)-1]
	return base == "version" || base == "timestamp"
}

// isGzip sniffs the gzip magic bytes, falling back to the file extension
// when the reader cannot seek.
func isGzip(path string, f *os.File) bool {
	var magic [2]byte
	if _, err := io.ReadFull(f, magic[:]); err == nil {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			return magic[0] == 0x1f && magic[1] == 0x8b
		}
	}
	return strings.HasSuffix(path, ".tar.gz") || strings.HasSuffix(path, ".tgz")
}
