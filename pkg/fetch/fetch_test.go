package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
)

func TestResolveLocalPath(t *testing.T) {
	dir := t.TempDir()

	f := &Fetcher{}
	path, cleanup, err := f.Resolve(context.Background(), dir)
	defer cleanup()
	require.NoError(t, err)
	assert.Equal(t, dir, path)
}

func TestResolveFileURI(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "capture.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("stub"), 0o644))

	f := &Fetcher{}
	path, cleanup, err := f.Resolve(context.Background(), "file://"+archive)
	defer cleanup()
	require.NoError(t, err)
	assert.Equal(t, archive, path)
}

func TestResolveMissingPath(t *testing.T) {
	f := &Fetcher{}
	_, cleanup, err := f.Resolve(context.Background(), "/does/not/exist")
	defer cleanup()
	require.Error(t, err)
	assert.True(t, glerrors.HasCode(err, glerrors.ErrCodeNotFound))
}

func TestResolveInvalidOCIReference(t *testing.T) {
	f := &Fetcher{}
	_, cleanup, err := f.Resolve(context.Background(), "oci://not a valid ref")
	defer cleanup()
	require.Error(t, err)
	assert.True(t, glerrors.HasCode(err, glerrors.ErrCodeInvalidRequest))
}

func TestFindArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{}"), 0o644))

	_, err := findArchive(dir)
	assert.True(t, glerrors.HasCode(err, glerrors.ErrCodeParse))

	want := filepath.Join(dir, "capture.tar.gz")
	require.NoError(t, os.WriteFile(want, []byte("stub"), 0o644))

	got, err := findArchive(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.tgz"), []byte("stub"), 0o644))
	_, err = findArchive(dir)
	assert.True(t, glerrors.HasCode(err, glerrors.ErrCodeParse))
}
