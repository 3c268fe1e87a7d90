package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemGet(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("hello"), 0o644))

	fs := NewFilesystem(root)
	data, err := fs.Get(context.Background(), "docs", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestFilesystemGetNotFound(t *testing.T) {
	fs := NewFilesystem(t.TempDir())

	_, err := fs.Get(context.Background(), "docs", "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemList(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "b.md"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("a"), 0o644))

	fs := NewFilesystem(root)
	ids, err := fs.List(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.md"}, ids, "sorted files only, directories skipped")
}

func TestFilesystemRejectsPathEscape(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret"), []byte("x"), 0o644))

	fs := NewFilesystem(filepath.Join(root, "buckets"))
	_, err := fs.Get(context.Background(), "..", "secret")
	assert.ErrorIs(t, err, ErrNotFound)
}
