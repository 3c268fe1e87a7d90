package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Filesystem serves buckets as directories under a root path. It is the
// store used by the CLI and by tests; remote object storage plugs in behind
// the same Store interface.
type Filesystem struct {
	root string
}

// NewFilesystem creates a filesystem store rooted at dir.
func NewFilesystem(dir string) *Filesystem {
	return &Filesystem{root: dir}
}

// Get reads the bytes of fileID inside the bucket directory.
func (f *Filesystem) Get(ctx context.Context, bucketRef, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(f.root, safeName(bucketRef), safeName(fileID))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, bucketRef, fileID)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// List returns the file ids present in a bucket, sorted. It exists so the
// CLI can ingest a whole bucket; it is not part of the Store contract.
func (f *Filesystem) List(ctx context.Context, bucketRef string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(f.root, safeName(bucketRef)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: bucket %s", ErrNotFound, bucketRef)
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// safeName strips path separators so bucket and file ids cannot escape the
// root directory.
func safeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	return filepath.Base(filepath.Clean("/" + name))
}
