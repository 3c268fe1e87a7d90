// Package blob defines the object-storage surface the ingestion pipeline
// reads documents from. Bucket provisioning and credentials belong to the
// storage service itself, not to this package.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a file does not exist in the given bucket.
var ErrNotFound = errors.New("blob: file not found")

// Store fetches raw file bytes keyed by a bucket reference and file id.
type Store interface {
	Get(ctx context.Context, bucketRef, fileID string) ([]byte, error)
}
