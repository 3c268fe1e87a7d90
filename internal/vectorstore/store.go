// Package vectorstore abstracts vector persistence and similarity search
// behind a backend-neutral interface. Two backends exist: a Qdrant index
// server and an inline SQLite scan over the chunk rows.
package vectorstore

import (
	"context"
	"fmt"
	"strings"
)

// Backend identifies a vector store implementation.
type Backend string

const (
	BackendQdrant Backend = "qdrant"
	BackendSQLite Backend = "sqlite"
)

// ParseBackend validates a backend name from configuration.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(s)) {
	case BackendQdrant:
		return BackendQdrant, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// Metric is the similarity measure used for search.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

// ParseMetric validates a metric name from configuration.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(s)) {
	case MetricCosine:
		return MetricCosine, nil
	case MetricDot:
		return MetricDot, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

// InsertMode states how an insert batch relates to the chunk rows.
type InsertMode int

const (
	// InsertNew creates fresh records with store-assigned identities.
	InsertNew InsertMode = iota
	// AttachVectors binds each vector to an already-persisted chunk row,
	// addressed by its ExternalIDs entry.
	AttachVectors
)

// InsertBatch is one aligned set of records to write. Texts, Vectors and
// Metadata run in parallel; ExternalIDs too when Mode is AttachVectors.
type InsertBatch struct {
	Texts       []string
	Vectors     [][]float32
	Metadata    []map[string]string
	ExternalIDs []int64
	Mode        InsertMode
}

// Validate checks the parallel slices line up for the batch's mode.
func (b *InsertBatch) Validate() error {
	if len(b.Vectors) != len(b.Texts) {
		return fmt.Errorf("%w: %d texts, %d vectors", ErrBatchMisaligned, len(b.Texts), len(b.Vectors))
	}
	if b.Metadata != nil && len(b.Metadata) != len(b.Texts) {
		return fmt.Errorf("%w: %d texts, %d metadata entries", ErrBatchMisaligned, len(b.Texts), len(b.Metadata))
	}
	if b.Mode == AttachVectors && len(b.ExternalIDs) != len(b.Texts) {
		return fmt.Errorf("%w: %d texts, %d external ids", ErrBatchMisaligned, len(b.Texts), len(b.ExternalIDs))
	}
	if b.Mode == InsertNew && len(b.ExternalIDs) != 0 {
		return fmt.Errorf("%w: external ids given for new records", ErrBatchMisaligned)
	}
	return nil
}

// Match is one search hit.
type Match struct {
	Text  string
	Score float32
}

// CollectionInfo describes a collection's current state.
type CollectionInfo struct {
	RecordCount uint64
}

// Store is the backend-neutral vector persistence contract. Connect is
// idempotent; every other method requires a prior successful Connect.
type Store interface {
	Connect(ctx context.Context) error
	Close() error

	// Inline reports whether vectors live on the chunk rows themselves,
	// in which case callers persist vectors through the chunk repository
	// and skip InsertMany with AttachVectors.
	Inline() bool

	EnsureCollection(ctx context.Context, name string, dimension int) error
	// ResetCollection drops the collection's records. It reports whether
	// anything existed to reset.
	ResetCollection(ctx context.Context, name string) (bool, error)
	InsertMany(ctx context.Context, name string, batch *InsertBatch) error
	// Search returns up to limit matches ordered by descending score. A
	// collection that does not exist yields no matches, not an error.
	Search(ctx context.Context, name string, vector []float32, limit int) ([]Match, error)
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)
}

// CollectionName derives the canonical collection name for a project at a
// given embedding dimension. Changing the dimension changes the collection,
// so stale vectors from an earlier model are never searched.
func CollectionName(dimension int, projectID string) string {
	return fmt.Sprintf("collection_%d_%s", dimension, projectID)
}

// projectFromCollection recovers the project id from a canonical collection
// name. Project ids may themselves contain underscores.
func projectFromCollection(name string) string {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[2]
}
