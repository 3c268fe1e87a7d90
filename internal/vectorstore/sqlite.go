package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/bull/docrag/internal/chunks"
)

// SQLite scans vectors stored on the chunk rows in process. It trades search
// speed for a zero-infrastructure setup and suits small corpora and tests.
type SQLite struct {
	db     *sql.DB
	metric Metric
}

// NewSQLite builds an inline store over an open database. The caller owns
// the database handle.
func NewSQLite(db *sql.DB, metric Metric) *SQLite {
	if metric == "" {
		metric = MetricCosine
	}
	return &SQLite{db: db, metric: metric}
}

// Connect verifies the database is reachable and the schema exists.
func (s *SQLite) Connect(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return chunks.EnsureSchema(s.db)
}

// Close is a no-op; the shared database handle outlives the store.
func (s *SQLite) Close() error { return nil }

// Inline reports true: vectors are written by the chunk repository and this
// store only scans them.
func (s *SQLite) Inline() bool { return true }

// EnsureCollection is satisfied by the schema; rows carry their own
// dimension, so nothing is keyed on it here.
func (s *SQLite) EnsureCollection(ctx context.Context, name string, dimension int) error {
	return chunks.EnsureSchema(s.db)
}

// ResetCollection detaches every vector of the collection's project. Row
// deletion is the chunk repository's concern.
func (s *SQLite) ResetCollection(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET vector = NULL WHERE project_id = ? AND vector IS NOT NULL`,
		projectFromCollection(name))
	if err != nil {
		return false, fmt.Errorf("reset collection %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset collection %s: %w", name, err)
	}
	return n > 0, nil
}

// InsertMany attaches vectors to existing chunk rows, or creates standalone
// rows for batches without external ids.
func (s *SQLite) InsertMany(ctx context.Context, name string, batch *InsertBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	if len(batch.Texts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	if batch.Mode == AttachVectors {
		stmt, err := tx.PrepareContext(ctx, `UPDATE chunks SET vector = ? WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("prepare attach: %w", err)
		}
		defer stmt.Close()
		for i := range batch.Texts {
			if _, err := stmt.ExecContext(ctx, chunks.VectorBlob(batch.Vectors[i]), batch.ExternalIDs[i]); err != nil {
				return fmt.Errorf("attach vector to chunk %d: %w", batch.ExternalIDs[i], err)
			}
		}
	} else {
		project := projectFromCollection(name)
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (text, metadata, chunk_order, project_id, asset_id, vector)
			VALUES (?, '{}', ?, ?, '', ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		for i := range batch.Texts {
			if _, err := stmt.ExecContext(ctx, batch.Texts[i], i, project, chunks.VectorBlob(batch.Vectors[i])); err != nil {
				return fmt.Errorf("insert record %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Search scores every embedded row of the project against the query vector
// and returns the top matches by descending score. Rows whose stored vector
// has a different dimension are skipped rather than failing the search.
func (s *SQLite) Search(ctx context.Context, name string, vector []float32, limit int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, vector FROM chunks WHERE project_id = ? AND vector IS NOT NULL`,
		projectFromCollection(name))
	if err != nil {
		return nil, fmt.Errorf("scan collection %s: %w", name, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var text string
		var blob []byte
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		stored, err := chunks.VectorFromBlob(blob)
		if err != nil || len(stored) != len(vector) {
			continue
		}
		matches = append(matches, Match{Text: text, Score: s.score(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan collection %s: %w", name, err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CollectionInfo counts the embedded rows of the collection's project.
func (s *SQLite) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	var n uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE project_id = ? AND vector IS NOT NULL`,
		projectFromCollection(name)).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("count collection %s: %w", name, err)
	}
	return &CollectionInfo{RecordCount: n}, nil
}

func (s *SQLite) score(query, stored []float32) float32 {
	var dot, qNorm, sNorm float64
	for i := range query {
		dot += float64(query[i]) * float64(stored[i])
		qNorm += float64(query[i]) * float64(query[i])
		sNorm += float64(stored[i]) * float64(stored[i])
	}
	if s.metric == MetricDot {
		return float32(dot)
	}
	if qNorm == 0 || sNorm == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(qNorm) * math.Sqrt(sNorm)))
}
