// Package chunks persists document segments in SQLite. The same table backs
// the inline vector-store variant, which attaches and scans the vector
// column of these rows.
package chunks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Chunk is one stored document segment. Vector is nil until an embedding is
// attached.
type Chunk struct {
	ID        int64
	Text      string
	Metadata  map[string]string
	Order     int
	ProjectID string
	AssetID   string
	Vector    []float32
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	text        TEXT NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	chunk_order INTEGER NOT NULL,
	project_id  TEXT NOT NULL,
	asset_id    TEXT NOT NULL,
	vector      BLOB
);
CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id);
`

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Serialized access keeps the modernc driver happy under the ingestion
	// worker pool.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	return db, nil
}

// Repository stores and deletes chunk rows.
type Repository struct {
	db *sql.DB
}

// EnsureSchema creates the chunks table and its indexes if missing.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("ensure chunks schema: %w", err)
	}
	return nil
}

// NewRepository ensures the schema exists and returns a repository over db.
func NewRepository(db *sql.DB) (*Repository, error) {
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// InsertMany inserts chunk rows in one transaction and returns the assigned
// ids in input order. Vectors present on the chunks are stored inline.
func (r *Repository) InsertMany(ctx context.Context, items []*Chunk) ([]int64, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (text, metadata, chunk_order, project_id, asset_id, vector)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(items))
	for _, c := range items {
		meta, err := json.Marshal(orEmpty(c.Metadata))
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		var vector any
		if c.Vector != nil {
			vector = VectorBlob(c.Vector)
		}
		res, err := stmt.ExecContext(ctx, c.Text, string(meta), c.Order, c.ProjectID, c.AssetID, vector)
		if err != nil {
			return nil, fmt.Errorf("insert chunk: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return ids, nil
}

// DeleteByProject removes every chunk row of a project and returns the
// number of deleted rows.
func (r *Repository) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("delete project chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted chunks: %w", err)
	}
	return n, nil
}

// CountByProject returns the number of chunk rows stored for a project.
func (r *Repository) CountByProject(ctx context.Context, projectID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count project chunks: %w", err)
	}
	return n, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
