package vectorstore

import (
	"database/sql"
	"fmt"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend Backend
	Host    string
	Port    int
	Metric  Metric
}

// New builds the configured store. The database handle is required for the
// SQLite backend and ignored otherwise.
func New(cfg Config, db *sql.DB) (Store, error) {
	switch cfg.Backend {
	case BackendQdrant:
		return NewQdrant(cfg.Host, cfg.Port, cfg.Metric), nil
	case BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("sqlite backend requires a database handle")
		}
		return NewSQLite(db, cfg.Metric), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
