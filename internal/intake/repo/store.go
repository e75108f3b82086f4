package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hospitalbot-poc/server/internal/intake/model"
	logx "github.com/hospitalbot-poc/server/pkg/logger"

	_ "modernc.org/sqlite"
)

// schema defines the two warehouse tables the gateway owns plus the
// externally-populated patient registry. The transcript log is append-only;
// entity_record keys on (session_id, entity) so the merge upsert can rely on
// the conflict target.
const schema = `
CREATE TABLE IF NOT EXISTS transcript (
    session_id TEXT NOT NULL,
    request    TEXT NOT NULL,
    query      TEXT NOT NULL,
    response   TEXT NOT NULL,
    timestamp  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript(session_id, timestamp);

CREATE TABLE IF NOT EXISTS entity_record (
    session_id      TEXT NOT NULL,
    entity          TEXT NOT NULL,
    detail          TEXT,
    entity_original TEXT NOT NULL,
    detail_original TEXT,
    PRIMARY KEY (session_id, entity)
);

CREATE TABLE IF NOT EXISTS patient_info (
    mrn       TEXT PRIMARY KEY,
    firstname TEXT NOT NULL,
    lastname  TEXT NOT NULL
);
`

// Store wraps the warehouse connection. It is the single injected
// persistence client; components receive it at construction.
type Store struct {
	db *sql.DB
}

// New opens the warehouse database, applies the schema, and verifies the
// connection.
func NewStore(cfg model.StoreConfig) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// sqlite tolerates one writer; a single pooled connection avoids
	// SQLITE_BUSY churn and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logx.Info().Str("dsn", cfg.DSN).Msg("store initialised")
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the warehouse is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
