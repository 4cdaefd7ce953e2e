package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots in a SQLite database through the pure-Go
// modernc.org/sqlite driver. Use ":memory:" for a throwaway database.
//
// Example:
//
//	st, err := store.NewSQLiteStore[machine.Snapshot]("./sessions.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
type SQLiteStore[S any] struct {
	sqlStore[S]
	path string
}

// NewSQLiteStore opens path and creates the schema if needed.
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite has one writer; a single connection also keeps a ":memory:"
	// database alive for the store's lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore[S]{path: path}
	s.db = db
	s.upsertStep = `
		INSERT INTO session_steps (session_id, step, element_id, snapshot)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, step) DO UPDATE SET
			element_id = excluded.element_id,
			snapshot = excluded.snapshot
	`
	s.upsertCheckpoint = `
		INSERT INTO session_checkpoints (checkpoint_id, snapshot, step)
		VALUES (?, ?, ?)
		ON CONFLICT(checkpoint_id) DO UPDATE SET
			snapshot = excluded.snapshot,
			step = excluded.step,
			updated_at = CURRENT_TIMESTAMP
	`

	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS session_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			element_id TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, step)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_steps_session ON session_steps(session_id, step)`,
		`CREATE TABLE IF NOT EXISTS session_checkpoints (
			checkpoint_id TEXT PRIMARY KEY,
			snapshot TEXT NOT NULL,
			step INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore[S]) Path() string { return s.path }
