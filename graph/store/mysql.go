package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore persists snapshots in MySQL, for sessions whose reports are
// shared across machines.
//
// Example:
//
//	st, err := store.NewMySQLStore[machine.Snapshot]("user:pass@tcp(localhost:3306)/mbt?parseTime=true")
type MySQLStore[S any] struct {
	sqlStore[S]
}

// NewMySQLStore connects to dsn, verifies the connection and creates the
// schema if needed.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore[S]{}
	m.db = db
	m.upsertStep = `
		INSERT INTO session_steps (session_id, step, element_id, snapshot)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			element_id = VALUES(element_id),
			snapshot = VALUES(snapshot)
	`
	m.upsertCheckpoint = `
		INSERT INTO session_checkpoints (checkpoint_id, snapshot, step)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			snapshot = VALUES(snapshot),
			step = VALUES(step)
	`

	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	stepsTable := `
		CREATE TABLE IF NOT EXISTS session_steps (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			element_id VARCHAR(255) NOT NULL,
			snapshot JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY unique_session_step (session_id, step)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, stepsTable); err != nil {
		return fmt.Errorf("failed to create session_steps table: %w", err)
	}

	checkpointsTable := `
		CREATE TABLE IF NOT EXISTS session_checkpoints (
			checkpoint_id VARCHAR(255) NOT NULL PRIMARY KEY,
			snapshot JSON NOT NULL,
			step INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, checkpointsTable); err != nil {
		return fmt.Errorf("failed to create session_checkpoints table: %w", err)
	}
	return nil
}

// Stats returns connection pool statistics.
func (m *MySQLStore[S]) Stats() sql.DBStats {
	return m.db.Stats()
}

// WithTransaction runs fn in a read-committed transaction, committing when
// it returns nil and rolling back otherwise.
func (m *MySQLStore[S]) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
