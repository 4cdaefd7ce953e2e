package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// sqlStore holds the queries shared by the SQL backends. Each backend
// supplies its own upsert statements and snapshot column scanning.
type sqlStore[S any] struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool

	upsertStep       string
	upsertCheckpoint string
}

func (s *sqlStore[S]) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *sqlStore[S]) SaveStep(ctx context.Context, sessionID string, step int, elementID string, snapshot S) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.upsertStep, sessionID, step, elementID, string(data)); err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

func (s *sqlStore[S]) LoadLatest(ctx context.Context, sessionID string) (snapshot S, step int, err error) {
	if err := s.checkOpen(); err != nil {
		return snapshot, 0, err
	}
	const query = `
		SELECT step, snapshot
		FROM session_steps
		WHERE session_id = ?
		ORDER BY step DESC
		LIMIT 1
	`
	var data []byte
	err = s.db.QueryRowContext(ctx, query, sessionID).Scan(&step, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot, 0, ErrNotFound
	}
	if err != nil {
		return snapshot, 0, fmt.Errorf("failed to load latest step: %w", err)
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		var zero S
		return zero, 0, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snapshot, step, nil
}

func (s *sqlStore[S]) SaveCheckpoint(ctx context.Context, cpID string, snapshot S, step int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.upsertCheckpoint, cpID, string(data), step); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *sqlStore[S]) LoadCheckpoint(ctx context.Context, cpID string) (snapshot S, step int, err error) {
	if err := s.checkOpen(); err != nil {
		return snapshot, 0, err
	}
	const query = `SELECT snapshot, step FROM session_checkpoints WHERE checkpoint_id = ?`
	var data []byte
	err = s.db.QueryRowContext(ctx, query, cpID).Scan(&data, &step)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot, 0, ErrNotFound
	}
	if err != nil {
		return snapshot, 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		var zero S
		return zero, 0, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snapshot, step, nil
}

// Sessions lists the ids of sessions with saved steps, most recent first.
func (s *sqlStore[S]) Sessions(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id
		FROM session_steps
		GROUP BY session_id
		ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping verifies the database connection.
func (s *sqlStore[S]) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Close releases the connection. It is safe to call more than once.
func (s *sqlStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
