// Package store persists test session snapshots so coverage and failure
// status outlive the process that produced them.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session or checkpoint has no saved record.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store persists session snapshots of type S.
//
// SaveStep records the snapshot taken after a step; LoadLatest returns the
// one with the highest step number. Checkpoints are named snapshots, e.g.
// one per finished test suite, that are overwritten on save.
//
// Implementations must be safe for concurrent use and must encode S as
// JSON, so S needs exported fields or json.Marshaler.
type Store[S any] interface {
	SaveStep(ctx context.Context, sessionID string, step int, elementID string, snapshot S) error

	LoadLatest(ctx context.Context, sessionID string) (snapshot S, step int, err error)

	SaveCheckpoint(ctx context.Context, cpID string, snapshot S, step int) error

	LoadCheckpoint(ctx context.Context, cpID string) (snapshot S, step int, err error)
}

// StepRecord is one saved step of a session.
type StepRecord[S any] struct {
	Step      int    `json:"step"`
	ElementID string `json:"element_id"`
	Snapshot  S      `json:"snapshot"`
}

// Checkpoint is a named snapshot.
type Checkpoint[S any] struct {
	ID       string `json:"id"`
	Snapshot S      `json:"snapshot"`
	Step     int    `json:"step"`
}
