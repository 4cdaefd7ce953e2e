package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemStore keeps snapshots in memory. It is meant for tests and single
// process runs; MarshalJSON and UnmarshalJSON let a run dump and reload it.
type MemStore[S any] struct {
	mu          sync.RWMutex
	steps       map[string][]StepRecord[S] // session id -> saved steps
	checkpoints map[string]Checkpoint[S]
}

func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		steps:       make(map[string][]StepRecord[S]),
		checkpoints: make(map[string]Checkpoint[S]),
	}
}

// SaveStep appends a step; saving the same step number again replaces it.
func (m *MemStore[S]) SaveStep(_ context.Context, sessionID string, step int, elementID string, snapshot S) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := StepRecord[S]{Step: step, ElementID: elementID, Snapshot: snapshot}
	records := m.steps[sessionID]
	for i := range records {
		if records[i].Step == step {
			records[i] = record
			return nil
		}
	}
	m.steps[sessionID] = append(records, record)
	return nil
}

// LoadLatest returns the step with the highest number, whatever the order
// steps were saved in.
func (m *MemStore[S]) LoadLatest(_ context.Context, sessionID string) (snapshot S, step int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.steps[sessionID]
	if len(records) == 0 {
		var zero S
		return zero, 0, ErrNotFound
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.Step > latest.Step {
			latest = r
		}
	}
	return latest.Snapshot, latest.Step, nil
}

// History returns the saved steps of a session in save order.
func (m *MemStore[S]) History(sessionID string) []StepRecord[S] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]StepRecord[S](nil), m.steps[sessionID]...)
}

func (m *MemStore[S]) SaveCheckpoint(_ context.Context, cpID string, snapshot S, step int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[cpID] = Checkpoint[S]{ID: cpID, Snapshot: snapshot, Step: step}
	return nil
}

func (m *MemStore[S]) LoadCheckpoint(_ context.Context, cpID string) (snapshot S, step int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[cpID]
	if !ok {
		var zero S
		return zero, 0, ErrNotFound
	}
	return cp.Snapshot, cp.Step, nil
}

type serializableMemStore[S any] struct {
	Steps       map[string][]StepRecord[S] `json:"steps"`
	Checkpoints map[string]Checkpoint[S]   `json:"checkpoints"`
}

func (m *MemStore[S]) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return json.Marshal(serializableMemStore[S]{Steps: m.steps, Checkpoints: m.checkpoints})
}

// UnmarshalJSON replaces the store's contents.
func (m *MemStore[S]) UnmarshalJSON(data []byte) error {
	var s serializableMemStore[S]
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.Steps == nil {
		s.Steps = make(map[string][]StepRecord[S])
	}
	if s.Checkpoints == nil {
		s.Checkpoints = make(map[string]Checkpoint[S])
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = s.Steps
	m.checkpoints = s.Checkpoints
	return nil
}
