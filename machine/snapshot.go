package machine

import (
	"context"
	"errors"
	"fmt"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
	"github.com/vgarousi/Fault-tolerance-for-MBT/graph/store"
)

// Snapshot is the persisted state of a session: every context's position,
// execution status and vertex statuses, keyed by element id so it can be
// restored onto freshly built runtime models.
type Snapshot struct {
	SessionID string            `json:"session_id"`
	Step      int               `json:"step"`
	Current   int               `json:"current"`
	Contexts  []ContextSnapshot `json:"contexts"`
}

// ContextSnapshot is the persisted state of one Context. A vertex and an
// edge may share an id, so each position also records its kind, "vertex"
// or "edge".
type ContextSnapshot struct {
	Name        string                `json:"name"`
	Model       string                `json:"model,omitempty"`
	Status      ExecutionStatus       `json:"status"`
	Start       string                `json:"start,omitempty"`
	StartKind   string                `json:"start_kind,omitempty"`
	Current     string                `json:"current,omitempty"`
	CurrentKind string                `json:"current_kind,omitempty"`
	Last        string                `json:"last,omitempty"`
	LastKind    string                `json:"last_kind,omitempty"`
	NextEdge    string                `json:"next_edge,omitempty"`
	Retry       string                `json:"retry,omitempty"`
	Statuses    map[string]NodeStatus `json:"statuses"`
	Coverage    Coverage              `json:"coverage"`
}

// Snapshot captures the machine's state.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID: m.sessionID,
		Step:      m.step,
		Current:   m.current,
		Contexts:  make([]ContextSnapshot, 0, len(m.contexts)),
	}
	for _, c := range m.contexts {
		snap.Contexts = append(snap.Contexts, c.snapshot())
	}
	return snap
}

func (c *Context) snapshot() ContextSnapshot {
	c.mu.RLock()
	cs := ContextSnapshot{
		Name:        c.name,
		Model:       c.model.ID(),
		Status:      c.status,
		Start:       elementID(c.start),
		StartKind:   elementKind(c.start),
		Current:     elementID(c.current),
		CurrentKind: elementKind(c.current),
		Last:        elementID(c.last),
		LastKind:    elementKind(c.last),
		Statuses:    c.statuses.Snapshot(),
	}
	if c.nextEdge != nil {
		cs.NextEdge = c.nextEdge.ID()
	}
	if c.retry != nil {
		cs.Retry = c.retry.ID()
	}
	c.mu.RUnlock()
	cs.Coverage = c.Coverage()
	return cs
}

// Restore loads the latest snapshot of sessionID from the configured store
// and applies it, so Run continues where the saved session stopped. The
// machine adopts sessionID. Contexts are matched by name; every context in
// the snapshot must exist in the machine.
func (m *Machine) Restore(ctx context.Context, sessionID string) error {
	if m.store == nil {
		return &SessionError{Message: "restore needs a store", Code: "NO_STORE"}
	}
	snap, _, err := m.store.LoadLatest(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &SessionError{Message: "no saved session " + sessionID, Code: "SESSION_NOT_FOUND", Err: err}
		}
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return m.ApplySnapshot(snap)
}

// ApplySnapshot restores the machine from snap. Nothing is changed when
// snap references a context or element the machine does not know.
func (m *Machine) ApplySnapshot(snap Snapshot) error {
	byName := make(map[string]*Context, len(m.contexts))
	for _, c := range m.contexts {
		byName[c.name] = c
	}

	type resolved struct {
		c                    *Context
		cs                   ContextSnapshot
		start, current, last graph.Element
		next                 *graph.RuntimeEdge
		retry                *graph.RuntimeVertex
	}
	plan := make([]resolved, 0, len(snap.Contexts))
	for _, cs := range snap.Contexts {
		c, ok := byName[cs.Name]
		if !ok {
			return &SessionError{Message: "snapshot has unknown context " + cs.Name, Code: "INVALID_SNAPSHOT"}
		}
		r := resolved{c: c, cs: cs}
		var err error
		if r.start, err = resolveElement(c.model, cs.Start, cs.StartKind); err != nil {
			return err
		}
		if r.current, err = resolveElement(c.model, cs.Current, cs.CurrentKind); err != nil {
			return err
		}
		if r.last, err = resolveElement(c.model, cs.Last, cs.LastKind); err != nil {
			return err
		}
		if cs.Retry != "" {
			v, ok := c.model.Vertex(cs.Retry)
			if !ok {
				return &SessionError{Message: "snapshot has unknown vertex " + cs.Retry, Code: "INVALID_SNAPSHOT", Err: ErrUnknownVertex}
			}
			r.retry = v
		}
		if cs.NextEdge != "" {
			e, ok := c.model.Edge(cs.NextEdge)
			if !ok {
				return &SessionError{Message: "snapshot has unknown edge " + cs.NextEdge, Code: "INVALID_SNAPSHOT", Err: ErrUnknownVertex}
			}
			r.next = e
		}
		for id := range cs.Statuses {
			if _, ok := c.model.Vertex(id); !ok {
				return &SessionError{Message: "snapshot has unknown vertex " + id, Code: "INVALID_SNAPSHOT", Err: ErrUnknownVertex}
			}
		}
		plan = append(plan, r)
	}
	if snap.Current < 0 || snap.Current >= len(m.contexts) {
		return &SessionError{Message: fmt.Sprintf("snapshot current context %d out of range", snap.Current), Code: "INVALID_SNAPSHOT"}
	}

	for _, r := range plan {
		r.c.statuses.Reset()
		if err := r.c.statuses.Restore(r.cs.Statuses); err != nil {
			return err
		}
		r.c.mu.Lock()
		if r.start != nil {
			r.c.start = r.start
		}
		r.c.current = r.current
		r.c.last = r.last
		r.c.nextEdge = r.next
		r.c.retry = r.retry
		r.c.status = r.cs.Status
		r.c.mu.Unlock()
	}
	if snap.SessionID != "" {
		m.sessionID = snap.SessionID
		m.logger = m.base.With("session_id", snap.SessionID)
	}
	m.step = snap.Step
	m.current = snap.Current
	m.failure = nil
	return nil
}

// resolveElement looks id up by kind. Without a kind, vertices win.
func resolveElement(model *graph.RuntimeModel, id, kind string) (graph.Element, error) {
	if id == "" {
		return nil, nil
	}
	var (
		e  graph.Element
		ok bool
	)
	switch kind {
	case "vertex":
		var v *graph.RuntimeVertex
		if v, ok = model.Vertex(id); ok {
			e = v
		}
	case "edge":
		var edge *graph.RuntimeEdge
		if edge, ok = model.Edge(id); ok {
			e = edge
		}
	case "":
		e, ok = model.Element(id)
	default:
		return nil, &SessionError{Message: fmt.Sprintf("snapshot has unknown element kind %q", kind), Code: "INVALID_SNAPSHOT"}
	}
	if !ok {
		return nil, &SessionError{Message: "snapshot has unknown element " + id, Code: "INVALID_SNAPSHOT", Err: ErrUnknownVertex}
	}
	return e, nil
}

func elementID(e graph.Element) string {
	if e == nil {
		return ""
	}
	return e.ID()
}

func elementKind(e graph.Element) string {
	if e == nil {
		return ""
	}
	return kindOf(e)
}
