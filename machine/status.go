// Package machine executes a model of a system under test: it steps an
// execution context through the runtime graph, records per-vertex coverage
// and failure status, and hands step failures to a pluggable recovery
// strategy so a single failure does not have to abort the whole run.
package machine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
)

// NodeStatus is the session-scoped coverage and failure marker of a vertex.
type NodeStatus int

const (
	// NodeNotCovered is the default: the vertex has not been visited successfully.
	NodeNotCovered NodeStatus = iota
	// NodeCovered means the vertex was entered and its actions succeeded.
	NodeCovered
	// NodeFailed means the vertex's actions failed.
	NodeFailed
	// NodeNotReachable means no covered vertex can reach the vertex anymore
	// without passing through a failed one.
	NodeNotReachable
)

var nodeStatusNames = [...]string{
	NodeNotCovered:   "NOT_COVERED",
	NodeCovered:      "COVERED",
	NodeFailed:       "FAILED",
	NodeNotReachable: "NOT_REACHABLE",
}

func (s NodeStatus) String() string {
	if s < 0 || int(s) >= len(nodeStatusNames) {
		return fmt.Sprintf("NodeStatus(%d)", int(s))
	}
	return nodeStatusNames[s]
}

// ParseNodeStatus converts the String form back into a NodeStatus.
func ParseNodeStatus(s string) (NodeStatus, error) {
	for i, name := range nodeStatusNames {
		if name == s {
			return NodeStatus(i), nil
		}
	}
	return NodeNotCovered, fmt.Errorf("unknown node status %q", s)
}

func (s NodeStatus) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(nodeStatusNames) {
		return nil, fmt.Errorf("invalid node status %d", int(s))
	}
	return []byte(nodeStatusNames[s]), nil
}

func (s *NodeStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StatusTable holds the NodeStatus of every vertex of one runtime model for
// one execution session.
//
// Status is kept beside the immutable graph rather than inside it, so the
// same RuntimeModel can back several concurrent sessions, each with its own
// table. The table is safe for concurrent use: a reporting goroutine may read
// a Snapshot while the session steps.
type StatusTable struct {
	mu       sync.RWMutex
	model    *graph.RuntimeModel
	statuses map[*graph.RuntimeVertex]NodeStatus
}

// NewStatusTable creates a table with every vertex of model NodeNotCovered.
func NewStatusTable(model *graph.RuntimeModel) *StatusTable {
	return &StatusTable{
		model:    model,
		statuses: make(map[*graph.RuntimeVertex]NodeStatus),
	}
}

// Get returns the status of v. Vertices never set are NodeNotCovered.
func (t *StatusTable) Get(v *graph.RuntimeVertex) NodeStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statuses[v]
}

// Set assigns the status of v.
func (t *StatusTable) Set(v *graph.RuntimeVertex, s NodeStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statuses[v] = s
}

// Count returns how many vertices of the model currently have status s.
func (t *StatusTable) Count(s NodeStatus) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, v := range t.model.Vertices() {
		if t.statuses[v] == s {
			n++
		}
	}
	return n
}

// Reset puts every vertex back to NodeNotCovered.
func (t *StatusTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.statuses)
}

// Snapshot returns the status of every vertex keyed by vertex id.
func (t *StatusTable) Snapshot() map[string]NodeStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := make(map[string]NodeStatus, len(t.statuses))
	for _, v := range t.model.Vertices() {
		snap[v.ID()] = t.statuses[v]
	}
	return snap
}

// Restore applies a Snapshot. Ids unknown to the model are rejected before
// anything is changed; vertices absent from the snapshot keep their status.
func (t *StatusTable) Restore(snap map[string]NodeStatus) error {
	resolved := make(map[*graph.RuntimeVertex]NodeStatus, len(snap))
	for id, s := range snap {
		v, ok := t.model.Vertex(id)
		if !ok {
			return fmt.Errorf("restore status: %w: %q", ErrUnknownVertex, id)
		}
		resolved[v] = s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for v, s := range resolved {
		t.statuses[v] = s
	}
	return nil
}

func (t *StatusTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Snapshot())
}

// UnmarshalJSON restores a table written by MarshalJSON. The table must
// already be bound to its model via NewStatusTable.
func (t *StatusTable) UnmarshalJSON(data []byte) error {
	var snap map[string]NodeStatus
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	return t.Restore(snap)
}
