package machine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
)

// buildModel builds a model from "A>B" edge patterns. Vertex ids are the
// letters, edge ids are "A>B", and a start edge "start" enters the source
// of the first pattern.
func buildModel(t *testing.T, patterns ...string) *graph.RuntimeModel {
	t.Helper()
	m := graph.NewModel().SetID("test")
	vertices := make(map[string]*graph.Vertex)
	vertex := func(id string) *graph.Vertex {
		if v, ok := vertices[id]; ok {
			return v
		}
		v := graph.NewVertex().SetID(id).SetName(id)
		vertices[id] = v
		m.AddVertex(v)
		return v
	}
	for i, pattern := range patterns {
		ends := strings.Split(pattern, ">")
		if len(ends) == 1 {
			vertex(ends[0])
			continue
		}
		src, dst := vertex(ends[0]), vertex(ends[1])
		if i == 0 {
			m.AddEdge(graph.NewEdge().SetID("start").SetTargetVertex(src))
		}
		m.AddEdge(graph.NewEdge().SetID(pattern).SetSourceVertex(src).SetTargetVertex(dst))
	}
	rm, err := m.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return rm
}

func vertexOf(t *testing.T, rm *graph.RuntimeModel, id string) *graph.RuntimeVertex {
	t.Helper()
	v, ok := rm.Vertex(id)
	if !ok {
		t.Fatalf("vertex %s not found", id)
	}
	return v
}

func edgeOf(t *testing.T, rm *graph.RuntimeModel, id string) *graph.RuntimeEdge {
	t.Helper()
	e, ok := rm.Edge(id)
	if !ok {
		t.Fatalf("edge %s not found", id)
	}
	return e
}

// firstEdge always takes the first candidate and stops when stop says so.
type firstEdge struct {
	stop func(c *Context) bool
}

func (g firstEdge) HasNext(c *Context) bool {
	return g.stop == nil || !g.stop(c)
}

func (g firstEdge) Next(_ *Context, candidates []*graph.RuntimeEdge) (*graph.RuntimeEdge, error) {
	return candidates[0], nil
}

// fullCoverage stops once every achievable vertex is covered.
func fullCoverage(c *Context) bool {
	return c.Coverage().Reachable() >= 1
}

// recordingExecutor records visited element ids and fails elements listed
// in failures as many times as their count says.
type recordingExecutor struct {
	mu       sync.Mutex
	visited  []string
	failures map[string]int
}

func newRecordingExecutor(failures map[string]int) *recordingExecutor {
	if failures == nil {
		failures = map[string]int{}
	}
	return &recordingExecutor{failures: failures}
}

var errActionFailed = errors.New("action failed")

func (r *recordingExecutor) Execute(_ context.Context, _ *Context, e graph.Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visited = append(r.visited, e.ID())
	if r.failures[e.ID()] > 0 {
		r.failures[e.ID()]--
		return errActionFailed
	}
	return nil
}

func (r *recordingExecutor) path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.visited, " ")
}

// visitExecutor records visited element ids and fails an element on the
// visit number failOn lists for it, counting from 1.
type visitExecutor struct {
	recordingExecutor
	failOn map[string]int
	visits map[string]int
}

func newVisitExecutor(failOn map[string]int) *visitExecutor {
	return &visitExecutor{failOn: failOn, visits: map[string]int{}}
}

func (x *visitExecutor) Execute(_ context.Context, _ *Context, e graph.Element) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.visited = append(x.visited, e.ID())
	x.visits[e.ID()]++
	if n, ok := x.failOn[e.ID()]; ok && x.visits[e.ID()] == n {
		return errActionFailed
	}
	return nil
}

// guardedExecutor adds guard evaluation: edges listed false are blocked.
type guardedExecutor struct {
	*recordingExecutor
	blocked map[string]bool
}

func (g guardedExecutor) EvaluateGuard(_ context.Context, _ *Context, e *graph.RuntimeEdge) (bool, error) {
	return !g.blocked[e.ID()], nil
}

// positionAt moves c onto v as if it had just entered v through edge in.
func positionAt(c *Context, in *graph.RuntimeEdge, v *graph.RuntimeVertex) {
	c.SetCurrentElement(in)
	c.SetCurrentElement(v)
	c.SetExecutionStatus(Executing)
}
