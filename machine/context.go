package machine

import (
	"fmt"
	"sync"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
)

// Context is the mutable state of one execution session over one runtime
// model: the traversal position, a staged try-again edge, the execution
// status and the per-vertex status table.
//
// Only the Machine and exception strategies mutate a Context. The position
// and status are guarded by a mutex so observers may read them while the
// session runs on its own goroutine.
type Context struct {
	mu        sync.RWMutex
	name      string
	model     *graph.RuntimeModel
	statuses  *StatusTable
	generator PathGenerator
	start     graph.Element
	current   graph.Element
	last      graph.Element
	nextEdge  *graph.RuntimeEdge
	retry     *graph.RuntimeVertex
	status    ExecutionStatus
}

// NewContext creates a context for model driven by generator.
//
// When the model has start edges the first one becomes the start element;
// use SetStartElement to begin elsewhere.
func NewContext(name string, model *graph.RuntimeModel, generator PathGenerator) *Context {
	c := &Context{
		name:      name,
		model:     model,
		statuses:  NewStatusTable(model),
		generator: generator,
	}
	if starts := model.StartEdges(); len(starts) > 0 {
		c.start = starts[0]
	}
	return c
}

func (c *Context) Name() string                 { return c.name }
func (c *Context) Model() *graph.RuntimeModel   { return c.model }
func (c *Context) Statuses() *StatusTable       { return c.statuses }
func (c *Context) PathGenerator() PathGenerator { return c.generator }

// SetStartElement sets where the session begins: a start edge or a vertex.
func (c *Context) SetStartElement(e graph.Element) error {
	if !c.owns(e) {
		return fmt.Errorf("start element: %w", ErrUnknownVertex)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = e
	return nil
}

func (c *Context) StartElement() graph.Element {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.start
}

// CurrentElement returns the vertex or edge the session is positioned on.
func (c *Context) CurrentElement() graph.Element {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// LastElement returns the element the session was on before the current one.
// When the current element is a vertex entered normally, this is the edge
// that led into it.
func (c *Context) LastElement() graph.Element {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// SetCurrentElement moves the session to e; the previous current element
// becomes the last element.
func (c *Context) SetCurrentElement(e graph.Element) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = c.current
	c.current = e
}

// NextEdgeTryAgain returns the staged edge, nil when none is staged.
func (c *Context) NextEdgeTryAgain() *graph.RuntimeEdge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nextEdge
}

// SetNextEdgeTryAgain stages e as the very next step. The machine takes it
// instead of asking the path generator, exactly once.
func (c *Context) SetNextEdgeTryAgain(e *graph.RuntimeEdge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextEdge = e
}

// takeNextEdgeTryAgain consumes the staged edge. A staged edge into a
// NodeFailed vertex starts a retry of that vertex.
func (c *Context) takeNextEdgeTryAgain() *graph.RuntimeEdge {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.nextEdge
	c.nextEdge = nil
	if e != nil && c.statuses.Get(e.TargetVertex()) == NodeFailed {
		c.retry = e.TargetVertex()
	}
	return e
}

// takeRetry reports whether v is entered as the retry of a failed vertex,
// and ends any pending retry.
func (c *Context) takeRetry(v *graph.RuntimeVertex) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	retrying := c.retry == v
	c.retry = nil
	return retrying
}

func (c *Context) ExecutionStatus() ExecutionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Context) SetExecutionStatus(s ExecutionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// NodeStatus is shorthand for Statuses().Get(v).
func (c *Context) NodeStatus(v *graph.RuntimeVertex) NodeStatus {
	return c.statuses.Get(v)
}

// AvailableEdges returns the edges leaving v whose target has not failed.
// A failed vertex is never offered to the path generator as a target.
func (c *Context) AvailableEdges(v *graph.RuntimeVertex) []*graph.RuntimeEdge {
	var available []*graph.RuntimeEdge
	for _, e := range c.model.OutEdges(v) {
		if c.statuses.Get(e.TargetVertex()) != NodeFailed {
			available = append(available, e)
		}
	}
	return available
}

// Coverage returns a snapshot of the vertex statuses.
func (c *Context) Coverage() Coverage {
	cov := Coverage{}
	for _, s := range c.statuses.Snapshot() {
		cov.Total++
		switch s {
		case NodeNotCovered:
			cov.NotCovered++
		case NodeCovered:
			cov.Covered++
		case NodeFailed:
			cov.Failed++
		case NodeNotReachable:
			cov.NotReachable++
		}
	}
	return cov
}

// owns reports whether e belongs to the context's model.
func (c *Context) owns(e graph.Element) bool {
	switch el := e.(type) {
	case *graph.RuntimeVertex:
		return c.model.Contains(el)
	case *graph.RuntimeEdge:
		found, ok := c.model.Edge(el.ID())
		return ok && found == el
	default:
		return false
	}
}

// Coverage counts vertices per NodeStatus at one point in time.
type Coverage struct {
	Total        int `json:"total"`
	Covered      int `json:"covered"`
	NotCovered   int `json:"not_covered"`
	Failed       int `json:"failed"`
	NotReachable int `json:"not_reachable"`
}

// Raw is the covered fraction of all vertices.
func (c Coverage) Raw() float64 {
	if c.Total == 0 {
		return 1
	}
	return float64(c.Covered) / float64(c.Total)
}

// Reachable is the covered fraction of the vertices that can still be
// covered, i.e. excluding failed and unreachable ones.
func (c Coverage) Reachable() float64 {
	achievable := c.Total - c.Failed - c.NotReachable
	if achievable <= 0 {
		return 1
	}
	return float64(c.Covered) / float64(achievable)
}
