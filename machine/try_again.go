package machine

import (
	"fmt"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
)

// TryAgainStrategy retries a failed vertex exactly once by stepping back to
// the source of the edge that led into it and re-taking that edge.
//
// A vertex failure marks the vertex NodeFailed, moves the context to the
// edge's source vertex and stages the edge as the next step. A second
// failure of a vertex that is already NodeFailed ends the session. Edge
// failures are treated as transient and the session carries on to the
// edge's target.
type TryAgainStrategy struct{}

func (TryAgainStrategy) Name() string { return "try-again" }

func (TryAgainStrategy) Handle(_ *Machine, err *MachineError) error {
	c := err.Context
	switch failed := err.Element.(type) {
	case *graph.RuntimeEdge:
		if c.NodeStatus(failed.TargetVertex()) == NodeFailed {
			c.SetExecutionStatus(Executing)
		}
		return nil

	case *graph.RuntimeVertex:
		if c.NodeStatus(failed) == NodeFailed {
			c.SetExecutionStatus(ExecutionFailed)
			return err
		}
		c.Statuses().Set(failed, NodeFailed)

		edge, source, rerr := incomingEdge(c)
		if rerr != nil {
			c.SetExecutionStatus(ExecutionFailed)
			return fmt.Errorf("%w: %w", rerr, err)
		}
		c.SetExecutionStatus(Executing)
		c.SetCurrentElement(source)
		c.SetNextEdgeTryAgain(edge)
		return nil

	case nil:
		c.SetExecutionStatus(ExecutionFailed)
		return fmt.Errorf("%w: %w", ErrNoCurrentElement, err)

	default:
		c.SetExecutionStatus(ExecutionFailed)
		return err
	}
}

// incomingEdge returns the edge the context's current vertex was entered
// through, and that edge's source vertex.
func incomingEdge(c *Context) (*graph.RuntimeEdge, *graph.RuntimeVertex, error) {
	edge, ok := c.LastElement().(*graph.RuntimeEdge)
	if !ok || edge == nil {
		return nil, nil, ErrNoIncomingEdge
	}
	if edge.SourceVertex() == nil {
		return nil, nil, ErrNoIncomingEdge
	}
	return edge, edge.SourceVertex(), nil
}
