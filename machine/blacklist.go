package machine

import (
	"fmt"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
)

// BlackListStrategy gives up on a failed vertex for the rest of the session
// and reroutes around it.
//
// The vertex is marked NodeFailed and never offered to the path generator
// again. Every uncovered vertex that can no longer be reached without it is
// marked NodeNotReachable straight away, so reachable coverage reflects what
// the session can still achieve. The context is rewound to the source S of
// the edge that led into the failed vertex V. When the model has an edge
// V→S it is staged as the next step; otherwise the path generator picks
// the next edge out of S. When S is itself blacklisted the context stays on
// V and the path generator picks among V's edges into vertices that have
// not failed.
//
// Edge failures are treated as transient and the session carries on.
type BlackListStrategy struct{}

func (BlackListStrategy) Name() string { return "blacklist" }

func (BlackListStrategy) Handle(m *Machine, err *MachineError) error {
	c := err.Context
	if err.Element == nil {
		c.SetExecutionStatus(ExecutionFailed)
		return fmt.Errorf("%w: %w", ErrNoCurrentElement, err)
	}
	failed, ok := err.Element.(*graph.RuntimeVertex)
	if !ok {
		return nil
	}

	c.Statuses().Set(failed, NodeFailed)
	unreachable := ComputeReachability(c.Model(), c.Statuses(), failed)
	if m != nil {
		m.emit(c, failed.ID(), "vertex_blacklisted", map[string]interface{}{
			"not_reachable": len(unreachable),
		})
		for _, v := range unreachable {
			m.emit(c, v.ID(), "vertex_unreachable", map[string]interface{}{"blocked_by": failed.ID()})
		}
		m.logger.Info("vertex blacklisted", "context", c.Name(), "vertex", failed.ID(), "not_reachable", len(unreachable))
	}

	_, newStart, rerr := incomingEdge(c)
	if rerr != nil {
		c.SetExecutionStatus(ExecutionFailed)
		return fmt.Errorf("%w: %w", rerr, err)
	}

	c.SetExecutionStatus(Executing)
	if c.NodeStatus(newStart) == NodeFailed {
		c.SetNextEdgeTryAgain(nil)
		return nil
	}
	back := rewindEdge(c.Model(), failed, newStart)
	c.SetCurrentElement(newStart)
	if back != nil {
		c.SetNextEdgeTryAgain(back)
	}
	return nil
}

// rewindEdge returns the first edge from -> to, nil when there is none.
func rewindEdge(model *graph.RuntimeModel, from, to *graph.RuntimeVertex) *graph.RuntimeEdge {
	for _, e := range model.OutEdges(from) {
		if e.TargetVertex() == to {
			return e
		}
	}
	return nil
}
