package generator

import (
	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
	"github.com/vgarousi/Fault-tolerance-for-MBT/machine"
)

// VertexCoverage is fulfilled once the context's reachable coverage reaches
// percent. Failed and unreachable vertices do not count against it, so a
// session that blacklists vertices can still finish.
func VertexCoverage(percent int) StopCondition {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	target := float64(percent) / 100
	return StopFunc(func(c *machine.Context) bool {
		return c.Coverage().Reachable() >= target
	})
}

// ReachedVertex is fulfilled when the context stands on the vertex with the
// given id.
func ReachedVertex(id string) StopCondition {
	return StopFunc(func(c *machine.Context) bool {
		v, ok := c.CurrentElement().(*graph.RuntimeVertex)
		return ok && v.ID() == id
	})
}

// Never is never fulfilled; bound such walks with machine.WithMaxSteps.
func Never() StopCondition {
	return StopFunc(func(*machine.Context) bool { return false })
}

// Any is fulfilled when at least one of conds is.
func Any(conds ...StopCondition) StopCondition {
	return StopFunc(func(c *machine.Context) bool {
		for _, cond := range conds {
			if cond.Fulfilled(c) {
				return true
			}
		}
		return false
	})
}
