package machine

import "github.com/vgarousi/Fault-tolerance-for-MBT/graph"

// ComputeReachability marks every NodeNotCovered vertex of model that can
// no longer be reached as NodeNotReachable, and returns those vertices in
// model order.
//
// A vertex is reachable when a path leads to it from some NodeCovered
// vertex through NodeNotCovered vertices only; NodeFailed vertices block
// every path through them. Edges without a source vertex are ignored, so an
// uncovered vertex entered only by a start edge is unreachable. Covered and
// failed vertices are never changed, and a vertex once NodeNotReachable
// stays so.
//
// failed, when non-nil, is marked NodeFailed first.
func ComputeReachability(model *graph.RuntimeModel, statuses *StatusTable, failed *graph.RuntimeVertex) []*graph.RuntimeVertex {
	if failed != nil {
		statuses.Set(failed, NodeFailed)
	}
	a := newReachabilityAnalysis(model, statuses)
	a.run()

	var marked []*graph.RuntimeVertex
	for _, v := range model.Vertices() {
		if statuses.Get(v) == NodeNotCovered && !a.reached[v] {
			statuses.Set(v, NodeNotReachable)
			marked = append(marked, v)
		}
	}
	return marked
}

// reachabilityAnalysis holds the tables of one ComputeReachability call.
type reachabilityAnalysis struct {
	model   *graph.RuntimeModel
	status  map[*graph.RuntimeVertex]NodeStatus
	forward map[*graph.RuntimeVertex][]*graph.RuntimeVertex
	reached map[*graph.RuntimeVertex]bool
}

func newReachabilityAnalysis(model *graph.RuntimeModel, statuses *StatusTable) *reachabilityAnalysis {
	a := &reachabilityAnalysis{
		model:   model,
		status:  make(map[*graph.RuntimeVertex]NodeStatus, len(model.Vertices())),
		forward: make(map[*graph.RuntimeVertex][]*graph.RuntimeVertex),
		reached: make(map[*graph.RuntimeVertex]bool),
	}
	for _, v := range model.Vertices() {
		a.status[v] = statuses.Get(v)
	}
	for _, e := range model.Edges() {
		if e.SourceVertex() == nil {
			continue
		}
		a.forward[e.SourceVertex()] = append(a.forward[e.SourceVertex()], e.TargetVertex())
	}
	return a
}

// run searches depth first from every covered vertex.
func (a *reachabilityAnalysis) run() {
	for _, v := range a.model.Vertices() {
		if a.status[v] == NodeCovered {
			a.visit(v)
		}
	}
}

func (a *reachabilityAnalysis) visit(v *graph.RuntimeVertex) {
	if a.reached[v] {
		return
	}
	a.reached[v] = true
	for _, next := range a.forward[v] {
		// Covered vertices are search roots of their own; failed and
		// unreachable ones do not pass reachability on.
		if a.status[next] == NodeNotCovered {
			a.visit(next)
		}
	}
}
