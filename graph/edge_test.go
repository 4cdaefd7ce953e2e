package graph

import "testing"

// TestEdge_BuildIsCached verifies reference stability of RuntimeEdge.
func TestEdge_BuildIsCached(t *testing.T) {
	a := NewVertex().SetID("a")
	b := NewVertex().SetID("b")
	e := NewEdge().SetID("e1").SetSourceVertex(a).SetTargetVertex(b)

	first := e.Build()
	if e.Build() != first {
		t.Fatal("expected Build to return the cached instance")
	}
	if first.SourceVertex() != a.Build() {
		t.Error("expected source to be the vertex's runtime twin")
	}
	if first.TargetVertex() != b.Build() {
		t.Error("expected target to be the vertex's runtime twin")
	}

	e.SetGuard(Guard{Script: "loggedIn"})
	second := e.Build()
	if second == first {
		t.Fatal("expected a new instance after SetGuard")
	}
	if second.Guard().Script != "loggedIn" {
		t.Errorf("expected guard 'loggedIn', got %q", second.Guard().Script)
	}
}

// TestEdge_RebuildsWhenEndpointChanges verifies an edge never keeps a stale endpoint.
func TestEdge_RebuildsWhenEndpointChanges(t *testing.T) {
	a := NewVertex().SetID("a")
	b := NewVertex().SetID("b")
	e := NewEdge().SetID("e1").SetSourceVertex(a).SetTargetVertex(b)

	first := e.Build()
	b.SetName("renamed")
	second := e.Build()

	if second == first {
		t.Fatal("expected edge to rebuild after its target changed")
	}
	if second.TargetVertex() != b.Build() {
		t.Error("expected rebuilt edge to reference the current target twin")
	}
	if second.TargetVertex().Name() != "renamed" {
		t.Errorf("expected target name 'renamed', got %q", second.TargetVertex().Name())
	}
	if e.Build() != second {
		t.Error("expected the rebuilt edge to be cached again")
	}
}

func TestRuntimeEdge_StartEdge(t *testing.T) {
	start := NewEdge().SetID("e0").SetTargetVertex(NewVertex().SetID("a")).Build()
	if !start.IsStart() {
		t.Error("expected an edge without source to be a start edge")
	}
	if start.SourceVertex() != nil {
		t.Error("expected nil source vertex")
	}

	inner := NewEdge().SetID("e1").
		SetSourceVertex(NewVertex().SetID("a")).
		SetTargetVertex(NewVertex().SetID("b")).
		Build()
	if inner.IsStart() {
		t.Error("expected an edge with a source not to be a start edge")
	}
}

func TestRuntimeEdge_Equal(t *testing.T) {
	mk := func(guard string) *RuntimeEdge {
		return NewEdge().SetID("e1").
			SetSourceVertex(NewVertex().SetID("a")).
			SetTargetVertex(NewVertex().SetID("b")).
			SetGuard(Guard{Script: guard}).
			Build()
	}

	if !mk("g").Equal(mk("g")) {
		t.Error("expected structurally identical edges to be equal")
	}
	if mk("g").Equal(mk("h")) {
		t.Error("expected different guards to compare unequal")
	}
}
