package machine

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNodeStatus_Text(t *testing.T) {
	for _, s := range []NodeStatus{NodeNotCovered, NodeCovered, NodeFailed, NodeNotReachable} {
		parsed, err := ParseNodeStatus(s.String())
		if err != nil || parsed != s {
			t.Errorf("expected %s to parse back, got %s (%v)", s, parsed, err)
		}
	}
	if _, err := ParseNodeStatus("BROKEN"); err == nil {
		t.Error("expected error for unknown status")
	}
	if got := NodeStatus(9).String(); got != "NodeStatus(9)" {
		t.Errorf("expected NodeStatus(9), got %s", got)
	}
	if _, err := NodeStatus(9).MarshalText(); err == nil {
		t.Error("expected error marshalling invalid status")
	}
}

func TestStatusTable(t *testing.T) {
	rm := buildModel(t, "A>B", "B>C")
	st := NewStatusTable(rm)
	a, b := vertexOf(t, rm, "A"), vertexOf(t, rm, "B")

	if got := st.Get(a); got != NodeNotCovered {
		t.Errorf("expected default NOT_COVERED, got %s", got)
	}

	st.Set(a, NodeCovered)
	st.Set(b, NodeFailed)
	if got := st.Count(NodeNotCovered); got != 1 {
		t.Errorf("expected 1 NOT_COVERED, got %d", got)
	}

	t.Run("json round trip", func(t *testing.T) {
		data, err := json.Marshal(st)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		restored := NewStatusTable(rm)
		if err := json.Unmarshal(data, restored); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if restored.Get(a) != NodeCovered || restored.Get(b) != NodeFailed {
			t.Errorf("expected statuses restored, got %v", restored.Snapshot())
		}
	})

	t.Run("restore rejects unknown vertex", func(t *testing.T) {
		err := st.Restore(map[string]NodeStatus{"A": NodeNotReachable, "Z": NodeCovered})
		if !errors.Is(err, ErrUnknownVertex) {
			t.Errorf("expected ErrUnknownVertex, got %v", err)
		}
		if st.Get(a) != NodeCovered {
			t.Error("expected table unchanged after rejected restore")
		}
	})

	t.Run("reset", func(t *testing.T) {
		st.Reset()
		if got := st.Count(NodeNotCovered); got != 3 {
			t.Errorf("expected all NOT_COVERED, got %d", got)
		}
	})
}

func TestContext_Position(t *testing.T) {
	rm := buildModel(t, "A>B", "B>C")
	c := NewContext("c", rm, firstEdge{})
	start := edgeOf(t, rm, "start")

	if c.StartElement() != start {
		t.Errorf("expected start edge as default start, got %v", c.StartElement())
	}
	if c.ExecutionStatus() != NotExecuted {
		t.Errorf("expected NOT_EXECUTED, got %s", c.ExecutionStatus())
	}

	a := vertexOf(t, rm, "A")
	c.SetCurrentElement(start)
	c.SetCurrentElement(a)
	if c.CurrentElement() != a || c.LastElement() != start {
		t.Errorf("expected current A and last start, got %v and %v", c.CurrentElement(), c.LastElement())
	}

	e := edgeOf(t, rm, "A>B")
	c.SetNextEdgeTryAgain(e)
	if got := c.takeNextEdgeTryAgain(); got != e {
		t.Errorf("expected staged edge, got %v", got)
	}
	if c.NextEdgeTryAgain() != nil {
		t.Error("expected staged edge consumed")
	}

	if err := c.SetStartElement(vertexOf(t, rm, "B")); err != nil {
		t.Errorf("SetStartElement: %v", err)
	}
	other := buildModel(t, "A>B")
	if err := c.SetStartElement(vertexOf(t, other, "A")); !errors.Is(err, ErrUnknownVertex) {
		t.Errorf("expected ErrUnknownVertex for foreign vertex, got %v", err)
	}
}

func TestContext_Coverage(t *testing.T) {
	rm := buildModel(t, "A>B", "B>C", "C>D")
	c := NewContext("c", rm, firstEdge{})
	c.Statuses().Set(vertexOf(t, rm, "A"), NodeCovered)
	c.Statuses().Set(vertexOf(t, rm, "B"), NodeFailed)
	c.Statuses().Set(vertexOf(t, rm, "C"), NodeNotReachable)

	cov := c.Coverage()
	if cov.Total != 4 || cov.Covered != 1 || cov.Failed != 1 || cov.NotReachable != 1 || cov.NotCovered != 1 {
		t.Errorf("unexpected coverage %+v", cov)
	}
	if cov.Raw() != 0.25 {
		t.Errorf("expected raw 0.25, got %v", cov.Raw())
	}
	if cov.Reachable() != 0.5 {
		t.Errorf("expected reachable 0.5, got %v", cov.Reachable())
	}
	if (Coverage{}).Reachable() != 1 {
		t.Error("expected empty coverage to count as complete")
	}
}
