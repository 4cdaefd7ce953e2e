package machine

import (
	"errors"
	"testing"
)

func TestTryAgainStrategy_SingleRetry(t *testing.T) {
	rm := buildModel(t, "S>V", "V>W")
	c := NewContext("ctx", rm, firstEdge{})
	s, v, e := vertexOf(t, rm, "S"), vertexOf(t, rm, "V"), edgeOf(t, rm, "S>V")
	positionAt(c, e, v)

	failure := &MachineError{Context: c, Element: v, Cause: errActionFailed}
	if err := (TryAgainStrategy{}).Handle(nil, failure); err != nil {
		t.Fatalf("expected first failure to be recovered, got %v", err)
	}

	if c.CurrentElement() != s {
		t.Errorf("expected current to be source S, got %v", c.CurrentElement())
	}
	if c.NextEdgeTryAgain() != e {
		t.Errorf("expected staged edge S>V, got %v", c.NextEdgeTryAgain())
	}
	if c.ExecutionStatus() != Executing {
		t.Errorf("expected EXECUTING, got %s", c.ExecutionStatus())
	}
	if c.NodeStatus(v) != NodeFailed {
		t.Errorf("expected V FAILED, got %s", c.NodeStatus(v))
	}

	// The machine re-takes the staged edge and re-enters V, which fails again.
	c.SetCurrentElement(c.takeNextEdgeTryAgain())
	c.SetCurrentElement(v)

	err := (TryAgainStrategy{}).Handle(nil, &MachineError{Context: c, Element: v, Cause: errActionFailed})
	if err == nil {
		t.Fatal("expected second failure to be terminal")
	}
	if !errors.Is(err, errActionFailed) {
		t.Errorf("expected original cause re-raised, got %v", err)
	}
	if c.ExecutionStatus() != ExecutionFailed {
		t.Errorf("expected FAILED, got %s", c.ExecutionStatus())
	}
}

func TestTryAgainStrategy_EdgeFailure(t *testing.T) {
	rm := buildModel(t, "S>V")
	e, v := edgeOf(t, rm, "S>V"), vertexOf(t, rm, "V")

	t.Run("transient pass-through", func(t *testing.T) {
		c := NewContext("ctx", rm, firstEdge{})
		c.SetCurrentElement(e)
		c.SetExecutionStatus(Executing)

		if err := (TryAgainStrategy{}).Handle(nil, &MachineError{Context: c, Element: e}); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if c.CurrentElement() != e || c.NextEdgeTryAgain() != nil {
			t.Error("expected position untouched")
		}
	})

	t.Run("target already failed", func(t *testing.T) {
		c := NewContext("ctx", rm, firstEdge{})
		c.SetCurrentElement(e)
		c.Statuses().Set(v, NodeFailed)

		if err := (TryAgainStrategy{}).Handle(nil, &MachineError{Context: c, Element: e}); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if c.ExecutionStatus() != Executing {
			t.Errorf("expected EXECUTING, got %s", c.ExecutionStatus())
		}
	})
}

func TestTryAgainStrategy_NoIncomingEdge(t *testing.T) {
	rm := buildModel(t, "S>V")
	c := NewContext("ctx", rm, firstEdge{})
	v := vertexOf(t, rm, "V")
	c.SetCurrentElement(v)

	failure := &MachineError{Context: c, Element: v, Cause: errActionFailed}
	err := (TryAgainStrategy{}).Handle(nil, failure)

	if !errors.Is(err, ErrNoIncomingEdge) {
		t.Errorf("expected ErrNoIncomingEdge, got %v", err)
	}
	var merr *MachineError
	if !errors.As(err, &merr) || merr != failure {
		t.Errorf("expected wrapped MachineError, got %v", err)
	}
	if c.ExecutionStatus() != ExecutionFailed {
		t.Errorf("expected FAILED, got %s", c.ExecutionStatus())
	}
}

func TestBlackListStrategy_Rewind(t *testing.T) {
	t.Run("without edge back to source", func(t *testing.T) {
		rm := buildModel(t, "S>V", "V>W", "S>X")
		c := NewContext("ctx", rm, firstEdge{})
		s, v := vertexOf(t, rm, "S"), vertexOf(t, rm, "V")
		c.Statuses().Set(s, NodeCovered)
		positionAt(c, edgeOf(t, rm, "S>V"), v)

		if err := (BlackListStrategy{}).Handle(nil, &MachineError{Context: c, Element: v}); err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}

		if c.CurrentElement() != s {
			t.Errorf("expected current S, got %v", c.CurrentElement())
		}
		if c.NextEdgeTryAgain() != nil {
			t.Errorf("expected no staged edge, got %v", c.NextEdgeTryAgain())
		}
		if c.ExecutionStatus() != Executing {
			t.Errorf("expected EXECUTING, got %s", c.ExecutionStatus())
		}
		if c.NodeStatus(v) != NodeFailed {
			t.Errorf("expected V FAILED, got %s", c.NodeStatus(v))
		}
		if got := c.NodeStatus(vertexOf(t, rm, "W")); got != NodeNotReachable {
			t.Errorf("expected W NOT_REACHABLE, got %s", got)
		}
		if got := c.NodeStatus(vertexOf(t, rm, "X")); got != NodeNotCovered {
			t.Errorf("expected X NOT_COVERED, got %s", got)
		}

		available := c.AvailableEdges(s)
		if len(available) != 1 || available[0].ID() != "S>X" {
			t.Errorf("expected only S>X selectable, got %v", available)
		}
	})

	t.Run("with edge back to source", func(t *testing.T) {
		rm := buildModel(t, "S>V", "V>S")
		c := NewContext("ctx", rm, firstEdge{})
		s, v := vertexOf(t, rm, "S"), vertexOf(t, rm, "V")
		c.Statuses().Set(s, NodeCovered)
		positionAt(c, edgeOf(t, rm, "S>V"), v)

		if err := (BlackListStrategy{}).Handle(nil, &MachineError{Context: c, Element: v}); err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if c.CurrentElement() != s {
			t.Errorf("expected current S, got %v", c.CurrentElement())
		}
		if c.NextEdgeTryAgain() != edgeOf(t, rm, "V>S") {
			t.Errorf("expected staged V>S, got %v", c.NextEdgeTryAgain())
		}
	})

	t.Run("source already blacklisted", func(t *testing.T) {
		rm := buildModel(t, "S>V", "V>S", "S>W")
		c := NewContext("ctx", rm, firstEdge{})
		s, v := vertexOf(t, rm, "S"), vertexOf(t, rm, "V")
		c.Statuses().Set(v, NodeFailed)
		positionAt(c, edgeOf(t, rm, "V>S"), s)

		if err := (BlackListStrategy{}).Handle(nil, &MachineError{Context: c, Element: s}); err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if c.CurrentElement() != s {
			t.Errorf("expected current to stay on S, got %v", c.CurrentElement())
		}
		if c.NextEdgeTryAgain() != nil {
			t.Errorf("expected no staged edge, got %v", c.NextEdgeTryAgain())
		}
		if c.NodeStatus(v) != NodeFailed || c.NodeStatus(s) != NodeFailed {
			t.Errorf("expected S and V FAILED, got S=%s V=%s", c.NodeStatus(s), c.NodeStatus(v))
		}
		available := c.AvailableEdges(s)
		if len(available) != 1 || available[0].ID() != "S>W" {
			t.Errorf("expected only S>W selectable, got %v", available)
		}
	})

	t.Run("edge failure passes through", func(t *testing.T) {
		rm := buildModel(t, "S>V")
		c := NewContext("ctx", rm, firstEdge{})
		e := edgeOf(t, rm, "S>V")
		c.SetCurrentElement(e)

		if err := (BlackListStrategy{}).Handle(nil, &MachineError{Context: c, Element: e}); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
		if c.NodeStatus(vertexOf(t, rm, "V")) != NodeNotCovered {
			t.Error("expected target untouched")
		}
	})

	t.Run("entered through start edge", func(t *testing.T) {
		rm := buildModel(t, "S>V")
		c := NewContext("ctx", rm, firstEdge{})
		s := vertexOf(t, rm, "S")
		positionAt(c, edgeOf(t, rm, "start"), s)

		err := (BlackListStrategy{}).Handle(nil, &MachineError{Context: c, Element: s})
		if !errors.Is(err, ErrNoIncomingEdge) {
			t.Errorf("expected ErrNoIncomingEdge, got %v", err)
		}
	})
}

func TestStrategies_NoCurrentElement(t *testing.T) {
	rm := buildModel(t, "S>V")
	for _, strategy := range []ExceptionStrategy{TryAgainStrategy{}, BlackListStrategy{}} {
		t.Run(strategyName(strategy), func(t *testing.T) {
			c := NewContext("ctx", rm, firstEdge{})
			failure := &MachineError{Context: c, Cause: errActionFailed}

			err := strategy.Handle(nil, failure)
			if !errors.Is(err, ErrNoCurrentElement) {
				t.Errorf("expected ErrNoCurrentElement, got %v", err)
			}
			if !errors.Is(err, errActionFailed) {
				t.Errorf("expected cause kept, got %v", err)
			}
			if c.ExecutionStatus() != ExecutionFailed {
				t.Errorf("expected FAILED, got %s", c.ExecutionStatus())
			}
		})
	}
}

func TestFailFastStrategy(t *testing.T) {
	rm := buildModel(t, "S>V")
	c := NewContext("ctx", rm, firstEdge{})
	v := vertexOf(t, rm, "V")
	failure := &MachineError{Context: c, Element: v, Cause: errActionFailed}

	err := (FailFastStrategy{}).Handle(nil, failure)

	if err != failure {
		t.Errorf("expected the failure re-raised, got %v", err)
	}
	if c.NodeStatus(v) != NodeFailed {
		t.Errorf("expected V FAILED, got %s", c.NodeStatus(v))
	}
	if c.ExecutionStatus() != ExecutionFailed {
		t.Errorf("expected FAILED, got %s", c.ExecutionStatus())
	}
}

func TestStrategyByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "fail-fast", false},
		{"fail-fast", "fail-fast", false},
		{"try-again", "try-again", false},
		{"TRY_AGAIN", "try-again", false},
		{"blacklist", "blacklist", false},
		{" BlackList ", "blacklist", false},
		{"retry-forever", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := StrategyByName(tt.name)
			if tt.wantErr {
				var serr *SessionError
				if !errors.As(err, &serr) || serr.Code != "UNKNOWN_STRATEGY" {
					t.Errorf("expected UNKNOWN_STRATEGY, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strategyName(s); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStrategyFunc(t *testing.T) {
	called := false
	s := StrategyFunc(func(m *Machine, err *MachineError) error {
		called = true
		return nil
	})
	if err := s.Handle(nil, &MachineError{}); err != nil || !called {
		t.Errorf("expected func to be called and return nil, got called=%v err=%v", called, err)
	}
	if name := strategyName(s); name != "machine.StrategyFunc" {
		t.Errorf("expected type name, got %s", name)
	}
}
