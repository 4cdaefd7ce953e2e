package emit

import (
	"sync"
	"testing"
)

func TestBufferedEmitter_History(t *testing.T) {
	t.Run("isolates sessions", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		emitter.Emit(Event{SessionID: "s1", Msg: "a"})
		emitter.Emit(Event{SessionID: "s2", Msg: "b"})
		emitter.Emit(Event{SessionID: "s1", Msg: "c"})

		h1 := emitter.GetHistory("s1")
		if len(h1) != 2 || h1[0].Msg != "a" || h1[1].Msg != "c" {
			t.Errorf("expected [a c] for s1, got %+v", h1)
		}
		if got := len(emitter.GetHistory("s2")); got != 1 {
			t.Errorf("expected 1 event for s2, got %d", got)
		}
	})

	t.Run("unknown session returns empty slice", func(t *testing.T) {
		history := NewBufferedEmitter().GetHistory("missing")
		if history == nil || len(history) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", history)
		}
	})

	t.Run("returns a copy", func(t *testing.T) {
		emitter := NewBufferedEmitter()
		emitter.Emit(Event{SessionID: "s", Msg: "a"})
		history := emitter.GetHistory("s")
		history[0].Msg = "changed"

		if got := emitter.GetHistory("s")[0].Msg; got != "a" {
			t.Errorf("expected stored event unchanged, got %q", got)
		}
	})
}

func TestBufferedEmitter_Filter(t *testing.T) {
	emitter := NewBufferedEmitter()
	events := []Event{
		{SessionID: "s", Context: "c1", Step: 1, ElementID: "e_A", Msg: "step_completed"},
		{SessionID: "s", Context: "c1", Step: 2, ElementID: "v_B", Msg: "step_failed"},
		{SessionID: "s", Context: "c1", Step: 2, ElementID: "v_B", Msg: "step_recovered"},
		{SessionID: "s", Context: "c2", Step: 3, ElementID: "v_B", Msg: "step_failed"},
	}
	for _, e := range events {
		emitter.Emit(e)
	}

	minStep, maxStep := 2, 2
	tests := []struct {
		name   string
		filter HistoryFilter
		want   int
	}{
		{"empty filter", HistoryFilter{}, 4},
		{"by msg", HistoryFilter{Msg: "step_failed"}, 2},
		{"by context", HistoryFilter{Context: "c2"}, 1},
		{"by element", HistoryFilter{ElementID: "v_B"}, 3},
		{"by step range", HistoryFilter{MinStep: &minStep, MaxStep: &maxStep}, 2},
		{"combined", HistoryFilter{Msg: "step_failed", Context: "c1"}, 1},
		{"no match", HistoryFilter{Msg: "session_failed"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(emitter.GetHistoryWithFilter("s", tt.filter)); got != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, got)
			}
		})
	}
}

func TestBufferedEmitter_Clear(t *testing.T) {
	emitter := NewBufferedEmitter()
	emitter.Emit(Event{SessionID: "s1"})
	emitter.Emit(Event{SessionID: "s2"})

	emitter.Clear("s1")
	if got := len(emitter.GetHistory("s1")); got != 0 {
		t.Errorf("expected s1 cleared, got %d events", got)
	}
	if got := len(emitter.Sessions()); got != 1 {
		t.Errorf("expected 1 remaining session, got %d", got)
	}

	emitter.Clear("")
	if got := len(emitter.Sessions()); got != 0 {
		t.Errorf("expected all sessions cleared, got %d", got)
	}
}

func TestBufferedEmitter_Concurrent(t *testing.T) {
	emitter := NewBufferedEmitter()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				emitter.Emit(Event{SessionID: "s", Step: j})
			}
		}()
	}
	wg.Wait()

	if got := len(emitter.GetHistory("s")); got != 1000 {
		t.Errorf("expected 1000 events, got %d", got)
	}
}
