package emit

import "sync"

// BufferedEmitter keeps every event in memory, grouped by session, and
// answers history queries. Useful in tests and for post-run reports; it
// never evicts, so clear sessions you are done with.
//
// Example:
//
//	events := emit.NewBufferedEmitter()
//	m, _ := machine.New(exec, contexts, machine.WithEmitter(events))
//	_ = m.Run(ctx)
//	failures := events.GetHistoryWithFilter(m.SessionID(), emit.HistoryFilter{Msg: "step_failed"})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // session id -> events
}

// HistoryFilter selects events. Empty fields match everything; set fields
// are combined with AND.
type HistoryFilter struct {
	Context   string
	ElementID string
	Msg       string
	MinStep   *int
	MaxStep   *int
}

func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.SessionID] = append(b.events[event.SessionID], event)
}

// GetHistory returns a copy of the events of a session in emission order.
func (b *BufferedEmitter) GetHistory(sessionID string) []Event {
	return b.GetHistoryWithFilter(sessionID, HistoryFilter{})
}

// GetHistoryWithFilter returns the events of a session matching filter.
// The result is never nil.
func (b *BufferedEmitter) GetHistoryWithFilter(sessionID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[sessionID] {
		if filter.matches(event) {
			result = append(result, event)
		}
	}
	return result
}

// Sessions returns the ids of sessions with buffered events.
func (b *BufferedEmitter) Sessions() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.events))
	for id := range b.events {
		ids = append(ids, id)
	}
	return ids
}

// Clear drops the events of one session, or of all sessions when sessionID
// is empty.
func (b *BufferedEmitter) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sessionID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, sessionID)
}

func (f HistoryFilter) matches(event Event) bool {
	if f.Context != "" && event.Context != f.Context {
		return false
	}
	if f.ElementID != "" && event.ElementID != f.ElementID {
		return false
	}
	if f.Msg != "" && event.Msg != f.Msg {
		return false
	}
	if f.MinStep != nil && event.Step < *f.MinStep {
		return false
	}
	if f.MaxStep != nil && event.Step > *f.MaxStep {
		return false
	}
	return true
}
