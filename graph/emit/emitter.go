package emit

// Emitter receives observability events from a running session.
//
// Implementations must be safe for concurrent use, since several machines
// may share one emitter, and must not block or panic: a slow or failing
// backend should drop or buffer events rather than stall the session.
type Emitter interface {
	Emit(event Event)
}

// MultiEmitter fans every event out to several emitters in order.
type MultiEmitter []Emitter

// Emit forwards event to every non-nil emitter.
func (m MultiEmitter) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
