// Package emit delivers observability events of model-based test sessions
// to pluggable backends: text or JSON logs, in-memory history and
// OpenTelemetry spans.
package emit

// Event is one observable point of a test session.
//
// The machine emits, among others:
//   - session_started, session_completed, session_failed
//   - step_completed, step_failed, step_recovered
//   - context_completed
//   - vertex_blacklisted, vertex_unreachable
//   - store_error
type Event struct {
	// SessionID identifies the session that emitted this event.
	SessionID string

	// Context names the execution context. Empty for session-level events
	// that are not bound to a context.
	Context string

	// Step is the number of steps taken when the event was emitted.
	Step int

	// ElementID identifies the vertex or edge the event is about.
	// Empty for session-level events.
	ElementID string

	// Msg is the event name.
	Msg string

	// Meta contains additional structured data. Common keys:
	//   - "kind": "vertex" or "edge"
	//   - "latency_ms": action execution time in milliseconds
	//   - "error": the failure message
	//   - "strategy": exception strategy name
	//   - "resume_at": element the session continues from after recovery
	//   - "raw_coverage", "reachable_coverage": coverage fractions
	Meta map[string]interface{}
}

// IsFailure reports whether the event carries an error.
func (e Event) IsFailure() bool {
	_, ok := e.Meta["error"]
	return ok
}
