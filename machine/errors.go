package machine

import (
	"errors"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
)

// Driver misuse and malformed-model errors. None of these is handed to an
// exception strategy: they end the session immediately.
var (
	// ErrNoStartElement is returned when a context has neither a current
	// element nor a start element to begin from.
	ErrNoStartElement = errors.New("context has no start element")

	// ErrNoCurrentElement is returned when a strategy needs a position the
	// context does not have.
	ErrNoCurrentElement = errors.New("context has no current element")

	// ErrNoIncomingEdge is returned when a failed vertex was not entered
	// through an edge, so there is no source vertex to rewind to.
	ErrNoIncomingEdge = errors.New("failed vertex was not entered through an edge")

	// ErrUnknownVertex is returned when an element does not belong to the
	// context's model.
	ErrUnknownVertex = errors.New("vertex is not part of the model")

	// ErrDeadEnd is returned when the path generator still wants to continue
	// but the current vertex has no selectable outgoing edge.
	ErrDeadEnd = errors.New("no selectable edge from current vertex")

	// ErrMaxStepsExceeded is returned when a session exceeds Options.MaxSteps.
	ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

	// ErrNoContexts is returned by New when no execution context is given.
	ErrNoContexts = errors.New("machine needs at least one context")
)

// MachineError is a step failure: the action engine reported an error while
// the machine entered a vertex or traversed an edge.
//
// It is built once per failure and consumed by exactly one call to the
// configured ExceptionStrategy. When the strategy cannot recover it returns
// the error, and Run surfaces it to the caller; use errors.As to reach the
// Context and inspect the position and coverage at termination.
type MachineError struct {
	// Context is the execution context active when the step failed.
	Context *Context

	// Element is the vertex or edge whose actions failed.
	Element graph.Element

	// Cause is the error reported by the action engine.
	Cause error
}

func (e *MachineError) Error() string {
	msg := "step failed"
	if e.Element != nil {
		msg += " at " + e.Element.ID()
	}
	if e.Context != nil && e.Context.Name() != "" {
		msg += " in context " + e.Context.Name()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MachineError) Unwrap() error {
	return e.Cause
}

// SessionError reports a structural problem or driver misuse detected while
// running a session.
type SessionError struct {
	Message string
	Code    string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
