package graph

import "errors"

// Structural errors detected while building a runtime model. A model that
// fails these checks is malformed and must not be executed.
var (
	// ErrEmptyID indicates a vertex or edge without an identifier.
	ErrEmptyID = errors.New("element has no id")

	// ErrDuplicateID indicates two vertices, or two edges, sharing an identifier.
	ErrDuplicateID = errors.New("duplicate element id")

	// ErrMissingTarget indicates an edge without a target vertex.
	ErrMissingTarget = errors.New("edge has no target vertex")

	// ErrUnknownVertex indicates an edge endpoint that is not part of the model.
	ErrUnknownVertex = errors.New("edge references a vertex outside the model")

	// ErrEmptySharedState indicates a shared-state name explicitly set to "".
	ErrEmptySharedState = errors.New("shared state name is empty")
)

// ModelError describes a structural problem found by Model.Build.
//
// Err holds one of the sentinel errors above so callers can use errors.Is.
type ModelError struct {
	// Message is the human-readable description.
	Message string

	// Code is a machine-readable error code, e.g. "DUPLICATE_ID".
	Code string

	// ElementID identifies the offending vertex or edge.
	ElementID string

	Err error
}

func (e *ModelError) Error() string {
	msg := e.Message
	if e.ElementID != "" {
		msg = "element " + e.ElementID + ": " + msg
	}
	if e.Code != "" {
		return e.Code + ": " + msg
	}
	return msg
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
