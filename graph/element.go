// Package graph provides the model of a system under test for model-based
// testing: mutable Vertex, Edge and Model builders and the immutable runtime
// twins the execution machine traverses.
package graph

import (
	"maps"
	"slices"
)

// Element is implemented by the runtime twins that can be the current
// position of an execution context: *RuntimeVertex and *RuntimeEdge.
type Element interface {
	// ID returns the identifier unique within the model.
	ID() string

	// Name returns the display name.
	Name() string

	// Actions returns the actions executed when the element is visited.
	Actions() []Action

	// Requirements returns the requirements the element verifies.
	Requirements() []Requirement

	element()
}

// Action is a piece of code executed by the action engine each time an
// element is visited. The graph does not interpret it.
type Action struct {
	Script string `json:"script"`
}

// Requirement tags an element with a requirement key for traceability.
type Requirement struct {
	Key string `json:"key"`
}

// Guard is the condition an edge must satisfy to be traversable. An empty
// guard always holds. Evaluation belongs to the action engine.
type Guard struct {
	Script string `json:"script"`
}

// IsEmpty reports whether the guard has no condition.
func (g Guard) IsEmpty() bool {
	return g.Script == ""
}

// runtimeBase carries the identity fields shared by both runtime twins.
type runtimeBase struct {
	id           string
	name         string
	actions      []Action
	requirements []Requirement
	properties   map[string]any
}

func newRuntimeBase(b *elementBuilder) runtimeBase {
	return runtimeBase{
		id:           b.id,
		name:         b.name,
		actions:      slices.Clone(b.actions),
		requirements: slices.Clone(b.requirements),
		properties:   maps.Clone(b.properties),
	}
}

func (r *runtimeBase) ID() string { return r.id }
func (r *runtimeBase) Name() string { return r.name }

func (r *runtimeBase) Actions() []Action {
	return slices.Clone(r.actions)
}

func (r *runtimeBase) Requirements() []Requirement {
	return slices.Clone(r.requirements)
}

// Properties returns a copy of the element's arbitrary properties.
func (r *runtimeBase) Properties() map[string]any {
	return maps.Clone(r.properties)
}

// Property returns a single property and whether it was set.
func (r *runtimeBase) Property(key string) (any, bool) {
	v, ok := r.properties[key]
	return v, ok
}

func (r *runtimeBase) equal(o *runtimeBase) bool {
	if r.id != o.id || r.name != o.name {
		return false
	}
	if !slices.Equal(r.actions, o.actions) || !slices.Equal(r.requirements, o.requirements) {
		return false
	}
	if len(r.properties) != len(o.properties) {
		return false
	}
	for k, v := range r.properties {
		ov, ok := o.properties[k]
		if !ok || !comparableEqual(v, ov) {
			return false
		}
	}
	return true
}

// comparableEqual compares property values without panicking on
// uncomparable dynamic types such as slices or maps.
func comparableEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// elementBuilder holds the attributes common to Vertex and Edge builders.
type elementBuilder struct {
	id           string
	name         string
	actions      []Action
	requirements []Requirement
	properties   map[string]any
}

func (b *elementBuilder) setProperty(key string, value any) {
	if b.properties == nil {
		b.properties = make(map[string]any)
	}
	b.properties[key] = value
}
