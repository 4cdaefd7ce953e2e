package graph

import "slices"

// Vertex is the authoring-time builder for a state of the system under test.
//
// The vertex is the verification point of a test: when the machine enters it,
// the action engine asserts the system is in the expected state. A vertex is
// uniquely identified by its ID within a model.
//
// Every setter invalidates the cached RuntimeVertex, so Build returns a fresh
// immutable twin after a mutation and the same instance otherwise.
//
// Example:
//
//	login := graph.NewVertex().SetID("v_login").SetName("Login")
//	home := graph.NewVertex().SetID("v_home").SetName("Home")
//	rv := login.Build()
//	rv == login.Build() // true until login is mutated
type Vertex struct {
	elementBuilder
	sharedState    string
	sharedStateSet bool
	cache          cachedBuilder[RuntimeVertex]
}

// NewVertex creates an empty vertex builder.
func NewVertex() *Vertex {
	return &Vertex{}
}

func (v *Vertex) ID() string { return v.id }
func (v *Vertex) Name() string { return v.name }
func (v *Vertex) SharedState() string { return v.sharedState }

// Actions returns a copy of the builder's actions.
func (v *Vertex) Actions() []Action {
	return slices.Clone(v.actions)
}

// SetID sets the identifier of the vertex.
func (v *Vertex) SetID(id string) *Vertex {
	v.id = id
	v.cache.invalidate()
	return v
}

// SetName sets the display name of the vertex.
func (v *Vertex) SetName(name string) *Vertex {
	v.name = name
	v.cache.invalidate()
	return v
}

// SetSharedState names the shared state of this vertex.
//
// A shared state is a junction to vertices with the same shared-state name in
// other models. Stitching models together is the job of a multi-model driver;
// the core only records and exposes the name. Model.Build rejects a vertex
// whose shared state was explicitly set to an empty string.
func (v *Vertex) SetSharedState(name string) *Vertex {
	v.sharedState = name
	v.sharedStateSet = true
	v.cache.invalidate()
	return v
}

// AddAction appends an action run each time the vertex is visited.
func (v *Vertex) AddAction(action Action) *Vertex {
	v.actions = append(v.actions, action)
	v.cache.invalidate()
	return v
}

// AddActions appends several actions.
func (v *Vertex) AddActions(actions ...Action) *Vertex {
	v.actions = append(v.actions, actions...)
	v.cache.invalidate()
	return v
}

// SetActions replaces the actions of the vertex.
func (v *Vertex) SetActions(actions []Action) *Vertex {
	v.actions = slices.Clone(actions)
	v.cache.invalidate()
	return v
}

// AddRequirement appends a requirement verified at this vertex.
func (v *Vertex) AddRequirement(req Requirement) *Vertex {
	v.requirements = append(v.requirements, req)
	v.cache.invalidate()
	return v
}

// SetRequirements replaces the requirements of the vertex.
func (v *Vertex) SetRequirements(reqs []Requirement) *Vertex {
	v.requirements = slices.Clone(reqs)
	v.cache.invalidate()
	return v
}

// SetProperty sets an arbitrary property.
func (v *Vertex) SetProperty(key string, value any) *Vertex {
	v.setProperty(key, value)
	v.cache.invalidate()
	return v
}

// SetProperties replaces all arbitrary properties.
func (v *Vertex) SetProperties(props map[string]any) *Vertex {
	v.properties = nil
	for k, val := range props {
		v.setProperty(k, val)
	}
	v.cache.invalidate()
	return v
}

// Build returns the immutable twin of the vertex, constructing it only when
// the builder changed since the previous call.
func (v *Vertex) Build() *RuntimeVertex {
	return v.cache.get(func() *RuntimeVertex {
		return &RuntimeVertex{
			runtimeBase: newRuntimeBase(&v.elementBuilder),
			sharedState: v.sharedState,
		}
	})
}

// RuntimeVertex is the immutable snapshot of a Vertex.
//
// It carries no execution status: coverage and failure bookkeeping are kept
// per session in the machine's status table, keyed by the *RuntimeVertex
// pointer. The same runtime graph can therefore back several sessions at once.
type RuntimeVertex struct {
	runtimeBase
	sharedState string
}

func (*RuntimeVertex) element() {}

// SharedState returns the shared-state name, empty when unset.
func (v *RuntimeVertex) SharedState() string {
	return v.sharedState
}

// HasSharedState reports whether the vertex is a shared-state junction.
func (v *RuntimeVertex) HasSharedState() bool {
	return v.sharedState != ""
}

// Equal compares the structural identity fields of two runtime vertices.
func (v *RuntimeVertex) Equal(o *RuntimeVertex) bool {
	if v == o {
		return true
	}
	if v == nil || o == nil {
		return false
	}
	return v.sharedState == o.sharedState && v.runtimeBase.equal(&o.runtimeBase)
}

func (v *RuntimeVertex) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.name != "" {
		return v.name + "(" + v.id + ")"
	}
	return v.id
}
