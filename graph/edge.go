package graph

import "slices"

// Edge is the authoring-time builder for a transition of the system under test.
//
// An edge without a source vertex is a start edge: the entry point the machine
// traverses first. The target vertex is mandatory by the time the model is built.
//
// The runtime twin references the runtime twins of its endpoints. When an
// endpoint builder is mutated, the edge's twin is rebuilt on the next Build so
// it never points at a stale vertex.
type Edge struct {
	elementBuilder
	source *Vertex
	target *Vertex
	guard  Guard
	weight float64
	cache  cachedBuilder[RuntimeEdge]
}

// NewEdge creates an empty edge builder.
func NewEdge() *Edge {
	return &Edge{}
}

func (e *Edge) ID() string { return e.id }
func (e *Edge) Name() string { return e.name }
func (e *Edge) SourceVertex() *Vertex { return e.source }
func (e *Edge) TargetVertex() *Vertex { return e.target }
func (e *Edge) Guard() Guard { return e.guard }
func (e *Edge) Weight() float64 { return e.weight }
func (e *Edge) Actions() []Action { return slices.Clone(e.actions) }

func (e *Edge) SetID(id string) *Edge {
	e.id = id
	e.cache.invalidate()
	return e
}

func (e *Edge) SetName(name string) *Edge {
	e.name = name
	e.cache.invalidate()
	return e
}

// SetSourceVertex sets the vertex the edge leaves. Nil makes it a start edge.
func (e *Edge) SetSourceVertex(v *Vertex) *Edge {
	e.source = v
	e.cache.invalidate()
	return e
}

// SetTargetVertex sets the vertex the edge enters.
func (e *Edge) SetTargetVertex(v *Vertex) *Edge {
	e.target = v
	e.cache.invalidate()
	return e
}

// SetGuard sets the traversal condition.
func (e *Edge) SetGuard(g Guard) *Edge {
	e.guard = g
	e.cache.invalidate()
	return e
}

// SetWeight sets the selection weight used by weighted path generators.
// Zero means unweighted.
func (e *Edge) SetWeight(w float64) *Edge {
	e.weight = w
	e.cache.invalidate()
	return e
}

func (e *Edge) AddAction(action Action) *Edge {
	e.actions = append(e.actions, action)
	e.cache.invalidate()
	return e
}

func (e *Edge) SetActions(actions []Action) *Edge {
	e.actions = slices.Clone(actions)
	e.cache.invalidate()
	return e
}

func (e *Edge) AddRequirement(req Requirement) *Edge {
	e.requirements = append(e.requirements, req)
	e.cache.invalidate()
	return e
}

func (e *Edge) SetProperty(key string, value any) *Edge {
	e.setProperty(key, value)
	e.cache.invalidate()
	return e
}

// Build returns the immutable twin of the edge.
//
// The cached twin is reused only while both endpoints still build to the
// runtime vertices it captured.
func (e *Edge) Build() *RuntimeEdge {
	var src, tgt *RuntimeVertex
	if e.source != nil {
		src = e.source.Build()
	}
	if e.target != nil {
		tgt = e.target.Build()
	}
	if c := e.cache.peek(); c != nil && (c.source != src || c.target != tgt) {
		e.cache.invalidate()
	}
	return e.cache.get(func() *RuntimeEdge {
		return &RuntimeEdge{
			runtimeBase: newRuntimeBase(&e.elementBuilder),
			source:      src,
			target:      tgt,
			guard:       e.guard,
			weight:      e.weight,
		}
	})
}

// RuntimeEdge is the immutable snapshot of an Edge.
type RuntimeEdge struct {
	runtimeBase
	source *RuntimeVertex
	target *RuntimeVertex
	guard  Guard
	weight float64
}

func (*RuntimeEdge) element() {}

// SourceVertex returns the vertex the edge leaves, nil for a start edge.
func (e *RuntimeEdge) SourceVertex() *RuntimeVertex { return e.source }

// TargetVertex returns the vertex the edge enters.
func (e *RuntimeEdge) TargetVertex() *RuntimeVertex { return e.target }

func (e *RuntimeEdge) Guard() Guard { return e.guard }
func (e *RuntimeEdge) Weight() float64 { return e.weight }

// IsStart reports whether the edge is a model entry point.
func (e *RuntimeEdge) IsStart() bool {
	return e.source == nil
}

// Equal compares the structural identity fields of two runtime edges,
// including the identity of their endpoints.
func (e *RuntimeEdge) Equal(o *RuntimeEdge) bool {
	if e == o {
		return true
	}
	if e == nil || o == nil {
		return false
	}
	return e.guard == o.guard &&
		e.weight == o.weight &&
		e.source.Equal(o.source) &&
		e.target.Equal(o.target) &&
		e.runtimeBase.equal(&o.runtimeBase)
}

func (e *RuntimeEdge) String() string {
	if e == nil {
		return "<nil>"
	}
	return e.id + "[" + e.source.String() + " -> " + e.target.String() + "]"
}
