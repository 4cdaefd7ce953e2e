package graph

import (
	"fmt"
	"slices"
)

// Model is the authoring-time builder for the directed graph of one system
// under test.
//
// Vertices and edges keep their insertion order; the runtime model preserves
// it so traversal and reachability analysis are deterministic.
//
// Example:
//
//	a := graph.NewVertex().SetID("a")
//	b := graph.NewVertex().SetID("b")
//	m := graph.NewModel().SetID("shop")
//	m.AddEdge(graph.NewEdge().SetID("e_start").SetTargetVertex(a))
//	m.AddEdge(graph.NewEdge().SetID("e_ab").SetSourceVertex(a).SetTargetVertex(b))
//	rm, err := m.Build()
type Model struct {
	id       string
	name     string
	vertices []*Vertex
	edges    []*Edge
}

// NewModel creates an empty model builder.
func NewModel() *Model {
	return &Model{}
}

func (m *Model) ID() string   { return m.id }
func (m *Model) Name() string { return m.name }

func (m *Model) SetID(id string) *Model {
	m.id = id
	return m
}

func (m *Model) SetName(name string) *Model {
	m.name = name
	return m
}

// Vertices returns the vertex builders in insertion order.
func (m *Model) Vertices() []*Vertex {
	return slices.Clone(m.vertices)
}

// Edges returns the edge builders in insertion order.
func (m *Model) Edges() []*Edge {
	return slices.Clone(m.edges)
}

// AddVertex adds a vertex builder. Adding the same builder twice is a no-op.
func (m *Model) AddVertex(v *Vertex) *Model {
	if v != nil && !slices.Contains(m.vertices, v) {
		m.vertices = append(m.vertices, v)
	}
	return m
}

// AddEdge adds an edge builder together with its endpoint vertices.
func (m *Model) AddEdge(e *Edge) *Model {
	if e == nil || slices.Contains(m.edges, e) {
		return m
	}
	m.edges = append(m.edges, e)
	m.AddVertex(e.source)
	m.AddVertex(e.target)
	return m
}

// DeleteEdge removes an edge builder.
func (m *Model) DeleteEdge(e *Edge) *Model {
	m.edges = slices.DeleteFunc(m.edges, func(x *Edge) bool { return x == e })
	return m
}

// DeleteVertex removes a vertex builder and every edge touching it.
func (m *Model) DeleteVertex(v *Vertex) *Model {
	m.edges = slices.DeleteFunc(m.edges, func(x *Edge) bool {
		return x.source == v || x.target == v
	})
	m.vertices = slices.DeleteFunc(m.vertices, func(x *Vertex) bool { return x == v })
	return m
}

// Build validates the model and returns its runtime form.
//
// Validation fails fast on structural problems: empty or duplicate ids, edges
// without a target, edges whose endpoints are not in the model, and shared
// states explicitly named "". The returned error is a *ModelError.
//
// Runtime vertices and edges come from the builders' caches, so building an
// unchanged model twice yields runtime models sharing the same element
// instances.
func (m *Model) Build() (*RuntimeModel, error) {
	rm := &RuntimeModel{
		id:         m.id,
		name:       m.name,
		vertexByID: make(map[string]*RuntimeVertex, len(m.vertices)),
		edgeByID:   make(map[string]*RuntimeEdge, len(m.edges)),
		out:        make(map[*RuntimeVertex][]*RuntimeEdge, len(m.vertices)),
		in:         make(map[*RuntimeVertex][]*RuntimeEdge, len(m.vertices)),
	}

	members := make(map[*Vertex]bool, len(m.vertices))
	for _, v := range m.vertices {
		if v.id == "" {
			return nil, &ModelError{Message: "vertex id cannot be empty", Code: "EMPTY_ID", Err: ErrEmptyID}
		}
		if v.sharedStateSet && v.sharedState == "" {
			return nil, &ModelError{
				Message:   "shared state name cannot be empty",
				Code:      "EMPTY_SHARED_STATE",
				ElementID: v.id,
				Err:       ErrEmptySharedState,
			}
		}
		if _, dup := rm.vertexByID[v.id]; dup {
			return nil, &ModelError{Message: "duplicate vertex id", Code: "DUPLICATE_ID", ElementID: v.id, Err: ErrDuplicateID}
		}
		rv := v.Build()
		members[v] = true
		rm.vertexByID[v.id] = rv
		rm.vertices = append(rm.vertices, rv)
	}

	for _, e := range m.edges {
		if e.id == "" {
			return nil, &ModelError{Message: "edge id cannot be empty", Code: "EMPTY_ID", Err: ErrEmptyID}
		}
		if _, dup := rm.edgeByID[e.id]; dup {
			return nil, &ModelError{Message: "duplicate edge id", Code: "DUPLICATE_ID", ElementID: e.id, Err: ErrDuplicateID}
		}
		if e.target == nil {
			return nil, &ModelError{Message: "edge has no target vertex", Code: "MISSING_TARGET", ElementID: e.id, Err: ErrMissingTarget}
		}
		for _, end := range []*Vertex{e.source, e.target} {
			if end != nil && !members[end] {
				return nil, &ModelError{
					Message:   fmt.Sprintf("endpoint %q is not in the model", end.id),
					Code:      "UNKNOWN_VERTEX",
					ElementID: e.id,
					Err:       ErrUnknownVertex,
				}
			}
		}
		re := e.Build()
		rm.edgeByID[e.id] = re
		rm.edges = append(rm.edges, re)
		if re.source != nil {
			rm.out[re.source] = append(rm.out[re.source], re)
		}
		rm.in[re.target] = append(rm.in[re.target], re)
	}

	return rm, nil
}

// RuntimeModel is the immutable directed graph one execution session
// traverses. It is safe for concurrent reads; sessions keep their own status
// tables on top of it.
type RuntimeModel struct {
	id         string
	name       string
	vertices   []*RuntimeVertex
	edges      []*RuntimeEdge
	vertexByID map[string]*RuntimeVertex
	edgeByID   map[string]*RuntimeEdge
	out        map[*RuntimeVertex][]*RuntimeEdge
	in         map[*RuntimeVertex][]*RuntimeEdge
}

func (m *RuntimeModel) ID() string   { return m.id }
func (m *RuntimeModel) Name() string { return m.name }

// Vertices returns all vertices in model order.
func (m *RuntimeModel) Vertices() []*RuntimeVertex {
	return slices.Clone(m.vertices)
}

// Edges returns all edges in model order.
func (m *RuntimeModel) Edges() []*RuntimeEdge {
	return slices.Clone(m.edges)
}

// Vertex looks up a vertex by id.
func (m *RuntimeModel) Vertex(id string) (*RuntimeVertex, bool) {
	v, ok := m.vertexByID[id]
	return v, ok
}

// Edge looks up an edge by id.
func (m *RuntimeModel) Edge(id string) (*RuntimeEdge, bool) {
	e, ok := m.edgeByID[id]
	return e, ok
}

// Element looks up a vertex or an edge by id, vertices first.
func (m *RuntimeModel) Element(id string) (Element, bool) {
	if v, ok := m.vertexByID[id]; ok {
		return v, true
	}
	if e, ok := m.edgeByID[id]; ok {
		return e, true
	}
	return nil, false
}

// Contains reports whether the vertex belongs to this model.
func (m *RuntimeModel) Contains(v *RuntimeVertex) bool {
	if v == nil {
		return false
	}
	return m.vertexByID[v.id] == v
}

// OutEdges returns the edges leaving v.
func (m *RuntimeModel) OutEdges(v *RuntimeVertex) []*RuntimeEdge {
	return slices.Clone(m.out[v])
}

// InEdges returns the edges entering v, start edges included.
func (m *RuntimeModel) InEdges(v *RuntimeVertex) []*RuntimeEdge {
	return slices.Clone(m.in[v])
}

// StartEdges returns the edges without a source vertex.
func (m *RuntimeModel) StartEdges() []*RuntimeEdge {
	var starts []*RuntimeEdge
	for _, e := range m.edges {
		if e.source == nil {
			starts = append(starts, e)
		}
	}
	return starts
}

// FindVertices returns the vertices with the given display name.
func (m *RuntimeModel) FindVertices(name string) []*RuntimeVertex {
	var found []*RuntimeVertex
	for _, v := range m.vertices {
		if v.name == name {
			found = append(found, v)
		}
	}
	return found
}

// SharedStateVertices returns the vertices acting as shared-state junctions.
func (m *RuntimeModel) SharedStateVertices() []*RuntimeVertex {
	var found []*RuntimeVertex
	for _, v := range m.vertices {
		if v.HasSharedState() {
			found = append(found, v)
		}
	}
	return found
}
