package graph

// cachedBuilder holds the immutable twin produced by a builder.
//
// The twin is created lazily on the first Build call and handed out again
// until the builder is mutated. Mutators call invalidate so the next Build
// constructs a fresh twin from the current builder state.
//
// Reference stability matters: runtime vertices and edges are used as map
// keys by the machine's status table and the reachability analyzer, so one
// stable builder state must map to exactly one runtime instance.
type cachedBuilder[T any] struct {
	cached *T
}

// get returns the cached twin, creating it with create when the cache is empty.
func (c *cachedBuilder[T]) get(create func() *T) *T {
	if c.cached == nil {
		c.cached = create()
	}
	return c.cached
}

// peek returns the cached twin without creating one.
func (c *cachedBuilder[T]) peek() *T {
	return c.cached
}

func (c *cachedBuilder[T]) invalidate() {
	c.cached = nil
}
