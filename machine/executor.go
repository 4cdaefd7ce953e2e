package machine

import (
	"context"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
)

// Executor runs the actions attached to a vertex or an edge against the
// system under test. A non-nil error is a step failure and is handed to the
// machine's ExceptionStrategy.
type Executor interface {
	Execute(ctx context.Context, c *Context, element graph.Element) error
}

// ExecutorFunc adapts a plain function to the Executor interface.
//
// Example:
//
//	exec := machine.ExecutorFunc(func(ctx context.Context, c *machine.Context, e graph.Element) error {
//	    return driver.Run(ctx, e.Actions())
//	})
type ExecutorFunc func(ctx context.Context, c *Context, element graph.Element) error

func (f ExecutorFunc) Execute(ctx context.Context, c *Context, element graph.Element) error {
	return f(ctx, c, element)
}

// GuardEvaluator is implemented by executors that evaluate edge guards.
// Without it every guard holds.
type GuardEvaluator interface {
	EvaluateGuard(ctx context.Context, c *Context, edge *graph.RuntimeEdge) (bool, error)
}

// PathGenerator decides where the session goes next.
//
// HasNext reports whether the generator's stop condition is still
// unfulfilled. Next picks one of candidates, the edges leaving the current
// vertex whose target has not failed and whose guard holds; candidates is
// never empty. A staged try-again edge bypasses Next for one step.
type PathGenerator interface {
	HasNext(c *Context) bool
	Next(c *Context, candidates []*graph.RuntimeEdge) (*graph.RuntimeEdge, error)
}
