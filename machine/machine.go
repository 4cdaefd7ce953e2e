package machine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
	"github.com/vgarousi/Fault-tolerance-for-MBT/graph/emit"
	"github.com/vgarousi/Fault-tolerance-for-MBT/graph/store"
)

// ErrNoNextStep is returned by Step when no context has a step left.
var ErrNoNextStep = errors.New("no context has a next step")

// Machine drives one or more execution contexts through their models.
//
// Each step moves the current context one element forward: from nothing to
// the start element, from a vertex along an edge chosen by the path generator
// (or along a staged try-again edge), from an edge into its target vertex.
// The Executor runs the element's actions. On success a vertex is marked
// NodeCovered; on failure the configured ExceptionStrategy decides how the
// session continues. Anything the strategy returns ends the session.
//
// The machine is single-threaded: Step and Run must not be called
// concurrently. Run several machines, each with its own contexts, to execute
// sessions in parallel; they may share the same RuntimeModel.
//
// Example:
//
//	rm, _ := model.Build()
//	c := machine.NewContext("login", rm, generator.RandomPath(generator.VertexCoverage(100), 42))
//	m, _ := machine.New(exec, []*machine.Context{c}, machine.WithStrategy(machine.TryAgainStrategy{}))
//	if err := m.Run(ctx); err != nil {
//	    var merr *machine.MachineError
//	    if errors.As(err, &merr) {
//	        log.Printf("aborted at %s, coverage %+v", merr.Element.ID(), merr.Context.Coverage())
//	    }
//	}
type Machine struct {
	executor  Executor
	contexts  []*Context
	current   int
	strategy  ExceptionStrategy
	emitter   emit.Emitter
	metrics   *PrometheusMetrics
	store     store.Store[Snapshot]
	logger    *slog.Logger
	base      *slog.Logger
	opts      Options
	sessionID string
	step      int
	failure   error
}

// New creates a machine over contexts. Context names must be unique.
func New(executor Executor, contexts []*Context, options ...Option) (*Machine, error) {
	if executor == nil {
		return nil, &SessionError{Message: "executor cannot be nil", Code: "MISSING_EXECUTOR"}
	}
	if len(contexts) == 0 {
		return nil, &SessionError{Message: "no contexts", Code: "NO_CONTEXTS", Err: ErrNoContexts}
	}

	seen := make(map[string]bool, len(contexts))
	for _, c := range contexts {
		if c == nil || c.model == nil {
			return nil, &SessionError{Message: "context has no model", Code: "INVALID_CONTEXT"}
		}
		if c.generator == nil {
			return nil, &SessionError{Message: "context " + c.name + " has no path generator", Code: "INVALID_CONTEXT"}
		}
		if seen[c.name] {
			return nil, &SessionError{Message: "duplicate context name: " + c.name, Code: "DUPLICATE_CONTEXT"}
		}
		seen[c.name] = true
	}

	cfg := &machineConfig{}
	for _, opt := range options {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	opts := cfg.opts

	m := &Machine{
		executor:  executor,
		contexts:  contexts,
		strategy:  opts.Strategy,
		emitter:   opts.Emitter,
		metrics:   opts.Metrics,
		store:     opts.Store,
		logger:    opts.Logger,
		opts:      opts,
		sessionID: opts.SessionID,
	}
	if m.strategy == nil {
		m.strategy = FailFastStrategy{}
	}
	if m.emitter == nil {
		m.emitter = emit.NewNullEmitter()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.sessionID == "" {
		m.sessionID = uuid.NewString()
	}
	m.base = m.logger
	m.logger = m.base.With("session_id", m.sessionID)
	return m, nil
}

// SessionID identifies this session in events, metrics and the store.
func (m *Machine) SessionID() string { return m.sessionID }

// Contexts returns the machine's contexts in execution order.
func (m *Machine) Contexts() []*Context {
	return append([]*Context(nil), m.contexts...)
}

// CurrentContext returns the context the machine is stepping.
func (m *Machine) CurrentContext() *Context {
	return m.contexts[m.current]
}

// Strategy returns the configured exception strategy.
func (m *Machine) Strategy() ExceptionStrategy { return m.strategy }

// Steps returns the number of steps taken so far.
func (m *Machine) Steps() int { return m.step }

// Err returns the error that ended the session, nil while it is healthy.
func (m *Machine) Err() error { return m.failure }

// HasNextStep reports whether any context still has a step to take.
// Contexts whose path generator is satisfied are marked Completed.
func (m *Machine) HasNextStep() bool {
	_, ok := m.selectContext()
	return ok
}

// selectContext makes the first context with a step left, starting at the
// current one, the current context.
func (m *Machine) selectContext() (*Context, bool) {
	if m.failure != nil {
		return nil, false
	}
	for i := m.current; i < len(m.contexts); i++ {
		c := m.contexts[i]
		if m.contextHasNext(c) {
			m.current = i
			return c, true
		}
		if c.ExecutionStatus() != ExecutionFailed && c.ExecutionStatus() != Completed {
			c.SetExecutionStatus(Completed)
			m.emit(c, "", "context_completed", coverageMeta(c.Coverage()))
			m.logger.Info("context completed", "context", c.name, "coverage", c.Coverage().Raw())
		}
	}
	return nil, false
}

func (m *Machine) contextHasNext(c *Context) bool {
	switch c.ExecutionStatus() {
	case Completed, ExecutionFailed:
		return false
	}
	if _, onEdge := c.CurrentElement().(*graph.RuntimeEdge); onEdge {
		return true
	}
	if c.NextEdgeTryAgain() != nil {
		return true
	}
	return c.generator.HasNext(c)
}

// Step takes one step in the current context and returns the element it
// visited.
//
// A step failure the strategy recovers from is not an error. The returned
// error is terminal: a strategy re-raise (a *MachineError), a structural
// problem (a *SessionError), or context cancellation.
func (m *Machine) Step(ctx context.Context) (graph.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := m.selectContext()
	if !ok {
		if m.failure != nil {
			return nil, m.failure
		}
		return nil, ErrNoNextStep
	}
	if m.opts.MaxSteps > 0 && m.step >= m.opts.MaxSteps {
		return nil, m.terminate(ctx, c, &SessionError{
			Message: fmt.Sprintf("session exceeded %d steps", m.opts.MaxSteps),
			Code:    "MAX_STEPS_EXCEEDED",
			Err:     ErrMaxStepsExceeded,
		})
	}
	if c.ExecutionStatus() == NotExecuted {
		c.SetExecutionStatus(Executing)
	}

	next, err := m.nextElement(ctx, c)
	if err != nil {
		return nil, m.terminate(ctx, c, err)
	}
	c.SetCurrentElement(next)
	m.step++

	var retrying bool
	if v, isVertex := next.(*graph.RuntimeVertex); isVertex {
		retrying = c.takeRetry(v)
	}

	start := time.Now()
	execErr := m.executor.Execute(ctx, c, next)
	latency := time.Since(start)

	if execErr == nil {
		// A failed vertex only turns covered through a staged retry.
		if v, isVertex := next.(*graph.RuntimeVertex); isVertex && (retrying || c.statuses.Get(v) != NodeFailed) {
			c.statuses.Set(v, NodeCovered)
		}
		m.metrics.RecordStep(c.name, kindOf(next), latency, "success")
		m.emit(c, next.ID(), "step_completed", map[string]interface{}{
			"kind":       kindOf(next),
			"latency_ms": latency.Milliseconds(),
		})
		m.persist(ctx, c, next)
		return next, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return next, m.terminate(ctx, c, ctxErr)
	}

	m.metrics.RecordStep(c.name, kindOf(next), latency, "error")
	m.metrics.IncrementFailures(c.name, kindOf(next))
	m.emit(c, next.ID(), "step_failed", map[string]interface{}{
		"kind":  kindOf(next),
		"error": execErr.Error(),
	})
	m.logger.Warn("step failed", "context", c.name, "element", next.ID(), "error", execErr)

	failure := &MachineError{Context: c, Element: next, Cause: execErr}
	name := strategyName(m.strategy)
	if herr := m.strategy.Handle(m, failure); herr != nil {
		m.metrics.IncrementRecoveries(c.name, name, "terminal")
		return next, m.terminate(ctx, c, herr)
	}
	if c.ExecutionStatus() == ExecutionFailed {
		// The strategy gave up without re-raising.
		m.metrics.IncrementRecoveries(c.name, name, "terminal")
		return next, m.terminate(ctx, c, failure)
	}

	m.metrics.IncrementRecoveries(c.name, name, "recovered")
	meta := map[string]interface{}{"strategy": name}
	if cur := c.CurrentElement(); cur != nil {
		meta["resume_at"] = cur.ID()
	}
	if e := c.NextEdgeTryAgain(); e != nil {
		meta["next_edge"] = e.ID()
	}
	m.emit(c, next.ID(), "step_recovered", meta)
	m.logger.Info("step recovered", "context", c.name, "element", next.ID(), "strategy", name)
	m.persist(ctx, c, next)
	return next, nil
}

// Run steps until no context has a step left or the session terminates.
func (m *Machine) Run(ctx context.Context) error {
	m.emit(m.CurrentContext(), "", "session_started", map[string]interface{}{
		"strategy": strategyName(m.strategy),
		"contexts": len(m.contexts),
	})
	for m.HasNextStep() {
		if _, err := m.Step(ctx); err != nil {
			return err
		}
	}
	if m.failure != nil {
		return m.failure
	}
	m.emit(m.CurrentContext(), "", "session_completed", map[string]interface{}{"steps": m.step})
	return nil
}

// nextElement decides the element the context moves to.
func (m *Machine) nextElement(ctx context.Context, c *Context) (graph.Element, error) {
	switch cur := c.CurrentElement().(type) {
	case nil:
		start := c.StartElement()
		if start == nil {
			return nil, &SessionError{
				Message: "context " + c.name + " has no start element",
				Code:    "NO_START_ELEMENT",
				Err:     ErrNoStartElement,
			}
		}
		return start, nil

	case *graph.RuntimeEdge:
		return cur.TargetVertex(), nil

	case *graph.RuntimeVertex:
		if staged := c.takeNextEdgeTryAgain(); staged != nil {
			return staged, nil
		}
		candidates, err := m.selectableEdges(ctx, c, cur)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, &SessionError{
				Message: "no selectable edge from " + cur.ID(),
				Code:    "DEAD_END",
				Err:     ErrDeadEnd,
			}
		}
		edge, err := c.generator.Next(c, candidates)
		if err != nil {
			return nil, &SessionError{Message: "path generator: " + err.Error(), Code: "GENERATOR_ERROR", Err: err}
		}
		if edge == nil {
			return nil, &SessionError{
				Message: "path generator chose no edge from " + cur.ID(),
				Code:    "DEAD_END",
				Err:     ErrDeadEnd,
			}
		}
		return edge, nil

	default:
		return nil, &SessionError{Message: fmt.Sprintf("unsupported element %T", cur), Code: "INVALID_ELEMENT"}
	}
}

// selectableEdges filters the available edges by their guards.
func (m *Machine) selectableEdges(ctx context.Context, c *Context, v *graph.RuntimeVertex) ([]*graph.RuntimeEdge, error) {
	available := c.AvailableEdges(v)
	guards, ok := m.executor.(GuardEvaluator)
	if !ok {
		return available, nil
	}
	selectable := available[:0]
	for _, e := range available {
		if e.Guard().IsEmpty() {
			selectable = append(selectable, e)
			continue
		}
		pass, err := guards.EvaluateGuard(ctx, c, e)
		if err != nil {
			return nil, &SessionError{Message: "guard of " + e.ID() + ": " + err.Error(), Code: "GUARD_ERROR", Err: err}
		}
		if pass {
			selectable = append(selectable, e)
		}
	}
	return selectable, nil
}

// terminate ends the session with err.
func (m *Machine) terminate(ctx context.Context, c *Context, err error) error {
	c.SetExecutionStatus(ExecutionFailed)
	m.failure = err
	cov := c.Coverage()
	meta := coverageMeta(cov)
	meta["error"] = err.Error()
	var elementID string
	if cur := c.CurrentElement(); cur != nil {
		elementID = cur.ID()
	}
	m.emit(c, elementID, "session_failed", meta)
	m.logger.Error("session failed", "context", c.name, "element", elementID, "error", err)
	m.persist(ctx, c, c.CurrentElement())
	return err
}

func (m *Machine) emit(c *Context, elementID, msg string, meta map[string]interface{}) {
	m.emitter.Emit(emit.Event{
		SessionID: m.sessionID,
		Context:   c.name,
		Step:      m.step,
		ElementID: elementID,
		Msg:       msg,
		Meta:      meta,
	})
}

// persist saves a snapshot and refreshes the coverage gauges.
// Store failures are logged, not fatal: persistence is an observer.
func (m *Machine) persist(ctx context.Context, c *Context, at graph.Element) {
	m.metrics.UpdateCoverage(c.name, c.Coverage())
	if m.store == nil {
		return
	}
	var id string
	if at != nil {
		id = at.ID()
	}
	if err := m.store.SaveStep(context.WithoutCancel(ctx), m.sessionID, m.step, id, m.Snapshot()); err != nil {
		m.logger.Error("failed to save snapshot", "step", m.step, "error", err)
		m.emit(c, id, "store_error", map[string]interface{}{"error": err.Error()})
	}
}

func kindOf(e graph.Element) string {
	if _, ok := e.(*graph.RuntimeEdge); ok {
		return "edge"
	}
	return "vertex"
}

func coverageMeta(cov Coverage) map[string]interface{} {
	return map[string]interface{}{
		"covered":            cov.Covered,
		"failed":             cov.Failed,
		"not_reachable":      cov.NotReachable,
		"total":              cov.Total,
		"raw_coverage":       cov.Raw(),
		"reachable_coverage": cov.Reachable(),
	}
}
