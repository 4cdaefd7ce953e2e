package machine

import (
	"log/slog"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph/emit"
	"github.com/vgarousi/Fault-tolerance-for-MBT/graph/store"
)

// Options configures a Machine. Zero values are valid.
type Options struct {
	// MaxSteps limits the number of steps of a session. 0 means no limit.
	MaxSteps int

	// Strategy handles step failures. Defaults to FailFastStrategy.
	Strategy ExceptionStrategy

	// Emitter receives observability events. Defaults to a NullEmitter.
	Emitter emit.Emitter

	// Metrics records Prometheus metrics when non-nil.
	Metrics *PrometheusMetrics

	// Store persists a Snapshot after every step when non-nil.
	Store store.Store[Snapshot]

	// Logger receives diagnostic logs. Defaults to discarding them.
	Logger *slog.Logger

	// SessionID identifies the session in events, metrics and the store.
	// Defaults to a random UUID.
	SessionID string
}

// Option is a functional option for configuring a Machine.
type Option func(*machineConfig) error

type machineConfig struct {
	opts Options
}

// WithOptions replaces the whole Options struct; later options still apply.
func WithOptions(o Options) Option {
	return func(cfg *machineConfig) error {
		cfg.opts = o
		return nil
	}
}

// WithMaxSteps limits the number of steps of a session.
//
// When the limit is hit, Run returns ErrMaxStepsExceeded and the current
// context is marked ExecutionFailed.
func WithMaxSteps(n int) Option {
	return func(cfg *machineConfig) error {
		if n < 0 {
			return &SessionError{Message: "max steps cannot be negative", Code: "INVALID_OPTION"}
		}
		cfg.opts.MaxSteps = n
		return nil
	}
}

// WithStrategy selects the exception strategy.
//
// Example:
//
//	m, err := machine.New(exec, contexts, machine.WithStrategy(machine.BlackListStrategy{}))
func WithStrategy(s ExceptionStrategy) Option {
	return func(cfg *machineConfig) error {
		if s == nil {
			return &SessionError{Message: "strategy cannot be nil", Code: "INVALID_OPTION"}
		}
		cfg.opts.Strategy = s
		return nil
	}
}

func WithEmitter(e emit.Emitter) Option {
	return func(cfg *machineConfig) error {
		cfg.opts.Emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	m, err := machine.New(exec, contexts, machine.WithMetrics(machine.NewPrometheusMetrics(registry)))
func WithMetrics(pm *PrometheusMetrics) Option {
	return func(cfg *machineConfig) error {
		cfg.opts.Metrics = pm
		return nil
	}
}

// WithStore persists a Snapshot of every context after each step, so a
// session's coverage survives the process and can be restored with
// Machine.Restore.
func WithStore(st store.Store[Snapshot]) Option {
	return func(cfg *machineConfig) error {
		cfg.opts.Store = st
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *machineConfig) error {
		cfg.opts.Logger = l
		return nil
	}
}

func WithSessionID(id string) Option {
	return func(cfg *machineConfig) error {
		if id == "" {
			return &SessionError{Message: "session id cannot be empty", Code: "INVALID_OPTION"}
		}
		cfg.opts.SessionID = id
		return nil
	}
}
