package machine

import (
	"fmt"
	"strings"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph"
)

// ExceptionStrategy decides how a session continues after a step failure.
//
// Handle runs synchronously on the machine's goroutine. It may read the
// failed context, change vertex statuses, reposition the context with
// SetCurrentElement and SetNextEdgeTryAgain, and set its execution status.
// It must not change the model.
//
// Returning nil resumes the session from wherever the strategy left the
// context. Returning an error, normally err itself, ends the session; the
// machine hands it to the caller of Run or Step.
type ExceptionStrategy interface {
	Handle(m *Machine, err *MachineError) error
}

// StrategyFunc adapts a plain function to ExceptionStrategy.
type StrategyFunc func(m *Machine, err *MachineError) error

func (f StrategyFunc) Handle(m *Machine, err *MachineError) error {
	return f(m, err)
}

// FailFastStrategy ends the session on the first failure. A failed vertex
// is marked NodeFailed so the final coverage shows where the run stopped.
type FailFastStrategy struct{}

func (FailFastStrategy) Name() string { return "fail-fast" }

func (FailFastStrategy) Handle(_ *Machine, err *MachineError) error {
	if v, ok := err.Element.(*graph.RuntimeVertex); ok {
		err.Context.Statuses().Set(v, NodeFailed)
	}
	err.Context.SetExecutionStatus(ExecutionFailed)
	return err
}

// StrategyByName returns the built-in strategy for name: "fail-fast",
// "try-again" or "blacklist". Matching ignores case, and "_" may stand in
// for "-".
func StrategyByName(name string) (ExceptionStrategy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-") {
	case "", "fail-fast", "failfast":
		return FailFastStrategy{}, nil
	case "try-again", "tryagain":
		return TryAgainStrategy{}, nil
	case "blacklist", "black-list":
		return BlackListStrategy{}, nil
	default:
		return nil, &SessionError{Message: fmt.Sprintf("unknown exception strategy %q", name), Code: "UNKNOWN_STRATEGY"}
	}
}

func strategyName(s ExceptionStrategy) string {
	if named, ok := s.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", s)
}
