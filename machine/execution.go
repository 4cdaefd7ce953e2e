package machine

import "fmt"

// ExecutionStatus is the overall state of an execution context.
type ExecutionStatus int

const (
	// NotExecuted is the status of a context that has not taken a step.
	NotExecuted ExecutionStatus = iota
	// Executing is normal forward progress.
	Executing
	// Completed means the path generator's stop condition was fulfilled.
	Completed
	// ExecutionFailed is terminal: no further progress is possible.
	ExecutionFailed
)

var executionStatusNames = [...]string{
	NotExecuted:     "NOT_EXECUTED",
	Executing:       "EXECUTING",
	Completed:       "COMPLETED",
	ExecutionFailed: "FAILED",
}

func (s ExecutionStatus) String() string {
	if s < 0 || int(s) >= len(executionStatusNames) {
		return fmt.Sprintf("ExecutionStatus(%d)", int(s))
	}
	return executionStatusNames[s]
}

func (s ExecutionStatus) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(executionStatusNames) {
		return nil, fmt.Errorf("invalid execution status %d", int(s))
	}
	return []byte(executionStatusNames[s]), nil
}

func (s *ExecutionStatus) UnmarshalText(text []byte) error {
	for i, name := range executionStatusNames {
		if name == string(text) {
			*s = ExecutionStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown execution status %q", text)
}
