package sim

import (
	"errors"
	"fmt"
)

// Domain errors for controller operations.
var (
	// ErrParameterBounds indicates a parameter value is outside its valid range.
	ErrParameterBounds = errors.New("sim: parameter out of valid bounds")

	// ErrInvalidState indicates an operation not allowed in the current controller state.
	ErrInvalidState = errors.New("sim: operation invalid in current state")

	// ErrContextCanceled indicates a step was interrupted before it committed.
	ErrContextCanceled = errors.New("sim: step canceled by context")

	// ErrDimensionMismatch indicates particle arrays of different lengths.
	ErrDimensionMismatch = errors.New("sim: dimension mismatch between particle arrays")
)

// StepError wraps an error with the step it happened in.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
