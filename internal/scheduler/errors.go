package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")
	// ErrInvalidOperation matches every *InvalidOperationError via errors.Is
	ErrInvalidOperation = errors.New("invalid operation")
)

// ValidationError reports malformed input: an empty name, a malformed
// recurrence rule, or a postponement into the past.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidOperationError reports an action the task's current state does not allow
type InvalidOperationError struct {
	Op     string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("cannot %s task: %s", e.Op, e.Reason)
}

func (e *InvalidOperationError) Is(target error) bool {
	return target == ErrInvalidOperation
}
