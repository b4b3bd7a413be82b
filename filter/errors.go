package filter

import (
	"fmt"
)

// Error types for filter operations
type (
	// CompilationError indicates a filter expression could not be compiled
	CompilationError struct {
		Expression string
		Reason     string
		Err        error
	}

	// EvaluationError indicates a filter could not be evaluated against a hit
	EvaluationError struct {
		Expression string
		HitTitle   string
		Err        error
	}
)

func (e *CompilationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid filter '%s': %s: %v", e.Expression, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid filter '%s': %s", e.Expression, e.Reason)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("filter '%s' failed on '%s': %v", e.Expression, e.HitTitle, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
