package crud

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a named query slug has no registration.
var ErrNotFound = errors.New("not found")

// ExecError wraps a backend failure together with the statement that caused it.
type ExecError struct {
	SQL   string
	Cause error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execution error: %v", e.Cause)
}

func (e *ExecError) Unwrap() error {
	return e.Cause
}
