package mclog

import (
	"errors"
	"fmt"
)

// Registration errors.
var (
	ErrNilProcessor        = errors.New("processor is nil")
	ErrEmptyIdentifier     = errors.New("processor identifier is empty")
	ErrDuplicateIdentifier = errors.New("duplicate processor identifier")
	ErrInvalidStage        = errors.New("invalid stage")
)

// UnitError wraps a failure of a single unit during Run.
type UnitError struct {
	Stage      Stage
	Identifier string
	Err        error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s unit %q: %v", e.Stage, e.Identifier, e.Err)
}

// Unwrap returns the unit's error.
func (e *UnitError) Unwrap() error {
	return e.Err
}

// PanicError is the error recorded when a unit panics. When the unit
// panicked with an error value, Unwrap returns it.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
