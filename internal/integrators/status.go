package integrators

import (
	"errors"
	"fmt"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
	"github.com/san-kum/thetastep/internal/newton"
)

// Status is the coarse result of a step.
type Status int

const (
	Success Status = iota
	OutOfMemory
	NullInput
	GenericFailure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case OutOfMemory:
		return "out-of-memory"
	case NullInput:
		return "null-input"
	case GenericFailure:
		return "generic-failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Report describes one step. Newton is only populated for implicit steps and
// keeps the fine-grained stop reason that Status folds away.
type Report struct {
	Status   Status
	Implicit bool
	Newton   newton.Result
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, linalg.ErrOutOfMemory):
		return OutOfMemory
	case errors.Is(err, dynamo.ErrNullInput):
		return NullInput
	default:
		return GenericFailure
	}
}
