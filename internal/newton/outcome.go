package newton

import (
	"errors"
	"fmt"
)

// Outcome is the reason a solve stopped.
type Outcome int

const (
	ResidualToleranceMet Outcome = iota
	StepToleranceMet
	MaxIterationsReached
	SingularJacobian
	IllegalJacobian
	OutOfMemory
	GenericFailure
)

var outcomeNames = [...]string{
	ResidualToleranceMet: "residual-tolerance-met",
	StepToleranceMet:     "step-tolerance-met",
	MaxIterationsReached: "max-iterations-reached",
	SingularJacobian:     "singular-jacobian",
	IllegalJacobian:      "illegal-jacobian",
	OutOfMemory:          "out-of-memory",
	GenericFailure:       "generic-failure",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Converged reports whether the outcome left x at a usable iterate: either
// tolerance was met or the iteration budget ran out.
func (o Outcome) Converged() bool {
	return o == ResidualToleranceMet || o == StepToleranceMet || o == MaxIterationsReached
}

var (
	ErrSingularJacobian = errors.New("newton: singular jacobian")
	ErrIllegalJacobian  = errors.New("newton: illegal jacobian")
)

// Result carries the diagnostics of one solve.
type Result struct {
	Outcome Outcome
	// ResidualNorm is the 2-norm of F at the last evaluated iterate.
	ResidualNorm float64
	// StepNorm is the 2-norm of the last computed update.
	StepNorm float64
	// Iterations counts applied updates. It never exceeds Config.MaxIter.
	Iterations int
}
