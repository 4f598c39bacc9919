package dynamo

import (
	"math"

	"github.com/san-kum/thetastep/internal/linalg"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// MaxAbsDiff returns the largest componentwise distance to other over the
// shorter of the two states.
func (s State) MaxAbsDiff(other State) float64 {
	d := 0.0
	for i := range s {
		if i >= len(other) {
			break
		}
		d = math.Max(d, math.Abs(s[i]-other[i]))
	}
	return d
}

type Control []float64

func (c Control) Clone() Control {
	if c == nil {
		return nil
	}
	cc := make(Control, len(c))
	copy(cc, c)
	return cc
}

// VectorField evaluates dst = f(t, x, u, p). It must not write past len(dst).
type VectorField interface {
	Eval(dst []float64, t float64, x, u []float64, p [][]float64, data any)
}

// VectorFieldFunc adapts an ordinary function to VectorField.
type VectorFieldFunc func(dst []float64, t float64, x, u []float64, p [][]float64, data any)

func (f VectorFieldFunc) Eval(dst []float64, t float64, x, u []float64, p [][]float64, data any) {
	f(dst, t, x, u, p, data)
}

// Jacobian evaluates ∂f/∂x into dst. dst is zeroed by the stepper before
// each call, so implementations may set only the non-zero entries.
type Jacobian interface {
	EvalJacobian(dst *linalg.Matrix, t float64, x, u []float64, p [][]float64, data any)
}

// JacobianFunc adapts an ordinary function to Jacobian.
type JacobianFunc func(dst *linalg.Matrix, t float64, x, u []float64, p [][]float64, data any)

func (f JacobianFunc) EvalJacobian(dst *linalg.Matrix, t float64, x, u []float64, p [][]float64, data any) {
	f(dst, t, x, u, p, data)
}

// System is a model usable by both the explicit and the implicit step.
type System interface {
	VectorField
	Jacobian
	StateDim() int
	InputDim() int
}

// Configurable exposes named model parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// DefaultStater is implemented by models with a canonical initial state.
type DefaultStater interface {
	DefaultState() State
}
