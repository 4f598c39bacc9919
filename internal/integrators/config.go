package integrators

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

const (
	DefaultTolerance = 1e-12
	DefaultMaxIter   = 100
)

// Config is the per-call step configuration. It is passed by value and never
// modified.
type Config struct {
	Ts       float64
	Alpha    float64 // 0 explicit, 1 fully implicit
	XSize    int
	UOffset  int // start of u_{k+1} inside the input vector
	Ordering linalg.Ordering
	STol     float64 // Newton residual tolerance
	XTol     float64 // Newton step tolerance
	MaxIter  int
	Field    dynamo.VectorField
	Jacobian dynamo.Jacobian
	Data     any

	Backend linalg.Backend
	Logger  *zap.Logger
}

// Implicit reports whether the step needs a Newton solve.
func (c Config) Implicit() bool { return c.Alpha != 0 }

func (c Config) validate(next, x, u []float64) error {
	if c.Field == nil {
		return fmt.Errorf("vector field: %w", dynamo.ErrNullInput)
	}
	if math.IsNaN(c.Alpha) || c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha %g not in [0,1]: %w", c.Alpha, dynamo.ErrParameterBounds)
	}
	if math.IsNaN(c.Ts) || math.IsInf(c.Ts, 0) {
		return fmt.Errorf("step size %g: %w", c.Ts, dynamo.ErrParameterBounds)
	}
	if c.XSize <= 0 {
		return fmt.Errorf("state size %d: %w", c.XSize, dynamo.ErrDimensionMismatch)
	}
	if x == nil || next == nil {
		return fmt.Errorf("state buffers: %w", dynamo.ErrNullInput)
	}
	if len(x) < c.XSize || len(next) < c.XSize {
		return fmt.Errorf("state buffers of %d and %d elements, want %d: %w", len(x), len(next), c.XSize, dynamo.ErrDimensionMismatch)
	}
	if !c.Implicit() {
		return nil
	}

	if c.Jacobian == nil {
		return fmt.Errorf("jacobian: %w", dynamo.ErrNullInput)
	}
	if c.UOffset < 0 || c.UOffset > len(u) {
		return fmt.Errorf("input offset %d for %d inputs: %w", c.UOffset, len(u), dynamo.ErrDimensionMismatch)
	}
	if c.MaxIter < 0 || !(c.STol >= 0) || !(c.XTol >= 0) {
		return fmt.Errorf("newton budget (%d, %g, %g): %w", c.MaxIter, c.STol, c.XTol, dynamo.ErrParameterBounds)
	}
	return nil
}
