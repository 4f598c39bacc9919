package newton

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

// Config describes one root-finding problem.
type Config struct {
	Ordering linalg.Ordering
	FSize    int // residual dimension
	XSize    int // unknown dimension
	FTol     float64
	XTol     float64
	MaxIter  int
	F        dynamo.VectorField
	DF       dynamo.Jacobian

	Backend linalg.Backend // nil selects linalg.Default
	Logger  *zap.Logger
}

func (c *Config) validate(x []float64) error {
	if c.F == nil || c.DF == nil {
		return fmt.Errorf("residual or jacobian callback: %w", dynamo.ErrNullInput)
	}
	if c.FSize <= 0 || c.XSize <= 0 {
		return fmt.Errorf("sizes %dx%d: %w", c.FSize, c.XSize, dynamo.ErrDimensionMismatch)
	}
	if len(x) < c.XSize {
		if x == nil {
			return fmt.Errorf("initial guess: %w", dynamo.ErrNullInput)
		}
		return fmt.Errorf("initial guess has %d elements, want %d: %w", len(x), c.XSize, dynamo.ErrDimensionMismatch)
	}
	if c.MaxIter < 0 {
		return fmt.Errorf("max iterations %d: %w", c.MaxIter, dynamo.ErrParameterBounds)
	}
	if !(c.FTol >= 0) || !(c.XTol >= 0) {
		return fmt.Errorf("tolerances (%g, %g): %w", c.FTol, c.XTol, dynamo.ErrParameterBounds)
	}
	return nil
}

// Solve searches a root of cfg.F starting from x, which is overwritten with
// the last iterate. u, p and data are passed through to the callbacks.
//
// Reaching either tolerance or exhausting MaxIter returns a nil error; the
// Outcome tells them apart.
func Solve(cfg Config, t float64, x, u []float64, p [][]float64, data any) (Result, error) {
	res := Result{Outcome: GenericFailure, ResidualNorm: math.Inf(1), StepNorm: math.Inf(1)}
	if err := cfg.validate(x); err != nil {
		return res, err
	}

	backend := linalg.Or(cfg.Backend)
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := backend.Alloc(max(cfg.FSize, cfg.XSize))
	if err != nil {
		res.Outcome = OutOfMemory
		return res, fmt.Errorf("residual buffer: %w", err)
	}
	defer backend.Free(f)

	jac, err := linalg.AllocMatrix(backend, cfg.FSize, cfg.XSize, cfg.Ordering)
	if err != nil {
		res.Outcome = OutOfMemory
		return res, fmt.Errorf("jacobian buffer: %w", err)
	}
	defer linalg.FreeMatrix(backend, jac)

	x = x[:cfg.XSize]
	residual := f[:cfg.FSize]
	step := f[:cfg.XSize]

	for {
		cfg.F.Eval(residual, t, x, u, p, data)
		res.ResidualNorm = backend.Nrm2(residual)
		if math.IsNaN(res.ResidualNorm) || math.IsInf(res.ResidualNorm, 0) {
			res.Outcome = IllegalJacobian
			logger.Debug("newton: non-finite residual", zap.Int("iter", res.Iterations))
			return res, fmt.Errorf("iteration %d: non-finite residual: %w", res.Iterations, ErrIllegalJacobian)
		}
		if res.ResidualNorm < cfg.FTol {
			res.Outcome = ResidualToleranceMet
			break
		}
		if res.Iterations >= cfg.MaxIter {
			res.Outcome = MaxIterationsReached
			break
		}
		backend.Scal(-1, residual)

		jac.Zero()
		cfg.DF.EvalJacobian(jac, t, x, u, p, data)

		code := backend.LeastSquares(jac, f)
		if code > 0 {
			res.Outcome = SingularJacobian
			logger.Debug("newton: singular jacobian", zap.Int("iter", res.Iterations), zap.Int("code", code))
			return res, fmt.Errorf("iteration %d: %w", res.Iterations, ErrSingularJacobian)
		}
		if code < 0 {
			res.Outcome = IllegalJacobian
			logger.Debug("newton: illegal jacobian", zap.Int("iter", res.Iterations), zap.Int("code", code))
			return res, fmt.Errorf("iteration %d: %w", res.Iterations, ErrIllegalJacobian)
		}

		res.StepNorm = backend.Nrm2(step)
		if ce := logger.Check(zap.DebugLevel, "newton iteration"); ce != nil {
			ce.Write(
				zap.Int("iter", res.Iterations),
				zap.Float64("residual", res.ResidualNorm),
				zap.Float64("step", res.StepNorm),
			)
		}
		if res.StepNorm < cfg.XTol {
			res.Outcome = StepToleranceMet
			break
		}

		backend.Axpy(1, step, x)
		res.Iterations++
	}

	return res, nil
}
