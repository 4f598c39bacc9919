package integrators

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/thetastep/internal/linalg"
	"github.com/san-kum/thetastep/internal/newton"
)

// Step advances x by one theta-method step and writes the result into next.
// next must not alias x. u, p and cfg.Data are forwarded to the callbacks.
//
// Newton stops on either tolerance or on the iteration budget are all
// reported as Success; Report.Newton keeps the precise outcome.
func Step(cfg Config, next []float64, t float64, x, u []float64, p [][]float64) (Report, error) {
	rep := Report{Implicit: cfg.Implicit()}
	if err := cfg.validate(next, x, u); err != nil {
		rep.Status = statusOf(err)
		return rep, err
	}

	n := cfg.XSize
	b := linalg.Or(cfg.Backend)
	next, x = next[:n], x[:n]

	if !rep.Implicit {
		cfg.Field.Eval(next, t, x, u, p, cfg.Data)
		b.Scal(cfg.Ts, next)
		b.Axpy(1, x, next)
		return rep, nil
	}

	ws, err := newWorkspace(b, n, cfg.Ordering)
	if err != nil {
		rep.Status = OutOfMemory
		return rep, fmt.Errorf("implicit step workspace: %w", err)
	}
	defer ws.release()

	formulation := &implicitStep{
		ts:       cfg.Ts,
		alpha:    cfg.Alpha,
		uOffset:  cfg.UOffset,
		field:    cfg.Field,
		jacobian: cfg.Jacobian,
		xk:       x,
		ws:       ws,
		data:     cfg.Data,
	}
	solver := newton.Config{
		Ordering: cfg.Ordering,
		FSize:    n,
		XSize:    n,
		FTol:     cfg.STol,
		XTol:     cfg.XTol,
		MaxIter:  cfg.MaxIter,
		F:        formulation,
		DF:       formulation,
		Backend:  b,
		Logger:   cfg.Logger,
	}

	b.Copy(next, x)
	rep.Newton, err = newton.Solve(solver, t, next, u, p, nil)
	if cfg.Logger != nil {
		if ce := cfg.Logger.Check(zap.DebugLevel, "implicit step"); ce != nil {
			ce.Write(
				zap.Float64("t", t),
				zap.Stringer("outcome", rep.Newton.Outcome),
				zap.Int("iterations", rep.Newton.Iterations),
				zap.Float64("residual", rep.Newton.ResidualNorm),
			)
		}
	}
	if err != nil {
		rep.Status = statusOf(err)
		return rep, fmt.Errorf("implicit step at t=%g: %w", t, err)
	}
	return rep, nil
}

// Euler binds a Config for repeated steps of the same system.
type Euler struct {
	cfg Config
}

func NewEuler(cfg Config) *Euler {
	return &Euler{cfg: cfg}
}

func (e *Euler) Config() Config { return e.cfg }

func (e *Euler) Step(next []float64, t float64, x, u []float64, p [][]float64) (Report, error) {
	return Step(e.cfg, next, t, x, u, p)
}
