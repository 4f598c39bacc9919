package sim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/integrators"
	"github.com/san-kum/thetastep/internal/linalg"
	"github.com/san-kum/thetastep/internal/newton"
)

type Simulator struct {
	sys       dynamo.System
	input     dynamo.Input
	metrics   []Metric
	observers []Observer
	backend   linalg.Backend
	logger    *zap.Logger
}

// New returns a simulator for sys. A nil input feeds zeros.
func New(sys dynamo.System, input dynamo.Input) *Simulator {
	if input == nil {
		input = dynamo.ConstantInput(make(dynamo.Control, sys.InputDim()))
	}
	return &Simulator{
		sys:       sys,
		input:     input,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    zap.NewNop(),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetBackend(b linalg.Backend) { s.backend = b }

func (s *Simulator) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	s.logger = l
}

func (s *Simulator) stepConfig(cfg Config) integrators.Config {
	sc := integrators.Config{
		Ts:       cfg.Dt,
		Alpha:    cfg.Alpha,
		XSize:    s.sys.StateDim(),
		Ordering: cfg.Ordering,
		STol:     cfg.STol,
		XTol:     cfg.XTol,
		MaxIter:  cfg.MaxIter,
		Field:    s.sys,
		Jacobian: s.sys,
		Backend:  s.backend,
		Logger:   s.logger,
	}
	if cfg.StaggeredInput {
		sc.UOffset = s.sys.InputDim()
	}
	return sc
}

// inputAt returns the input handed to the step starting at t, reusing buf
// for the staggered layout.
func (s *Simulator) inputAt(buf dynamo.Control, t float64, cfg Config) (now, step dynamo.Control) {
	now = s.input.At(t)
	if !cfg.StaggeredInput {
		return now, now
	}
	buf = append(buf[:0], now...)
	buf = append(buf, s.input.At(t+cfg.Dt)...)
	return now, buf
}

func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Result, error) {
	if err := s.validateConfig(x0, cfg); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	result := &Result{
		States:   make([]dynamo.State, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Outcomes: make(map[newton.Outcome]int),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	stepper := integrators.NewEuler(s.stepConfig(cfg))
	x := x0.Clone()
	next := make(dynamo.State, len(x))
	ubuf := make(dynamo.Control, 0, 2*s.sys.InputDim())

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, 0)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		t := float64(i) * cfg.Dt
		u, ustep := s.inputAt(ubuf, t, cfg)

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		rep, err := stepper.Step(next, t, x, ustep, nil)
		if err != nil {
			return result, &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err}
		}
		if rep.Implicit {
			result.NewtonIterations += rep.Newton.Iterations
			result.MaxNewtonIterations = max(result.MaxNewtonIterations, rep.Newton.Iterations)
			result.Outcomes[rep.Newton.Outcome]++
		}

		if cfg.ValidateState && !next.IsValid() {
			return result, &dynamo.SimulationError{Step: i, Time: t, State: next.Clone(), Wrapped: dynamo.ErrInvalidState}
		}

		x, next = next, x
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u.Clone())
		result.Times = append(result.Times, float64(i+1)*cfg.Dt)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Debug("trajectory complete",
		zap.Int("steps", result.StepsTaken),
		zap.Float64("alpha", cfg.Alpha),
		zap.Int("newton_iterations", result.NewtonIterations),
	)
	return result, nil
}

func (s *Simulator) validateConfig(x0 dynamo.State, cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if math.IsNaN(cfg.Alpha) || cfg.Alpha < 0 || cfg.Alpha > 1 {
		return fmt.Errorf("alpha %g: %w", cfg.Alpha, dynamo.ErrParameterBounds)
	}
	if len(x0) != s.sys.StateDim() {
		return fmt.Errorf("initial state has %d components, system has %d: %w", len(x0), s.sys.StateDim(), dynamo.ErrDimensionMismatch)
	}
	return nil
}

// RunWithCallback steps until Duration or until callback returns false.
// callback sees every state before it is advanced.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 dynamo.State, cfg Config, callback func(dynamo.State, dynamo.Control, float64) bool) error {
	if err := s.validateConfig(x0, cfg); err != nil {
		return err
	}

	stepper := integrators.NewEuler(s.stepConfig(cfg))
	x := x0.Clone()
	next := make(dynamo.State, len(x))
	ubuf := make(dynamo.Control, 0, 2*s.sys.InputDim())

	for i := 0; i < cfg.Steps(); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := float64(i) * cfg.Dt
		u, ustep := s.inputAt(ubuf, t, cfg)

		if !callback(x, u, t) {
			return nil
		}

		if _, err := stepper.Step(next, t, x, ustep, nil); err != nil {
			return &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err}
		}
		if cfg.ValidateState && !next.IsValid() {
			return fmt.Errorf("invalid state at t=%.4f: %w", t+cfg.Dt, dynamo.ErrInvalidState)
		}
		x, next = next, x
	}

	return nil
}
