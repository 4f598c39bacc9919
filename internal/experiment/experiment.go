package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
	"github.com/san-kum/thetastep/internal/sim"
)

type Config struct {
	Model          string
	Alpha          float64
	InitState      []float64
	Dt             float64
	Duration       float64
	STol           float64
	XTol           float64
	MaxIter        int
	Ordering       linalg.Ordering
	StaggeredInput bool
	Params         map[string]float64
}

func (c Config) SimConfig() sim.Config {
	return sim.Config{
		Dt:             c.Dt,
		Duration:       c.Duration,
		Alpha:          c.Alpha,
		STol:           c.STol,
		XTol:           c.XTol,
		MaxIter:        c.MaxIter,
		Ordering:       c.Ordering,
		StaggeredInput: c.StaggeredInput,
		ValidateState:  true,
	}
}

type Experiment struct {
	cfg       Config
	simulator *sim.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup applies the configured parameters to sys and wires the simulator.
func (e *Experiment) Setup(sys dynamo.System, input dynamo.Input, metrics []sim.Metric, logger *zap.Logger) error {
	if len(e.cfg.Params) > 0 {
		c, ok := sys.(dynamo.Configurable)
		if !ok {
			return fmt.Errorf("model %s has no parameters: %w", e.cfg.Model, dynamo.ErrUnknownParam)
		}
		for name, v := range e.cfg.Params {
			if err := c.SetParam(name, v); err != nil {
				return err
			}
		}
	}

	e.simulator = sim.New(sys, input)
	e.simulator.SetLogger(logger)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	x0 := make(dynamo.State, len(e.cfg.InitState))
	copy(x0, e.cfg.InitState)

	return e.simulator.Run(ctx, x0, e.cfg.SimConfig())
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
