package sim

import (
	"math"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
	"github.com/san-kum/thetastep/internal/newton"
)

type Metric interface {
	Name() string
	Observe(x dynamo.State, u dynamo.Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x dynamo.State, u dynamo.Control, t float64)
}

type Config struct {
	Dt       float64
	Duration float64
	Alpha    float64
	STol     float64
	XTol     float64
	MaxIter  int
	Ordering linalg.Ordering

	// StaggeredInput hands the step [u(t), u(t+dt)] instead of u(t) alone.
	StaggeredInput bool
	ValidateState  bool
}

// Steps is the number of steps covering [0, Duration).
func (c Config) Steps() int {
	return int(math.Round(c.Duration / c.Dt))
}

type Result struct {
	States   []dynamo.State
	Controls []dynamo.Control
	Times    []float64
	Metrics  map[string]float64

	StepsTaken int
	// Newton statistics, zero for explicit runs.
	NewtonIterations    int
	MaxNewtonIterations int
	Outcomes            map[newton.Outcome]int
}

func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
