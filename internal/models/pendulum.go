package models

import (
	"fmt"
	"math"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

// Pendulum is a damped pendulum driven by a torque input.
// State: [θ, ω]. Input: [τ].
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *Pendulum) StateDim() int {
	return 2
}

func (p *Pendulum) InputDim() int {
	return 1
}

func (p *Pendulum) inertia() float64 {
	return p.Mass * p.Length * p.Length
}

func (p *Pendulum) Eval(dst []float64, _ float64, x, u []float64, _ [][]float64, _ any) {
	theta := x[0]
	omega := x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}

	dst[0] = omega
	dst[1] = (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / p.inertia()
}

func (p *Pendulum) EvalJacobian(dst *linalg.Matrix, _ float64, x, _ []float64, _ [][]float64, _ any) {
	dst.Set(0, 1, 1)
	dst.Set(1, 0, -p.Mass*p.Gravity*p.Length*math.Cos(x[0])/p.inertia())
	dst.Set(1, 1, -p.Damping/p.inertia())
}

func (p *Pendulum) DefaultState() dynamo.State {
	return dynamo.State{0.5, 0}
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	if (name == "mass" || name == "length") && !(value > 0) {
		return fmt.Errorf("pendulum %s=%g: %w", name, value, dynamo.ErrParameterBounds)
	}
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return fmt.Errorf("pendulum %q: %w", name, dynamo.ErrUnknownParam)
	}
	return nil
}

// Energy is the mechanical energy, zero at rest in the lower equilibrium.
func (p *Pendulum) Energy(x dynamo.State) float64 {
	ke := 0.5 * p.inertia() * x[1] * x[1]
	pe := p.Mass * p.Gravity * p.Length * (1 - math.Cos(x[0]))
	return ke + pe
}
