package models

import (
	"fmt"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

// VanDerPol implements the Van der Pol oscillator.
// State: [x, y] where y = dx/dt
// Equations:
//
//	dx/dt = y
//	dy/dt = μ(1 - x²)y - x
//
// Large μ makes the system stiff, which is where the implicit step pays off.
type VanDerPol struct {
	Mu float64
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{Mu: 1.0}
}

func (v *VanDerPol) StateDim() int { return 2 }
func (v *VanDerPol) InputDim() int { return 0 }

func (v *VanDerPol) Eval(dst []float64, _ float64, s, _ []float64, _ [][]float64, _ any) {
	x, y := s[0], s[1]
	dst[0] = y
	dst[1] = v.Mu*(1-x*x)*y - x
}

func (v *VanDerPol) EvalJacobian(dst *linalg.Matrix, _ float64, s, _ []float64, _ [][]float64, _ any) {
	x, y := s[0], s[1]
	dst.Set(0, 1, 1)
	dst.Set(1, 0, -2*v.Mu*x*y-1)
	dst.Set(1, 1, v.Mu*(1-x*x))
}

func (v *VanDerPol) DefaultState() dynamo.State {
	return dynamo.State{2.0, 0.0}
}

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{"mu": v.Mu}
}

func (v *VanDerPol) SetParam(name string, value float64) error {
	if name != "mu" {
		return fmt.Errorf("vanderpol %q: %w", name, dynamo.ErrUnknownParam)
	}
	if value < 0 {
		return fmt.Errorf("vanderpol mu=%g: %w", value, dynamo.ErrParameterBounds)
	}
	v.Mu = value
	return nil
}
