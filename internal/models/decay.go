package models

import (
	"fmt"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

// Decay is the linear test equation dx_i/dt = −λ·x_i + u, applied to every
// component. Large λ·dt separates the stable from the unstable schemes.
type Decay struct {
	Rate float64
	Dim  int
}

func NewDecay() *Decay {
	return &Decay{Rate: 1.0, Dim: 1}
}

func (d *Decay) StateDim() int { return d.Dim }
func (d *Decay) InputDim() int { return 1 }

func (d *Decay) Eval(dst []float64, _ float64, x, u []float64, _ [][]float64, _ any) {
	in := 0.0
	if len(u) > 0 {
		in = u[0]
	}
	for i := range dst {
		dst[i] = -d.Rate*x[i] + in
	}
}

func (d *Decay) EvalJacobian(dst *linalg.Matrix, _ float64, _, _ []float64, _ [][]float64, _ any) {
	n, _ := dst.Dims()
	for i := 0; i < n; i++ {
		dst.Set(i, i, -d.Rate)
	}
}

func (d *Decay) DefaultState() dynamo.State {
	x := make(dynamo.State, d.Dim)
	for i := range x {
		x[i] = 1
	}
	return x
}

func (d *Decay) GetParams() map[string]float64 {
	return map[string]float64{"rate": d.Rate}
}

func (d *Decay) SetParam(name string, value float64) error {
	if name != "rate" {
		return fmt.Errorf("decay %q: %w", name, dynamo.ErrUnknownParam)
	}
	d.Rate = value
	return nil
}
