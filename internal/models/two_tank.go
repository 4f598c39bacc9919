package models

import (
	"fmt"
	"math"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

// TwoTank is a cascade of two gravity-drained tanks fed by a pump.
// State: [h1, h2] liquid levels in m. Input: [v] pump voltage.
//
//	dh1/dt = (k·v − a1·√(2g·h1)) / A1
//	dh2/dt = (a1·√(2g·h1) − a2·√(2g·h2)) / A2
type TwoTank struct {
	A1, A2  float64 // tank cross sections
	Out1    float64 // outlet area of the upper tank
	Out2    float64 // outlet area of the lower tank
	PumpK   float64
	Gravity float64
}

func NewTwoTank() *TwoTank {
	return &TwoTank{
		A1:      0.18,
		A2:      0.08,
		Out1:    0.006,
		Out2:    0.008,
		PumpK:   0.003,
		Gravity: 9.81,
	}
}

func (m *TwoTank) StateDim() int { return 2 }
func (m *TwoTank) InputDim() int { return 1 }

func (m *TwoTank) Eval(dst []float64, _ float64, x, u []float64, _ [][]float64, _ any) {
	v := 0.0
	if len(u) > 0 {
		v = u[0]
	}
	q1 := m.Out1 * math.Sqrt(2*m.Gravity*x[0])
	q2 := m.Out2 * math.Sqrt(2*m.Gravity*x[1])

	dst[0] = (m.PumpK*v - q1) / m.A1
	dst[1] = (q1 - q2) / m.A2
}

// EvalJacobian is singular at empty tanks; keep levels strictly positive.
func (m *TwoTank) EvalJacobian(dst *linalg.Matrix, _ float64, x, _ []float64, _ [][]float64, _ any) {
	sg := math.Sqrt(m.Gravity)
	d1 := m.Out1 * sg / math.Sqrt(2*x[0])
	d2 := m.Out2 * sg / math.Sqrt(2*x[1])

	dst.Set(0, 0, -d1/m.A1)
	dst.Set(1, 0, d1/m.A2)
	dst.Set(1, 1, -d2/m.A2)
}

func (m *TwoTank) DefaultState() dynamo.State {
	return dynamo.State{1e-6, 0.1}
}

// TwoTankSchedule is the pump profile used by the reference scenario:
// 10 V until t=251, 5 V until t=451, 8 V afterwards.
func TwoTankSchedule() *dynamo.PiecewiseConstant {
	return &dynamo.PiecewiseConstant{
		Segments: []dynamo.Segment{
			{Until: 251, Value: dynamo.Control{10}},
			{Until: 451, Value: dynamo.Control{5}},
		},
		Final: dynamo.Control{8},
	}
}

func (m *TwoTank) GetParams() map[string]float64 {
	return map[string]float64{
		"A1": m.A1,
		"A2": m.A2,
		"a1": m.Out1,
		"a2": m.Out2,
		"k":  m.PumpK,
		"g":  m.Gravity,
	}
}

func (m *TwoTank) SetParam(name string, value float64) error {
	if !(value > 0) {
		return fmt.Errorf("two_tank %s=%g: %w", name, value, dynamo.ErrParameterBounds)
	}
	switch name {
	case "A1":
		m.A1 = value
	case "A2":
		m.A2 = value
	case "a1":
		m.Out1 = value
	case "a2":
		m.Out2 = value
	case "k":
		m.PumpK = value
	case "g":
		m.Gravity = value
	default:
		return fmt.Errorf("two_tank %q: %w", name, dynamo.ErrUnknownParam)
	}
	return nil
}
