package models

import (
	"math"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

// CoupledExp is the root problem
//
//	2x₀ − x₁ − e^{−x₀} = 0
//	−x₀ + 2x₁ − e^{−x₁} = 0
//
// whose unique root is x₀ = x₁ = W(1) ≈ 0.567143 (the omega constant).
type CoupledExp struct{}

const Omega = 0.5671432904097838

func (CoupledExp) Size() int { return 2 }

func (CoupledExp) Eval(dst []float64, _ float64, x, _ []float64, _ [][]float64, _ any) {
	dst[0] = 2*x[0] - x[1] - math.Exp(-x[0])
	dst[1] = -x[0] + 2*x[1] - math.Exp(-x[1])
}

func (CoupledExp) EvalJacobian(dst *linalg.Matrix, _ float64, x, _ []float64, _ [][]float64, _ any) {
	dst.Set(0, 0, 2+math.Exp(-x[0]))
	dst.Set(0, 1, -1)
	dst.Set(1, 0, -1)
	dst.Set(1, 1, 2+math.Exp(-x[1]))
}

// DefaultGuess is deliberately far from the root.
func (CoupledExp) DefaultGuess() dynamo.State {
	return dynamo.State{10, 10}
}
