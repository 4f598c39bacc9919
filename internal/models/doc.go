// Package models contains ODE systems with analytic Jacobians, usable by both
// the explicit and the implicit step, and a small root problem for the
// Newton solver.
package models

import "github.com/san-kum/thetastep/internal/dynamo"

var (
	_ dynamo.System        = (*TwoTank)(nil)
	_ dynamo.System        = (*VanDerPol)(nil)
	_ dynamo.System        = (*Pendulum)(nil)
	_ dynamo.System        = (*Decay)(nil)
	_ dynamo.Configurable  = (*TwoTank)(nil)
	_ dynamo.Configurable  = (*VanDerPol)(nil)
	_ dynamo.Configurable  = (*Pendulum)(nil)
	_ dynamo.Configurable  = (*Decay)(nil)
	_ dynamo.DefaultStater = (*TwoTank)(nil)
	_ dynamo.VectorField   = CoupledExp{}
	_ dynamo.Jacobian      = CoupledExp{}
)
