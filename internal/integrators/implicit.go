package integrators

import (
	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

// implicitStep turns a vector field into the residual
//
//	g(x) = x_k − x + (1−α)·ts·f(t, x_k, u_k) + α·ts·f(t, x, u_{k+1})
//
// and its Jacobian α·ts·∂f/∂x(t, x, u_{k+1}) − I, for the Newton solver.
type implicitStep struct {
	ts, alpha float64
	uOffset   int
	field     dynamo.VectorField
	jacobian  dynamo.Jacobian
	xk        []float64
	ws        *workspace
	data      any
}

var (
	_ dynamo.VectorField = (*implicitStep)(nil)
	_ dynamo.Jacobian    = (*implicitStep)(nil)
)

func (s *implicitStep) Eval(g []float64, t float64, x, u []float64, p [][]float64, _ any) {
	b := s.ws.backend
	fk, fk1 := s.ws.fk, s.ws.fk1

	s.field.Eval(fk, t, s.xk, u, p, s.data)
	s.field.Eval(fk1, t, x, u[s.uOffset:], p, s.data)

	b.Scal((1-s.alpha)*s.ts, fk)
	b.Scal(s.alpha*s.ts, fk1)
	b.Axpy(1, fk1, fk)
	b.Axpy(-1, x, fk)
	b.Axpy(1, s.xk, fk)

	b.Copy(g, fk)
}

// EvalJacobian only differentiates the x_{k+1} term; the x_k term is constant.
func (s *implicitStep) EvalJacobian(dst *linalg.Matrix, t float64, x, u []float64, p [][]float64, _ any) {
	b := s.ws.backend
	jac := s.ws.jac

	jac.Zero()
	s.jacobian.EvalJacobian(jac, t, x, u[s.uOffset:], p, s.data)

	b.Scal(s.alpha*s.ts, jac.RawData())
	b.Axpy(1, s.ws.negI.RawData(), jac.RawData())

	dst.CopyFrom(jac)
}
