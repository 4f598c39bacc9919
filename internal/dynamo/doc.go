// Package dynamo provides the core types shared by the solver, the stepper
// and the trajectory driver.
//
// The package defines the vocabulary for ordinary differential equations
// dX/dt = f(t, X, u, p):
//
//   - [State], [Control]: state and input vectors
//   - [VectorField]: evaluates f into a caller-owned buffer
//   - [Jacobian]: evaluates ∂f/∂X into an ordering-tagged matrix
//   - [System]: a model that provides both, plus its dimensions
//   - [Input]: a time-dependent input schedule
//
// The same [VectorField] and [Jacobian] shapes serve as the residual and
// residual Jacobian of the Newton solver, so any model can be handed to it.
//
// # Example
//
//	field := dynamo.VectorFieldFunc(func(dst []float64, t float64, x, u []float64, p [][]float64, data any) {
//		dst[0] = -x[0]
//	})
//
// # Thread Safety
//
// Implementations should be pure functions of their arguments. The stepper
// calls them sequentially from a single goroutine.
package dynamo
