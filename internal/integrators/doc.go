// Package integrators implements the theta-method Euler step.
//
// For a blend coefficient α ∈ [0,1] the step from x_k to x_{k+1} solves
//
//	x_{k+1} = x_k + (1−α)·ts·f(t, x_k, u_k) + α·ts·f(t, x_{k+1}, u_{k+1})
//
// α = 0 is the explicit Euler step and costs one field evaluation. α = 1 is
// the backward Euler step and α = 0.5 is the trapezoidal (Tustin) rule. Any
// α > 0 is solved with [newton.Solve], seeded with x_k.
//
// The input vector may carry both time points: u[:UOffset] is u_k and
// u[UOffset:] is u_{k+1}. With UOffset = 0 both points read the same input.
package integrators
