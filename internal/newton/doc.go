// Package newton implements a Newton–Raphson root finder for F(x) = 0 with
// F: R^n → R^m.
//
// Every iteration solves J·δ ≈ -F in the least-squares sense, so the same
// routine handles square, over-determined and under-determined systems. For
// a square, well-conditioned Jacobian it reduces to ordinary Newton with
// quadratic local convergence.
//
// [Config] is read-only input. Achieved norms and the iteration count come
// back in [Result], so one Config may be shared by concurrent solves.
package newton
