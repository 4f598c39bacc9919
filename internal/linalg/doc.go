// Package linalg provides the dense linear algebra used by the Newton solver
// and the implicit Euler step.
//
// The package defines two pieces:
//
//   - [Matrix]: a dense matrix that carries its own [Ordering]
//   - [Backend]: vector level-1 operations, a least-squares solve and
//     workspace allocation
//
// [Gonum] is the default backend. It is built on gonum's BLAS and LAPACK
// (DGELS) implementations and accepts rectangular systems.
//
// # Ordering
//
// A matrix is created with either [RowMajor] or [ColMajor] layout and the
// layout never changes afterwards. Callers fill a matrix through [Matrix.Set],
// so the layout only matters when the raw buffer is handed to a backend:
//
//	j := linalg.NewMatrix(2, 2, linalg.ColMajor, nil)
//	j.Set(0, 1, 3.5)
//	code := linalg.Default.LeastSquares(j, rhs)
package linalg
