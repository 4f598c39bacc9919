package linalg

import "errors"

// ErrOutOfMemory is returned by Backend.Alloc when a workspace buffer cannot
// be obtained.
var ErrOutOfMemory = errors.New("linalg: workspace allocation failed")

// Least-squares diagnostic codes. Any positive value means rank deficiency,
// any negative value means the arguments were rejected.
const (
	SolveOK        = 0
	SolveRankLoss  = 1
	SolveIllegal   = -1
	maxAllocLength = 1 << 27
)

// Backend is the linear algebra collaborator of the solver. Vector arguments
// have equal lengths unless stated otherwise.
type Backend interface {
	Name() string

	// Alloc returns a zeroed buffer of n elements.
	Alloc(n int) ([]float64, error)
	// Free gives back a buffer obtained from Alloc.
	Free(buf []float64)

	Copy(dst, src []float64)
	Scal(alpha float64, x []float64)
	// Axpy computes y += alpha*x.
	Axpy(alpha float64, x, y []float64)
	Nrm2(x []float64) float64

	// LeastSquares solves a·x ≈ b for an m×n matrix a. b holds max(m, n)
	// elements, the first m being the right-hand side; on return its first n
	// elements hold the solution. a is overwritten. The result is 0 on
	// success, positive on rank deficiency and negative on illegal input.
	LeastSquares(a *Matrix, b []float64) int
}

// Default is the backend used when a config leaves Backend nil.
var Default Backend = Gonum{}

// Or returns b, or Default when b is nil.
func Or(b Backend) Backend {
	if b == nil {
		return Default
	}
	return b
}

// AllocMatrix obtains a rows×cols matrix buffer from b.
func AllocMatrix(b Backend, rows, cols int, order Ordering) (*Matrix, error) {
	if rows <= 0 || cols <= 0 || rows > maxAllocLength/cols {
		return nil, ErrOutOfMemory
	}
	buf, err := b.Alloc(rows * cols)
	if err != nil {
		return nil, err
	}
	return NewMatrix(rows, cols, order, buf), nil
}

// FreeMatrix returns the buffer of m to b. A nil m is ignored.
func FreeMatrix(b Backend, m *Matrix) {
	if m == nil {
		return
	}
	b.Free(m.data)
	m.data = nil
}
