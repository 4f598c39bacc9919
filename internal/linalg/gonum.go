package linalg

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// Gonum implements Backend with gonum's native BLAS and LAPACK. The zero
// value is ready to use.
type Gonum struct {
	// MaxElements caps a single allocation; zero means the package limit.
	MaxElements int
}

func (Gonum) Name() string { return "gonum" }

func (g Gonum) Alloc(n int) (buf []float64, err error) {
	limit := g.MaxElements
	if limit <= 0 {
		limit = maxAllocLength
	}
	if n <= 0 || n > limit {
		return nil, ErrOutOfMemory
	}
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, ErrOutOfMemory
		}
	}()
	return make([]float64, n), nil
}

func (Gonum) Free([]float64) {}

func vec(x []float64) blas64.Vector {
	return blas64.Vector{N: len(x), Inc: 1, Data: x}
}

func (Gonum) Copy(dst, src []float64) { blas64.Copy(vec(src), vec(dst)) }

func (Gonum) Scal(alpha float64, x []float64) { blas64.Scal(alpha, vec(x)) }

func (Gonum) Axpy(alpha float64, x, y []float64) { blas64.Axpy(alpha, vec(x), vec(y)) }

func (Gonum) Nrm2(x []float64) float64 { return blas64.Nrm2(vec(x)) }

func (Gonum) LeastSquares(a *Matrix, b []float64) (code int) {
	m, n := a.Dims()
	if len(b) < max(m, n) || len(a.data) < m*n {
		return SolveIllegal
	}

	for _, v := range b[:m] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return SolveIllegal
		}
	}

	peak := 0.0
	for _, v := range a.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return SolveIllegal
		}
		peak = math.Max(peak, math.Abs(v))
	}
	// DGELS returns a zero solution for an all-zero matrix.
	if peak == 0 {
		return SolveRankLoss
	}

	defer func() {
		if r := recover(); r != nil {
			code = SolveIllegal
		}
	}()

	// A column-major m×n buffer is the row-major n×m transpose.
	trans := blas.NoTrans
	ga := blas64.General{Rows: m, Cols: n, Stride: n, Data: a.data}
	if a.order == ColMajor {
		trans = blas.Trans
		ga = blas64.General{Rows: n, Cols: m, Stride: m, Data: a.data}
	}
	gb := blas64.General{Rows: max(m, n), Cols: 1, Stride: 1, Data: b}

	work := []float64{0}
	lapack64.Gels(trans, ga, gb, work, -1)
	work = make([]float64, max(1, int(work[0])))
	if !lapack64.Gels(trans, ga, gb, work, len(work)) {
		return SolveRankLoss
	}
	return SolveOK
}
