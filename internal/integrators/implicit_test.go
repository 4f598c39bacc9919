package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/linalg"
)

// rotation is f(x) = A·x + u with a non-symmetric A, so a transposed
// Jacobian would be caught.
var rotation = [2][2]float64{{-1, 3}, {-2, -0.5}}

func rotationField(dst []float64, _ float64, x, u []float64, _ [][]float64, _ any) {
	for i := range dst {
		dst[i] = rotation[i][0]*x[0] + rotation[i][1]*x[1]
		if len(u) > 0 {
			dst[i] += u[0]
		}
	}
}

func rotationJacobian(dst *linalg.Matrix, _ float64, _, _ []float64, _ [][]float64, _ any) {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			dst.Set(i, j, rotation[i][j])
		}
	}
}

func newRotationStep(t *testing.T, order linalg.Ordering, alpha float64, xk []float64) *implicitStep {
	t.Helper()
	ws, err := newWorkspace(linalg.Default, 2, order)
	if err != nil {
		t.Fatalf("newWorkspace: %v", err)
	}
	t.Cleanup(ws.release)

	return &implicitStep{
		ts:       0.1,
		alpha:    alpha,
		uOffset:  1,
		field:    dynamo.VectorFieldFunc(rotationField),
		jacobian: dynamo.JacobianFunc(rotationJacobian),
		xk:       xk,
		ws:       ws,
	}
}

func TestImplicitResidual(t *testing.T) {
	xk := []float64{1, 2}
	x := []float64{0.5, -1}
	u := []float64{0.25, 4}
	alpha, ts := 0.3, 0.1

	s := newRotationStep(t, linalg.RowMajor, alpha, xk)
	g := make([]float64, 2)
	s.Eval(g, 0, x, u, nil, nil)

	fk := make([]float64, 2)
	fk1 := make([]float64, 2)
	rotationField(fk, 0, xk, u[:1], nil, nil)
	rotationField(fk1, 0, x, u[1:], nil, nil)
	for i := range g {
		want := xk[i] - x[i] + (1-alpha)*ts*fk[i] + alpha*ts*fk1[i]
		if math.Abs(g[i]-want) > 1e-14 {
			t.Errorf("g[%d] = %v, want %v", i, g[i], want)
		}
	}
	if xk[0] != 1 || xk[1] != 2 {
		t.Errorf("x_k was modified: %v", xk)
	}
}

func TestImplicitJacobian(t *testing.T) {
	for _, order := range []linalg.Ordering{linalg.RowMajor, linalg.ColMajor} {
		t.Run(order.String(), func(t *testing.T) {
			alpha := 0.5
			s := newRotationStep(t, order, alpha, []float64{1, 2})
			dst := linalg.NewMatrix(2, 2, order, nil)

			// Repeated evaluation must not accumulate into the buffers.
			for k := 0; k < 3; k++ {
				s.EvalJacobian(dst, 0, []float64{0, 0}, []float64{0, 0}, nil, nil)
			}

			for i := 0; i < 2; i++ {
				for j := 0; j < 2; j++ {
					want := alpha * s.ts * rotation[i][j]
					if i == j {
						want--
					}
					if got := dst.At(i, j); math.Abs(got-want) > 1e-15 {
						t.Errorf("J[%d][%d] = %v, want %v", i, j, got, want)
					}
				}
			}

			for i := 0; i < 2; i++ {
				for j := 0; j < 2; j++ {
					want := 0.0
					if i == j {
						want = -1
					}
					if got := s.ws.negI.At(i, j); got != want {
						t.Errorf("negative identity overwritten at (%d,%d): %v", i, j, got)
					}
				}
			}
		})
	}
}

func TestImplicitJacobianSparseCallback(t *testing.T) {
	// The callback only writes the diagonal; stale off-diagonal values from an
	// earlier evaluation must not leak through.
	ws, err := newWorkspace(linalg.Default, 2, linalg.ColMajor)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.release()

	ws.jac.Set(0, 1, 99)
	s := &implicitStep{
		ts: 1, alpha: 1, ws: ws,
		field: dynamo.VectorFieldFunc(rotationField),
		jacobian: dynamo.JacobianFunc(func(dst *linalg.Matrix, _ float64, _, _ []float64, _ [][]float64, _ any) {
			dst.Set(0, 0, 2)
			dst.Set(1, 1, 3)
		}),
	}
	dst := linalg.NewMatrix(2, 2, linalg.ColMajor, nil)
	s.EvalJacobian(dst, 0, []float64{0, 0}, nil, nil, nil)

	if dst.At(0, 1) != 0 || dst.At(0, 0) != 1 || dst.At(1, 1) != 2 {
		t.Errorf("unexpected jacobian %v", dst.RawData())
	}
}

func TestWorkspaceRelease(t *testing.T) {
	ws, err := newWorkspace(linalg.Default, 3, linalg.RowMajor)
	if err != nil {
		t.Fatal(err)
	}
	if ws.negI.At(2, 2) != -1 || ws.negI.At(0, 1) != 0 {
		t.Errorf("negative identity not initialised: %v", ws.negI.RawData())
	}

	ws.release()
	if ws.fk != nil || ws.fk1 != nil || ws.jac != nil || ws.negI != nil {
		t.Error("release left buffers attached")
	}
	ws.release()
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, Success},
		{linalg.ErrOutOfMemory, OutOfMemory},
		{dynamo.ErrNullInput, NullInput},
		{dynamo.ErrParameterBounds, GenericFailure},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestImplicitJacobianReadsNextInput(t *testing.T) {
	for _, order := range []linalg.Ordering{linalg.RowMajor, linalg.ColMajor} {
		t.Run(order.String(), func(t *testing.T) {
			var seen [][]float64
			s := newRotationStep(t, order, 1, []float64{1, 2})
			// Gain scheduled on u[0]: the step Jacobian depends on which
			// input segment the callback receives.
			s.jacobian = dynamo.JacobianFunc(func(dst *linalg.Matrix, t float64, x, u []float64, p [][]float64, data any) {
				seen = append(seen, append([]float64(nil), u...))
				rotationJacobian(dst, t, x, u, p, data)
				for i := 0; i < 2; i++ {
					for j := 0; j < 2; j++ {
						dst.Set(i, j, u[0]*dst.At(i, j))
					}
				}
			})

			u := []float64{0.5, 4}
			dst := linalg.NewMatrix(2, 2, order, nil)
			s.EvalJacobian(dst, 0, []float64{0, 0}, u, nil, nil)

			if len(seen) != 1 || len(seen[0]) != 1 || seen[0][0] != 4 {
				t.Fatalf("jacobian callback saw inputs %v, want [[4]]", seen)
			}
			for i := 0; i < 2; i++ {
				for j := 0; j < 2; j++ {
					want := s.ts * 4 * rotation[i][j]
					if i == j {
						want--
					}
					if got := dst.At(i, j); math.Abs(got-want) > 1e-14 {
						t.Errorf("J[%d][%d] = %v, want %v", i, j, got, want)
					}
				}
			}
		})
	}
}
