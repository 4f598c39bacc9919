package integrators

import "github.com/san-kum/thetastep/internal/linalg"

// workspace holds the buffers of one implicit step.
type workspace struct {
	backend linalg.Backend
	fk      []float64      // f(t, x_k, u_k)
	fk1     []float64      // f(t, x_{k+1}, u_{k+1})
	jac     *linalg.Matrix // α·ts·∂f/∂x − I
	negI    *linalg.Matrix // −I, written once
}

func newWorkspace(b linalg.Backend, n int, order linalg.Ordering) (*workspace, error) {
	ws := &workspace{backend: b}

	var err error
	if ws.fk, err = b.Alloc(n); err != nil {
		return nil, err
	}
	if ws.fk1, err = b.Alloc(n); err != nil {
		ws.release()
		return nil, err
	}
	if ws.jac, err = linalg.AllocMatrix(b, n, n, order); err != nil {
		ws.release()
		return nil, err
	}
	if ws.negI, err = linalg.AllocMatrix(b, n, n, order); err != nil {
		ws.release()
		return nil, err
	}
	ws.negI.SetNegIdentity()

	return ws, nil
}

func (ws *workspace) release() {
	if ws.fk != nil {
		ws.backend.Free(ws.fk)
		ws.fk = nil
	}
	if ws.fk1 != nil {
		ws.backend.Free(ws.fk1)
		ws.fk1 = nil
	}
	linalg.FreeMatrix(ws.backend, ws.jac)
	linalg.FreeMatrix(ws.backend, ws.negI)
	ws.jac, ws.negI = nil, nil
}
