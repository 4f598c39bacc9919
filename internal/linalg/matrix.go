package linalg

import "fmt"

// Ordering selects how a matrix is flattened into its buffer.
type Ordering int

const (
	RowMajor Ordering = iota
	ColMajor
)

func (o Ordering) String() string {
	switch o {
	case RowMajor:
		return "row"
	case ColMajor:
		return "col"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// ParseOrdering accepts "row", "row-major", "col", "col-major" and "column".
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "row", "row-major", "rowmajor", "":
		return RowMajor, nil
	case "col", "col-major", "colmajor", "column", "column-major":
		return ColMajor, nil
	}
	return RowMajor, fmt.Errorf("linalg: unknown ordering %q", s)
}

// Matrix is a dense rows×cols matrix stored in a single buffer.
type Matrix struct {
	rows, cols int
	order      Ordering
	data       []float64
}

// NewMatrix wraps data as a rows×cols matrix. A nil data allocates a zeroed
// buffer; otherwise len(data) must be at least rows*cols.
func NewMatrix(rows, cols int, order Ordering, data []float64) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("linalg: invalid matrix shape %dx%d", rows, cols))
	}
	if data == nil {
		data = make([]float64, rows*cols)
	}
	if len(data) < rows*cols {
		panic(fmt.Sprintf("linalg: buffer of %d elements too short for %dx%d", len(data), rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, order: order, data: data[:rows*cols]}
}

func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }
func (m *Matrix) Order() Ordering        { return m.order }

// RawData returns the backing buffer in the matrix ordering.
func (m *Matrix) RawData() []float64 { return m.data }

func (m *Matrix) index(i, j int) int {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("linalg: index (%d,%d) out of range for %dx%d", i, j, m.rows, m.cols))
	}
	if m.order == ColMajor {
		return j*m.rows + i
	}
	return i*m.cols + j
}

func (m *Matrix) At(i, j int) float64 { return m.data[m.index(i, j)] }

func (m *Matrix) Set(i, j int, v float64) { m.data[m.index(i, j)] = v }

func (m *Matrix) Zero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// CopyFrom copies src into m. Both matrices must share a shape; the
// orderings may differ.
func (m *Matrix) CopyFrom(src *Matrix) {
	if m.rows != src.rows || m.cols != src.cols {
		panic(fmt.Sprintf("linalg: copy %dx%d into %dx%d", src.rows, src.cols, m.rows, m.cols))
	}
	if m.order == src.order {
		copy(m.data, src.data)
		return
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			m.Set(i, j, src.At(i, j))
		}
	}
}

// SetNegIdentity writes -I into a square matrix.
func (m *Matrix) SetNegIdentity() {
	if m.rows != m.cols {
		panic(fmt.Sprintf("linalg: identity of non-square %dx%d", m.rows, m.cols))
	}
	m.Zero()
	for i := 0; i < m.rows; i++ {
		m.data[i*m.rows+i] = -1
	}
}
