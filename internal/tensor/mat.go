package tensor

import "math/rand"

// Mat represents a dense row‑major matrix of float32 values.
//
// R and C represent the number of rows and columns respectively. Stride is the
// number of elements between the starts of two consecutive rows (for row‑major
// matrices this is equal to C). Data holds the flattened matrix values.
//
// Weight matrices are stored out×in. Signals are stored frames×channels so a
// single frame is one contiguous row.
type Mat struct {
	R, C   int
	Stride int
	Data   []float32
}

// NewMat allocates a new matrix with the given number of rows and columns.
// The underlying slice is zero initialised.
func NewMat(r, c int) Mat {
	if r < 0 || c < 0 {
		panic("negative dimension for matrix")
	}
	return Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   make([]float32, r*c),
	}
}

// NewMatFromData creates a matrix from existing data.
// It checks that the data length matches r*c.
func NewMatFromData(r, c int, data []float32) Mat {
	if r*c != len(data) {
		panic("data length mismatch")
	}
	return Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   data,
	}
}

// Row returns a view of the i‑th row of the matrix. Modifications to the
// returned slice update the matrix.
func (m *Mat) Row(i int) []float32 {
	if i < 0 || i >= m.R {
		panic("row index out of range")
	}
	start := i * m.Stride
	return m.Data[start : start+m.C]
}

// Rows returns the contiguous backing data of rows [i, j).
func (m *Mat) Rows(i, j int) []float32 {
	if i < 0 || j > m.R || i > j {
		panic("row range out of range")
	}
	return m.Data[i*m.Stride : j*m.Stride]
}

// Zero clears every element.
func (m *Mat) Zero() {
	clear(m.Data)
}

// Grow ensures the matrix has at least r rows, preserving existing rows.
func (m *Mat) Grow(r int) {
	if r <= m.R {
		return
	}
	data := make([]float32, r*m.Stride)
	copy(data, m.Data)
	m.Data = data
	m.R = r
}

// FillRand fills the matrix with reproducible pseudo‑random values in
// roughly (-scale, scale).
func FillRand(m *Mat, seed int64, scale float32) {
	rng := rand.New(rand.NewSource(seed))
	for i := range m.Data {
		m.Data[i] = (rng.Float32()*2 - 1) * scale
	}
}
