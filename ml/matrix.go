package ml

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix represents a dense matrix with a flat data slice for performance.
// The gonum view shares the slice, so writes through either are visible to both.
type Matrix struct {
	rows, cols int
	data       []float64
	dense      *mat.Dense
}

// -------- CONSTRUCTORS ------- //
func NewMatrix(rows, cols int) *Matrix {
	data := make([]float64, rows*cols)
	return &Matrix{
		rows:  rows,
		cols:  cols,
		data:  data,
		dense: newDense(rows, cols, data),
	}
}

func NewMatrixFromSlice(rows, cols int, data []float64) *Matrix {
	if len(data) != rows*cols {
		shapePanic("NewMatrixFromSlice", dims(rows, cols), strconv.Itoa(len(data))+" values")
	}

	return &Matrix{
		rows:  rows,
		cols:  cols,
		data:  data,
		dense: newDense(rows, cols, data),
	}
}

// NewMatrixFromRows copies a jagged-free 2-D literal into a new matrix.
func NewMatrixFromRows(values [][]float64) *Matrix {
	if len(values) == 0 {
		return NewMatrix(0, 0)
	}
	m := NewMatrix(len(values), len(values[0]))
	for i, row := range values {
		if len(row) != m.cols {
			shapePanic("NewMatrixFromRows", dims(m.rows, m.cols), "row "+strconv.Itoa(i)+" of "+strconv.Itoa(len(row)))
		}
		copy(m.data[i*m.cols:], row)
	}
	return m
}

// gonum refuses zero-sized matrices; empty placeholders keep a nil view.
func newDense(rows, cols int, data []float64) *mat.Dense {
	if rows == 0 || cols == 0 {
		return nil
	}
	return mat.NewDense(rows, cols, data)
}

// ------- ACCESSORS ------ //
func (m *Matrix) Rows() int { return m.rows }

func (m *Matrix) Cols() int { return m.cols }

// Data exposes the backing slice (row-major).
func (m *Matrix) Data() []float64 { return m.data }

func (m *Matrix) At(r, c int) float64 {
	return m.data[r*m.cols+c]
}

func (m *Matrix) Set(r, c int, v float64) {
	m.data[r*m.cols+c] = v
}

// SameShape reports whether both matrices have identical dimensions.
func (m *Matrix) SameShape(b *Matrix) bool {
	return m.rows == b.rows && m.cols == b.cols
}

func (m *Matrix) mustMatch(op string, b *Matrix) {
	if !m.SameShape(b) {
		shapePanic(op, dims(m.rows, m.cols), dims(b.rows, b.cols))
	}
}

func (m *Matrix) Clone() *Matrix {
	out := NewMatrix(m.rows, m.cols)
	copy(out.data, m.data)
	return out
}

// ------- INITIALIZATION ------ //
// Randomize fills the matrix with He-scaled normal noise.
func (m *Matrix) Randomize() {
	scale := math.Sqrt(2.0 / float64(m.rows))
	for i := range m.data {
		m.data[i] = rand.NormFloat64() * scale
	}
}

func (m *Matrix) RandomizeXavier() {
	// limit = sqrt(6 / (fan_in + fan_out))
	limit := math.Sqrt(6.0 / float64(m.rows+m.cols))
	for i := range m.data {
		m.data[i] = (rand.Float64()*2 - 1) * limit
	}
}

func (m *Matrix) Reset() {
	for i := range m.data {
		m.data[i] = 0.0
	}
}

// ------- ELEMENT-WISE ARITHMETIC ------ //
// Add returns m + b.
func (m *Matrix) Add(b *Matrix) *Matrix {
	m.mustMatch("Add", b)
	out := NewMatrix(m.rows, m.cols)
	if out.dense != nil {
		out.dense.Add(m.dense, b.dense)
	}
	return out
}

// Sub returns m - b.
func (m *Matrix) Sub(b *Matrix) *Matrix {
	m.mustMatch("Sub", b)
	out := NewMatrix(m.rows, m.cols)
	if out.dense != nil {
		out.dense.Sub(m.dense, b.dense)
	}
	return out
}

// MulElem returns the position-wise product of m and b.
func (m *Matrix) MulElem(b *Matrix) *Matrix {
	m.mustMatch("MulElem", b)
	out := NewMatrix(m.rows, m.cols)
	if out.dense != nil {
		out.dense.MulElem(m.dense, b.dense)
	}
	return out
}

// Div returns the position-wise quotient of m and b.
func (m *Matrix) Div(b *Matrix) *Matrix {
	m.mustMatch("Div", b)
	out := NewMatrix(m.rows, m.cols)
	if out.dense != nil {
		out.dense.DivElem(m.dense, b.dense)
	}
	return out
}

func (m *Matrix) Scale(s float64) *Matrix {
	out := m.Clone()
	floats.Scale(s, out.data)
	return out
}

func (m *Matrix) AddScalar(s float64) *Matrix {
	out := m.Clone()
	floats.AddConst(s, out.data)
	return out
}

// AddScaledInPlace performs m += alpha * b.
func (m *Matrix) AddScaledInPlace(alpha float64, b *Matrix) {
	m.mustMatch("AddScaledInPlace", b)
	floats.AddScaled(m.data, alpha, b.data)
}

func (m *Matrix) Sqrt() *Matrix {
	out := m.Clone()
	for i, v := range out.data {
		out.data[i] = math.Sqrt(v)
	}
	return out
}

func (m *Matrix) ApplyFunc(fn func(float64) float64) {
	for i := range m.data {
		m.data[i] = fn(m.data[i])
	}
}

func (m *Matrix) Sum() float64 {
	return floats.Sum(m.data)
}

// ------- LINEAR ALGEBRA ------ //
// Product returns the matrix product m·b.
func (m *Matrix) Product(b *Matrix) *Matrix {
	if m.cols != b.rows {
		shapePanic("Product", dims(m.rows, m.cols), dims(b.rows, b.cols))
	}
	out := NewMatrix(m.rows, b.cols)
	if out.dense != nil && m.cols > 0 {
		MatMul(m.dense, b.dense, out)
	}
	return out
}

// MulVec returns m·v for a vector of length Cols().
func (m *Matrix) MulVec(v Vector) Vector {
	if len(v) != m.cols {
		shapePanic("MulVec", dims(m.rows, m.cols), dims(len(v), 1))
	}
	out := make(Vector, m.rows)
	for r := 0; r < m.rows; r++ {
		out[r] = floats.Dot(m.data[r*m.cols:(r+1)*m.cols], v)
	}
	return out
}

func (m *Matrix) Transpose() *Matrix {
	out := NewMatrix(m.cols, m.rows)
	if out.dense != nil {
		out.dense.Copy(m.dense.T())
	}
	return out
}

// ------- SPATIAL OPERATIONS ------ //
// Flip rotates the matrix by 180 degrees.
func (m *Matrix) Flip() *Matrix {
	out := NewMatrix(m.rows, m.cols)
	last := len(m.data) - 1
	for i, v := range m.data {
		out.data[last-i] = v
	}
	return out
}

// Crop returns the top-left rows x cols block.
func (m *Matrix) Crop(rows, cols int) *Matrix {
	if rows > m.rows || cols > m.cols {
		shapePanic("Crop", dims(m.rows, m.cols), dims(rows, cols))
	}
	out := NewMatrix(rows, cols)
	for r := 0; r < rows; r++ {
		copy(out.data[r*cols:(r+1)*cols], m.data[r*m.cols:r*m.cols+cols])
	}
	return out
}

// Dilate spreads the elements stride positions apart, filling the gaps with zeros.
func (m *Matrix) Dilate(stride int) *Matrix {
	if stride <= 1 || m.rows == 0 || m.cols == 0 {
		return m.Clone()
	}
	rows, cols := (m.rows-1)*stride+1, (m.cols-1)*stride+1
	out := NewMatrix(rows, cols)
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			out.data[r*stride*cols+c*stride] = m.data[r*m.cols+c]
		}
	}
	return out
}

// Pad surrounds the matrix with zeros.
func (m *Matrix) Pad(top, bottom, left, right int) *Matrix {
	rows, cols := m.rows+top+bottom, m.cols+left+right
	out := NewMatrix(rows, cols)
	for r := 0; r < m.rows; r++ {
		dst := (r+top)*cols + left
		copy(out.data[dst:dst+m.cols], m.data[r*m.cols:(r+1)*m.cols])
	}
	return out
}

// Values renders the elements row-major as whitespace-terminated tokens.
func (m *Matrix) Values() string {
	var sb strings.Builder
	for _, v := range m.data {
		sb.WriteString(formatFloat(v))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ------ UTILITY FUNCTIONS ------
func MatMul(a, b mat.Matrix, out *Matrix) {
	out.dense.Mul(a, b)
}
