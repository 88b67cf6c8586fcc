// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/seqgraph/backends"
	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/xslices"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// element are the dtypes' Go types; float16 has no native arithmetic and gets
// dedicated kernels (see float16ops.go).
type element interface {
	constraints.Float | float16.Float16
}

// Matrix is a column-major minibatch matrix over a flat slice of the dtype's
// Go type. Views share the flat storage of the matrix they were taken from.
type Matrix struct {
	dtype      dtypes.DType
	rows, cols int

	// flat is always a slice of the underlying data type, of length
	// exactly rows*cols.
	flat any

	// view marks matrices whose flat aliases another matrix's storage.
	view bool
}

// Compile-time check:
var _ backends.Matrix = (*Matrix)(nil)

func newMatrix(dtype dtypes.DType, rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		types.InvalidArgumentf("simplego: cannot create a %d x %d matrix", rows, cols)
	}
	return &Matrix{
		dtype: dtype,
		rows:  rows,
		cols:  cols,
		flat:  newFlat(dtype, rows*cols),
	}
}

func newFlat(dtype dtypes.DType, size int) any {
	switch dtype {
	case dtypes.Float32:
		return make([]float32, size)
	case dtypes.Float64:
		return make([]float64, size)
	case dtypes.Float16:
		return make([]float16.Float16, size)
	default:
		exceptions.Panicf("simplego: unsupported dtype %s, only Float32, Float64 and Float16 are supported", dtype)
	}
	return nil
}

// toMatrix converts an interface matrix back to the concrete type, verifying
// it belongs to this backend.
func toMatrix(m backends.Matrix, op string) *Matrix {
	concrete, ok := m.(*Matrix)
	if !ok {
		types.Logicf("simplego.%s: matrix is not a %q backend matrix", op, BackendName)
	}
	return concrete
}

func (m *Matrix) assertSameDType(src *Matrix, op string) {
	if m.dtype != src.dtype {
		types.Logicf("simplego.%s: dtype mismatch, %s vs %s", op, m.dtype, src.dtype)
	}
}

// DType returns the element type.
func (m *Matrix) DType() dtypes.DType { return m.dtype }

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Resize changes the dimensions, reallocating only if the element count
// grows. Contents are unspecified afterwards.
func (m *Matrix) Resize(rows, cols int) {
	if m.view {
		types.Logicf("simplego.Resize: cannot resize a matrix view")
	}
	if rows < 0 || cols < 0 {
		types.InvalidArgumentf("simplego.Resize: cannot resize to %d x %d", rows, cols)
	}
	m.flat = resizeFlat(m.dtype, m.flat, rows*cols)
	m.rows, m.cols = rows, cols
}

func resizeFlat(dtype dtypes.DType, flat any, size int) any {
	switch f := flat.(type) {
	case []float32:
		if size <= cap(f) {
			return f[:size]
		}
	case []float64:
		if size <= cap(f) {
			return f[:size]
		}
	case []float16.Float16:
		if size <= cap(f) {
			return f[:size]
		}
	}
	return newFlat(dtype, size)
}

// Reshaped returns a zero-copy view of the same elements reinterpreted as
// rows x cols.
func (m *Matrix) Reshaped(rows, cols int) backends.Matrix {
	if rows*cols != m.rows*m.cols {
		types.Logicf("simplego.Reshaped: cannot view %d x %d matrix as %d x %d", m.rows, m.cols, rows, cols)
	}
	return &Matrix{dtype: m.dtype, rows: rows, cols: cols, flat: m.flat, view: true}
}

// ColumnRange returns a zero-copy view of num columns starting at start.
func (m *Matrix) ColumnRange(start, num int) backends.Matrix {
	if start < 0 || num < 0 || start+num > m.cols {
		types.Logicf("simplego.ColumnRange: columns [%d, %d) out of range for %d x %d matrix",
			start, start+num, m.rows, m.cols)
	}
	var flat any
	switch f := m.flat.(type) {
	case []float32:
		flat = f[start*m.rows : (start+num)*m.rows]
	case []float64:
		flat = f[start*m.rows : (start+num)*m.rows]
	case []float16.Float16:
		flat = f[start*m.rows : (start+num)*m.rows]
	}
	return &Matrix{dtype: m.dtype, rows: m.rows, cols: num, flat: flat, view: true}
}

func (m *Matrix) flatIndex(row, col int) int {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		types.Logicf("simplego: element (%d, %d) out of range for %d x %d matrix", row, col, m.rows, m.cols)
	}
	return col*m.rows + row
}

// At returns the element at (row, col).
func (m *Matrix) At(row, col int) float64 {
	idx := m.flatIndex(row, col)
	switch f := m.flat.(type) {
	case []float32:
		return float64(f[idx])
	case []float64:
		return f[idx]
	case []float16.Float16:
		return float64(f[idx].Float32())
	}
	return 0
}

// Set assigns the element at (row, col).
func (m *Matrix) Set(row, col int, value float64) {
	idx := m.flatIndex(row, col)
	switch f := m.flat.(type) {
	case []float32:
		f[idx] = float32(value)
	case []float64:
		f[idx] = value
	case []float16.Float16:
		f[idx] = float16.Fromfloat32(float32(value))
	}
}

// SetZero fills the matrix with zeros.
func (m *Matrix) SetZero() {
	switch f := m.flat.(type) {
	case []float32:
		clear(f)
	case []float64:
		clear(f)
	case []float16.Float16:
		clear(f)
	}
}

// Fill sets every element to value.
func (m *Matrix) Fill(value float64) {
	switch f := m.flat.(type) {
	case []float32:
		xslices.FillSlice(f, float32(value))
	case []float64:
		xslices.FillSlice(f, value)
	case []float16.Float16:
		xslices.FillSlice(f, float16.Fromfloat32(float32(value)))
	}
}

// SetFlat fills the matrix from values in column-major order.
func (m *Matrix) SetFlat(values []float64) {
	if len(values) != m.rows*m.cols {
		types.Logicf("simplego.SetFlat: %d values given for a %d x %d matrix", len(values), m.rows, m.cols)
	}
	switch f := m.flat.(type) {
	case []float32:
		for ii, v := range values {
			f[ii] = float32(v)
		}
	case []float64:
		copy(f, values)
	case []float16.Float16:
		for ii, v := range values {
			f[ii] = float16.Fromfloat32(float32(v))
		}
	}
}

// Flat returns a copy of the elements in column-major order.
func (m *Matrix) Flat() []float64 {
	out := make([]float64, m.rows*m.cols)
	switch f := m.flat.(type) {
	case []float32:
		for ii, v := range f {
			out[ii] = float64(v)
		}
	case []float64:
		copy(out, f)
	case []float16.Float16:
		for ii, v := range f {
			out[ii] = float64(v.Float32())
		}
	}
	return out
}

// Assign copies src into the matrix. Dimensions and dtype must match.
func (m *Matrix) Assign(srcAny backends.Matrix) {
	src := toMatrix(srcAny, "Assign")
	m.assertSameDType(src, "Assign")
	if m.rows != src.rows || m.cols != src.cols {
		types.Logicf("simplego.Assign: dimension mismatch, %d x %d := %d x %d", m.rows, m.cols, src.rows, src.cols)
	}
	switch f := m.flat.(type) {
	case []float32:
		copy(f, src.flat.([]float32))
	case []float64:
		copy(f, src.flat.([]float64))
	case []float16.Float16:
		copy(f, src.flat.([]float16.Float16))
	}
}

// AddScaled accumulates scale*src into the matrix. Dimensions and dtype must
// match.
func (m *Matrix) AddScaled(srcAny backends.Matrix, scale float64) {
	src := toMatrix(srcAny, "AddScaled")
	m.assertSameDType(src, "AddScaled")
	if m.rows != src.rows || m.cols != src.cols {
		types.Logicf("simplego.AddScaled: dimension mismatch, %d x %d += %d x %d", m.rows, m.cols, src.rows, src.cols)
	}
	switch m.dtype {
	case dtypes.Float32:
		addScaledGeneric(m.flat.([]float32), src.flat.([]float32), float32(scale))
	case dtypes.Float64:
		addScaledGeneric(m.flat.([]float64), src.flat.([]float64), scale)
	case dtypes.Float16:
		addScaledFloat16(m.flat.([]float16.Float16), src.flat.([]float16.Float16), float32(scale))
	}
}

func addScaledGeneric[T constraints.Float](dst, src []T, scale T) {
	for ii, v := range src {
		dst[ii] += scale * v
	}
}
