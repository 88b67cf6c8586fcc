// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

// This file implements the row-block operations the reshaping nodes are built
// from. Each operates column by column: a row block of one sample moves to
// (or accumulates into) a row block of the corresponding output sample.
//
// Move-only kernels are generic over all supported element types; the
// accumulating ones need arithmetic and get Float16 variants in
// float16ops.go.

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/seqgraph/backends"
	"github.com/gomlx/seqgraph/types"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// AssignRowSlice extracts rows [startRow, startRow+numRows) of every column
// of src into the matrix.
func (m *Matrix) AssignRowSlice(srcAny backends.Matrix, startRow, numRows int) {
	src := toMatrix(srcAny, "AssignRowSlice")
	m.assertSameDType(src, "AssignRowSlice")
	if m.rows != numRows || m.cols != src.cols || startRow < 0 || startRow+numRows > src.rows {
		types.Logicf("simplego.AssignRowSlice: rows [%d, %d) of %d x %d source do not fill %d x %d destination",
			startRow, startRow+numRows, src.rows, src.cols, m.rows, m.cols)
	}
	switch m.dtype {
	case dtypes.Float32:
		assignRowSliceGeneric(m.flat.([]float32), src.flat.([]float32), m.rows, src.rows, m.cols, startRow)
	case dtypes.Float64:
		assignRowSliceGeneric(m.flat.([]float64), src.flat.([]float64), m.rows, src.rows, m.cols, startRow)
	case dtypes.Float16:
		assignRowSliceGeneric(m.flat.([]float16.Float16), src.flat.([]float16.Float16), m.rows, src.rows, m.cols, startRow)
	}
}

// AddToRowSlice accumulates src into rows [startRow, startRow+numRows) of
// every column of the matrix.
func (m *Matrix) AddToRowSlice(srcAny backends.Matrix, startRow, numRows int) {
	src := toMatrix(srcAny, "AddToRowSlice")
	m.assertSameDType(src, "AddToRowSlice")
	if src.rows != numRows || src.cols != m.cols || startRow < 0 || startRow+numRows > m.rows {
		types.Logicf("simplego.AddToRowSlice: %d x %d source does not fit rows [%d, %d) of %d x %d destination",
			src.rows, src.cols, startRow, startRow+numRows, m.rows, m.cols)
	}
	switch m.dtype {
	case dtypes.Float32:
		addToRowSliceGeneric(m.flat.([]float32), src.flat.([]float32), m.rows, src.rows, m.cols, startRow)
	case dtypes.Float64:
		addToRowSliceGeneric(m.flat.([]float64), src.flat.([]float64), m.rows, src.rows, m.cols, startRow)
	case dtypes.Float16:
		addToRowSliceFloat16(m.flat.([]float16.Float16), src.flat.([]float16.Float16), m.rows, src.rows, m.cols, startRow)
	}
}

// AssignToRowSlice overwrites rows [startRow, startRow+numRows) of every
// column of the matrix with src.
func (m *Matrix) AssignToRowSlice(srcAny backends.Matrix, startRow, numRows int) {
	src := toMatrix(srcAny, "AssignToRowSlice")
	m.assertSameDType(src, "AssignToRowSlice")
	if src.rows != numRows || src.cols != m.cols || startRow < 0 || startRow+numRows > m.rows {
		types.Logicf("simplego.AssignToRowSlice: %d x %d source does not fit rows [%d, %d) of %d x %d destination",
			src.rows, src.cols, startRow, startRow+numRows, m.rows, m.cols)
	}
	switch m.dtype {
	case dtypes.Float32:
		assignToRowSliceGeneric(m.flat.([]float32), src.flat.([]float32), m.rows, src.rows, m.cols, startRow)
	case dtypes.Float64:
		assignToRowSliceGeneric(m.flat.([]float64), src.flat.([]float64), m.rows, src.rows, m.cols, startRow)
	case dtypes.Float16:
		assignToRowSliceGeneric(m.flat.([]float16.Float16), src.flat.([]float16.Float16), m.rows, src.rows, m.cols, startRow)
	}
}

// AddRowSlice accumulates rows [startRow, startRow+numRows) of every column
// of src into the matrix.
func (m *Matrix) AddRowSlice(srcAny backends.Matrix, startRow, numRows int) {
	src := toMatrix(srcAny, "AddRowSlice")
	m.assertSameDType(src, "AddRowSlice")
	if m.rows != numRows || m.cols != src.cols || startRow < 0 || startRow+numRows > src.rows {
		types.Logicf("simplego.AddRowSlice: rows [%d, %d) of %d x %d source do not fit %d x %d destination",
			startRow, startRow+numRows, src.rows, src.cols, m.rows, m.cols)
	}
	switch m.dtype {
	case dtypes.Float32:
		addRowSliceGeneric(m.flat.([]float32), src.flat.([]float32), m.rows, src.rows, m.cols, startRow)
	case dtypes.Float64:
		addRowSliceGeneric(m.flat.([]float64), src.flat.([]float64), m.rows, src.rows, m.cols, startRow)
	case dtypes.Float16:
		addRowSliceFloat16(m.flat.([]float16.Float16), src.flat.([]float16.Float16), m.rows, src.rows, m.cols, startRow)
	}
}

// AssignRepeat overwrites the matrix with src tiled vertically numRepeats
// times.
func (m *Matrix) AssignRepeat(srcAny backends.Matrix, numRepeats int) {
	src := toMatrix(srcAny, "AssignRepeat")
	m.assertSameDType(src, "AssignRepeat")
	if numRepeats < 1 || m.rows != src.rows*numRepeats || m.cols != src.cols {
		types.Logicf("simplego.AssignRepeat: %d x %d source tiled %d times does not fill %d x %d destination",
			src.rows, src.cols, numRepeats, m.rows, m.cols)
	}
	switch m.dtype {
	case dtypes.Float32:
		assignRepeatGeneric(m.flat.([]float32), src.flat.([]float32), src.rows, m.cols, numRepeats)
	case dtypes.Float64:
		assignRepeatGeneric(m.flat.([]float64), src.flat.([]float64), src.rows, m.cols, numRepeats)
	case dtypes.Float16:
		assignRepeatGeneric(m.flat.([]float16.Float16), src.flat.([]float16.Float16), src.rows, m.cols, numRepeats)
	}
}

// AddRowRepeatSum accumulates the sum of the numRepeats vertical tiles of src
// into the matrix.
func (m *Matrix) AddRowRepeatSum(srcAny backends.Matrix, numRepeats int) {
	src := toMatrix(srcAny, "AddRowRepeatSum")
	m.assertSameDType(src, "AddRowRepeatSum")
	if numRepeats < 1 || src.rows != m.rows*numRepeats || src.cols != m.cols {
		types.Logicf("simplego.AddRowRepeatSum: %d x %d source is not %d tiles of %d x %d destination",
			src.rows, src.cols, numRepeats, m.rows, m.cols)
	}
	switch m.dtype {
	case dtypes.Float32:
		addRowRepeatSumGeneric(m.flat.([]float32), src.flat.([]float32), m.rows, m.cols, numRepeats)
	case dtypes.Float64:
		addRowRepeatSumGeneric(m.flat.([]float64), src.flat.([]float64), m.rows, m.cols, numRepeats)
	case dtypes.Float16:
		addRowRepeatSumFloat16(m.flat.([]float16.Float16), src.flat.([]float16.Float16), m.rows, m.cols, numRepeats)
	}
}

// dst = rows [startRow, startRow+dstRows) of src, per column.
func assignRowSliceGeneric[T element](dst, src []T, dstRows, srcRows, cols, startRow int) {
	for c := 0; c < cols; c++ {
		copy(dst[c*dstRows:(c+1)*dstRows], src[c*srcRows+startRow:c*srcRows+startRow+dstRows])
	}
}

// dst rows [startRow, startRow+srcRows) += src, per column.
func addToRowSliceGeneric[T constraints.Float](dst, src []T, dstRows, srcRows, cols, startRow int) {
	for c := 0; c < cols; c++ {
		d := dst[c*dstRows+startRow : c*dstRows+startRow+srcRows]
		for r, v := range src[c*srcRows : (c+1)*srcRows] {
			d[r] += v
		}
	}
}

// dst rows [startRow, startRow+srcRows) = src, per column.
func assignToRowSliceGeneric[T element](dst, src []T, dstRows, srcRows, cols, startRow int) {
	for c := 0; c < cols; c++ {
		copy(dst[c*dstRows+startRow:c*dstRows+startRow+srcRows], src[c*srcRows:(c+1)*srcRows])
	}
}

// dst += rows [startRow, startRow+dstRows) of src, per column.
func addRowSliceGeneric[T constraints.Float](dst, src []T, dstRows, srcRows, cols, startRow int) {
	for c := 0; c < cols; c++ {
		d := dst[c*dstRows : (c+1)*dstRows]
		for r, v := range src[c*srcRows+startRow : c*srcRows+startRow+dstRows] {
			d[r] += v
		}
	}
}

// dst = src tiled vertically numRepeats times, per column.
func assignRepeatGeneric[T element](dst, src []T, srcRows, cols, numRepeats int) {
	dstRows := srcRows * numRepeats
	for c := 0; c < cols; c++ {
		column := src[c*srcRows : (c+1)*srcRows]
		for j := 0; j < numRepeats; j++ {
			copy(dst[c*dstRows+j*srcRows:c*dstRows+(j+1)*srcRows], column)
		}
	}
}

// dst += sum over the numRepeats vertical tiles of src, per column.
func addRowRepeatSumGeneric[T constraints.Float](dst, src []T, dstRows, cols, numRepeats int) {
	srcRows := dstRows * numRepeats
	for c := 0; c < cols; c++ {
		d := dst[c*dstRows : (c+1)*dstRows]
		for j := 0; j < numRepeats; j++ {
			for r, v := range src[c*srcRows+j*dstRows : c*srcRows+(j+1)*dstRows] {
				d[r] += v
			}
		}
	}
}
