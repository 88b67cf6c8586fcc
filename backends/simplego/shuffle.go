// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/seqgraph/backends"
	"github.com/gomlx/seqgraph/types"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// ShuffleScaleAndAdd implements the five axis permutation underneath frame
// stacking. Both matrices are viewed as flat tensors of shape
// (d, s, m, k, t) in column-major order; element (d, s, m, k, t) of src lands
// at (d, k, m, s, t) of the matrix:
//
//	m = keepWeight*m + scale*shuffled(src)
//
// keepWeight == 0 overwrites the destination instead, so previous contents
// may be uninitialized.
func (m *Matrix) ShuffleScaleAndAdd(keepWeight float64, srcAny backends.Matrix, d, s, mDim, k, t int, scale float64) {
	src := toMatrix(srcAny, "ShuffleScaleAndAdd")
	m.assertSameDType(src, "ShuffleScaleAndAdd")
	if d < 1 || s < 1 || mDim < 1 || k < 1 || t < 1 {
		types.Logicf("simplego.ShuffleScaleAndAdd: axis sizes (%d, %d, %d, %d, %d) must all be positive", d, s, mDim, k, t)
	}
	size := d * s * mDim * k * t
	if src.rows*src.cols != size || m.rows*m.cols != size {
		types.Logicf("simplego.ShuffleScaleAndAdd: axis sizes (%d, %d, %d, %d, %d) cover %d elements, got %d x %d source and %d x %d destination",
			d, s, mDim, k, t, size, src.rows, src.cols, m.rows, m.cols)
	}
	switch m.dtype {
	case dtypes.Float32:
		shuffleScaleAndAddGeneric(float32(keepWeight), src.flat.([]float32), d, s, mDim, k, t, float32(scale), m.flat.([]float32))
	case dtypes.Float64:
		shuffleScaleAndAddGeneric(keepWeight, src.flat.([]float64), d, s, mDim, k, t, scale, m.flat.([]float64))
	case dtypes.Float16:
		shuffleScaleAndAddFloat16(float32(keepWeight), src.flat.([]float16.Float16), d, s, mDim, k, t, float32(scale), m.flat.([]float16.Float16))
	}
}

// shuffleScaleAndAddGeneric writes c[nb] = keepWeight*c[nb] + scale*a[na]
// where nb permutes the s and k axes of na's (d, s, m, k, t) decomposition.
func shuffleScaleAndAddGeneric[T constraints.Float](keepWeight T, a []T, d, s, m, k, t int, scale T, c []T) {
	if keepWeight == 0 {
		for na, v := range a {
			c[shuffleIndex(na, d, s, m, k)] = scale * v
		}
		return
	}
	for na, v := range a {
		nb := shuffleIndex(na, d, s, m, k)
		c[nb] = keepWeight*c[nb] + scale*v
	}
}

// shuffleIndex decomposes na into (d, s, m, k, t) coordinates, column-major,
// and recomposes them with s and k swapped. The t axis size is implied.
func shuffleIndex(na, d, s, m, k int) int {
	idx := na
	id := idx % d
	idx /= d
	is := idx % s
	idx /= s
	im := idx % m
	idx /= m
	ik := idx % k
	idx /= k
	it := idx
	return (((it*s+is)*m+im)*k+ik)*d + id
}
