// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the per-sample tensor layout, and the algebra
// used to reinterpret it.
//
// A Shape describes one sample (one column of a minibatch matrix): its rank
// and the dimension of each axis. It intentionally carries no element type --
// the dtype is a property of the value buffers, chosen once per graph (see
// package backends).
//
// A dimension of 0 is a placeholder for "to be inferred": Make accepts it, and
// ReplaceDims resolves at most one such placeholder per replacement by even
// division. Negative dimensions are never valid.
//
// ## Glossary
//
//   - Rank: number of axes of a sample.
//   - Axis: the index of a dimension. We refer to a dimension index as "axis"
//     (plural axes), and to its size as its dimension.
//   - Dimension: the size of a sample in one of its axes.
//   - Column dimension: for values not tied to a minibatch layout, the
//     trailing axis doubles as the matrix column dimension. See AsMatrixDims.
package shapes

import (
	"encoding/gob"
	"fmt"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/seqgraph/types"
	"github.com/pkg/errors"
)

// Shape represents the tensor layout of one sample, or the expected layout of
// the samples produced by a computation node.
//
// Use Make to create a new Shape.
type Shape struct {
	Dimensions []int
}

// Make returns a Shape with the given dimensions.
//
// A dimension of 0 is accepted as an inference placeholder, to be resolved by
// ReplaceDims. It panics (types.ErrInvalidArgument) on negative dimensions.
func Make(dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 {
			types.InvalidArgumentf("shapes.Make(%s): cannot create a shape with a negative dimension", s)
		}
	}
	return s
}

// Scalar returns the rank-0 shape.
func Scalar() Shape { return Shape{} }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape has rank 0.
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative
// numbers, in which case it counts from the end -- so axis=-1 refers to the
// last axis. It panics (types.ErrLogic) for an out-of-bounds axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		types.Logicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return "[]"
	}
	return fmt.Sprintf("%v", s.Dimensions)
}

// Size returns the number of elements in one sample, the product of all
// dimensions. A scalar has size 1. A shape with an unresolved placeholder has
// size 0.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the bytes needed to store one sample of this shape with
// elements of the given dtype.
func (s Shape) Memory(dtype dtypes.DType) uintptr {
	return dtype.Memory() * uintptr(s.Size())
}

// IsFullyDefined returns whether all dimensions are resolved, that is, there
// is no 0 placeholder left.
func (s Shape) IsFullyDefined() bool {
	for _, d := range s.Dimensions {
		if d == 0 {
			return false
		}
	}
	return true
}

// Equal compares two shapes for equality of rank and dimensions.
func (s Shape) Equal(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// AsMatrixDims interprets the sample shape as legacy 2D matrix dimensions,
// used for values that are not tied to a minibatch layout: the trailing axis
// is the column dimension and everything before it folds into the row
// dimension.
//
//	[]        -> 1 x 1
//	[d0]      -> d0 x 1
//	[d0...dn] -> (d0*...*dn-1) x dn
func (s Shape) AsMatrixDims() (rows, cols int) {
	switch s.Rank() {
	case 0:
		return 1, 1
	case 1:
		return s.Dimensions[0], 1
	default:
		rows = 1
		for _, d := range s.Dimensions[:s.Rank()-1] {
			rows *= d
		}
		return rows, s.Dimensions[s.Rank()-1]
	}
}

// IsVectorStoredAsImage recognizes the legacy encoding of a vector as a
// rank-3 image shape [1, N, 1]. Some older graphs carry vectors this way, and
// row operations treat them as plain vectors.
func (s Shape) IsVectorStoredAsImage() bool {
	return s.Rank() == 3 && s.Dimensions[0] == 1 && s.Dimensions[2] == 1
}

// GobSerialize shape in binary format.
func (s Shape) GobSerialize(encoder *gob.Encoder) (err error) {
	err = encoder.Encode(s.Dimensions)
	if err != nil {
		err = errors.Wrapf(err, "failed to serialize Shape %s", s)
	}
	return
}

// GobDeserialize a Shape. Returns new Shape or an error.
func GobDeserialize(decoder *gob.Decoder) (s Shape, err error) {
	err = decoder.Decode(&s.Dimensions)
	if err != nil {
		err = errors.Wrapf(err, "failed to deserialize Shape")
	}
	return
}
