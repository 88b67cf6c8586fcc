// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"

	"github.com/gomlx/seqgraph/types"
	"github.com/pkg/errors"
)

// ReplaceDims returns the shape that results from replacing the axis range
// [beginAxis, endAxis) of input with the replacement dimensions.
//
// At most one replacement dimension may be given as 0, in which case it is
// inferred so that the replaced range keeps its element count. More than one
// placeholder panics with types.ErrInvalidArgument, as does an out-of-bounds
// axis range.
//
// The resulting shape is always assembled, best effort. If its total element
// count does not match the input's, it is returned together with an error
// wrapping types.ErrInvalidArgument: tentative validation passes may keep the
// partial shape and ignore the error, while a final pass escalates it.
func ReplaceDims(input, replacement Shape, beginAxis, endAxis int) (Shape, error) {
	if beginAxis < 0 || beginAxis > endAxis || endAxis > input.Rank() {
		types.InvalidArgumentf("shapes.ReplaceDims: axis range [%d, %d) out of bounds for shape %s",
			beginAxis, endAxis, input)
	}
	inputDims := input.Dimensions
	replacementDims := slices.Clone(replacement.Dimensions)

	// #elements in the range to be replaced.
	inputElements := 1
	for _, d := range inputDims[beginAxis:endAxis] {
		inputElements *= d
	}

	// Check/infer #elements to replace with.
	targetElements := 1
	zeroAxis := -1
	for axis, d := range replacementDims {
		if d != 0 {
			targetElements *= d
		} else if zeroAxis < 0 {
			zeroAxis = axis
		} else {
			types.InvalidArgumentf("shapes.ReplaceDims: more than one dimension was specified as zero in the replacement (sub-)dimensions %s", replacement)
		}
	}
	if zeroAxis >= 0 {
		// Infer the placeholder; divisibility errors surface below as a size mismatch.
		replacementDims[zeroAxis] = inputElements / targetElements
	}

	// Assemble the actual full dimension vector.
	dims := make([]int, 0, beginAxis+len(replacementDims)+input.Rank()-endAxis)
	dims = append(dims, inputDims[:beginAxis]...)
	dims = append(dims, replacementDims...)
	dims = append(dims, inputDims[endAxis:]...)
	result := Shape{Dimensions: dims}

	if input.Size() != result.Size() {
		reason := "number of elements must be the same"
		if zeroAxis >= 0 {
			reason = "number of elements is not an integer multiple of the non-0 dimensions"
		}
		sub := Shape{Dimensions: slices.Clone(inputDims[beginAxis:endAxis])}
		return result, errors.Wrapf(types.ErrInvalidArgument,
			"input (sub-)dimensions %s incompatible with desired (sub-)dimensions %s: %s",
			sub, replacement, reason)
	}
	return result, nil
}
