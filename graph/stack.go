// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/seqgraph/backends"
	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
)

// dataFor returns the columns of m addressed by fr under the given layout:
// everything for an all-frames range, or the columns of one step. A nil
// layout means m is not minibatch data, which only the full range can
// address.
func dataFor(m backends.Matrix, fr layouts.FrameRange, layout *layouts.Layout) backends.Matrix {
	if layout == nil {
		if !fr.IsAllFrames() {
			types.Logicf("%s used on data that has no minibatch layout", fr)
		}
		return m
	}
	if m.Cols() != layout.NumCols() {
		types.Logicf("matrix has %d columns but its layout %s covers %d", m.Cols(), layout, layout.NumCols())
	}
	start, num := layout.ColumnRange(fr)
	if start == 0 && num == m.Cols() {
		return m
	}
	return m.ColumnRange(start, num)
}

// StackFrames groups k consecutive frames of every sequence into one frame k
// times taller. fr and layout refer to the reduced ('to') timeline, so the
// number of time steps of layout is 1/k of the source's.
//
// The storage picture for D=2, S=2, K=3, T=2, with each letter one frame of
// sequences "abcdef" and "uvwxyz":
//
//	from: aubvcw dxeyfz
//	to:   abcuvw defxyz
//
// Viewed as flat tensors this is the (D, S, M, K, T) -> (D, K, M, S, T) axis
// swap, with M a degenerate axis of size 1. With addTo the result
// accumulates into 'to' instead of overwriting, which backprop needs to sum
// gradient contributions.
//
// Restacking is defined over the whole S x T grid, so only an all-frames
// range is accepted; a single-step range panics with
// types.ErrInvalidArgument.
func StackFrames(fr layouts.FrameRange, layout *layouts.Layout, from, to backends.Matrix, k int, addTo bool) {
	if layout == nil {
		types.InvalidArgumentf("StackFrames requires a minibatch layout for the reduced timeline")
	}
	if !fr.IsAllFrames() {
		types.InvalidArgumentf("StackFrames can only address the full minibatch, not %s", fr)
	}
	// Both sides are viewed on the 'to' timeline; reshaping the source to
	// the destination's dimensions pulls out the right columns.
	from0 := from.Reshaped(to.Rows(), to.Cols())
	fromSlice0 := dataFor(from0, fr, layout)
	toSlice0 := dataFor(to, fr, layout)

	// Unified view: D rows, (S, M, K, T) flattened into the columns.
	d := from.Rows()
	smkt := from.Cols()
	fromSlice := fromSlice0.Reshaped(d, smkt)
	toSlice := toSlice0.Reshaped(d, smkt)

	s := layout.NumParallel()
	t := layout.NumSteps()
	keepWeight := 0.0
	if addTo {
		keepWeight = 1
	}
	toSlice.ShuffleScaleAndAdd(keepWeight, fromSlice, d, s, 1, k, t, 1)
}

// UnstackFrames splits every frame of d*k elements into k consecutive frames
// of d elements, the exact inverse of StackFrames. fr and layout refer to
// the reduced ('from') timeline.
func UnstackFrames(fr layouts.FrameRange, layout *layouts.Layout, from, to backends.Matrix, k int, addTo bool) {
	if layout == nil {
		types.InvalidArgumentf("UnstackFrames requires a minibatch layout for the reduced timeline")
	}
	if !fr.IsAllFrames() {
		types.InvalidArgumentf("UnstackFrames can only address the full minibatch, not %s", fr)
	}
	fromSlice0 := dataFor(from, fr, layout)
	to0 := to.Reshaped(from.Rows(), from.Cols())
	toSlice0 := dataFor(to0, fr, layout)

	d := to.Rows()
	smkt := to.Cols()
	fromSlice := fromSlice0.Reshaped(d, smkt)
	toSlice := toSlice0.Reshaped(d, smkt)

	s := layout.NumParallel()
	t := layout.NumSteps()
	keepWeight := 0.0
	if addTo {
		keepWeight = 1
	}
	// The s and k axis sizes trade places relative to StackFrames, which
	// inverts the permutation.
	toSlice.ShuffleScaleAndAdd(keepWeight, fromSlice, d, k, 1, s, t, 1)
}
