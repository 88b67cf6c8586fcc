// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layouts

import (
	"github.com/gomlx/seqgraph/types"
)

// Fold re-initializes l as the time base obtained by stacking the k steps of
// src into one taller frame per sequence: frame mode over src's slots.
//
// Stacking is only supported when it collapses each sequence to a single
// frame, so src must have exactly k steps; anything else panics with
// types.ErrLogic.
func (l *Layout) Fold(src *Layout, k int) {
	if src.numSteps != k {
		types.Logicf("layouts.Fold: stacking %d steps into one frame requires a %d-step source, got %s",
			k, k, src)
	}
	l.InitFrameMode(src.numParallel)
}

// Unfold re-initializes l as the time base obtained by splitting each single
// frame of src into k consecutive steps, with one full-span sequence per
// slot.
//
// Splitting is only supported when coming from a single frame per sequence,
// so src must have exactly one step; anything else panics with
// types.ErrLogic.
func (l *Layout) Unfold(src *Layout, k int) {
	if src.numSteps != 1 {
		types.Logicf("layouts.Unfold: splitting frames into %d steps requires a single-step source, got %s",
			k, src)
	}
	l.Init(src.numParallel, k)
	for s := 0; s < src.numParallel; s++ {
		l.AddSequence(NewSequenceID, s, 0, k)
	}
}
