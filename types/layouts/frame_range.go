// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layouts

import (
	"fmt"

	"github.com/gomlx/seqgraph/types"
)

// FrameRange designates the slice of a minibatch an operation applies to:
// either the entire minibatch or one single time step across all parallel
// slots.
//
// A FrameRange may be bound to the Layout whose time base it indexes (see
// WithLayout). Resolving a bound FrameRange against a different Layout object
// is a broken contract and panics with types.ErrLogic; operations that change
// the time base rebind with WithLayout when addressing their input.
//
// The zero value is AllFrames with no layout bound.
type FrameRange struct {
	step   int
	isStep bool
	layout *Layout
}

// AllFrames returns the FrameRange covering the entire minibatch.
func AllFrames() FrameRange { return FrameRange{} }

// Step returns the FrameRange covering the single time step t.
func Step(t int) FrameRange { return FrameRange{step: t, isStep: true} }

// IsAllFrames returns whether fr covers the entire minibatch.
func (fr FrameRange) IsAllFrames() bool { return !fr.isStep }

// TimeStep returns the single step fr covers. It panics (types.ErrLogic) on
// an all-frames range.
func (fr FrameRange) TimeStep() int {
	if !fr.isStep {
		types.Logicf("FrameRange.TimeStep called on an all-frames range")
	}
	return fr.step
}

// WithLayout returns a copy of fr bound to the given layout.
func (fr FrameRange) WithLayout(l *Layout) FrameRange {
	fr.layout = l
	return fr
}

// Layout returns the layout fr is bound to, or nil.
func (fr FrameRange) Layout() *Layout { return fr.layout }

// String implements fmt.Stringer.
func (fr FrameRange) String() string {
	if fr.isStep {
		return fmt.Sprintf("FrameRange(t=%d)", fr.step)
	}
	return "FrameRange(*)"
}

// ColumnRange resolves fr against the layout, returning the first addressed
// matrix column and how many columns follow: all S*T columns for an
// all-frames range, or the S adjacent columns of one step.
//
// A fr bound to a different layout object, or a step outside [0, numSteps),
// panics with types.ErrLogic.
func (l *Layout) ColumnRange(fr FrameRange) (start, num int) {
	if fr.layout != nil && fr.layout != l {
		types.Logicf("FrameRange bound to %s is inconsistent with layout %s it is resolved against",
			fr.layout, l)
	}
	if fr.IsAllFrames() {
		return 0, l.NumCols()
	}
	t := fr.step
	if t < 0 || t >= l.numSteps {
		types.Logicf("FrameRange step %d out of range for %s", t, l)
	}
	return t * l.numParallel, l.numParallel
}
