// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package layouts describes how variable-length sequences are packed into the
// columns of a minibatch matrix.
//
// A minibatch holds numParallel (S) sequence slots laid out over numSteps (T)
// time steps, for a total of S*T matrix columns. Column t*S+s holds the
// sample of slot s at step t, so the S samples of any one step are adjacent.
// Each logical sequence claims a step interval of one slot; slots may hold
// several sequences one after another, and steps where a slot has no sequence
// are gaps.
//
// A Layout is a mutable object owned by the node that produces it: it is
// re-initialized in place for every minibatch, and consumers share the
// pointer. Comparing layouts is always by value (Equal).
package layouts

import (
	"fmt"

	"github.com/gomlx/seqgraph/types"
)

// SequenceID identifies a logical sequence across a minibatch. IDs only have
// to be unique within one Layout.
type SequenceID uint32

// NewSequenceID passed to Layout.AddSequence requests a fresh automatically
// assigned id. Automatic ids are counted from 0 at every re-initialization,
// so two layouts built by the same steps compare equal.
const NewSequenceID = ^SequenceID(0)

// Sequence records the span claimed by one logical sequence.
//
// Begin may be negative and End may exceed the layout's number of steps, for
// sequences that extend past the minibatch window; only the intersection with
// [0, numSteps) occupies columns.
type Sequence struct {
	ID    SequenceID
	Slot  int
	Begin int // first step, inclusive
	End   int // last step, exclusive
}

// Layout describes the packing of sequences into minibatch columns.
//
// The zero value is an uninitialized layout; call Init or InitFrameMode
// before adding sequences.
type Layout struct {
	numParallel int // S
	numSteps    int // T
	sequences   []Sequence
	nextID      SequenceID
}

// New returns a new, uninitialized Layout.
func New() *Layout {
	return &Layout{}
}

// Init re-initializes the layout in place for a minibatch of numParallel
// sequence slots over numSteps time steps, dropping all sequences and
// restarting automatic id assignment.
func (l *Layout) Init(numParallel, numSteps int) {
	if numParallel < 1 || numSteps < 0 {
		types.InvalidArgumentf("layouts.Init(%d, %d): need numParallel >= 1 and numSteps >= 0",
			numParallel, numSteps)
	}
	l.numParallel = numParallel
	l.numSteps = numSteps
	l.sequences = l.sequences[:0]
	l.nextID = 0
}

// InitFrameMode re-initializes the layout as a single-step minibatch of
// numParallel independent samples: every slot holds one sequence of exactly
// one frame.
func (l *Layout) InitFrameMode(numParallel int) {
	l.Init(numParallel, 1)
	for s := 0; s < numParallel; s++ {
		l.AddSequence(NewSequenceID, s, 0, 1)
	}
}

// AddSequence claims steps [begin, end) of the given slot for one logical
// sequence. Pass NewSequenceID as id to have one assigned.
//
// Begin may be negative and end may exceed the number of steps for sequences
// that extend past the minibatch window, but the intersection with the window
// must be non-empty. Claiming a step that is already occupied in that slot
// panics with types.ErrRuntime.
func (l *Layout) AddSequence(id SequenceID, slot, begin, end int) {
	if l.numParallel == 0 {
		types.Logicf("layouts.AddSequence called on an uninitialized Layout")
	}
	if slot < 0 || slot >= l.numParallel {
		types.Logicf("layouts.AddSequence: slot %d out of range [0, %d)", slot, l.numParallel)
	}
	if begin >= end {
		types.InvalidArgumentf("layouts.AddSequence: empty step range [%d, %d)", begin, end)
	}
	occBegin, occEnd := clampToWindow(begin, end, l.numSteps)
	if occBegin >= occEnd {
		types.InvalidArgumentf("layouts.AddSequence: range [%d, %d) does not intersect the %d-step window",
			begin, end, l.numSteps)
	}
	for _, seq := range l.sequences {
		if seq.Slot != slot {
			continue
		}
		b, e := clampToWindow(seq.Begin, seq.End, l.numSteps)
		if occBegin < e && b < occEnd {
			types.Runtimef("layouts.AddSequence: steps [%d, %d) of slot %d are already occupied by sequence %d ([%d, %d))",
				begin, end, slot, seq.ID, seq.Begin, seq.End)
		}
	}
	if id == NewSequenceID {
		id = l.nextID
		l.nextID++
	}
	l.sequences = append(l.sequences, Sequence{ID: id, Slot: slot, Begin: begin, End: end})
}

func clampToWindow(begin, end, numSteps int) (int, int) {
	return max(begin, 0), min(end, numSteps)
}

// NumParallel returns S, the number of parallel sequence slots.
func (l *Layout) NumParallel() int { return l.numParallel }

// NumSteps returns T, the number of time steps.
func (l *Layout) NumSteps() int { return l.numSteps }

// NumCols returns the number of minibatch matrix columns, S*T.
func (l *Layout) NumCols() int { return l.numParallel * l.numSteps }

// ColumnIndex returns the matrix column holding the sample of the given slot
// at the given step.
func (l *Layout) ColumnIndex(step, slot int) int {
	return step*l.numParallel + slot
}

// Sequences returns the sequences added since the last initialization, in
// insertion order. The returned slice is owned by the layout.
func (l *Layout) Sequences() []Sequence { return l.sequences }

// IsFrameMode returns whether the layout holds exactly one single-frame
// sequence per slot, as produced by InitFrameMode.
func (l *Layout) IsFrameMode() bool {
	if l.numSteps != 1 || len(l.sequences) != l.numParallel {
		return false
	}
	seen := make([]bool, l.numParallel)
	for _, seq := range l.sequences {
		if seen[seq.Slot] || seq.Begin > 0 || seq.End < 1 {
			return false
		}
		seen[seq.Slot] = true
	}
	return true
}

// Equal compares two layouts by value: geometry and the sequence records, in
// insertion order.
func (l *Layout) Equal(l2 *Layout) bool {
	if l == l2 {
		return true
	}
	if l == nil || l2 == nil {
		return false
	}
	if l.numParallel != l2.numParallel || l.numSteps != l2.numSteps ||
		len(l.sequences) != len(l2.sequences) {
		return false
	}
	for ii, seq := range l.sequences {
		if seq != l2.sequences[ii] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (l *Layout) String() string {
	if l == nil {
		return "Layout(nil)"
	}
	if l.IsFrameMode() {
		return fmt.Sprintf("Layout(frame mode, %d samples)", l.numParallel)
	}
	return fmt.Sprintf("Layout(%d slots x %d steps, %d sequences)",
		l.numParallel, l.numSteps, len(l.sequences))
}
