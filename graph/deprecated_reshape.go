// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"
	"fmt"

	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DeprecatedReshape reinterprets its input as having numTargetRows rows.
// The target row count must be a straight multiple or divisor of the
// input's; to reach a non-multiple, go through row count 1 first.
//
// For non-minibatch data this reshapes (rows x cols) to
// (numTargetRows x rows*cols/numTargetRows) with one flat copy.
//
// For minibatch data the row count change adds or removes a nested time
// dimension: growing rows by a factor K stacks the K steps of each sequence
// into one frame (the input must have exactly K steps), shrinking by K
// splits each single-step frame into K steps. Both directions move data
// through StackFrames/UnstackFrames and produce a new layout. Minibatch
// data is only processed over the full window, never from inside a loop. A
// target row count equal to the input's is the canonical case: the layout
// passes through and only the shape metadata changes.
//
// Kept for compatibility with older models; new graphs should use Reshape
// for metadata changes and treat restacking as its own operation.
type DeprecatedReshape struct {
	baseNode
	numTargetRows int

	// ownLayout is the derived time base for the restacking case,
	// allocated once and re-derived each minibatch.
	ownLayout *layouts.Layout
}

// NewDeprecatedReshape adds a DeprecatedReshape of x with the given target
// row count.
func NewDeprecatedReshape(g *Graph, name string, x Node, numTargetRows int) *DeprecatedReshape {
	n := &DeprecatedReshape{
		baseNode: baseNode{
			graph:  g,
			name:   name,
			kind:   KindDeprecatedReshape,
			inputs: []Node{x},
		},
		numTargetRows: numTargetRows,
	}
	g.addNode(n)
	return n
}

// weStack reports the direction: true when frames get taller (stacking
// multiple steps into one).
func (n *DeprecatedReshape) weStack() bool {
	return n.numTargetRows > n.input(0).sampleRows()
}

// factor is the multiple by which rows grow or shrink.
func (n *DeprecatedReshape) factor() int {
	rows := n.input(0).sampleRows()
	if rows == 0 {
		// The input still has unresolved dimensions; validation of the input
		// reports that on the final pass.
		return 1
	}
	if n.numTargetRows > rows {
		return n.numTargetRows / rows
	}
	return rows / n.numTargetRows
}

func (n *DeprecatedReshape) Validate(isFinalPass bool) {
	if n.numTargetRows < 1 {
		types.InvalidArgumentf("%s %s operation: target row count %d must be positive", n.name, n.kind, n.numTargetRows)
	}
	in := n.input(0)

	if n.factor() == 1 {
		// Canonical case: only the shape changes, keep the input's packing.
		n.layout = in.layout
	} else if in.layout != nil {
		if n.ownLayout == nil {
			n.ownLayout = layouts.New() // restacking creates a new time base
		}
		n.layout = n.ownLayout
	} else {
		n.layout = nil
	}

	newCols := 1
	if n.layout == nil {
		rows, cols := in.sampleShape.AsMatrixDims()
		newCols = cols * rows / n.numTargetRows
		if isFinalPass {
			if (n.numTargetRows > rows && n.numTargetRows%rows != 0) ||
				(n.numTargetRows < rows && rows%n.numTargetRows != 0) {
				types.InvalidArgumentf("%s %s operation: output row dimension %d is not an integer multiple or divisor of input dimension %d",
					n.name, n.kind, n.numTargetRows, rows)
			}
			if rows*cols != n.numTargetRows*newCols {
				types.Logicf("%s %s operation: unexpected dimension mismatch", n.name, n.kind)
			}
		}
	} else if isFinalPass && n.factor() != 1 {
		rows := in.sampleRows()
		if (n.numTargetRows > rows && n.numTargetRows%rows != 0) ||
			(n.numTargetRows < rows && rows%n.numTargetRows != 0) {
			types.InvalidArgumentf("%s %s operation: output row dimension %d is not an integer multiple or divisor of input dimension %d",
				n.name, n.kind, n.numTargetRows, rows)
		}
	}

	if isFinalPass && in.sampleShape.Rank() > 1 {
		klog.Warningf("%s %s operation cannot inherit the sample structure %s from its input, structure information is lost",
			n.name, n.kind, in.sampleShape)
	}
	if n.layout != nil {
		n.setDims(shapes.Make(n.numTargetRows))
	} else {
		n.setDims(shapes.Make(n.numTargetRows, newCols))
	}
}

// ForwardProp derives the output time base from the input's layout, which
// is complete by now, then moves the values. fr refers to the output
// timeline.
func (n *DeprecatedReshape) ForwardProp(fr layouts.FrameRange) {
	in := n.input(0)
	if in.layout == nil {
		// A plain reshape: copy the values as one long vector.
		inValue := in.valueFor(layouts.AllFrames())
		total := inValue.Rows() * inValue.Cols()
		n.prepareValue()
		n.value.Reshaped(total, 1).Assign(inValue.Reshaped(total, 1))
		return
	}
	if n.factor() == 1 {
		// Canonical case: same row count, the layout passes through and
		// only the addressed columns move, so loop windows are fine.
		n.prepareValue()
		out := n.valueFor(fr)
		inValue := in.valueFor(fr)
		total := inValue.Rows() * inValue.Cols()
		out.Reshaped(total, 1).Assign(inValue.Reshaped(total, 1))
		return
	}
	// Restacking reorders data across parallel sequences, which is only
	// defined over the whole grid.
	if !fr.IsAllFrames() {
		types.InvalidArgumentf("%s %s operation cannot be run from inside a loop since it changes the time base", n.name, n.kind)
	}
	if n.weStack() {
		n.ownLayout.Fold(in.layout, n.factor())
	} else {
		n.ownLayout.Unfold(in.layout, n.factor())
	}
	inValue := in.valueFor(layouts.AllFrames())
	newCols := inValue.Rows() * inValue.Cols() / n.numTargetRows
	n.resizeValue(n.numTargetRows, newCols)
	if n.weStack() {
		StackFrames(fr, n.layout, inValue, n.value, n.factor(), false)
	} else {
		UnstackFrames(fr.WithLayout(in.layout), in.layout, inValue, n.value, n.factor(), false)
	}
}

// BackpropTo routes the gradient through the inverse movement, accumulating
// into the input's gradient.
func (n *DeprecatedReshape) BackpropTo(i int, fr layouts.FrameRange) {
	in := n.input(0)
	if in.layout == nil {
		inValue := in.valueFor(layouts.AllFrames())
		total := inValue.Rows() * inValue.Cols()
		n.ensureGradient()
		in.ensureGradient()
		in.gradient.Reshaped(total, 1).AddScaled(n.gradient.Reshaped(total, 1), 1)
		return
	}
	if n.factor() == 1 {
		inGrad := in.gradientFor(fr)
		grad := n.gradientFor(fr)
		total := grad.Rows() * grad.Cols()
		inGrad.Reshaped(total, 1).AddScaled(grad.Reshaped(total, 1), 1)
		return
	}
	n.ensureGradient()
	in.ensureGradient()
	if n.weStack() {
		UnstackFrames(fr, n.layout, n.gradient, in.gradient, n.factor(), true)
	} else {
		StackFrames(fr.WithLayout(in.layout), in.layout, n.gradient, in.gradient, n.factor(), true)
	}
}

func (n *DeprecatedReshape) Save(enc *gob.Encoder) error {
	if err := enc.Encode(n.numTargetRows); err != nil {
		return errors.Wrapf(err, "failed to write target rows of %q", n.name)
	}
	return nil
}

func (n *DeprecatedReshape) Load(dec *gob.Decoder, modelVersion int) error {
	if err := dec.Decode(&n.numTargetRows); err != nil {
		return errors.Wrapf(err, "failed to read target rows of %q", n.name)
	}
	return nil
}

func (n *DeprecatedReshape) String() string {
	return n.selfString(fmt.Sprintf("[rows %d]", n.numTargetRows))
}
