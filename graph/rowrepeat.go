// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"
	"fmt"

	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
	"github.com/gomlx/seqgraph/types/xslices"
	"github.com/pkg/errors"
)

// RowRepeat tiles each sample of its input vertically numRepeats times.
// The trailing sample dimension gets multiplied; the gradient of each
// input element is the sum over its copies.
type RowRepeat struct {
	baseNode
	numRepeats int
}

// NewRowRepeat adds a RowRepeat of x with the given repeat count.
func NewRowRepeat(g *Graph, name string, x Node, numRepeats int) *RowRepeat {
	n := &RowRepeat{
		baseNode: baseNode{
			graph:  g,
			name:   name,
			kind:   KindRowRepeat,
			inputs: []Node{x},
		},
		numRepeats: numRepeats,
	}
	g.addNode(n)
	return n
}

func (n *RowRepeat) Validate(isFinalPass bool) {
	if n.numRepeats < 1 {
		types.InvalidArgumentf("%s %s operation: repeat count %d must be positive", n.name, n.kind, n.numRepeats)
	}
	n.inferLayoutFromInputs(true)

	dims := n.input(0).sampleShape.Clone().Dimensions
	if len(dims) == 0 {
		dims = []int{1}
	}
	xslices.SetLast(dims, xslices.Last(dims)*n.numRepeats)
	n.setDims(shapes.Make(dims...))
}

func (n *RowRepeat) ForwardProp(fr layouts.FrameRange) {
	n.prepareValue()
	n.valueFor(fr).AssignRepeat(n.input(0).valueFor(fr), n.numRepeats)
}

func (n *RowRepeat) BackpropTo(i int, fr layouts.FrameRange) {
	n.input(0).gradientFor(fr).AddRowRepeatSum(n.gradientFor(fr), n.numRepeats)
}

func (n *RowRepeat) Save(enc *gob.Encoder) error {
	if err := enc.Encode(n.numRepeats); err != nil {
		return errors.Wrapf(err, "failed to write repeat count of %q", n.name)
	}
	return nil
}

func (n *RowRepeat) Load(dec *gob.Decoder, modelVersion int) error {
	if err := dec.Decode(&n.numRepeats); err != nil {
		return errors.Wrapf(err, "failed to read repeat count of %q", n.name)
	}
	return nil
}

func (n *RowRepeat) String() string {
	return n.selfString(fmt.Sprintf("[x%d]", n.numRepeats))
}
