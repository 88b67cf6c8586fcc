// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"
	"fmt"

	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
	"github.com/pkg/errors"
)

// RowSlice extracts a contiguous band of numRows rows starting at startIndex
// from every column of its input. The input must be a vector per sample;
// slicing a structured sample would cut across its inner dimensions.
type RowSlice struct {
	baseNode
	startIndex int
	numRows    int
}

// NewRowSlice adds a RowSlice of rows [startIndex, startIndex+numRows) of x.
func NewRowSlice(g *Graph, name string, x Node, startIndex, numRows int) *RowSlice {
	n := &RowSlice{
		baseNode: baseNode{
			graph:  g,
			name:   name,
			kind:   KindRowSlice,
			inputs: []Node{x},
		},
		startIndex: startIndex,
		numRows:    numRows,
	}
	g.addNode(n)
	return n
}

func (n *RowSlice) Validate(isFinalPass bool) {
	n.inferLayoutFromInputs(isFinalPass)
	in := n.input(0)
	if isFinalPass {
		if in.sampleRows() < n.startIndex+n.numRows {
			types.Runtimef("%s %s operation: row slice [%d:%d) exceeds the %d rows of the input",
				n.name, n.kind, n.startIndex, n.startIndex+n.numRows, in.sampleRows())
		}
		if in.sampleShape.Rank() > 1 && !in.sampleShape.IsVectorStoredAsImage() {
			types.Runtimef("%s %s operation: input must be a vector, sample shape %s not allowed",
				n.name, n.kind, in.sampleShape)
		}
	}
	n.setDims(shapes.Make(n.numRows))
}

func (n *RowSlice) ForwardProp(fr layouts.FrameRange) {
	n.prepareValue()
	n.valueFor(fr).AssignRowSlice(n.input(0).valueFor(fr), n.startIndex, n.numRows)
}

func (n *RowSlice) BackpropTo(i int, fr layouts.FrameRange) {
	n.input(0).gradientFor(fr).AddToRowSlice(n.gradientFor(fr), n.startIndex, n.numRows)
}

func (n *RowSlice) Save(enc *gob.Encoder) error {
	if err := enc.Encode(n.startIndex); err != nil {
		return errors.Wrapf(err, "failed to write start index of %q", n.name)
	}
	if err := enc.Encode(n.numRows); err != nil {
		return errors.Wrapf(err, "failed to write slice height of %q", n.name)
	}
	return nil
}

func (n *RowSlice) Load(dec *gob.Decoder, modelVersion int) error {
	if err := dec.Decode(&n.startIndex); err != nil {
		return errors.Wrapf(err, "failed to read start index of %q", n.name)
	}
	if err := dec.Decode(&n.numRows); err != nil {
		return errors.Wrapf(err, "failed to read slice height of %q", n.name)
	}
	return nil
}

func (n *RowSlice) String() string {
	return n.selfString(fmt.Sprintf("[rows %d:%d]", n.startIndex, n.startIndex+n.numRows))
}
