// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"
	"slices"

	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
	"github.com/gomlx/seqgraph/types/xslices"
	"k8s.io/klog/v2"
)

// RowStack concatenates the samples of its inputs vertically, in input
// order. The inputs must agree on every sample dimension but the last;
// the last dimensions add up. It is the inverse of slicing the result
// back apart with RowSlice nodes.
type RowStack struct {
	baseNode

	// startRowIndices[i] is the first output row of input i, the running
	// sum of the input heights. Rebuilt by Validate.
	startRowIndices []int
}

// NewRowStack adds a RowStack of the given inputs.
func NewRowStack(g *Graph, name string, xs ...Node) *RowStack {
	n := &RowStack{
		baseNode: baseNode{
			graph:  g,
			name:   name,
			kind:   KindRowStack,
			inputs: slices.Clone(xs),
		},
	}
	g.addNode(n)
	return n
}

// resizeDims pads dims with 1s or strips trailing axes to exactly n entries.
func resizeDims(dims []int, n int) []int {
	for len(dims) < n {
		dims = append(dims, 1)
	}
	return dims[:n]
}

func (n *RowStack) Validate(isFinalPass bool) {
	if len(n.inputs) == 0 {
		types.InvalidArgumentf("%s %s operation requires at least one input", n.name, n.kind)
	}
	// Layout sharing is checked strictly on every pass: inputs must agree
	// on packing before their dimensions can be fused.
	n.inferLayoutFromInputs(true)

	maxRank := 1
	for _, in := range n.inputs {
		if r := in.SampleShape().Rank(); r > maxRank {
			maxRank = r
		}
	}
	// All dimensions but the last must match. Trailing axes may be elided,
	// so pad with 1s before comparing.
	dims := resizeDims(n.input(0).sampleShape.Clone().Dimensions, maxRank-1)

	n.startRowIndices = make([]int, len(n.inputs))
	totalRows := 0
	totalTrailingDim := 0
	for i := range n.inputs {
		in := n.input(i)
		n.startRowIndices[i] = totalRows
		totalRows += in.sampleRows()
		thisDims := resizeDims(in.sampleShape.Clone().Dimensions, maxRank)
		totalTrailingDim += xslices.Last(thisDims)
		thisDims = thisDims[:maxRank-1]
		if !slices.Equal(dims, thisDims) {
			types.InvalidArgumentf("%s %s operation: incompatible sample shape %s of input %q",
				n.name, n.kind, in.sampleShape, in.name)
		}
	}

	if isFinalPass && n.input(0).sampleShape.Rank() > 1 {
		klog.Warningf("%s %s operation cannot inherit the sample structure of its inputs, structure information is lost",
			n.name, n.kind)
	}

	n.setDims(shapes.Make(append(dims, totalTrailingDim)...))
	if totalRows != n.sampleRows() {
		types.Logicf("%s %s operation: input shapes were not compatible after all", n.name, n.kind)
	}
}

func (n *RowStack) ForwardProp(fr layouts.FrameRange) {
	n.prepareValue()
	out := n.valueFor(fr)
	for i := range n.inputs {
		in := n.input(i)
		out.AssignToRowSlice(in.valueFor(fr), n.startRowIndices[i], in.sampleRows())
	}
}

func (n *RowStack) BackpropTo(i int, fr layouts.FrameRange) {
	in := n.input(i)
	in.gradientFor(fr).AddRowSlice(n.gradientFor(fr), n.startRowIndices[i], in.sampleRows())
}

// Save writes nothing: the row offsets are rebuilt by validation.
func (n *RowStack) Save(enc *gob.Encoder) error { return nil }

func (n *RowStack) Load(dec *gob.Decoder, modelVersion int) error { return nil }

func (n *RowStack) String() string { return n.selfString("") }
