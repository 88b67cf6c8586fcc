// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"

	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
	"github.com/pkg/errors"
)

// Input is a leaf node fed from outside the graph once per minibatch.
//
// A regular input owns a minibatch layout: whoever feeds it initializes the
// layout (Init/AddSequence or InitFrameMode) and then calls SetValue with
// the packed columns. A static input (NewStaticInput) has no layout and
// holds non-minibatch data such as parameters.
type Input struct {
	baseNode
	static bool
}

// NewInput adds a minibatch input with the given per-sample shape. The
// returned node owns an (uninitialized) layout, accessible through Layout.
func NewInput(g *Graph, name string, sampleShape shapes.Shape) *Input {
	n := &Input{
		baseNode: baseNode{
			graph:       g,
			name:        name,
			kind:        KindInput,
			sampleShape: sampleShape,
			layout:      layouts.New(),
		},
	}
	g.addNode(n)
	return n
}

// NewStaticInput adds a layout-less input holding non-minibatch data, e.g. a
// parameter matrix.
func NewStaticInput(g *Graph, name string, sampleShape shapes.Shape) *Input {
	n := &Input{
		baseNode: baseNode{
			graph:       g,
			name:        name,
			kind:        KindInput,
			sampleShape: sampleShape,
		},
		static: true,
	}
	g.addNode(n)
	return n
}

// AttachLayout makes the input use the given layout object. Inputs fed from
// the same source share one layout this way, which is what nodes combining
// several minibatch inputs expect.
func (n *Input) AttachLayout(l *layouts.Layout) {
	if n.static {
		types.Logicf("%s %s operation: cannot attach a minibatch layout to a static input", n.name, n.kind)
	}
	n.layout = l
}

// SetValue feeds the minibatch values in column-major order, sizing the
// value buffer from the sample shape and the current layout. For inputs
// with a layout, the layout must be initialized first.
func (n *Input) SetValue(values []float64) {
	rows, cols := n.matrixDims()
	if len(values) != rows*cols {
		types.InvalidArgumentf("%s %s operation: %d values fed, but shape %s over %d columns needs %d",
			n.name, n.kind, len(values), n.sampleShape, cols, rows*cols)
	}
	n.resizeValue(rows, cols)
	n.value.SetFlat(values)
}

// Validate only checks that the sample shape is complete: inputs receive
// their shape at construction and never infer it.
func (n *Input) Validate(isFinalPass bool) {
	if isFinalPass && !n.sampleShape.IsFullyDefined() {
		types.InvalidArgumentf("%s %s operation: sample shape %s still has unresolved dimensions", n.name, n.kind, n.sampleShape)
	}
}

// ForwardProp is a no-op, the value is fed via SetValue.
func (n *Input) ForwardProp(fr layouts.FrameRange) {}

func (n *Input) BackpropTo(i int, fr layouts.FrameRange) {
	types.Logicf("%s %s operation has no inputs to backpropagate into", n.name, n.kind)
}

func (n *Input) Save(enc *gob.Encoder) error {
	if err := n.sampleShape.GobSerialize(enc); err != nil {
		return err
	}
	if err := enc.Encode(n.static); err != nil {
		return errors.Wrapf(err, "failed to write staticness of %q", n.name)
	}
	return nil
}

func (n *Input) Load(dec *gob.Decoder, modelVersion int) error {
	shape, err := shapes.GobDeserialize(dec)
	if err != nil {
		return err
	}
	n.sampleShape = shape
	if err := dec.Decode(&n.static); err != nil {
		return errors.Wrapf(err, "failed to read staticness of %q", n.name)
	}
	if n.static {
		n.layout = nil
	} else if n.layout == nil {
		n.layout = layouts.New()
	}
	return nil
}

func (n *Input) String() string {
	if n.static {
		return n.selfString("[static " + n.sampleShape.String() + "]")
	}
	return n.selfString("[" + n.sampleShape.String() + "]")
}
