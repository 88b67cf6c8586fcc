// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"
	"fmt"

	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
	"github.com/pkg/errors"
)

// Reshape reinterprets input samples as having different dimensions: it
// replaces the axis range [beginAxis, endAxis) of the sample shape with the
// replacement dimensions, one of which may be 0 and is then inferred. Only
// metadata changes, the packed columns keep their contents and their
// layout.
//
// beginAxis and endAxis follow the 1-based convention of the scripting
// surface: beginAxis 0 or 1 starts at the first axis, endAxis 0 means "to
// the end", and otherwise the range covers axes beginAxis..endAxis-1. The
// defaults (1, 0) replace the whole shape.
type Reshape struct {
	baseNode
	replacement shapes.Shape
	beginParam  int
	endParam    int
}

// NewReshape adds a Reshape of x. See the Reshape type for the axis range
// convention.
func NewReshape(g *Graph, name string, x Node, replacement shapes.Shape, beginAxis, endAxis int) *Reshape {
	n := &Reshape{
		baseNode: baseNode{
			graph:  g,
			name:   name,
			kind:   KindReshape,
			inputs: []Node{x},
		},
		replacement: replacement,
		beginParam:  beginAxis,
		endParam:    endAxis,
	}
	g.addNode(n)
	return n
}

// NewReshapeDimension reinterprets the single axis (1-based) as the given
// dimensions, which must multiply to the axis's size; one may be 0 and is
// inferred.
func NewReshapeDimension(g *Graph, name string, x Node, axis int, replacement shapes.Shape) *Reshape {
	return NewReshape(g, name, x, replacement, axis, axis+1)
}

// NewFlattenDimensions fuses num consecutive axes starting at the 1-based
// axis into one.
func NewFlattenDimensions(g *Graph, name string, x Node, axis, num int) *Reshape {
	return NewReshape(g, name, x, shapes.Make(0), axis, axis+num)
}

func (n *Reshape) Validate(isFinalPass bool) {
	n.layout = n.input(0).layout
	inputShape := n.input(0).sampleShape

	beginAxis := 0
	if n.beginParam > 0 {
		beginAxis = n.beginParam - 1
	}
	endAxis := inputShape.Rank()
	if n.endParam > 0 {
		endAxis = n.endParam - 1
	}
	if !isFinalPass {
		// Tolerate not-yet-settled input ranks, the final pass is strict.
		if endAxis > inputShape.Rank() {
			endAxis = inputShape.Rank()
		}
		if beginAxis > endAxis {
			beginAxis = endAxis
		}
	}

	shape, err := shapes.ReplaceDims(inputShape, n.replacement, beginAxis, endAxis)
	if err != nil && isFinalPass {
		panic(errors.WithMessagef(err, "%s %s operation", n.name, n.kind))
	}
	n.setDims(shape)
}

func (n *Reshape) ForwardProp(fr layouts.FrameRange) {
	n.prepareValue()
	out := n.valueFor(fr)
	in := n.input(0).valueFor(fr)
	// The two sides fold the same elements into different matrix dims, so
	// copy them as one long vector.
	total := in.Rows() * in.Cols()
	out.Reshaped(total, 1).Assign(in.Reshaped(total, 1))
}

// BackpropTo copies rather than accumulates: a pure reinterpretation passes
// the gradient through unchanged.
func (n *Reshape) BackpropTo(i int, fr layouts.FrameRange) {
	out := n.input(i).gradientFor(fr)
	in := n.gradientFor(fr)
	total := in.Rows() * in.Cols()
	out.Reshaped(total, 1).Assign(in.Reshaped(total, 1))
}

func (n *Reshape) Save(enc *gob.Encoder) error {
	if err := enc.Encode(n.beginParam); err != nil {
		return errors.Wrapf(err, "failed to write begin axis of %q", n.name)
	}
	if err := enc.Encode(n.endParam); err != nil {
		return errors.Wrapf(err, "failed to write end axis of %q", n.name)
	}
	return n.replacement.GobSerialize(enc)
}

func (n *Reshape) Load(dec *gob.Decoder, modelVersion int) error {
	if modelVersion < ModelVersionReshapeSpan {
		// Older models always replaced the whole shape.
		n.beginParam, n.endParam = 1, 0
	} else {
		if err := dec.Decode(&n.beginParam); err != nil {
			return errors.Wrapf(err, "failed to read begin axis of %q", n.name)
		}
		if err := dec.Decode(&n.endParam); err != nil {
			return errors.Wrapf(err, "failed to read end axis of %q", n.name)
		}
	}
	replacement, err := shapes.GobDeserialize(dec)
	if err != nil {
		return err
	}
	n.replacement = replacement
	return nil
}

func (n *Reshape) String() string {
	return n.selfString(fmt.Sprintf("[dims %s axes %d:%d]", n.replacement, n.beginParam, n.endParam))
}
