// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"

	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
)

// ReconcileLayout carries the values of its first input re-tagged with the
// layout object of its second. It bridges two parts of a graph that were
// fed from different sources and therefore hold distinct layout objects,
// which layout-sharing checks would otherwise reject. The two layouts must
// describe the same packing; only the object identity changes.
type ReconcileLayout struct {
	baseNode
}

// NewReconcileLayout adds a node carrying x's values under layoutSource's
// layout object.
func NewReconcileLayout(g *Graph, name string, x, layoutSource Node) *ReconcileLayout {
	n := &ReconcileLayout{
		baseNode: baseNode{
			graph:  g,
			name:   name,
			kind:   KindReconcileLayout,
			inputs: []Node{x, layoutSource},
		},
	}
	g.addNode(n)
	return n
}

func (n *ReconcileLayout) Validate(isFinalPass bool) {
	if isFinalPass && (n.input(0).layout == nil || n.input(1).layout == nil) {
		types.Runtimef("%s %s operation requires two inputs that both have an associated minibatch layout", n.name, n.kind)
	}
	n.layout = n.input(1).layout
	n.setDims(n.input(0).sampleShape)
}

// ForwardProp copies the addressed columns unchanged. The borrowed layout
// must describe the same packing as the data input's own; that can only be
// checked once the minibatch is in.
func (n *ReconcileLayout) ForwardProp(fr layouts.FrameRange) {
	in := n.input(0)
	if !n.layout.Equal(in.layout) {
		types.InvalidArgumentf("%s %s operation: minibatch layouts of %q and %q describe different packings, cannot reconcile",
			n.name, n.kind, in.name, n.input(1).name)
	}
	n.prepareValue()
	n.valueFor(fr).Assign(in.valueFor(fr.WithLayout(in.layout)))
}

// BackpropTo accumulates the gradient into the data input; the layout
// donor receives nothing.
func (n *ReconcileLayout) BackpropTo(i int, fr layouts.FrameRange) {
	if i != 0 {
		return
	}
	in := n.input(0)
	in.gradientFor(fr.WithLayout(in.layout)).AddScaled(n.gradientFor(fr), 1)
}

// Save writes nothing: the node is fully described by its inputs.
func (n *ReconcileLayout) Save(enc *gob.Encoder) error { return nil }

func (n *ReconcileLayout) Load(dec *gob.Decoder, modelVersion int) error { return nil }

func (n *ReconcileLayout) String() string { return n.selfString("") }
