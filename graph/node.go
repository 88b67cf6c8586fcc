// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/gomlx/seqgraph/backends"
	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
)

// NodeKind identifies one of the closed set of node types. The kind name is
// also what gets written into saved models, so the names are part of the
// file format.
type NodeKind int

const (
	KindInvalid NodeKind = iota
	KindInput
	KindReshape
	KindDeprecatedReshape
	KindReconcileLayout
	KindRowSlice
	KindRowStack
	KindRowRepeat
)

// String returns the kind name used in diagnostics and saved models.
func (k NodeKind) String() string {
	switch k {
	case KindInput:
		return "Input"
	case KindReshape:
		return "Reshape"
	case KindDeprecatedReshape:
		return "DeprecatedReshape"
	case KindReconcileLayout:
		return "ReconcileLayout"
	case KindRowSlice:
		return "RowSlice"
	case KindRowStack:
		return "RowStack"
	case KindRowRepeat:
		return "RowRepeat"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// kindFromString is the inverse of NodeKind.String, for loading saved models.
func kindFromString(name string) NodeKind {
	for k := KindInput; k <= KindRowRepeat; k++ {
		if k.String() == name {
			return k
		}
	}
	return KindInvalid
}

// Node is the contract every graph node implements for the execution engine.
//
// The set of implementations is closed: nodes embed the package-private base
// and cannot be defined outside this package. Evaluation follows the usual
// lifecycle: Validate (possibly repeatedly, see Graph.ValidateAll), then per
// minibatch ForwardProp and, during backprop, BackpropTo once per input.
type Node interface {
	// Name of the node, unique within its graph.
	Name() string

	// Kind of the node.
	Kind() NodeKind

	// Inputs are the upstream nodes, in argument order.
	Inputs() []Node

	// SampleShape describes a single sample (one column). It may contain
	// placeholder (zero) dimensions until validation resolves them.
	SampleShape() shapes.Shape

	// Layout describes how value columns map to (slot, step) pairs, or nil
	// for nodes holding non-minibatch data.
	Layout() *layouts.Layout

	// Value is the node's output buffer, nil before the first ForwardProp
	// (or, for Input nodes, before the minibatch is fed).
	Value() backends.Matrix

	// Gradient is the node's accumulated output gradient, nil until
	// ZeroGradient or a downstream BackpropTo touches it.
	Gradient() backends.Matrix

	// ZeroGradient sizes the gradient buffer to match the value and clears
	// it. Gradients accumulate across consumers, so this runs once per
	// minibatch, before any BackpropTo that writes into this node.
	ZeroGradient()

	// Validate checks parameters against the current input shapes and
	// derives the node's sample shape and layout. Non-final passes are
	// lenient about unresolved dimensions; the final pass is strict.
	Validate(isFinalPass bool)

	// ForwardProp computes the value for the addressed frames.
	ForwardProp(fr layouts.FrameRange)

	// BackpropTo accumulates (or, for pure reinterpretation nodes, copies)
	// this node's gradient into input i's gradient buffer.
	BackpropTo(i int, fr layouts.FrameRange)

	// NeedsOutputForBackprop reports whether BackpropTo reads the node's
	// own forward value. The engine may free the buffer early when false.
	NeedsOutputForBackprop() bool

	// NeedsInputForBackprop reports whether BackpropTo reads input i's
	// forward value.
	NeedsInputForBackprop(i int) bool

	// Save writes the node's own parameters, in a fixed field order.
	Save(enc *gob.Encoder) error

	// Load reads the parameters written by Save. Fields introduced after
	// modelVersion was current are defaulted, not read.
	Load(dec *gob.Decoder, modelVersion int) error

	// String is a one-line self description, "name = Kind(inputs...) params".
	String() string

	base() *baseNode
}

// baseNode carries the state common to all nodes. Concrete nodes embed it
// and implement the per-kind parts of the Node contract.
type baseNode struct {
	graph  *Graph
	name   string
	kind   NodeKind
	inputs []Node

	sampleShape shapes.Shape
	layout      *layouts.Layout

	value    backends.Matrix
	gradient backends.Matrix
}

func (n *baseNode) base() *baseNode { return n }

func (n *baseNode) Name() string { return n.name }

func (n *baseNode) Kind() NodeKind { return n.kind }

func (n *baseNode) Inputs() []Node { return n.inputs }

func (n *baseNode) SampleShape() shapes.Shape { return n.sampleShape }

func (n *baseNode) Layout() *layouts.Layout { return n.layout }

func (n *baseNode) Value() backends.Matrix { return n.value }

func (n *baseNode) Gradient() backends.Matrix { return n.gradient }

// None of the reshaping nodes read forward values during backprop, so the
// engine is free to release them after the forward pass.
func (n *baseNode) NeedsOutputForBackprop() bool { return false }

func (n *baseNode) NeedsInputForBackprop(int) bool { return false }

func (n *baseNode) input(i int) *baseNode { return n.inputs[i].base() }

// matrixDims are the dimensions of the node's value buffer: the flattened
// sample vector by the layout's column count. Layout-less (non-minibatch)
// nodes hold a single column, so that row-wise kernels see the same
// folding either way.
func (n *baseNode) matrixDims() (rows, cols int) {
	if n.layout != nil {
		return n.sampleShape.Size(), n.layout.NumCols()
	}
	return n.sampleShape.Size(), 1
}

// sampleRows is the height of one packed column.
func (n *baseNode) sampleRows() int { return n.sampleShape.Size() }

// prepareValue sizes the value buffer for the current minibatch, allocating
// it on first use. Called at the start of ForwardProp.
func (n *baseNode) prepareValue() {
	rows, cols := n.matrixDims()
	n.resizeValue(rows, cols)
}

func (n *baseNode) resizeValue(rows, cols int) {
	if n.value == nil {
		n.value = n.graph.backend.NewMatrix(n.graph.dtype, rows, cols)
		return
	}
	if n.value.Rows() != rows || n.value.Cols() != cols {
		n.value.Resize(rows, cols)
	}
}

// ensureGradient guarantees a gradient buffer sized like the value exists,
// zeroing it when freshly allocated or resized. An existing right-sized
// buffer is left untouched so accumulation from several consumers works.
func (n *baseNode) ensureGradient() {
	if n.value == nil {
		types.Logicf("%s %s operation: gradient requested before a value was computed", n.name, n.kind)
	}
	rows, cols := n.value.Rows(), n.value.Cols()
	if n.gradient == nil {
		n.gradient = n.graph.backend.NewMatrix(n.graph.dtype, rows, cols)
		return
	}
	if n.gradient.Rows() != rows || n.gradient.Cols() != cols {
		n.gradient.Resize(rows, cols)
		n.gradient.SetZero()
	}
}

func (n *baseNode) ZeroGradient() {
	n.ensureGradient()
	n.gradient.SetZero()
}

// valueFor returns the value columns addressed by fr.
func (n *baseNode) valueFor(fr layouts.FrameRange) backends.Matrix {
	if n.value == nil {
		types.Logicf("%s %s operation has no value, was its ForwardProp run (or its minibatch fed)?", n.name, n.kind)
	}
	return dataFor(n.value, fr, n.layout)
}

// gradientFor returns the gradient columns addressed by fr, allocating the
// buffer on first touch.
func (n *baseNode) gradientFor(fr layouts.FrameRange) backends.Matrix {
	n.ensureGradient()
	return dataFor(n.gradient, fr, n.layout)
}

// inferLayoutFromInputs adopts the layout of the first input that has one.
// On the final pass any further input with a different layout object is an
// error: nodes that combine several minibatch inputs require them packed
// identically, which in practice means sharing one layout object.
func (n *baseNode) inferLayoutFromInputs(isFinalPass bool) {
	var layout *layouts.Layout
	for _, in := range n.inputs {
		inLayout := in.Layout()
		if inLayout == nil {
			continue
		}
		if layout == nil {
			layout = inLayout
		} else if layout != inLayout && isFinalPass {
			types.Runtimef("%s %s operation: inconsistent minibatch layouts between inputs, %s vs %s",
				n.name, n.kind, in.Name(), n.inputs[0].Name())
		}
	}
	n.layout = layout
}

// setDims records the node's sample shape for the pass. Like the rest of
// validation it runs best-effort on tentative passes.
func (n *baseNode) setDims(shape shapes.Shape) {
	n.sampleShape = shape
}

// selfString formats the shared part of Node.String: the node name, kind and
// annotated inputs, followed by the kind-specific params (if any).
func (n *baseNode) selfString(params string) string {
	var sb strings.Builder
	sb.WriteString(n.name)
	sb.WriteString(" = ")
	sb.WriteString(n.kind.String())
	sb.WriteString("(")
	for i, in := range n.inputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(in.Name())
		sb.WriteString("[")
		sb.WriteString(in.SampleShape().String())
		if in.Layout() != nil {
			sb.WriteString(" x *")
		}
		sb.WriteString("]")
	}
	sb.WriteString(")")
	if params != "" {
		sb.WriteString(" ")
		sb.WriteString(params)
	}
	return sb.String()
}
