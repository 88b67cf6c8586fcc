// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"encoding/gob"
	"os"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/seqgraph/backends"
	"github.com/pkg/errors"
)

// Model streams carry a header and a version so older files stay readable
// as the node set evolves.
const (
	gobHeader = "seqgraph graph"

	// ModelVersionInitial is the first stream layout.
	ModelVersionInitial = 1
	// ModelVersionReshapeSpan added the axis span parameters of Reshape.
	// Streams older than this load Reshape nodes spanning the full shape.
	ModelVersionReshapeSpan = 2

	ModelVersionCurrent = ModelVersionReshapeSpan
)

// GobSerialize writes the graph structure and the node parameters in binary
// format. Values, gradients and layouts are per-minibatch state and are not
// saved.
//
// It returns an error for I/O errors.
func (g *Graph) GobSerialize(enc *gob.Encoder) (err error) {
	if err = enc.Encode(gobHeader); err != nil {
		return errors.Wrapf(err, "failed to write graph header")
	}
	if err = enc.Encode(ModelVersionCurrent); err != nil {
		return errors.Wrapf(err, "failed to write model version")
	}
	if err = enc.Encode(g.dtype.String()); err != nil {
		return errors.Wrapf(err, "failed to write graph dtype")
	}
	if err = enc.Encode(len(g.nodes)); err != nil {
		return errors.Wrapf(err, "failed to write node count")
	}
	for _, n := range g.nodes {
		base := n.base()
		if err = enc.Encode(base.kind.String()); err != nil {
			return errors.Wrapf(err, "failed to write kind of %q", base.name)
		}
		if err = enc.Encode(base.name); err != nil {
			return errors.Wrapf(err, "failed to write name of %q", base.name)
		}
		inputNames := make([]string, len(base.inputs))
		for i, in := range base.inputs {
			inputNames[i] = in.Name()
		}
		if err = enc.Encode(inputNames); err != nil {
			return errors.Wrapf(err, "failed to write inputs of %q", base.name)
		}
		if err = n.Save(enc); err != nil {
			return err
		}
	}
	return
}

// Save the graph to the given file path.
//
// It returns an error for I/O errors.
func (g *Graph) Save(filePath string) (err error) {
	var f *os.File
	f, err = os.Create(filePath)
	if err != nil {
		err = errors.Wrapf(err, "creating %q to save graph", filePath)
		return
	}
	enc := gob.NewEncoder(f)
	err = g.GobSerialize(enc)
	if err != nil {
		err = errors.WithMessagef(err, "saving graph to %q", filePath)
		return
	}
	err = f.Close()
	if err != nil {
		err = errors.Wrapf(err, "close file %q, where graph was saved", filePath)
		return
	}
	return
}

// newNodeForLoad creates a bare node of the given kind wired to the given
// inputs, registered in g. The node parameters are filled in by its Load.
func newNodeForLoad(g *Graph, kind NodeKind, name string, inputs []Node) (Node, error) {
	base := baseNode{graph: g, name: name, kind: kind, inputs: inputs}
	needs := func(want int) error {
		if len(inputs) != want {
			return errors.Errorf("%s node %q expects %d input(s), stream lists %d", kind, name, want, len(inputs))
		}
		return nil
	}
	var n Node
	switch kind {
	case KindInput:
		if err := needs(0); err != nil {
			return nil, err
		}
		n = &Input{baseNode: base}
	case KindReshape:
		if err := needs(1); err != nil {
			return nil, err
		}
		n = &Reshape{baseNode: base}
	case KindDeprecatedReshape:
		if err := needs(1); err != nil {
			return nil, err
		}
		n = &DeprecatedReshape{baseNode: base}
	case KindReconcileLayout:
		if err := needs(2); err != nil {
			return nil, err
		}
		n = &ReconcileLayout{baseNode: base}
	case KindRowSlice:
		if err := needs(1); err != nil {
			return nil, err
		}
		n = &RowSlice{baseNode: base}
	case KindRowStack:
		if len(inputs) == 0 {
			return nil, errors.Errorf("%s node %q expects at least one input, stream lists none", kind, name)
		}
		n = &RowStack{baseNode: base}
	case KindRowRepeat:
		if err := needs(1); err != nil {
			return nil, err
		}
		n = &RowRepeat{baseNode: base}
	default:
		return nil, errors.Errorf("node %q has unsupported kind %q", name, kind)
	}
	g.addNode(n)
	return n, nil
}

// GobDeserialize reads a graph saved by GobSerialize, re-creating its nodes
// on the given backend. The loaded graph carries no minibatch state: run
// Graph.ValidateAll and feed the inputs before using it.
func GobDeserialize(dec *gob.Decoder, backend backends.Backend) (g *Graph, err error) {
	var header string
	if err = dec.Decode(&header); err != nil {
		err = errors.Wrapf(err, "failed to read graph header")
		return
	}
	if header != gobHeader {
		err = errors.Errorf("not a graph stream: header %q, expected %q", header, gobHeader)
		return
	}
	var version int
	if err = dec.Decode(&version); err != nil {
		err = errors.Wrapf(err, "failed to read model version")
		return
	}
	if version < ModelVersionInitial || version > ModelVersionCurrent {
		err = errors.Errorf("model version %d not supported, expected %d to %d", version, ModelVersionInitial, ModelVersionCurrent)
		return
	}
	var dtypeName string
	if err = dec.Decode(&dtypeName); err != nil {
		err = errors.Wrapf(err, "failed to read graph dtype")
		return
	}
	dtype, err := dtypes.DTypeString(dtypeName)
	if err != nil {
		err = errors.WithMessagef(err, "parsing graph dtype %q", dtypeName)
		return
	}
	var count int
	if err = dec.Decode(&count); err != nil {
		err = errors.Wrapf(err, "failed to read node count")
		return
	}
	if count < 0 {
		err = errors.Errorf("corrupt stream: negative node count %d", count)
		return
	}

	g = NewGraph(backend, dtype)
	for i := 0; i < count; i++ {
		var kindName, name string
		var inputNames []string
		if err = dec.Decode(&kindName); err != nil {
			err = errors.Wrapf(err, "failed to read kind of node #%d", i)
			g = nil
			return
		}
		if err = dec.Decode(&name); err != nil {
			err = errors.Wrapf(err, "failed to read name of node #%d", i)
			g = nil
			return
		}
		if err = dec.Decode(&inputNames); err != nil {
			err = errors.Wrapf(err, "failed to read inputs of %q", name)
			g = nil
			return
		}
		kind := kindFromString(kindName)
		if kind == KindInvalid {
			err = errors.Errorf("node %q has unknown kind %q", name, kindName)
			g = nil
			return
		}
		if name == "" {
			err = errors.Errorf("corrupt stream: node #%d has an empty name", i)
			g = nil
			return
		}
		if _, taken := g.byName[name]; taken {
			err = errors.Errorf("corrupt stream: duplicate node name %q", name)
			g = nil
			return
		}
		inputs := make([]Node, len(inputNames))
		for j, inName := range inputNames {
			in := g.byName[inName]
			if in == nil {
				err = errors.Errorf("node %q references input %q that does not precede it in the stream", name, inName)
				g = nil
				return
			}
			inputs[j] = in
		}
		var n Node
		if n, err = newNodeForLoad(g, kind, name, inputs); err != nil {
			g = nil
			return
		}
		if err = n.Load(dec, version); err != nil {
			g = nil
			return
		}
	}
	return
}

// Load a graph from the file path given, re-created on the given backend.
func Load(filePath string, backend backends.Backend) (g *Graph, err error) {
	f, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		err = errors.Wrapf(err, "opening %q to load graph", filePath)
		return
	}
	dec := gob.NewDecoder(f)
	g, err = GobDeserialize(dec, backend)
	if err != nil {
		err = errors.WithMessagef(err, "loading graph from %q", filePath)
		return
	}
	_ = f.Close()
	return
}
