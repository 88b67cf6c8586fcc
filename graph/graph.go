// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph implements the minibatch reshaping nodes: operations that
// reinterpret or restack the packed (sample x column) value matrices flowing
// through a sequence-processing computation, without changing sample
// contents.
//
// A Graph is only a container plus shape inference: it owns the node set,
// keeps names unique, and drives validation to a fixed point. Scheduling of
// ForwardProp/BackpropTo stays with the surrounding execution engine; tests
// and tools here call them directly in topological (construction) order.
package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/seqgraph/backends"
	"github.com/gomlx/seqgraph/types"
	"k8s.io/klog/v2"
)

// Graph holds an ordered set of nodes sharing one backend and dtype.
// Construction order is topological by necessity, constructors take their
// input nodes as arguments.
type Graph struct {
	backend backends.Backend
	dtype   dtypes.DType

	nodes  []Node
	byName map[string]Node
}

// NewGraph creates an empty graph whose node buffers live on backend with
// the given element type.
func NewGraph(backend backends.Backend, dtype dtypes.DType) *Graph {
	return &Graph{
		backend: backend,
		dtype:   dtype,
		byName:  make(map[string]Node),
	}
}

// Backend returns the backend the graph allocates value and gradient
// matrices on.
func (g *Graph) Backend() backends.Backend { return g.backend }

// DType returns the element type of every buffer in the graph.
func (g *Graph) DType() dtypes.DType { return g.dtype }

// Nodes returns the nodes in construction order. The returned slice is owned
// by the graph.
func (g *Graph) Nodes() []Node { return g.nodes }

// NumNodes returns the number of nodes registered so far.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NodeByName returns the named node, or nil.
func (g *Graph) NodeByName(name string) Node { return g.byName[name] }

// addNode registers a node, assigning an automatic name when none is given.
// Names must be unique, they identify nodes in saved models.
func (g *Graph) addNode(n Node) {
	b := n.base()
	if b.name == "" {
		b.name = fmt.Sprintf("%s_%d", strings.ToLower(b.kind.String()), len(g.nodes))
	}
	if _, found := g.byName[b.name]; found {
		types.InvalidArgumentf("graph already has a node named %q", b.name)
	}
	g.nodes = append(g.nodes, n)
	g.byName[b.name] = n
}

// ValidateAll drives shape inference over the whole graph: tolerant
// validation passes repeat until no node's output signature changes, then
// one final strict pass enforces every check. It returns an error (one of
// the types.Err* kinds) instead of panicking.
func (g *Graph) ValidateAll() error {
	return exceptions.TryCatch[error](g.validateAll)
}

func (g *Graph) validateAll() {
	// Each tolerant pass can resolve dimensions that feed the next one, so
	// the fixed point arrives in at most one pass per node. The bound only
	// guards against a node that never settles.
	maxPasses := len(g.nodes) + 2
	for pass := 1; ; pass++ {
		changed := 0
		for _, n := range g.nodes {
			before := validationSignature(n)
			n.Validate(false)
			if validationSignature(n) != before {
				changed++
			}
		}
		klog.V(1).Infof("graph validation pass %d: %d node(s) changed", pass, changed)
		if changed == 0 {
			break
		}
		if pass >= maxPasses {
			types.Logicf("graph validation did not settle after %d passes", pass)
		}
	}
	for _, n := range g.nodes {
		n.Validate(true)
	}
}

// validationSignature captures what downstream nodes can observe of n during
// validation: its sample shape and the identity of its layout object.
func validationSignature(n Node) string {
	return fmt.Sprintf("%s@%p", n.SampleShape(), n.Layout())
}

// String lists every node's self-description, one per line.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Graph{%s, %d nodes}\n", g.dtype, len(g.nodes))
	for _, n := range g.nodes {
		sb.WriteString("\t")
		sb.WriteString(n.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
