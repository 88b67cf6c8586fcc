// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simplego implements a simple, portable pure-Go backend for
// seqgraph minibatch matrices.
//
// It supports the Float32, Float64 and Float16 dtypes. Importing the package
// registers it under the name "go"; it is the default backend when no other
// is registered first.
package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/seqgraph/backends"
)

// BackendName to be used in SEQGRAPH_BACKEND to specify this backend.
const BackendName = "go"

func init() {
	backends.Register(BackendName, New)
}

// New constructs a new SimpleGo Backend.
// There are no configurations, the string is simply ignored.
func New(_ string) backends.Backend {
	return &Backend{}
}

// Backend implements the backends.Backend interface.
type Backend struct{}

// Compile-time check that simplego.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return "SimpleGo (go)"
}

// String implements backends.Backend.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Simple Go Portable Backend"
}

// NewMatrix creates a zero-initialized column-major matrix.
func (b *Backend) NewMatrix(dtype dtypes.DType, rows, cols int) backends.Matrix {
	return newMatrix(dtype, rows, cols)
}

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {}
