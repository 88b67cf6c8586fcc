// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package types holds the error kinds shared by all seqgraph packages. See
// sub-packages `shapes` and `layouts` for the shape and minibatch-layout
// types built on top of them.
//
// The three error kinds mirror the failure taxonomy of the computation
// engine:
//
//   - ErrInvalidArgument: the graph description itself is wrong -- bad node
//     parameters or incompatible shapes. Typically the user's fault.
//   - ErrRuntime: an otherwise valid graph cannot process this particular
//     minibatch, e.g. because a layout doesn't line up at evaluation time.
//   - ErrLogic: an internal contract was broken. Indicates a bug in seqgraph
//     itself.
//
// Errors are raised as panics carrying an error value, in the style of
// github.com/gomlx/exceptions, so shape-inference and node code doesn't need
// to thread error returns through every call. API boundaries recover them
// with exceptions.TryCatch[error]; callers test the kind with errors.Is.
package types

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument indicates an invalid graph description: bad node
	// parameters or shapes that cannot be reconciled.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRuntime indicates that a minibatch cannot be processed by an
	// otherwise valid graph.
	ErrRuntime = errors.New("runtime error")

	// ErrLogic indicates a broken internal contract, that is, a bug.
	ErrLogic = errors.New("logic error")
)

// InvalidArgumentf panics with an error wrapping ErrInvalidArgument, with the
// formatted message and a stack trace attached.
func InvalidArgumentf(format string, args ...any) {
	panic(errors.Wrapf(ErrInvalidArgument, format, args...))
}

// Runtimef panics with an error wrapping ErrRuntime, with the formatted
// message and a stack trace attached.
func Runtimef(format string, args ...any) {
	panic(errors.Wrapf(ErrRuntime, format, args...))
}

// Logicf panics with an error wrapping ErrLogic, with the formatted message
// and a stack trace attached.
func Logicf(format string, args ...any) {
	panic(errors.Wrapf(ErrLogic, format, args...))
}
