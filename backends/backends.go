// Package backends defines the minibatch matrix interface that reshaping
// nodes compute against, and the registry of its implementations.
//
// A Matrix stores a minibatch in column-major order: each column is one
// sample vector, stored contiguously, and the columns belonging to one time
// step are adjacent. All reshaping operations reduce to column arithmetic and
// row-block moves on this storage, which is what the Matrix interface
// provides.
//
// To simplify error handling, implementations are expected to throw (panic)
// with an error value carrying a stack trace in case of errors. See packages
// github.com/gomlx/exceptions and github.com/gomlx/seqgraph/types.
package backends

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Backend creates and owns minibatch matrices.
type Backend interface {
	// Name returns the short name of the backend, as used in the registry.
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// NewMatrix creates a zero-initialized matrix with the given element type
	// and dimensions.
	NewMatrix(dtype dtypes.DType, rows, cols int) Matrix

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()
}

// Matrix is a 2D minibatch value in column-major storage.
//
// Views (Reshaped, ColumnRange) alias the storage of the matrix they were
// taken from: writing through a view writes the original. Scalar access uses
// float64 as the exchange type regardless of the element dtype.
//
// Dimension or dtype mismatches panic with types.ErrLogic: node validation
// is responsible for never letting them happen.
type Matrix interface {
	// DType returns the element type.
	DType() dtypes.DType

	// Rows returns the number of rows (the sample dimension).
	Rows() int

	// Cols returns the number of columns (the samples).
	Cols() int

	// Resize changes the dimensions, reallocating only if the element count
	// grows. Contents are unspecified afterwards. Views cannot be resized.
	Resize(rows, cols int)

	// Reshaped returns a zero-copy view of the same elements reinterpreted as
	// rows x cols. The element count must not change.
	Reshaped(rows, cols int) Matrix

	// ColumnRange returns a zero-copy view of num columns starting at start.
	ColumnRange(start, num int) Matrix

	// At returns the element at (row, col).
	At(row, col int) float64

	// Set assigns the element at (row, col).
	Set(row, col int, value float64)

	// SetZero fills the matrix with zeros.
	SetZero()

	// Fill sets every element to value.
	Fill(value float64)

	// SetFlat fills the matrix from values in column-major order;
	// len(values) must equal Rows()*Cols().
	SetFlat(values []float64)

	// Flat returns a copy of the elements in column-major order.
	Flat() []float64

	// Assign copies src into the matrix. Dimensions must match.
	Assign(src Matrix)

	// AddScaled accumulates scale*src into the matrix. Dimensions must match.
	AddScaled(src Matrix, scale float64)

	// AssignRowSlice extracts rows [startRow, startRow+numRows) of every
	// column of src: the matrix (numRows x src.Cols()) is overwritten.
	AssignRowSlice(src Matrix, startRow, numRows int)

	// AddToRowSlice accumulates src into rows [startRow, startRow+numRows) of
	// every column of the matrix; src is (numRows x Cols()).
	AddToRowSlice(src Matrix, startRow, numRows int)

	// AssignToRowSlice overwrites rows [startRow, startRow+numRows) of every
	// column of the matrix with src; src is (numRows x Cols()).
	AssignToRowSlice(src Matrix, startRow, numRows int)

	// AddRowSlice accumulates rows [startRow, startRow+numRows) of every
	// column of src into the matrix; the matrix is (numRows x src.Cols()).
	AddRowSlice(src Matrix, startRow, numRows int)

	// AssignRepeat overwrites the matrix with src tiled vertically numRepeats
	// times; the matrix is (src.Rows()*numRepeats x src.Cols()).
	AssignRepeat(src Matrix, numRepeats int)

	// AddRowRepeatSum accumulates the sum of the numRepeats vertical tiles of
	// src into the matrix; src is (Rows()*numRepeats x Cols()).
	AddRowRepeatSum(src Matrix, numRepeats int)

	// ShuffleScaleAndAdd permutes the elements of src viewed as the
	// column-major tensor (d, s, m, k, t) into the matrix viewed as
	// (d, k, m, s, t):
	//
	//	this = keepWeight*this + scale*shuffle(src)
	//
	// A keepWeight of 0 overwrites, 1 accumulates. Both matrices must hold
	// exactly d*s*m*k*t elements.
	ShuffleScaleAndAdd(keepWeight float64, src Matrix, d, s, m, k, t int, scale float64)
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// SEQGRAPH_BACKEND is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "go") and
// "<backend_configuration>" is backend specific.
const SEQGRAPH_BACKEND = "SEQGRAPH_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment SEQGRAPH_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It panics if no backend was registered.
func New() Backend {
	config, found := os.LookupEnv(SEQGRAPH_BACKEND)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig takes a configuration string formatted as
// "<backend_name>:<backend_configuration>", where "<backend_name>" is the
// name of a registered backend (e.g.: "go") and "<backend_configuration>" is
// backend specific.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends for seqgraph -- maybe import the default one with import _ "github.com/gomlx/seqgraph/backends/simplego"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given", backendName, config)
	}
	return constructor(backendConfig)
}
