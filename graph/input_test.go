package graph_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/seqgraph/graph"
	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputFeeding(t *testing.T) {
	g := newTestGraph()
	x := graph.NewInput(g, "x", shapes.Make(2))
	require.NotNil(t, x.Layout())
	fullGrid(x.Layout(), 2, 3)
	require.Equal(t, 6, x.Layout().NumCols())

	err := exceptions.TryCatch[error](func() { x.SetValue(iotaValues(5)) })
	require.ErrorIs(t, err, types.ErrInvalidArgument)

	x.SetValue(iotaValues(12))
	require.NotNil(t, x.Value())
	assert.Equal(t, 2, x.Value().Rows())
	assert.Equal(t, 6, x.Value().Cols())
	assert.Equal(t, iotaValues(12), x.Value().Flat())

	// Re-feeding a smaller minibatch resizes the buffer.
	fullGrid(x.Layout(), 2, 1)
	x.SetValue(iotaValues(4))
	assert.Equal(t, 2, x.Value().Cols())
	assert.Equal(t, iotaValues(4), x.Value().Flat())
}

func TestStaticInput(t *testing.T) {
	g := newTestGraph()
	w := graph.NewStaticInput(g, "w", shapes.Make(2, 3))
	require.Nil(t, w.Layout())

	err := exceptions.TryCatch[error](func() { w.AttachLayout(layouts.New()) })
	require.ErrorIs(t, err, types.ErrLogic)

	// Static values are held as a single column.
	w.SetValue(iotaValues(6))
	assert.Equal(t, 6, w.Value().Rows())
	assert.Equal(t, 1, w.Value().Cols())
	require.NoError(t, g.ValidateAll())
}

func TestInputHasNoInputs(t *testing.T) {
	g := newTestGraph()
	x := graph.NewStaticInput(g, "x", shapes.Make(2))
	x.SetValue(iotaValues(2))
	err := exceptions.TryCatch[error](func() { x.BackpropTo(0, layouts.AllFrames()) })
	require.ErrorIs(t, err, types.ErrLogic)
}

func TestInputSharedLayout(t *testing.T) {
	g := newTestGraph()
	x := graph.NewInput(g, "x", shapes.Make(2))
	y := graph.NewInput(g, "y", shapes.Make(3))
	y.AttachLayout(x.Layout())
	require.Same(t, x.Layout(), y.Layout())

	fullGrid(x.Layout(), 2, 2)
	x.SetValue(iotaValues(8))
	y.SetValue(iotaValues(12))
	assert.Equal(t, 4, x.Value().Cols())
	assert.Equal(t, 4, y.Value().Cols())
}
