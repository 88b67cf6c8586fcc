package graph_test

import (
	"testing"

	"github.com/gomlx/seqgraph/graph"
	"github.com/gomlx/seqgraph/types"
	"github.com/gomlx/seqgraph/types/layouts"
	"github.com/gomlx/seqgraph/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowStack(t *testing.T) {
	g := newTestGraph()
	x1 := graph.NewInput(g, "x1", shapes.Make(2))
	x2 := graph.NewInput(g, "x2", shapes.Make(3))
	x2.AttachLayout(x1.Layout())
	st := graph.NewRowStack(g, "st", x1, x2)
	fullGrid(x1.Layout(), 2, 2)
	require.NoError(t, g.ValidateAll())
	require.Same(t, x1.Layout(), st.Layout())
	assert.True(t, st.SampleShape().Equal(shapes.Make(5)))

	x1.SetValue(iotaValues(8))
	x2.SetValue([]float64{11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22})
	st.ForwardProp(layouts.AllFrames())
	assert.Equal(t, []float64{
		1, 2, 11, 12, 13,
		3, 4, 14, 15, 16,
		5, 6, 17, 18, 19,
		7, 8, 20, 21, 22,
	}, st.Value().Flat())

	st.ZeroGradient()
	st.Gradient().SetFlat(iotaValues(20))
	st.BackpropTo(0, layouts.AllFrames())
	st.BackpropTo(1, layouts.AllFrames())
	assert.Equal(t, []float64{1, 2, 6, 7, 11, 12, 16, 17}, x1.Gradient().Flat())
	assert.Equal(t, []float64{3, 4, 5, 8, 9, 10, 13, 14, 15, 18, 19, 20}, x2.Gradient().Flat())
}

func TestRowStackTrailingDims(t *testing.T) {
	g := newTestGraph()
	w1 := graph.NewStaticInput(g, "w1", shapes.Make(2, 3))
	w2 := graph.NewStaticInput(g, "w2", shapes.Make(2, 2))
	st := graph.NewRowStack(g, "st", w1, w2)
	require.NoError(t, g.ValidateAll())
	// The trailing dimensions add up, the leading ones must match.
	assert.True(t, st.SampleShape().Equal(shapes.Make(2, 5)), "got %s", st.SampleShape())

	w1.SetValue(iotaValues(6))
	w2.SetValue([]float64{101, 102, 103, 104})
	st.ForwardProp(layouts.AllFrames())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 101, 102, 103, 104}, st.Value().Flat())
}

func TestRowStackReassemblesSlices(t *testing.T) {
	g := newTestGraph()
	x := graph.NewInput(g, "x", shapes.Make(5))
	top := graph.NewRowSlice(g, "top", x, 0, 2)
	bottom := graph.NewRowSlice(g, "bottom", x, 2, 3)
	st := graph.NewRowStack(g, "st", top, bottom)
	fullGrid(x.Layout(), 2, 3)
	require.NoError(t, g.ValidateAll())
	assert.True(t, st.SampleShape().Equal(shapes.Make(5)))

	// Stacking the slices of a partition back together restores the input.
	x.SetValue(iotaValues(30))
	top.ForwardProp(layouts.AllFrames())
	bottom.ForwardProp(layouts.AllFrames())
	st.ForwardProp(layouts.AllFrames())
	assert.Equal(t, iotaValues(30), st.Value().Flat())

	// And the gradient flows back undivided.
	st.ZeroGradient()
	st.Gradient().SetFlat(iotaValues(30))
	st.BackpropTo(0, layouts.AllFrames())
	st.BackpropTo(1, layouts.AllFrames())
	top.BackpropTo(0, layouts.AllFrames())
	bottom.BackpropTo(0, layouts.AllFrames())
	assert.Equal(t, iotaValues(30), x.Gradient().Flat())
}

func TestRowStackErrors(t *testing.T) {
	t.Run("incompatible leading dimensions", func(t *testing.T) {
		g := newTestGraph()
		w1 := graph.NewStaticInput(g, "w1", shapes.Make(2, 3))
		w2 := graph.NewStaticInput(g, "w2", shapes.Make(3, 3))
		graph.NewRowStack(g, "st", w1, w2)
		require.ErrorIs(t, g.ValidateAll(), types.ErrInvalidArgument)
	})
	t.Run("inputs must share one layout object", func(t *testing.T) {
		g := newTestGraph()
		x1 := graph.NewInput(g, "x1", shapes.Make(2))
		x2 := graph.NewInput(g, "x2", shapes.Make(2))
		graph.NewRowStack(g, "st", x1, x2)
		fullGrid(x1.Layout(), 1, 2)
		fullGrid(x2.Layout(), 1, 2)
		require.ErrorIs(t, g.ValidateAll(), types.ErrRuntime)
	})
}
