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

func TestRowSlice(t *testing.T) {
	g := newTestGraph()
	x := graph.NewInput(g, "x", shapes.Make(5))
	s := graph.NewRowSlice(g, "s", x, 1, 3)
	fullGrid(x.Layout(), 2, 2)
	require.NoError(t, g.ValidateAll())
	require.Same(t, x.Layout(), s.Layout())
	assert.True(t, s.SampleShape().Equal(shapes.Make(3)))

	// Column c holds 10c+0 .. 10c+4; the slice keeps rows 1..3 of each.
	values := make([]float64, 20)
	for c := 0; c < 4; c++ {
		for r := 0; r < 5; r++ {
			values[5*c+r] = float64(10*c + r)
		}
	}
	x.SetValue(values)
	s.ForwardProp(layouts.AllFrames())
	assert.Equal(t, []float64{1, 2, 3, 11, 12, 13, 21, 22, 23, 31, 32, 33},
		s.Value().Flat())

	// The gradient lands on the sliced rows and accumulates there.
	s.ZeroGradient()
	s.Gradient().Fill(1)
	s.BackpropTo(0, layouts.AllFrames())
	s.BackpropTo(0, layouts.AllFrames())
	expected := make([]float64, 20)
	for c := 0; c < 4; c++ {
		for r := 1; r < 4; r++ {
			expected[5*c+r] = 2
		}
	}
	assert.Equal(t, expected, x.Gradient().Flat())
}

func TestRowSliceWindowed(t *testing.T) {
	g := newTestGraph()
	x := graph.NewInput(g, "x", shapes.Make(2))
	s := graph.NewRowSlice(g, "s", x, 1, 1)
	fullGrid(x.Layout(), 1, 3)
	require.NoError(t, g.ValidateAll())

	x.SetValue([]float64{1, 2, 3, 4, 5, 6})
	s.ForwardProp(layouts.Step(2))
	assert.Equal(t, []float64{0, 0, 6}, s.Value().Flat())
	s.ForwardProp(layouts.Step(0))
	s.ForwardProp(layouts.Step(1))
	assert.Equal(t, []float64{2, 4, 6}, s.Value().Flat())
}

func TestRowSliceErrors(t *testing.T) {
	t.Run("slice exceeds input rows", func(t *testing.T) {
		g := newTestGraph()
		x := graph.NewInput(g, "x", shapes.Make(4))
		graph.NewRowSlice(g, "s", x, 2, 3)
		require.ErrorIs(t, g.ValidateAll(), types.ErrRuntime)
	})
	t.Run("input must be a vector", func(t *testing.T) {
		g := newTestGraph()
		x := graph.NewInput(g, "x", shapes.Make(2, 3))
		graph.NewRowSlice(g, "s", x, 0, 2)
		require.ErrorIs(t, g.ValidateAll(), types.ErrRuntime)
	})
	t.Run("image-shaped vector is allowed", func(t *testing.T) {
		g := newTestGraph()
		x := graph.NewInput(g, "x", shapes.Make(1, 6, 1))
		s := graph.NewRowSlice(g, "s", x, 2, 2)
		require.NoError(t, g.ValidateAll())
		assert.True(t, s.SampleShape().Equal(shapes.Make(2)))
	})
}
