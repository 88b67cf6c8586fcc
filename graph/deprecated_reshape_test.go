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

// stackFixture wires x -> stack (rows 2 -> 6) -> unstack (rows 6 -> 2) over
// a minibatch of two 3-step sequences of 2-element frames. The frame of
// slot s at step t holds the values (100s+10t, 100s+10t+1), so every value
// names its coordinates.
type stackFixture struct {
	x              *graph.Input
	stack, unstack *graph.DeprecatedReshape
	values         []float64
}

func newStackFixture(t *testing.T) *stackFixture {
	g := newTestGraph()
	f := &stackFixture{}
	f.x = graph.NewInput(g, "x", shapes.Make(2))
	f.stack = graph.NewDeprecatedReshape(g, "stack", f.x, 6)
	f.unstack = graph.NewDeprecatedReshape(g, "unstack", f.stack, 2)
	fullGrid(f.x.Layout(), 2, 3)
	require.NoError(t, g.ValidateAll())

	f.values = make([]float64, 12)
	for s := 0; s < 2; s++ {
		for step := 0; step < 3; step++ {
			col := f.x.Layout().ColumnIndex(step, s)
			f.values[2*col] = float64(100*s + 10*step)
			f.values[2*col+1] = float64(100*s + 10*step + 1)
		}
	}
	f.x.SetValue(f.values)
	return f
}

func TestDeprecatedReshapeStackUnstack(t *testing.T) {
	f := newStackFixture(t)
	assert.True(t, f.stack.SampleShape().Equal(shapes.Make(6)))
	assert.True(t, f.unstack.SampleShape().Equal(shapes.Make(2)))

	f.stack.ForwardProp(layouts.AllFrames())
	require.NotNil(t, f.stack.Layout())
	assert.True(t, f.stack.Layout().IsFrameMode())
	assert.Equal(t, 2, f.stack.Layout().NumCols())
	// Each output column is one sequence's three frames stacked in step order.
	assert.Equal(t, []float64{0, 1, 10, 11, 20, 21, 100, 101, 110, 111, 120, 121},
		f.stack.Value().Flat())

	f.unstack.ForwardProp(layouts.AllFrames())
	require.NotNil(t, f.unstack.Layout())
	assert.Equal(t, 2, f.unstack.Layout().NumParallel())
	assert.Equal(t, 3, f.unstack.Layout().NumSteps())
	assert.Equal(t, f.values, f.unstack.Value().Flat())
}

func TestDeprecatedReshapeGradient(t *testing.T) {
	f := newStackFixture(t)
	f.stack.ForwardProp(layouts.AllFrames())
	f.unstack.ForwardProp(layouts.AllFrames())

	// Stacking and unstacking are inverse permutations, so the gradient
	// arrives at x exactly as seeded at the far end.
	seed := iotaValues(12)
	f.unstack.ZeroGradient()
	f.unstack.Gradient().SetFlat(seed)
	f.unstack.BackpropTo(0, layouts.AllFrames())
	f.stack.BackpropTo(0, layouts.AllFrames())
	assert.Equal(t, seed, f.x.Gradient().Flat())

	// Gradients accumulate over repeated backprop calls.
	f.stack.BackpropTo(0, layouts.AllFrames())
	assert.Equal(t, scaled(seed, 2), f.x.Gradient().Flat())
}

func TestDeprecatedReshapeStatic(t *testing.T) {
	g := newTestGraph()
	w := graph.NewStaticInput(g, "w", shapes.Make(4, 6))
	r := graph.NewDeprecatedReshape(g, "r", w, 8)
	require.NoError(t, g.ValidateAll())
	require.Nil(t, r.Layout())
	assert.True(t, r.SampleShape().Equal(shapes.Make(8, 3)), "got %s", r.SampleShape())

	w.SetValue(iotaValues(24))
	r.ForwardProp(layouts.AllFrames())
	assert.Equal(t, iotaValues(24), r.Value().Flat())

	r.ZeroGradient()
	r.Gradient().SetFlat(iotaValues(24))
	r.BackpropTo(0, layouts.AllFrames())
	assert.Equal(t, iotaValues(24), w.Gradient().Flat())
	r.BackpropTo(0, layouts.AllFrames())
	assert.Equal(t, scaled(iotaValues(24), 2), w.Gradient().Flat())
}

func TestDeprecatedReshapeCanonical(t *testing.T) {
	g := newTestGraph()
	x := graph.NewInput(g, "x", shapes.Make(2, 3))
	r := graph.NewDeprecatedReshape(g, "r", x, 6)
	fullGrid(x.Layout(), 2, 2)
	require.NoError(t, g.ValidateAll())
	// Same row count: the input layout passes through as the same object.
	require.Same(t, x.Layout(), r.Layout())
	assert.True(t, r.SampleShape().Equal(shapes.Make(6)))

	x.SetValue(iotaValues(24))
	r.ForwardProp(layouts.AllFrames())
	assert.Equal(t, iotaValues(24), r.Value().Flat())
}

func TestDeprecatedReshapeCanonicalWindowed(t *testing.T) {
	g := newTestGraph()
	x := graph.NewInput(g, "x", shapes.Make(2, 3))
	r := graph.NewDeprecatedReshape(g, "r", x, 6)
	fullGrid(x.Layout(), 2, 2)
	require.NoError(t, g.ValidateAll())

	// The canonical case keeps the time base, so it may run step by step
	// from inside a loop; only restacking is confined to the full window.
	x.SetValue(iotaValues(24))
	r.ForwardProp(layouts.Step(1))
	flat := r.Value().Flat()
	assert.Equal(t, make([]float64, 12), flat[:12])
	assert.Equal(t, iotaValues(24)[12:], flat[12:])
	r.ForwardProp(layouts.Step(0))
	assert.Equal(t, iotaValues(24), r.Value().Flat())

	// The gradient accumulates per addressed step, too.
	r.ZeroGradient()
	r.Gradient().SetFlat(iotaValues(24))
	r.BackpropTo(0, layouts.Step(0))
	r.BackpropTo(0, layouts.Step(1))
	assert.Equal(t, iotaValues(24), x.Gradient().Flat())
	r.BackpropTo(0, layouts.Step(1))
	expected := iotaValues(24)
	for i := 12; i < 24; i++ {
		expected[i] *= 2
	}
	assert.Equal(t, expected, x.Gradient().Flat())
}

func TestDeprecatedReshapeErrors(t *testing.T) {
	t.Run("non-divisible static rows", func(t *testing.T) {
		g := newTestGraph()
		w := graph.NewStaticInput(g, "w", shapes.Make(4, 6))
		graph.NewDeprecatedReshape(g, "r", w, 3)
		require.ErrorIs(t, g.ValidateAll(), types.ErrInvalidArgument)
	})
	t.Run("non-divisible minibatch rows", func(t *testing.T) {
		g := newTestGraph()
		x := graph.NewInput(g, "x", shapes.Make(2))
		graph.NewDeprecatedReshape(g, "r", x, 5)
		require.ErrorIs(t, g.ValidateAll(), types.ErrInvalidArgument)
	})
	t.Run("zero target rows", func(t *testing.T) {
		g := newTestGraph()
		x := graph.NewStaticInput(g, "x", shapes.Make(2))
		graph.NewDeprecatedReshape(g, "r", x, 0)
		require.ErrorIs(t, g.ValidateAll(), types.ErrInvalidArgument)
	})
	t.Run("stacking needs matching steps", func(t *testing.T) {
		g := newTestGraph()
		x := graph.NewInput(g, "x", shapes.Make(2))
		r := graph.NewDeprecatedReshape(g, "r", x, 6)
		fullGrid(x.Layout(), 2, 2) // 2 steps, but stacking by 3
		require.NoError(t, g.ValidateAll())
		x.SetValue(iotaValues(8))
		err := exceptions.TryCatch[error](func() { r.ForwardProp(layouts.AllFrames()) })
		require.ErrorIs(t, err, types.ErrLogic)
	})
	t.Run("splitting needs a single step", func(t *testing.T) {
		g := newTestGraph()
		x := graph.NewInput(g, "x", shapes.Make(4))
		r := graph.NewDeprecatedReshape(g, "r", x, 2)
		fullGrid(x.Layout(), 2, 2)
		require.NoError(t, g.ValidateAll())
		x.SetValue(iotaValues(16))
		err := exceptions.TryCatch[error](func() { r.ForwardProp(layouts.AllFrames()) })
		require.ErrorIs(t, err, types.ErrLogic)
	})
	t.Run("cannot run inside a loop", func(t *testing.T) {
		f := newStackFixture(t)
		err := exceptions.TryCatch[error](func() { f.stack.ForwardProp(layouts.Step(0)) })
		require.ErrorIs(t, err, types.ErrInvalidArgument)
		assert.ErrorContains(t, err, "changes the time base")
	})
}
