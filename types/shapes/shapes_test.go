package shapes

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/seqgraph/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := Make(2, 3, 4)
	assert.Equal(t, 3, s.Rank())
	assert.Equal(t, 24, s.Size())
	assert.Equal(t, "[2 3 4]", s.String())

	// 0 is a valid placeholder dimension.
	s = Make(2, 0)
	assert.False(t, s.IsFullyDefined())
	assert.Equal(t, 0, s.Size())

	// Negative dimensions are rejected.
	err := exceptions.TryCatch[error](func() { _ = Make(2, -1) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))

	assert.True(t, Scalar().IsScalar())
	assert.Equal(t, 1, Scalar().Size())
	assert.Equal(t, "[]", Scalar().String())
}

func TestDim(t *testing.T) {
	s := Make(2, 3, 4)
	assert.Equal(t, 2, s.Dim(0))
	assert.Equal(t, 4, s.Dim(2))
	assert.Equal(t, 4, s.Dim(-1))
	assert.Equal(t, 2, s.Dim(-3))

	err := exceptions.TryCatch[error](func() { _ = s.Dim(3) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrLogic))
}

func TestEqualAndClone(t *testing.T) {
	s := Make(2, 3)
	assert.True(t, s.Equal(Make(2, 3)))
	assert.False(t, s.Equal(Make(3, 2)))
	assert.False(t, s.Equal(Make(2, 3, 1)))

	s2 := s.Clone()
	s2.Dimensions[0] = 7
	assert.Equal(t, 2, s.Dimensions[0])
}

func TestMemory(t *testing.T) {
	s := Make(3, 5)
	assert.Equal(t, uintptr(60), s.Memory(dtypes.Float32))
	assert.Equal(t, uintptr(120), s.Memory(dtypes.Float64))
	assert.Equal(t, uintptr(30), s.Memory(dtypes.Float16))
}

func TestAsMatrixDims(t *testing.T) {
	for _, test := range []struct {
		shape      Shape
		rows, cols int
	}{
		{Scalar(), 1, 1},
		{Make(5), 5, 1},
		{Make(4, 6), 4, 6},
		{Make(2, 3, 4), 6, 4},
	} {
		rows, cols := test.shape.AsMatrixDims()
		assert.Equalf(t, test.rows, rows, "rows of %s", test.shape)
		assert.Equalf(t, test.cols, cols, "cols of %s", test.shape)
	}
}

func TestIsVectorStoredAsImage(t *testing.T) {
	assert.True(t, Make(1, 7, 1).IsVectorStoredAsImage())
	assert.False(t, Make(7).IsVectorStoredAsImage())
	assert.False(t, Make(2, 7, 1).IsVectorStoredAsImage())
	assert.False(t, Make(1, 7, 3).IsVectorStoredAsImage())
}

func TestGobSerialization(t *testing.T) {
	s := Make(2, 3, 4)
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	require.NoError(t, s.GobSerialize(enc))

	dec := gob.NewDecoder(&buf)
	s2, err := GobDeserialize(dec)
	require.NoError(t, err)
	assert.True(t, s.Equal(s2))
}

func TestReplaceDims(t *testing.T) {
	// Plain sub-range replacement.
	got, err := ReplaceDims(Make(4, 6), Make(2, 3), 1, 2)
	require.NoError(t, err)
	assert.True(t, got.Equal(Make(4, 2, 3)))

	// Whole-range replacement.
	got, err = ReplaceDims(Make(4, 6), Make(24), 0, 2)
	require.NoError(t, err)
	assert.True(t, got.Equal(Make(24)))

	// One placeholder is inferred by even division.
	got, err = ReplaceDims(Make(4, 6), Make(0, 3), 1, 2)
	require.NoError(t, err)
	assert.True(t, got.Equal(Make(4, 2, 3)))

	// Element-count mismatch: the partial shape is still assembled.
	got, err = ReplaceDims(Make(4, 6), Make(5), 1, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "must be the same")
	assert.True(t, got.Equal(Make(4, 5)))

	// Non-divisible placeholder surfaces as a mismatch, too.
	_, err = ReplaceDims(Make(2, 3), Make(0, 4), 0, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "integer multiple")

	// More than one placeholder is never valid.
	err = exceptions.TryCatch[error](func() {
		_, _ = ReplaceDims(Make(4, 6), Make(0, 0), 0, 2)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))

	// Out-of-bounds axis ranges are rejected.
	err = exceptions.TryCatch[error](func() {
		_, _ = ReplaceDims(Make(4, 6), Make(24), 0, 3)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}
