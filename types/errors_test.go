package types

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	err := exceptions.TryCatch[error](func() {
		InvalidArgumentf("bad dimension %d for node %q", -3, "reshape0")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.False(t, errors.Is(err, ErrRuntime))
	assert.Contains(t, err.Error(), "bad dimension -3")

	err = exceptions.TryCatch[error](func() {
		Runtimef("layout with %d steps where %d expected", 3, 1)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRuntime))

	err = exceptions.TryCatch[error](func() {
		Logicf("row totals diverged")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLogic))
	assert.False(t, errors.Is(err, ErrInvalidArgument))
}
