package xslices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAtAndLast(t *testing.T) {
	s := []int{2, 4, 8, 16}
	assert.Equal(t, 16, Last(s))

	SetAt(s, 1, 5)
	assert.Equal(t, []int{2, 5, 8, 16}, s)
	SetAt(s, -2, 9)
	assert.Equal(t, []int{2, 5, 9, 16}, s)
	SetLast(s, 64)
	assert.Equal(t, []int{2, 5, 9, 64}, s)
}

func TestFillSlice(t *testing.T) {
	s := make([]float64, 3)
	FillSlice(s, 1.5)
	assert.Equal(t, []float64{1.5, 1.5, 1.5}, s)

	var empty []int
	FillSlice(empty, 7) // no-op on an empty slice
	assert.Empty(t, empty)
}
