package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVector(t *testing.T) {
	{ // Linspace
		req := NewVector(2).Linspace(-1, 1)
		assert.Equal(t, -1., req.AtVec(0))
		assert.Equal(t, 1., req.AtVec(1))
		req = NewVector(3).Linspace(-1, 1)
		assert.Equal(t, []float64{-1, 0, 1}, req.DataP())
		assert.Equal(t, []float64{2}, NewVector(1).Linspace(2, 5).DataP())
	}
	{ // Elementwise operations
		v := NewVector(3, []float64{1, -2, 3})
		assert.Equal(t, -2., v.Min())
		assert.Equal(t, 3., v.Max())
		v.Set(4)
		assert.Equal(t, []float64{4, 4, 4}, v.DataP())
		assert.Equal(t, 4., v.Min())
		r, c := v.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, 1, c)
	}
}
