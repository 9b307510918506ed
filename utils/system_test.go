package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNan(t *testing.T) {
	assert.True(t, IsNan(math.NaN()))
	assert.False(t, IsNan(1.0))
	assert.True(t, IsNan([]float64{1, math.NaN()}))
	assert.False(t, IsNan(NewVector(2).Set(3)))
	assert.True(t, IsNan(NewVector(2).Set(math.NaN())))
	assert.False(t, IsNan("x"))
	assert.Contains(t, GetMemUsage(), "MiB")
}
