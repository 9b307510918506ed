package mediator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/weakform/evalmgr"
	"github.com/notargets/weakform/types"
)

var (
	s0 = types.MustSpatialToken(0)
	s1 = types.MustSpatialToken(1)
)

func TestTensorMesh(t *testing.T) {
	{ // Construction errors
		_, err := NewTensorMesh(3, []float64{0, 0, 0}, []float64{1, 1, 1}, []int{1, 1, 1})
		assert.Error(t, err)
		_, err = NewTensorMesh(2, []float64{0, 0}, []float64{1, 0}, []int{1, 1})
		assert.Error(t, err)
		_, err = NewTensorMesh(1, []float64{0}, []float64{1}, []int{0})
		assert.Error(t, err)
	}
	m, err := NewTensorMesh(2, []float64{0, 0}, []float64{2, 1}, []int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, 4, m.NumCells())
	assert.Equal(t, 9, m.NumVertices())
	assert.Equal(t, []float64{2, 0.5}, m.Vertex(5))
	lo, hi := m.CellBounds(3)
	assert.Equal(t, [2]float64{1, 0.5}, lo)
	assert.Equal(t, [2]float64{2, 1}, hi)

	batches, err := m.Batches(3, 2, nil)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, 12, batches[0].NumQuadPoints())
	assert.Equal(t, 4, batches[1].NumQuadPoints())
	assert.Equal(t, []int{3, 3, 3, 3}, batches[1].PointCells())
	_, err = m.Batches(0, 2, nil)
	assert.Error(t, err)

	var (
		area, xMoment, xyMoment float64
	)
	for _, b := range batches {
		out := make([]float64, b.NumQuadPoints())
		require.NoError(t, b.EvalPrimitive(evalmgr.CoordinateOf(0), types.MultipleDeriv{}, out))
		for q, w := range b.Weights() {
			area += w
			xMoment += w * out[q]
			xyMoment += w * out[q] * b.Points()[q][1]
		}
	}
	assert.InDelta(t, 2.0, area, 1.e-12)
	assert.InDelta(t, 2.0, xMoment, 1.e-12)
	assert.InDelta(t, 1.0, xyMoment, 1.e-12)
}

func TestCellBatchPrimitives(t *testing.T) {
	m, err := NewTensorMesh(2, []float64{0, 0}, []float64{1, 1}, []int{2, 1})
	require.NoError(t, err)
	// bilinear, so the Q1 interpolant is exact
	fn := func(x []float64) float64 { return 1 + 2*x[0] - x[1] + 3*x[0]*x[1] }
	fields := map[string]Field{
		"q1":  InterpolateField(m, fn),
		"lin": LinearField{C: 1, Grad: [3]float64{2, -1, 0}},
	}
	batches, err := m.Batches(2, 3, fields)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	b := batches[0]
	n := b.NumQuadPoints()
	assert.Equal(t, 18, n)
	out := make([]float64, n)
	sample := func(p evalmgr.Primitive, md types.MultipleDeriv) []float64 {
		require.NoError(t, b.EvalPrimitive(p, md, out))
		return out
	}
	for q, x := range b.Points() {
		assert.InDelta(t, fn(x), sample(evalmgr.DiscreteFunctionOf("q1"), types.MultipleDeriv{})[q], 1.e-12)
		assert.InDelta(t, 2+3*x[1], sample(evalmgr.DiscreteFunctionOf("q1"), types.NewMultipleDeriv(s0))[q], 1.e-12)
		assert.InDelta(t, -1+3*x[0], sample(evalmgr.DiscreteFunctionOf("q1"), types.NewMultipleDeriv(s1))[q], 1.e-12)
		assert.InDelta(t, 3, sample(evalmgr.DiscreteFunctionOf("q1"), types.NewMultipleDeriv(s0, s1))[q], 1.e-12)
		assert.Equal(t, 0., sample(evalmgr.DiscreteFunctionOf("q1"), types.NewMultipleDeriv(s0, s0))[q])
		assert.InDelta(t, 1+2*x[0]-x[1], sample(evalmgr.DiscreteFunctionOf("lin"), types.MultipleDeriv{})[q], 1.e-12)
		assert.Equal(t, -1., sample(evalmgr.DiscreteFunctionOf("lin"), types.NewMultipleDeriv(s1))[q])
		assert.Equal(t, 1., sample(evalmgr.CoordinateOf(1), types.NewMultipleDeriv(s1))[q])
		assert.Equal(t, 0., sample(evalmgr.CoordinateOf(1), types.NewMultipleDeriv(s0))[q])
		assert.InDelta(t, math.Hypot(0.5, 1), sample(evalmgr.GeometryOf(types.CellDiameter), types.MultipleDeriv{})[q], 1.e-15)
		assert.Equal(t, 0.5, sample(evalmgr.GeometryOf(types.CellVolume), types.MultipleDeriv{})[q])
	}
	{ // Errors
		assert.Error(t, b.EvalPrimitive(evalmgr.DiscreteFunctionOf("rho"), types.MultipleDeriv{}, out))
		assert.Error(t, b.EvalPrimitive(evalmgr.CoordinateOf(2), types.MultipleDeriv{}, out))
		assert.Error(t, b.EvalPrimitive(evalmgr.CoordinateOf(0), types.MultipleDeriv{}, out[:3]))
		u := types.MustFunctionalToken(99, types.MultiIndex{})
		assert.Error(t, b.EvalPrimitive(evalmgr.CoordinateOf(0), types.NewMultipleDeriv(u), out))
		_, err := NewNodalField(m, []float64{1, 2})
		assert.Error(t, err)
	}
}

func TestOneDimensional(t *testing.T) {
	m, err := NewTensorMesh(1, []float64{-1}, []float64{1}, []int{4})
	require.NoError(t, err)
	f, err := NewNodalField(m, []float64{0, 1, 0, 1, 0})
	require.NoError(t, err)
	batches, err := m.Batches(4, 2, map[string]Field{"hat": f})
	require.NoError(t, err)
	b := batches[0]
	vals := make([]float64, b.NumQuadPoints())
	require.NoError(t, b.EvalPrimitive(evalmgr.DiscreteFunctionOf("hat"), types.MultipleDeriv{}, vals))
	var integral float64
	for q, w := range b.Weights() {
		integral += w * vals[q]
	}
	// four triangles of height 1 and base 0.5
	assert.InDelta(t, 1.0, integral, 1.e-12)
	require.NoError(t, b.EvalPrimitive(evalmgr.DiscreteFunctionOf("hat"), types.NewMultipleDeriv(s0), vals))
	assert.InDelta(t, 2.0, vals[0], 1.e-12)
	assert.InDelta(t, -2.0, vals[2], 1.e-12)
	require.NoError(t, b.EvalPrimitive(evalmgr.GeometryOf(types.CellDiameter), types.MultipleDeriv{}, vals))
	assert.Equal(t, 0.5, vals[0])
}
