package assembly

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/weakform/expr"
	"github.com/notargets/weakform/mediator"
	"github.com/notargets/weakform/types"
)

func asBatches(cbs []*mediator.CellBatch) (bs []Batch) {
	bs = make([]Batch, len(cbs))
	for i, b := range cbs {
		bs[i] = b
	}
	return
}

func TestAssemble(t *testing.T) {
	var (
		p     = expr.NewDiscreteFunction("p")
		u     = expr.NewUnknownFunction("u", p)
		v     = expr.NewTestFunction("v")
		x     = expr.MustCoordinate(0)
		du    = u.Variation(types.MultiIndex{})
		dv    = v.Variation(types.MultiIndex{})
		root  = expr.Add(expr.Mul(u, v), expr.Mul(x, v))
		ctx   = types.NewEvalContext("cells", "gauss-2", 2)
		cache = expr.NewCache(testLogger(t))
	)
	m, err := mediator.NewTensorMesh(2, []float64{0, 0}, []float64{2, 1}, []int{2, 2})
	require.NoError(t, err)
	fields := map[string]mediator.Field{"p": mediator.LinearField{C: 1, Grad: [3]float64{1, 0, 0}}}
	cbs, err := m.Batches(1, 2, fields)
	require.NoError(t, err)
	batches := asBatches(cbs)

	var (
		totals   [][]float64
		counted0 = testutil.ToFloat64(batchesEvaluated)
	)
	var lastStats expr.Stats
	for _, workers := range []int{1, 3, 8} {
		d := &Driver{Cache: cache, Root: root, Context: ctx, Variations: []types.DerivToken{du, dv},
			Workers: workers, Log: testLogger(t)}
		res, err := d.Assemble(context.Background(), batches, m.NumCells())
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, res.PassID)
		ss := res.Superset
		// {} and second variations of a single function vanish with the test function
		require.Equal(t, 2, ss.NumEntries())
		iv, ok := ss.IndexOf(types.NewMultipleDeriv(dv))
		require.True(t, ok)
		iuv, ok := ss.IndexOf(types.NewMultipleDeriv(du, dv))
		require.True(t, ok)
		assert.Equal(t, expr.VaryingStorage, ss.Entry(iv).Kind)
		assert.Equal(t, expr.ConstantStorage, ss.Entry(iuv).Kind)
		_, ok = ss.IndexOf(types.NewMultipleDeriv(du))
		assert.False(t, ok)

		// integral of 1+2x and of 1 over [0,2]x[0,1]
		tot := res.Totals()
		assert.InDelta(t, 6, tot[iv], 1.e-12)
		assert.InDelta(t, 2, tot[iuv], 1.e-12)
		// cell 0 is [0,1]x[0,0.5]
		assert.InDelta(t, 1, res.Integrals.At(0, iv), 1.e-12)
		assert.InDelta(t, 0.5, res.Integrals.At(0, iuv), 1.e-12)
		r, c := res.Integrals.Dims()
		assert.Equal(t, 4, r)
		assert.Equal(t, 2, c)
		assert.Panics(t, func() { res.Integrals.Accumulate(0, 0, 1) })
		entries, vals := res.Cell(3)
		assert.ElementsMatch(t, []int{iv, iuv}, entries)
		assert.Len(t, vals, 2)
		totals = append(totals, tot)

		// the plan is built once and shared by every pass
		st := cache.Stats()
		if lastStats.EvaluatorBuilds != 0 {
			assert.Equal(t, lastStats.EvaluatorBuilds, st.EvaluatorBuilds)
			assert.Equal(t, lastStats.SupersetBuilds, st.SupersetBuilds)
		}
		lastStats = st
	}
	assert.Equal(t, float64(3*len(batches)), testutil.ToFloat64(batchesEvaluated)-counted0)
	for _, tot := range totals[1:] {
		assert.InDeltaSlice(t, totals[0], tot, 1.e-12)
	}
}

func TestAssembleErrors(t *testing.T) {
	var (
		q    = expr.NewDiscreteFunction("q")
		u    = expr.NewUnknownFunction("w", q)
		root = expr.Sin(u)
		ctx  = types.NewEvalContext("cells", "gauss-1", 1)
		du   = u.Variation(types.MultiIndex{})
	)
	m, err := mediator.NewTensorMesh(1, []float64{0}, []float64{1}, []int{4})
	require.NoError(t, err)
	{ // A field the mediator does not know aborts the whole pass
		cbs, err := m.Batches(2, 1, map[string]mediator.Field{})
		require.NoError(t, err)
		d := &Driver{Root: root, Context: ctx, Variations: []types.DerivToken{du}, Workers: 2}
		res, err := d.Assemble(context.Background(), asBatches(cbs), m.NumCells())
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), `no discrete function named "q"`)
		assert.NotNil(t, d.Cache)
	}
	{ // Cancellation
		cbs, err := m.Batches(1, 1, map[string]mediator.Field{"q": mediator.LinearField{C: 0.5}})
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := &Driver{Root: root, Context: ctx, Variations: []types.DerivToken{du}}
		res, err := d.Assemble(cctx, asBatches(cbs), m.NumCells())
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, res)

		// The same driver completes once the context is live
		res, err = d.Assemble(context.Background(), asBatches(cbs), m.NumCells())
		require.NoError(t, err)
		tot := res.Totals()
		i0, ok := res.Superset.IndexOf(types.MultipleDeriv{})
		require.True(t, ok)
		i1, ok := res.Superset.IndexOf(types.NewMultipleDeriv(du))
		require.True(t, ok)
		assert.InDelta(t, 0.479425538604203, tot[i0], 1.e-12) // sin(0.5)
		assert.InDelta(t, 0.877582561890373, tot[i1], 1.e-12) // cos(0.5)
	}
	{ // NaN values are rejected
		cbs, err := m.Batches(4, 1, map[string]mediator.Field{"q": mediator.LinearField{C: -1}})
		require.NoError(t, err)
		d := &Driver{Root: expr.Log(u), Context: ctx, Variations: []types.DerivToken{du}}
		_, err = d.Assemble(context.Background(), asBatches(cbs), m.NumCells())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NaN")
	}
}
