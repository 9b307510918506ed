package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	{ // Packed derivative tokens
		x0 := MustSpatialToken(0)
		x2 := MustSpatialToken(2)
		assert.True(t, x0.IsSpatial())
		assert.Equal(t, 0, x0.Direction())
		assert.Equal(t, 2, x2.Direction())
		assert.Equal(t, -1, x0.FuncID())
		assert.Equal(t, MultiIndex{0, 0, 1}, x2.MultiIndex())

		_, err := NewSpatialToken(3)
		require.Error(t, err)
		_, err = NewSpatialToken(-1)
		require.Error(t, err)
		assert.Panics(t, func() { MustSpatialToken(MaxDim) })

		u := MustFunctionalToken(7, MultiIndex{})
		ux := MustFunctionalToken(7, UnitMultiIndex(0))
		uxy := MustFunctionalToken(7, MultiIndex{1, 1, 0})
		assert.True(t, u.IsFunctional())
		assert.Equal(t, 7, u.FuncID())
		assert.Equal(t, 7, uxy.FuncID())
		assert.Equal(t, -1, u.Direction())
		assert.Equal(t, MultiIndex{}, u.MultiIndex())
		assert.Equal(t, MultiIndex{1, 0, 0}, ux.MultiIndex())
		assert.Equal(t, MultiIndex{1, 1, 0}, uxy.MultiIndex())

		// Spatial tokens sort ahead of every functional token
		assert.Less(t, uint64(x2), uint64(u))
		assert.Less(t, uint64(MustFunctionalToken(6, MultiIndex{2, 0, 0})), uint64(u))

		_, err = NewFunctionalToken(-1, MultiIndex{})
		require.Error(t, err)
		_, err = NewFunctionalToken(1, MultiIndex{256, 0, 0})
		require.Error(t, err)

		RegisterFunctionName(7, "u")
		assert.Equal(t, "D[u]", u.String())
		assert.Equal(t, "D[D(1,0,0) u]", ux.String())
		assert.Equal(t, "D[x0]", x0.String())
		assert.Equal(t, "f#12345", FunctionName(12345))
	}
	{ // Multisets
		var (
			x0 = MustSpatialToken(0)
			x1 = MustSpatialToken(1)
			v  = MustFunctionalToken(3, MultiIndex{})
		)
		a := NewMultipleDeriv(v, x1, x0, x1)
		assert.Equal(t, MultipleDeriv{x0, x1, x1, v}, a)
		assert.Equal(t, 4, a.Order())
		assert.Equal(t, 1, a.FunctionalOrder())
		assert.False(t, a.IsSpatial())
		assert.Equal(t, MultiIndex{1, 2, 0}, a.SpatialMultiIndex())
		assert.Equal(t, MultipleDeriv{v}, a.Functional())
		assert.Equal(t, MultipleDeriv{}, NewMultipleDeriv(x0).Functional())

		b := NewMultipleDeriv(x1).Put(x0)
		assert.True(t, b.IsSpatial())
		assert.False(t, MultipleDeriv{}.IsSpatial())
		assert.True(t, b.Equal(NewMultipleDeriv(x0, x1)))
		assert.Equal(t, a.Key(), b.Union(NewMultipleDeriv(v, x1)).Key())
		assert.NotEqual(t, a.Key(), b.Key())
		assert.Equal(t, NewMultipleDeriv(x1, v), a.SubMultiset([]int{3, 1}))

		// Put never aliases the receiver
		c := NewMultipleDeriv(x0)
		d := c.Put(x1)
		e := c.Put(v)
		assert.Equal(t, MultipleDeriv{x0, x1}, d)
		assert.Equal(t, MultipleDeriv{x0, v}, e)

		// Order first, lexicographic second
		assert.Equal(t, -1, MultipleDeriv{}.Compare(NewMultipleDeriv(v)))
		assert.Equal(t, -1, NewMultipleDeriv(v).Compare(NewMultipleDeriv(x0, x0)))
		assert.Equal(t, -1, NewMultipleDeriv(x0).Compare(NewMultipleDeriv(x1)))
		assert.Equal(t, 1, NewMultipleDeriv(v).Compare(NewMultipleDeriv(x1)))
		assert.Equal(t, 0, a.Compare(NewMultipleDeriv(x1, x1, x0, v)))
		assert.Equal(t, "{}", MultipleDeriv{}.String())
		assert.Equal(t, "{D[x0], D[x1]}", b.String())
	}
	{ // All multisets up to an order
		var (
			x0 = MustSpatialToken(0)
			x1 = MustSpatialToken(1)
		)
		all := AllMultisets([]DerivToken{x1, x0, x0}, 2)
		assert.Equal(t, []MultipleDeriv{
			{},
			{x0}, {x1},
			{x0, x0}, {x0, x1}, {x1, x1},
		}, all)
		assert.Equal(t, []MultipleDeriv{{}}, AllMultisets([]DerivToken{x0}, 0))
		assert.Equal(t, []MultipleDeriv{{}}, AllMultisets(nil, 3))
		assert.Len(t, AllMultisets([]DerivToken{x0, x1}, 3), 10)
	}
	{ // Evaluation contexts
		c1 := NewEvalContext("interior", "gauss-2", 2)
		c2 := NewEvalContext("interior", "gauss-2", 2)
		assert.NotEqual(t, c1, c2)
		assert.Greater(t, c2.ID, c1.ID)
		require.NoError(t, c1.Validate())
		copied := c1
		assert.Equal(t, c1, copied)
		m := map[EvalContext]int{c1: 1, c2: 2}
		assert.Equal(t, 1, m[copied])
		assert.Error(t, EvalContext{Region: "r"}.Validate())
		bad := c1
		bad.MaxOrder = -1
		assert.Error(t, bad.Validate())
	}
	{ // Name maps
		assert.Equal(t, CellDiameter, GeometryNameMap["h"])
		assert.Equal(t, "CellVolume", CellVolume.String())
		assert.Equal(t, TestFunc, FuncRoleNameMap["test"])
		assert.Equal(t, "Parameter", ParameterFunc.String())
	}
}
