package expr

import (
	"math"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/weakform/types"
)

func TestConstruction(t *testing.T) {
	var (
		x0 = MustCoordinate(0)
		x1 = MustCoordinate(1)
		u  = NewUnknownFunction("u", nil)
	)
	{ // Folding
		assert.True(t, IsZero(Mul(x0, NewConstant(0))))
		assert.Same(t, x0, Mul(NewConstant(1), x0))
		assert.Same(t, x0, Add(x0, NewConstant(0)))
		assert.Equal(t, 6.0, Mul(NewConstant(2), NewConstant(3)).(*Constant).Value)
		assert.True(t, IsZero(Sub(NewConstant(2), NewConstant(2))))
		s := Add(x0, Add(x1, NewConstant(1)), NewConstant(2)).(*Sum)
		assert.Len(t, s.Terms, 3)
		assert.Equal(t, 3.0, s.Terms[2].(*Constant).Value)
		assert.Equal(t, 1.0, Pow(x0, 0).(*Constant).Value)
		assert.Same(t, x0, Pow(x0, 1))
		assert.InDelta(t, math.Exp(2), Exp(NewConstant(2)).(*Constant).Value, 1.e-15)
		_, err := NewCoordinate(3)
		assert.Error(t, err)
	}
	{ // Derivatives are pushed down to function leaves
		assert.Equal(t, 1.0, MustDiff(0, x0).(*Constant).Value)
		assert.True(t, IsZero(MustDiff(1, x0)))
		assert.True(t, IsZero(MustDiff(0, NewCellDiameter())))
		d := MustDiff(1, MustDiff(0, u)).(*DiffOp)
		assert.Equal(t, types.MultiIndex{1, 1, 0}, d.Alpha)
		assert.Same(t, u, d.Arg)
		// d/dx (x u) = u + x u_x
		s := MustDiff(0, Mul(x0, u)).(*Sum)
		assert.Len(t, s.Terms, 2)
		assert.Same(t, u, s.Terms[0])
		// d/dx sin(u) = cos-like shifted functor times u_x
		p := MustDiff(0, Sin(u)).(*Product)
		assert.Equal(t, "D1sin", p.Left.(*UnaryOp).Func.Name())
		assert.IsType(t, &DiffOp{}, p.Right)
		// second derivative shifts twice
		pp := MustDiff(0, MustDiff(0, Exp(u))).(*Sum)
		assert.Len(t, pp.Terms, 2)
		_, err := Diff(3, u)
		assert.Error(t, err)
		g := Grad(Mul(x0, x1), 2)
		assert.Same(t, x1, g[0])
		assert.Same(t, x0, g[1])
		assert.Equal(t, "(x0*x0 + x1*x1)", Dot([]Expr{x0, x1}, []Expr{x0, x1}).String())
	}
	{ // Ids are unique and post order puts children first
		e := Add(Mul(x0, u), u)
		order := PostOrder(e)
		seen := make(map[int64]int)
		for i, n := range order {
			seen[n.ID()] = i
		}
		assert.Len(t, seen, len(order))
		for _, n := range order {
			for _, c := range n.Children() {
				assert.Less(t, seen[c.ID()], seen[n.ID()])
			}
		}
		assert.Equal(t, e.ID(), order[len(order)-1].ID())
	}
}

func TestFunctors(t *testing.T) {
	var (
		out  = make([]float64, 5)
		x    = 0.7
		tnh  = math.Tanh(x)
		sech = 1 - tnh*tnh
	)
	NewTanh().Derivs(x, 3, out)
	assert.InDeltaSlice(t, []float64{tnh, sech, -2 * tnh * sech, -2 * sech * (1 - 3*tnh*tnh)}, out[:4], 1.e-12)

	NewLog().Derivs(x, 3, out)
	assert.InDeltaSlice(t, []float64{math.Log(x), 1 / x, -1 / (x * x), 2 / (x * x * x)}, out[:4], 1.e-12)

	NewPower(3).Derivs(x, 4, out)
	assert.InDeltaSlice(t, []float64{x * x * x, 3 * x * x, 6 * x, 6, 0}, out, 1.e-12)
	assert.True(t, NewPower(3).NonzeroDeriv(3))
	assert.False(t, NewPower(3).NonzeroDeriv(4))
	assert.True(t, NewPower(-2).NonzeroDeriv(9))
	assert.True(t, NewSqrt().NonzeroDeriv(9))

	NewSqrt().Derivs(x, 2, out)
	assert.InDeltaSlice(t, []float64{math.Sqrt(x), 0.5 / math.Sqrt(x), -0.25 / math.Pow(x, 1.5)}, out[:3], 1.e-12)

	NewReciprocal().Derivs(x, 2, out)
	assert.InDeltaSlice(t, []float64{1 / x, -1 / (x * x), 2 / (x * x * x)}, out[:3], 1.e-12)

	NewCos().Derivs(x, 4, out)
	assert.InDeltaSlice(t, []float64{math.Cos(x), -math.Sin(x), -math.Cos(x), math.Sin(x), math.Cos(x)}, out, 1.e-12)

	sh := Shift(Shift(NewSin(), 1), 1)
	assert.Equal(t, "D2sin", sh.Name())
	sh.Derivs(x, 1, out)
	assert.InDeltaSlice(t, []float64{-math.Sin(x), -math.Cos(x)}, out[:2], 1.e-12)
	assert.False(t, Shift(NewPower(2), 3).NonzeroDeriv(0))
	assert.True(t, IsZero(Apply(Shift(NewPower(2), 3), MustCoordinate(0))))

	f, err := FunctorByName("tanh")
	require.NoError(t, err)
	assert.Equal(t, "tanh", f.Name())
	_, err = FunctorByName("erf")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	var (
		u   = NewUnknownFunction("u", NewDiscreteFunction("u0"))
		v   = NewTestFunction("v")
		env = NewEnv().Define("u", u).Define("v", v)
	)
	{ // grad u . grad v + h tanh(u) v
		src := []byte(`
op: "+"
args:
  - op: "*"
    args: [{diff: 0, arg: {func: u}}, {diff: 0, arg: {func: v}}]
  - op: "*"
    args: [{diff: 1, arg: {func: u}}, {diff: 1, arg: {func: v}}]
  - op: "*"
    args: [{geom: h}, {fn: tanh, arg: {func: u}}, {func: v}]
  - {op: "-", args: [{pow: 2, arg: {coord: 0}}]}
  - {op: "/", args: [{const: 1}, {coord: 1}]}
`)
		var tree map[string]interface{}
		require.NoError(t, yaml.Unmarshal(src, &tree))
		e, err := Decode(tree, env)
		require.NoError(t, err)
		s, ok := e.(*Sum)
		require.True(t, ok)
		assert.Len(t, s.Terms, 5)
		assert.Equal(t, -1.0, s.Coeffs[3])
		p := s.Terms[0].(*Product)
		assert.Equal(t, types.MultiIndex{1, 0, 0}, p.Left.(*DiffOp).Alpha)
		assert.Same(t, v, p.Right.(*DiffOp).Arg)
	}
	{ // Errors name the offending piece
		for src, msg := range map[string]string{
			`{op: "+", args: [{func: w}]}`:         `"w" is not defined`,
			`{op: "%", args: [{coord: 0}]}`:        `unknown operator "%"`,
			`{coord: 0.5}`:                         `must be an integer`,
			`{coord: 4}`:                           `out of range`,
			`{fn: erf, arg: {coord: 0}}`:           `unknown function "erf"`,
			`{geom: perimeter}`:                    `unknown cell geometry`,
			`{diff: 0}`:                            `"arg" must be an object`,
			`{const: 1, coord: 0}`:                 `has both`,
			`{nothing: 1}`:                         `no recognized form`,
			`{op: "/", args: [{coord: 0}]}`:        `wrong number of arguments`,
			`{op: "*", args: [{coord: 0}, 3]}`:     `args[1] must be an object`,
		} {
			var tree map[string]interface{}
			require.NoError(t, yaml.Unmarshal([]byte(src), &tree))
			_, err := Decode(tree, env)
			require.Error(t, err, src)
			assert.Contains(t, err.Error(), msg, src)
		}
	}
}
