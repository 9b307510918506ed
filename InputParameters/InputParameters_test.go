package InputParameters

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/weakform/assembly"
	"github.com/notargets/weakform/types"
)

var runFile = `
Title: "advection"
SpatialDim: 2
Mesh:
  XMin: 0
  XMax: 2
  YMin: 0
  YMax: 1
  Nx: 4
  Ny: 2
QuadratureOrder: 2
MaxDiffOrder: 2
BatchSize: 3
Workers: 2
Fields:
  p0:
    Kind: nodal
    C: 1
    Grad: [1, 0]
    XY: 2
Functions:
  u:
    Role: unknown
    EvalPoint: p0
  v:
    Role: test
Variations:
  - Function: u
  - Function: v
  - Function: u
    Direction: 0
Expression:
  op: "*"
  args:
    - func: u
    - func: v
`

func TestRunParameters(t *testing.T) {
	{ // Parse applies defaults and prints
		rp := &RunParameters{}
		require.NoError(t, rp.Parse([]byte(runFile)))
		assert.Equal(t, "advection", rp.Title)
		assert.Equal(t, 4, rp.Mesh.Nx)
		assert.Equal(t, 2.0, rp.Mesh.XMax)
		assert.Equal(t, 3, len(rp.Variations))
		require.NotNil(t, rp.Variations[2].Direction)
		assert.Equal(t, 0, *rp.Variations[2].Direction)
		assert.Equal(t, "nodal", rp.Fields["p0"].Kind)

		var buf bytes.Buffer
		rp.Print(&buf)
		assert.Contains(t, buf.String(), "\"advection\"")
		assert.Contains(t, buf.String(), "Variations[2] = D0 u")

		bare := &RunParameters{}
		require.NoError(t, bare.Parse([]byte("Expression: {const: 1}\n")))
		assert.Equal(t, 2, bare.SpatialDim)
		assert.Equal(t, 16, bare.BatchSize)
		assert.Equal(t, 1, bare.Workers)
		assert.Equal(t, 2, bare.QuadratureOrder)
	}
	{ // Invalid runs
		for _, doc := range []string{
			"Title: x\n",
			"SpatialDim: 3\nExpression: {const: 1}\n",
			"MaxDiffOrder: -1\nExpression: {const: 1}\n",
			"Title: [\n",
		} {
			rp := &RunParameters{}
			assert.Error(t, rp.Parse([]byte(doc)), doc)
		}
	}
	{ // Build and assemble
		rp := &RunParameters{}
		require.NoError(t, rp.Parse([]byte(runFile)))
		run, err := rp.Build()
		require.NoError(t, err)
		assert.Equal(t, 8, run.Mesh.NumCells())
		assert.Len(t, run.Batches, 3)
		assert.Equal(t, "u*v", run.Root.String())
		assert.Equal(t, 2, run.Context.MaxOrder)
		require.Len(t, run.Variations, 3)
		assert.Equal(t, types.UnitMultiIndex(0), run.Variations[2].MultiIndex())

		batches := make([]assembly.Batch, len(run.Batches))
		for i, b := range run.Batches {
			batches[i] = b
		}
		d := &assembly.Driver{Root: run.Root, Context: run.Context, Variations: run.Variations,
			Workers: rp.Workers}
		res, err := d.Assemble(context.Background(), batches, run.Mesh.NumCells())
		require.NoError(t, err)
		var (
			du = run.Variations[0]
			dv = run.Variations[1]
		)
		iv, ok := res.Superset.IndexOf(types.NewMultipleDeriv(dv))
		require.True(t, ok)
		iuv, ok := res.Superset.IndexOf(types.NewMultipleDeriv(du, dv))
		require.True(t, ok)
		tot := res.Totals()
		// integral of 1 + x + 2xy over [0,2]x[0,1]
		assert.InDelta(t, 6, tot[iv], 1.e-12)
		assert.InDelta(t, 2, tot[iuv], 1.e-12)
		// D0 u only pairs with a spatial derivative, which u*v never requests
		_, ok = res.Superset.IndexOf(types.NewMultipleDeriv(run.Variations[2], dv))
		assert.False(t, ok)
	}
	{ // Build errors name the culprit
		for doc, msg := range map[string]string{
			"Functions: {u: {Role: unknown, EvalPoint: q}}\nExpression: {func: u}\n": `no field named "q"`,
			"Functions: {u: {Role: boss}}\nExpression: {func: u}\n":                 `unknown role "boss"`,
			"Variations: [{Function: w}]\nExpression: {const: 1}\n":                 `no function named "w"`,
			"Variations: [{Spatial: 2}]\nExpression: {const: 1}\n":                  "direction 2 in 2 dimensions",
			"Fields: {q: {Kind: cubic}}\nExpression: {const: 1}\n":                  `unknown field kind "cubic"`,
			"Expression: {func: nope}\n":                                            "expression",
		} {
			rp := &RunParameters{}
			require.NoError(t, rp.Parse([]byte(doc)), doc)
			_, err := rp.Build()
			require.Error(t, err, doc)
			assert.Contains(t, err.Error(), msg)
		}
	}
}
