package mediator

import (
	"fmt"

	"github.com/notargets/weakform/types"
)

// Field is a discrete function the mediator can sample. Eval returns D^alpha f at x in cell.
type Field interface {
	Eval(cell int, x []float64, alpha types.MultiIndex) float64
}

// LinearField is C + Grad . x.
type LinearField struct {
	C    float64
	Grad [types.MaxDim]float64
}

func (f LinearField) Eval(_ int, x []float64, alpha types.MultiIndex) float64 {
	switch alpha.Order() {
	case 0:
		val := f.C
		for d, xd := range x {
			val += f.Grad[d] * xd
		}
		return val
	case 1:
		for d := range alpha {
			if alpha[d] == 1 {
				return f.Grad[d]
			}
		}
	}
	return 0
}

/*
NodalField is the piecewise bilinear (Q1, or linear in 1D) interpolant of vertex values on a
TensorMesh. Within a cell only D^alpha with alpha[d] <= 1 per direction is nonzero.
*/
type NodalField struct {
	Mesh   *TensorMesh
	Values []float64 // per vertex
}

func NewNodalField(m *TensorMesh, values []float64) (f *NodalField, err error) {
	if len(values) != m.NumVertices() {
		err = fmt.Errorf("%d nodal values for %d vertices", len(values), m.NumVertices())
		return
	}
	f = &NodalField{Mesh: m, Values: values}
	return
}

// InterpolateField samples fn at the mesh vertices.
func InterpolateField(m *TensorMesh, fn func(x []float64) float64) *NodalField {
	var values = make([]float64, m.NumVertices())
	for v := range values {
		values[v] = fn(m.Vertex(v))
	}
	return &NodalField{Mesh: m, Values: values}
}

func (f *NodalField) Eval(cell int, x []float64, alpha types.MultiIndex) (val float64) {
	var (
		m      = f.Mesh
		i, j   = m.cellIJ(cell)
		lo, hi = m.CellBounds(cell)
		nx     = m.N[0] + 1
	)
	if alpha[2] != 0 {
		return 0
	}
	for d := 0; d < m.Dim; d++ {
		if alpha[d] > 1 {
			return 0
		}
	}
	if m.Dim == 1 && alpha[1] != 0 {
		return 0
	}
	// shape function (or its derivative) of local vertex a in direction d
	shape := func(d, a int) float64 {
		var (
			h  = hi[d] - lo[d]
			xi = (x[d] - lo[d]) / h
		)
		switch {
		case alpha[d] == 1 && a == 0:
			return -1 / h
		case alpha[d] == 1:
			return 1 / h
		case a == 0:
			return 1 - xi
		}
		return xi
	}
	if m.Dim == 1 {
		return f.Values[i]*shape(0, 0) + f.Values[i+1]*shape(0, 1)
	}
	for b := 0; b < 2; b++ {
		for a := 0; a < 2; a++ {
			val += f.Values[(i+a)+nx*(j+b)] * shape(0, a) * shape(1, b)
		}
	}
	return
}
