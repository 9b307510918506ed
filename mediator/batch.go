package mediator

import (
	"fmt"

	"github.com/notargets/weakform/evalmgr"
	"github.com/notargets/weakform/types"
)

// CellBatch is a run of cells with their quadrature points, it is the Mediator the engine samples.
type CellBatch struct {
	mesh     *TensorMesh
	fields   map[string]Field
	cells    []int
	diameter []float64 // per cell
	volume   []float64 // per cell
	points   [][]float64
	weights  []float64
	local    []int // per point index into cells
}

var _ evalmgr.Mediator = (*CellBatch)(nil)

func (b *CellBatch) addCell(k, nq int) {
	var (
		lo, hi = b.mesh.CellBounds(k)
		xs, wx = rule(nq, lo[0], hi[0])
		c      = len(b.cells)
	)
	diam, vol := b.mesh.cellGeometry(k)
	b.cells = append(b.cells, k)
	b.diameter = append(b.diameter, diam)
	b.volume = append(b.volume, vol)
	if b.mesh.Dim == 1 {
		for i := range xs {
			b.points = append(b.points, []float64{xs[i]})
			b.weights = append(b.weights, wx[i])
			b.local = append(b.local, c)
		}
		return
	}
	ys, wy := rule(nq, lo[1], hi[1])
	for j := range ys {
		for i := range xs {
			b.points = append(b.points, []float64{xs[i], ys[j]})
			b.weights = append(b.weights, wx[i]*wy[j])
			b.local = append(b.local, c)
		}
	}
}

func (b *CellBatch) NumQuadPoints() int { return len(b.points) }

func (b *CellBatch) Weights() []float64 { return b.weights }

func (b *CellBatch) Cells() []int { return b.cells }

// PointCells returns the global cell id of every quadrature point.
func (b *CellBatch) PointCells() (cells []int) {
	cells = make([]int, len(b.local))
	for q, c := range b.local {
		cells[q] = b.cells[c]
	}
	return
}

func (b *CellBatch) Points() [][]float64 { return b.points }

func (b *CellBatch) EvalPrimitive(p evalmgr.Primitive, md types.MultipleDeriv, out []float64) (err error) {
	if len(out) < len(b.points) {
		return fmt.Errorf("output of length %d for %d points", len(out), len(b.points))
	}
	if md.FunctionalOrder() != 0 {
		return fmt.Errorf("%s has no functional derivative %s", p, md)
	}
	var alpha = md.SpatialMultiIndex()
	switch p.Kind {
	case evalmgr.CoordinatePrimitive:
		if p.Dir >= b.mesh.Dim {
			return fmt.Errorf("coordinate x%d in a %dD mesh", p.Dir, b.mesh.Dim)
		}
		for q, x := range b.points {
			switch {
			case md.Order() == 0:
				out[q] = x[p.Dir]
			case md.Order() == 1 && alpha[p.Dir] == 1:
				out[q] = 1
			default:
				out[q] = 0
			}
		}
	case evalmgr.GeometryPrimitive:
		var perCell []float64
		switch p.Geometry {
		case types.CellDiameter:
			perCell = b.diameter
		case types.CellVolume:
			perCell = b.volume
		default:
			return fmt.Errorf("unknown cell geometry %s", p.Geometry)
		}
		for q, c := range b.local {
			if md.Order() == 0 {
				out[q] = perCell[c]
			} else {
				out[q] = 0
			}
		}
	case evalmgr.DiscreteFunctionPrimitive:
		f, ok := b.fields[p.Name]
		if !ok {
			return fmt.Errorf("no discrete function named %q", p.Name)
		}
		for q, x := range b.points {
			out[q] = f.Eval(b.cells[b.local[q]], x, alpha)
		}
	default:
		return fmt.Errorf("unknown primitive %s", p)
	}
	return
}
