package mediator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/notargets/weakform/utils"
)

/*
TensorMesh is a structured mesh of the box [Lo,Hi] in one or two dimensions. Cells are
numbered with x fastest, k = i + N[0]*j, and so are the vertices, v = i + (N[0]+1)*j.
*/
type TensorMesh struct {
	Dim    int
	N      [2]int
	Lo, Hi [2]float64
	X, Y   utils.Vector // vertex coordinates per direction
}

func NewTensorMesh(dim int, lo, hi []float64, n []int) (m *TensorMesh, err error) {
	if dim < 1 || dim > 2 {
		err = fmt.Errorf("tensor meshes are 1D or 2D, not %dD", dim)
		return
	}
	if len(lo) < dim || len(hi) < dim || len(n) < dim {
		err = fmt.Errorf("%dD mesh needs %d bounds and cell counts", dim, dim)
		return
	}
	m = &TensorMesh{Dim: dim, N: [2]int{1, 1}}
	for d := 0; d < dim; d++ {
		if n[d] < 1 {
			return nil, fmt.Errorf("direction %d has %d cells", d, n[d])
		}
		if hi[d]-lo[d] < utils.NODETOL {
			return nil, fmt.Errorf("direction %d has an empty extent [%g,%g]", d, lo[d], hi[d])
		}
		m.N[d], m.Lo[d], m.Hi[d] = n[d], lo[d], hi[d]
	}
	m.X = utils.NewVector(m.N[0]+1).Linspace(m.Lo[0], m.Hi[0])
	m.Y = utils.NewVector(m.N[1]+1).Linspace(m.Lo[1], m.Hi[1])
	return
}

func (m *TensorMesh) NumCells() int    { return m.N[0] * m.N[1] }
func (m *TensorMesh) NumVertices() int { return (m.N[0] + 1) * (m.N[1] + 1) }

func (m *TensorMesh) cellIJ(k int) (i, j int) {
	return k % m.N[0], k / m.N[0]
}

// CellBounds returns the lower and upper corner of cell k.
func (m *TensorMesh) CellBounds(k int) (lo, hi [2]float64) {
	i, j := m.cellIJ(k)
	lo[0], hi[0] = m.X.AtVec(i), m.X.AtVec(i+1)
	if m.Dim == 2 {
		lo[1], hi[1] = m.Y.AtVec(j), m.Y.AtVec(j+1)
	}
	return
}

func (m *TensorMesh) Vertex(v int) (x []float64) {
	var (
		nx   = m.N[0] + 1
		i, j = v % nx, v / nx
	)
	x = []float64{m.X.AtVec(i)}
	if m.Dim == 2 {
		x = append(x, m.Y.AtVec(j))
	}
	return
}

func (m *TensorMesh) cellGeometry(k int) (diameter, volume float64) {
	lo, hi := m.CellBounds(k)
	hx := hi[0] - lo[0]
	if m.Dim == 1 {
		return hx, hx
	}
	hy := hi[1] - lo[1]
	return math.Hypot(hx, hy), hx * hy
}

/*
Batches groups consecutive cells into batches of at most cellsPerBatch cells and places an
nq point Gauss-Legendre rule per direction in every cell. Weights include the cell Jacobian,
so sum_q w_q f(x_q) integrates f over the batch.
*/
func (m *TensorMesh) Batches(cellsPerBatch, nq int, fields map[string]Field) (batches []*CellBatch, err error) {
	if cellsPerBatch < 1 || nq < 1 {
		err = fmt.Errorf("need at least one cell per batch and one point per direction, got %d and %d",
			cellsPerBatch, nq)
		return
	}
	for k0 := 0; k0 < m.NumCells(); k0 += cellsPerBatch {
		b := &CellBatch{mesh: m, fields: fields}
		for k := k0; k < k0+cellsPerBatch && k < m.NumCells(); k++ {
			b.addCell(k, nq)
		}
		batches = append(batches, b)
	}
	return
}

// rule returns the nq Gauss-Legendre points and weights of the interval [lo,hi].
func rule(nq int, lo, hi float64) (x, w []float64) {
	x, w = make([]float64, nq), make([]float64, nq)
	quad.Legendre{}.FixedLocations(x, w, lo, hi)
	return
}
