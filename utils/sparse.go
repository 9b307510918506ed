package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }
func (m DOK) NNZ() int            { return m.M.NNZ() }

func (m *DOK) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

// Accumulate adds val to element (i,j), the way integrals are summed into a table.
func (m DOK) Accumulate(i, j int, val float64) {
	m.checkWritable()
	if val == 0 {
		return
	}
	m.M.Set(i, j, m.M.At(i, j)+val)
}

// ColumnSums totals every column over the stored (nonzero) elements.
func (m DOK) ColumnSums() (sums []float64) {
	var _, nc = m.Dims()
	sums = make([]float64, nc)
	m.M.DoNonZero(func(i, j int, v float64) {
		sums[j] += v
	})
	return
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

// CSR is the compressed, read only form of an assembled table.
type CSR struct {
	M    *sparse.CSR
	name string
}

func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix       { return m.M.T() }

// Row returns the stored columns of row i and their values.
func (m CSR) Row(i int) (cols []int, vals []float64) {
	var raw = m.M.RawMatrix()
	for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
		cols = append(cols, raw.Ind[k])
		vals = append(vals, raw.Data[k])
	}
	return
}
