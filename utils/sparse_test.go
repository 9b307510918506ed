package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparseTable(t *testing.T) {
	m := NewDOK(3, 2)
	m.Accumulate(0, 1, 1.5)
	m.Accumulate(0, 1, 0.5)
	m.Accumulate(2, 0, -1)
	m.Accumulate(1, 0, 0)
	assert.Equal(t, 2.0, m.At(0, 1))
	assert.Equal(t, 2, m.NNZ())
	assert.Equal(t, []float64{-1, 2}, m.ColumnSums())

	csr := m.ToCSR()
	cols, vals := csr.Row(0)
	assert.Equal(t, []int{1}, cols)
	assert.Equal(t, []float64{2}, vals)
	cols, _ = csr.Row(1)
	assert.Empty(t, cols)
	assert.Equal(t, -1.0, csr.At(2, 0))

	m.SetReadOnly("integrals")
	assert.PanicsWithError(t, `attempt to write to a read only matrix named: "integrals"`, func() {
		m.Accumulate(0, 0, 1)
	})
}
