package utils

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) Vector {
	if len(dataO) != 0 {
		return Vector{V: mat.NewVecDense(n, dataO[0])}
	}
	return Vector{V: mat.NewVecDense(n, nil)}
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Len() int                 { return v.V.Len() }
func (v Vector) DataP() []float64         { return v.V.RawVector().Data }

// Chainable (extended) methods
func (v Vector) Set(val float64) Vector {
	var (
		data = v.V.RawVector().Data
	)
	for i := range data {
		data[i] = val
	}
	return v
}

// Linspace fills the vector with evenly spaced values from begin to end, both included.
func (v Vector) Linspace(begin, end float64) Vector {
	var (
		data = v.V.RawVector().Data
		n    = len(data)
	)
	if n == 1 {
		data[0] = begin
		return v
	}
	for i := range data {
		data[i] = begin + (end-begin)*float64(i)/float64(n-1)
	}
	return v
}

func (v Vector) Min() (min float64) {
	var (
		data = v.V.RawVector().Data
	)
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	var (
		data = v.V.RawVector().Data
	)
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}
