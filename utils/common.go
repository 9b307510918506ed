package utils

const (
	// NODETOL is the smallest distinct coordinate difference
	NODETOL = 1.e-12
)
