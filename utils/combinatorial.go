package utils

import "fmt"

func Pow2(n int) int {
	if n < 0 || n > 62 {
		panic(fmt.Errorf("2^%d does not fit in an int", n))
	}
	return 1 << uint(n)
}

// BitsOfInteger returns the n low bits of x, least significant first.
func BitsOfInteger(x, n int) (bits []int) {
	if x < 0 || x >= Pow2(n) {
		panic(fmt.Errorf("invalid input to BitsOfInteger: %d does not fit in %d bits", x, n))
	}
	bits = make([]int, n)
	for b := 0; b < n; b++ {
		bits[b] = (x >> uint(b)) & 1
	}
	return
}

/*
IndexSubsets lists every subset of the positions 0..n-1 in bitwise order, starting with the
empty set and ending with the full set. Each subset is returned together with its
complement, which is what a Leibniz (product rule) expansion needs:

	d^M (a b) = sum over subsets S of M: d^S a * d^(M\S) b
*/
func IndexSubsets(n int) (subsets, complements [][]int) {
	var (
		nSub = Pow2(n)
	)
	subsets = make([][]int, nSub)
	complements = make([][]int, nSub)
	for i := 0; i < nSub; i++ {
		bits := BitsOfInteger(i, n)
		subsets[i] = []int{}
		complements[i] = []int{}
		for j, bit := range bits {
			if bit == 1 {
				subsets[i] = append(subsets[i], j)
			} else {
				complements[i] = append(complements[i], j)
			}
		}
	}
	return
}

/*
SetPartitions lists every partition of the positions 0..n-1 into non-empty blocks, which is
the index set of the Faa di Bruno formula for a composition f(g):

	d^M f(g) = sum over partitions P of M: f^(|P|)(g) * prod over blocks B in P: d^B g

Partitions are generated from restricted growth strings, so the blocks of each partition
are ordered by their smallest element and positions within a block are increasing.
*/
func SetPartitions(n int) (partitions [][][]int) {
	if n == 0 {
		return [][][]int{{}}
	}
	var (
		rgs  = make([]int, n)
		walk func(i, maxBlock int)
	)
	walk = func(i, maxBlock int) {
		if i == n {
			blocks := make([][]int, maxBlock+1)
			for pos, b := range rgs {
				blocks[b] = append(blocks[b], pos)
			}
			partitions = append(partitions, blocks)
			return
		}
		for b := 0; b <= maxBlock+1; b++ {
			rgs[i] = b
			next := maxBlock
			if b > maxBlock {
				next = b
			}
			walk(i+1, next)
		}
	}
	rgs[0] = 0
	walk(1, 0)
	return
}
