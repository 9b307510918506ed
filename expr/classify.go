package expr

import (
	"fmt"
	"sync"

	"github.com/notargets/weakform/types"
	"github.com/notargets/weakform/utils"
)

var (
	subsetTable    sync.Map // n -> [2][][]int
	partitionTable sync.Map // n -> [][][]int
)

func indexSubsets(n int) (subsets, complements [][]int) {
	if v, ok := subsetTable.Load(n); ok {
		pair := v.([2][][]int)
		return pair[0], pair[1]
	}
	subsets, complements = utils.IndexSubsets(n)
	subsetTable.Store(n, [2][][]int{subsets, complements})
	return
}

func setPartitions(n int) [][][]int {
	if v, ok := partitionTable.Load(n); ok {
		return v.([][][]int)
	}
	p := utils.SetPartitions(n)
	partitionTable.Store(n, p)
	return p
}

// kindSet folds the storage kinds of the terms contributing to one entry.
type kindSet struct {
	nonzero, varying bool
}

func (ks *kindSet) add(k StorageKind) {
	ks.nonzero = true
	if k == VaryingStorage {
		ks.varying = true
	}
}

func (ks kindSet) kind() StorageKind {
	if ks.varying {
		return VaryingStorage
	}
	return ConstantStorage
}

type kindLookup func(child Expr, md types.MultipleDeriv) (StorageKind, bool)

// classify builds the superset of n from its sorted request list. Children are already classified.
func classify(n Expr, reqs []types.MultipleDeriv, supersetOf func(Expr) *SparsitySuperset) (ss *SparsitySuperset, err error) {
	var (
		entries []Entry
		lookup  = func(child Expr, md types.MultipleDeriv) (StorageKind, bool) {
			return supersetOf(child).kindOf(md)
		}
	)
	for _, md := range reqs {
		var ks kindSet
		if ks, err = classifyEntry(n, md, lookup); err != nil {
			return
		}
		if ks.nonzero {
			entries = append(entries, Entry{Deriv: md, Spatial: md.IsSpatial(), Kind: ks.kind()})
		}
	}
	ss = newSparsitySuperset(entries)
	return
}

func classifyEntry(n Expr, md types.MultipleDeriv, lookup kindLookup) (ks kindSet, err error) {
	switch nn := n.(type) {
	case *Constant:
		if md.Order() == 0 && nn.Value != 0 {
			ks.add(ConstantStorage)
		}
	case *Coordinate:
		switch {
		case md.Order() == 0:
			ks.add(VaryingStorage)
		case md.Order() == 1 && md.IsSpatial() && md[0].Direction() == nn.Dir:
			ks.add(ConstantStorage)
		}
	case *CellGeometry:
		if md.Order() == 0 {
			ks.add(VaryingStorage)
		}
	case *DiscreteFunction:
		if md.FunctionalOrder() == 0 {
			ks.add(VaryingStorage)
		}
	case *FuncElement:
		var functional = md.Functional()
		switch len(functional) {
		case 0:
			if nn.EvalPoint != nil {
				ks.add(VaryingStorage)
			}
		case 1:
			tok := functional[0]
			if tok.FuncID() == nn.FuncID && tok.MultiIndex() == md.SpatialMultiIndex() {
				ks.add(ConstantStorage)
			}
		}
	case *DiffOp:
		if k, ok := lookup(nn.Arg, md.Union(nn.Alpha.Tokens())); ok {
			ks.add(k)
		}
	case *Sum:
		for _, t := range nn.Terms {
			if k, ok := lookup(t, md); ok {
				ks.add(k)
			}
		}
	case *Product:
		subsets, complements := indexSubsets(len(md))
		for i := range subsets {
			kl, okl := lookup(nn.Left, md.SubMultiset(subsets[i]))
			kr, okr := lookup(nn.Right, md.SubMultiset(complements[i]))
			if okl && okr {
				ks.add(kl)
				ks.add(kr)
			}
		}
	case *UnaryOp:
		var (
			argKind, argNonzero = lookup(nn.Arg, types.MultipleDeriv{})
			argVarying          = argNonzero && argKind == VaryingStorage
		)
		if md.Order() == 0 {
			if !nn.Func.NonzeroDeriv(0) {
				return
			}
			if argVarying {
				ks.add(VaryingStorage)
			} else {
				ks.add(ConstantStorage)
			}
			return
		}
		for _, blocks := range setPartitions(len(md)) {
			if !nn.Func.NonzeroDeriv(len(blocks)) {
				continue
			}
			var (
				part    kindSet
				present = true
			)
			for _, b := range blocks {
				k, ok := lookup(nn.Arg, md.SubMultiset(b))
				if !ok {
					present = false
					break
				}
				part.add(k)
			}
			if !present {
				continue
			}
			if argVarying {
				part.add(VaryingStorage)
			}
			ks.add(part.kind())
		}
	default:
		err = fmt.Errorf("no sparsity rule for node type %T", n)
	}
	return
}
