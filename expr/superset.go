package expr

import (
	"fmt"
	"io"
	"strings"

	"github.com/notargets/weakform/evalmgr"
	"github.com/notargets/weakform/types"
)

type StorageKind uint8

const (
	ConstantStorage StorageKind = iota // one scalar for the whole batch
	VaryingStorage                     // one value per quadrature point
)

func (k StorageKind) String() string {
	switch k {
	case ConstantStorage:
		return "constant"
	case VaryingStorage:
		return "varying"
	}
	return fmt.Sprintf("StorageKind(%d)", k)
}

type Entry struct {
	Deriv   types.MultipleDeriv
	Spatial bool
	Kind    StorageKind
}

func (e Entry) String() string {
	return fmt.Sprintf("%s spatial=%t %s", e.Deriv, e.Spatial, e.Kind)
}

/*
SparsitySuperset lists the derivatives of one node, under one evaluation context, that can be
structurally nonzero. Entry i addresses slot i of both result arrays an evaluator returns.
Immutable after construction.
*/
type SparsitySuperset struct {
	entries  []Entry
	index    map[string]int
	numConst int
}

func newSparsitySuperset(entries []Entry) (ss *SparsitySuperset) {
	ss = &SparsitySuperset{
		entries: entries,
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		ss.index[e.Deriv.Key()] = i
		if e.Kind == ConstantStorage {
			ss.numConst++
		}
	}
	return
}

func (ss *SparsitySuperset) NumEntries() int  { return len(ss.entries) }
func (ss *SparsitySuperset) Entry(i int) Entry { return ss.entries[i] }
func (ss *SparsitySuperset) NumConstant() int  { return ss.numConst }
func (ss *SparsitySuperset) NumVarying() int   { return len(ss.entries) - ss.numConst }

// Entries returns a copy of the entry list.
func (ss *SparsitySuperset) Entries() []Entry {
	var out = make([]Entry, len(ss.entries))
	copy(out, ss.entries)
	return out
}

func (ss *SparsitySuperset) IndexOf(md types.MultipleDeriv) (i int, ok bool) {
	i, ok = ss.index[md.Key()]
	if !ok {
		i = -1
	}
	return
}

// MustIndexOf is IndexOf for callers that require the derivative to be present.
func (ss *SparsitySuperset) MustIndexOf(md types.MultipleDeriv) (i int, err error) {
	var ok bool
	if i, ok = ss.IndexOf(md); !ok {
		err = &InternalError{
			Node:     "superset lookup",
			Msg:      "derivative is not in the sparsity superset",
			Deriv:    md,
			Superset: ss,
		}
	}
	return
}

func (ss *SparsitySuperset) kindOf(md types.MultipleDeriv) (kind StorageKind, ok bool) {
	var i int
	if i, ok = ss.IndexOf(md); ok {
		kind = ss.entries[i].Kind
	}
	return
}

func (ss *SparsitySuperset) String() string {
	var b strings.Builder
	for i, e := range ss.entries {
		fmt.Fprintf(&b, "%4d: %s\n", i, e)
	}
	return b.String()
}

// Print writes the superset next to a set of evaluation results, either result slice may be nil.
func (ss *SparsitySuperset) Print(w io.Writer, consts []float64, vecs []*evalmgr.Buffer) {
	for i, e := range ss.entries {
		fmt.Fprintf(w, "%4d: %-40s %-8s", i, e.Deriv, e.Kind)
		switch {
		case e.Kind == ConstantStorage && i < len(consts):
			fmt.Fprintf(w, " %g", consts[i])
		case e.Kind == VaryingStorage && i < len(vecs) && vecs[i] != nil:
			fmt.Fprintf(w, " %v", vecs[i].Data())
		}
		fmt.Fprintln(w)
	}
}
