package types

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MaxDim is the largest spatial dimension a derivative token can address.
const MaxDim = 3

/*
DerivToken is a single differentiation operator packed into a uint64 so that tokens can be
compared, sorted and used as map keys directly.

	bit  63      : 0 = spatial derivative, 1 = functional derivative
	spatial      : bits 0-7 hold the coordinate direction
	functional   : bits 24-55 hold the function id, bits 0-23 hold the multi-index of the
	               jet variable, 8 bits per direction with direction 0 in the highest byte

Spatial tokens sort before functional tokens, functional tokens sort by function id and
then by multi-index.
*/
type DerivToken uint64

const (
	functionalBit  DerivToken = 1 << 63
	funcIDShift               = 24
	maxFuncID                 = 1<<32 - 1
	maxAlphaPerDir            = 1<<8 - 1
)

func NewSpatialToken(dir int) (t DerivToken, err error) {
	if dir < 0 || dir >= MaxDim {
		err = fmt.Errorf("spatial derivative direction %d is out of range [0,%d)", dir, MaxDim)
		return
	}
	t = DerivToken(dir)
	return
}

func MustSpatialToken(dir int) DerivToken {
	t, err := NewSpatialToken(dir)
	if err != nil {
		panic(err)
	}
	return t
}

// NewFunctionalToken is the derivative with respect to the jet variable D^alpha f, where f
// is the function with id funcID. A zero alpha is the function value itself.
func NewFunctionalToken(funcID int, alpha MultiIndex) (t DerivToken, err error) {
	if funcID < 0 || funcID > maxFuncID {
		err = fmt.Errorf("function id %d cannot be packed into a derivative token", funcID)
		return
	}
	var packed uint64
	for d := 0; d < MaxDim; d++ {
		if alpha[d] < 0 || alpha[d] > maxAlphaPerDir {
			err = fmt.Errorf("multi-index %s cannot be packed into a derivative token", alpha)
			return
		}
		packed |= uint64(alpha[d]) << (8 * uint(MaxDim-1-d))
	}
	t = functionalBit | DerivToken(uint64(funcID)<<funcIDShift) | DerivToken(packed)
	return
}

func MustFunctionalToken(funcID int, alpha MultiIndex) DerivToken {
	t, err := NewFunctionalToken(funcID, alpha)
	if err != nil {
		panic(err)
	}
	return t
}

func (t DerivToken) IsSpatial() bool    { return t&functionalBit == 0 }
func (t DerivToken) IsFunctional() bool { return t&functionalBit != 0 }

// Direction returns the coordinate direction of a spatial token, -1 for functional tokens.
func (t DerivToken) Direction() int {
	if t.IsFunctional() {
		return -1
	}
	return int(t & 0xff)
}

// FuncID returns the function id of a functional token, -1 for spatial tokens.
func (t DerivToken) FuncID() int {
	if t.IsSpatial() {
		return -1
	}
	return int((t &^ functionalBit) >> funcIDShift & maxFuncID)
}

// MultiIndex returns the jet multi-index of a functional token, or the unit multi-index
// of a spatial token.
func (t DerivToken) MultiIndex() (mi MultiIndex) {
	if t.IsSpatial() {
		return UnitMultiIndex(t.Direction())
	}
	for d := 0; d < MaxDim; d++ {
		mi[d] = int(uint64(t) >> (8 * uint(MaxDim-1-d)) & maxAlphaPerDir)
	}
	return
}

func (t DerivToken) String() string {
	if t.IsSpatial() {
		return fmt.Sprintf("D[x%d]", t.Direction())
	}
	var (
		name  = FunctionName(t.FuncID())
		alpha = t.MultiIndex()
	)
	if alpha.IsZero() {
		return "D[" + name + "]"
	}
	return fmt.Sprintf("D[D%s %s]", alpha, name)
}

var funcNames sync.Map

// RegisterFunctionName attaches a human readable name to a function id for diagnostics.
func RegisterFunctionName(funcID int, name string) {
	funcNames.Store(funcID, name)
}

func FunctionName(funcID int) string {
	if name, ok := funcNames.Load(funcID); ok {
		return name.(string)
	}
	return fmt.Sprintf("f#%d", funcID)
}

// MultiIndex counts spatial derivatives per coordinate direction.
type MultiIndex [MaxDim]int

func UnitMultiIndex(dir int) (mi MultiIndex) {
	if dir < 0 || dir >= MaxDim {
		panic(fmt.Errorf("unit multi-index direction %d is out of range [0,%d)", dir, MaxDim))
	}
	mi[dir] = 1
	return
}

func (mi MultiIndex) Order() (order int) {
	for _, n := range mi {
		order += n
	}
	return
}

func (mi MultiIndex) IsZero() bool { return mi == MultiIndex{} }

func (mi MultiIndex) Plus(other MultiIndex) (sum MultiIndex) {
	for d := range mi {
		sum[d] = mi[d] + other[d]
	}
	return
}

// Tokens expands the multi-index into its spatial derivative tokens.
func (mi MultiIndex) Tokens() (tokens []DerivToken) {
	for d, n := range mi {
		for i := 0; i < n; i++ {
			tokens = append(tokens, MustSpatialToken(d))
		}
	}
	return
}

func (mi MultiIndex) String() string {
	return fmt.Sprintf("(%d,%d,%d)", mi[0], mi[1], mi[2])
}

/*
MultipleDeriv is a multiset of derivative tokens describing one mixed partial derivative.
It is always kept in canonical (sorted) order and is treated as immutable: every method that
changes the contents returns a new value.
*/
type MultipleDeriv []DerivToken

func NewMultipleDeriv(tokens ...DerivToken) (md MultipleDeriv) {
	md = make(MultipleDeriv, len(tokens))
	copy(md, tokens)
	sort.Slice(md, func(i, j int) bool { return md[i] < md[j] })
	return
}

func (md MultipleDeriv) Order() int { return len(md) }

func (md MultipleDeriv) Put(t DerivToken) MultipleDeriv {
	return NewMultipleDeriv(append(md.copy(), t)...)
}

func (md MultipleDeriv) Union(other MultipleDeriv) MultipleDeriv {
	return NewMultipleDeriv(append(md.copy(), other...)...)
}

func (md MultipleDeriv) copy() MultipleDeriv {
	c := make(MultipleDeriv, len(md), len(md)+1)
	copy(c, md)
	return c
}

// SubMultiset picks the tokens at the given positions.
func (md MultipleDeriv) SubMultiset(positions []int) MultipleDeriv {
	var tokens = make([]DerivToken, len(positions))
	for i, p := range positions {
		tokens[i] = md[p]
	}
	return NewMultipleDeriv(tokens...)
}

func (md MultipleDeriv) FunctionalOrder() (order int) {
	for _, t := range md {
		if t.IsFunctional() {
			order++
		}
	}
	return
}

// IsSpatial reports whether this is a pure spatial derivative of order one or more.
func (md MultipleDeriv) IsSpatial() bool {
	return len(md) > 0 && md.FunctionalOrder() == 0
}

func (md MultipleDeriv) SpatialMultiIndex() (mi MultiIndex) {
	for _, t := range md {
		if t.IsSpatial() {
			mi[t.Direction()]++
		}
	}
	return
}

// Functional returns the functional tokens only.
func (md MultipleDeriv) Functional() (f MultipleDeriv) {
	f = MultipleDeriv{}
	for _, t := range md {
		if t.IsFunctional() {
			f = append(f, t)
		}
	}
	return
}

// Compare orders multisets by order first and lexicographically by token after that.
func (md MultipleDeriv) Compare(other MultipleDeriv) int {
	if len(md) != len(other) {
		if len(md) < len(other) {
			return -1
		}
		return 1
	}
	for i := range md {
		switch {
		case md[i] < other[i]:
			return -1
		case md[i] > other[i]:
			return 1
		}
	}
	return 0
}

func (md MultipleDeriv) Equal(other MultipleDeriv) bool { return md.Compare(other) == 0 }

// Key is a compact string usable as a map key.
func (md MultipleDeriv) Key() string {
	var buf = make([]byte, 8*len(md))
	for i, t := range md {
		binary.BigEndian.PutUint64(buf[8*i:], uint64(t))
	}
	return string(buf)
}

func (md MultipleDeriv) String() string {
	var parts = make([]string, len(md))
	for i, t := range md {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func SortMultipleDerivs(mds []MultipleDeriv) {
	sort.Slice(mds, func(i, j int) bool { return mds[i].Compare(mds[j]) < 0 })
}

// AllMultisets lists every multiset of the given tokens, with repetition, of order 0
// through maxOrder, in canonical order.
func AllMultisets(tokens []DerivToken, maxOrder int) (all []MultipleDeriv) {
	var (
		distinct = NewMultipleDeriv(tokens...)
		uniq     MultipleDeriv
		grow     func(start int, cur MultipleDeriv)
	)
	for i, t := range distinct {
		if i == 0 || t != distinct[i-1] {
			uniq = append(uniq, t)
		}
	}
	all = append(all, MultipleDeriv{})
	grow = func(start int, cur MultipleDeriv) {
		if len(cur) == maxOrder {
			return
		}
		for i := start; i < len(uniq); i++ {
			next := cur.Put(uniq[i])
			all = append(all, next)
			grow(i, next)
		}
	}
	grow(0, MultipleDeriv{})
	SortMultipleDerivs(all)
	return
}
