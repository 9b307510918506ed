package expr

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/notargets/weakform/types"
)

var (
	nodeCounter int64
	funcCounter int64
)

func nextNodeID() int64 { return atomic.AddInt64(&nodeCounter, 1) }

/*
Expr is a node of a weak form expression tree. Nodes are immutable once built and may be
shared between trees; the id is process unique and is what the caches key on.
*/
type Expr interface {
	ID() int64
	Children() []Expr
	String() string
}

type node struct {
	id int64
}

func (n node) ID() int64 { return n.id }

type Constant struct {
	node
	Value float64
}

func NewConstant(val float64) *Constant {
	return &Constant{node: node{nextNodeID()}, Value: val}
}

func (c *Constant) Children() []Expr { return nil }
func (c *Constant) String() string   { return fmt.Sprintf("%g", c.Value) }

// IsZero reports whether e is the literal constant zero.
func IsZero(e Expr) bool {
	c, ok := e.(*Constant)
	return ok && c.Value == 0
}

func isOne(e Expr) bool {
	c, ok := e.(*Constant)
	return ok && c.Value == 1
}

// Coordinate is the physical coordinate x_Dir.
type Coordinate struct {
	node
	Dir int
}

func NewCoordinate(dir int) (c *Coordinate, err error) {
	if dir < 0 || dir >= types.MaxDim {
		err = fmt.Errorf("coordinate direction %d is out of range [0,%d)", dir, types.MaxDim)
		return
	}
	c = &Coordinate{node: node{nextNodeID()}, Dir: dir}
	return
}

func MustCoordinate(dir int) *Coordinate {
	c, err := NewCoordinate(dir)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Coordinate) Children() []Expr { return nil }
func (c *Coordinate) String() string   { return fmt.Sprintf("x%d", c.Dir) }

// CellGeometry is a per cell geometric scalar such as the cell diameter.
type CellGeometry struct {
	node
	Kind types.GeometryKind
}

func NewCellDiameter() *CellGeometry {
	return &CellGeometry{node: node{nextNodeID()}, Kind: types.CellDiameter}
}

func NewCellVolume() *CellGeometry {
	return &CellGeometry{node: node{nextNodeID()}, Kind: types.CellVolume}
}

func (g *CellGeometry) Children() []Expr { return nil }
func (g *CellGeometry) String() string   { return g.Kind.String() }

// DiscreteFunction is a known field sampled by the mediator, it carries no variations.
type DiscreteFunction struct {
	node
	Name string
}

func NewDiscreteFunction(name string) *DiscreteFunction {
	return &DiscreteFunction{node: node{nextNodeID()}, Name: name}
}

func (d *DiscreteFunction) Children() []Expr { return nil }
func (d *DiscreteFunction) String() string   { return d.Name }

/*
FuncElement is a symbolic unknown, test or parameter function. Its functional derivatives are
taken with respect to the jet variables D^alpha u, see Variation. EvalPoint, when set, is the
discrete function the value is linearized about; without it the function evaluates to zero.
*/
type FuncElement struct {
	node
	Name      string
	FuncID    int
	Role      types.FuncRole
	EvalPoint *DiscreteFunction
}

func newFuncElement(name string, role types.FuncRole, evalPoint *DiscreteFunction) *FuncElement {
	fid := int(atomic.AddInt64(&funcCounter, 1))
	types.RegisterFunctionName(fid, name)
	return &FuncElement{
		node:      node{nextNodeID()},
		Name:      name,
		FuncID:    fid,
		Role:      role,
		EvalPoint: evalPoint,
	}
}

func NewUnknownFunction(name string, evalPoint *DiscreteFunction) *FuncElement {
	return newFuncElement(name, types.UnknownFunc, evalPoint)
}

func NewTestFunction(name string) *FuncElement {
	return newFuncElement(name, types.TestFunc, nil)
}

func NewParameter(name string, evalPoint *DiscreteFunction) *FuncElement {
	return newFuncElement(name, types.ParameterFunc, evalPoint)
}

// Variation is the derivative token with respect to D^alpha of this function.
func (f *FuncElement) Variation(alpha types.MultiIndex) types.DerivToken {
	return types.MustFunctionalToken(f.FuncID, alpha)
}

func (f *FuncElement) Children() []Expr { return nil }
func (f *FuncElement) String() string   { return f.Name }

// DiffOp is D^Alpha applied to a function leaf. Diff pushes derivatives down to these.
type DiffOp struct {
	node
	Alpha types.MultiIndex
	Arg   Expr
}

func (d *DiffOp) Children() []Expr { return []Expr{d.Arg} }
func (d *DiffOp) String() string   { return fmt.Sprintf("D%s[%s]", d.Alpha, d.Arg) }

// Sum is the linear combination sum_i Coeffs[i]*Terms[i].
type Sum struct {
	node
	Terms  []Expr
	Coeffs []float64
}

func (s *Sum) Children() []Expr { return s.Terms }

func (s *Sum) String() string {
	var b strings.Builder
	b.WriteString("(")
	for i, t := range s.Terms {
		c := s.Coeffs[i]
		switch {
		case i == 0 && c == 1:
		case i == 0 && c == -1:
			b.WriteString("-")
		case c == 1:
			b.WriteString(" + ")
		case c == -1:
			b.WriteString(" - ")
		case i == 0:
			fmt.Fprintf(&b, "%g*", c)
		default:
			fmt.Fprintf(&b, " + %g*", c)
		}
		b.WriteString(t.String())
	}
	b.WriteString(")")
	return b.String()
}

type Product struct {
	node
	Left, Right Expr
}

func (p *Product) Children() []Expr { return []Expr{p.Left, p.Right} }
func (p *Product) String() string   { return p.Left.String() + "*" + p.Right.String() }

// UnaryOp is the composition Func(Arg).
type UnaryOp struct {
	node
	Func Functor
	Arg  Expr
}

func (u *UnaryOp) Children() []Expr { return []Expr{u.Arg} }
func (u *UnaryOp) String() string   { return fmt.Sprintf("%s(%s)", u.Func.Name(), u.Arg) }

func Add(terms ...Expr) Expr {
	var coeffs = make([]float64, len(terms))
	for i := range coeffs {
		coeffs[i] = 1
	}
	return LinearCombination(terms, coeffs)
}

func Sub(a, b Expr) Expr {
	return LinearCombination([]Expr{a, b}, []float64{1, -1})
}

func Neg(a Expr) Expr { return Scale(-1, a) }

func Scale(c float64, a Expr) Expr {
	return LinearCombination([]Expr{a}, []float64{c})
}

/*
LinearCombination folds constants and nested sums and drops zero terms. It returns a single
term unchanged when nothing is left to combine.
*/
func LinearCombination(terms []Expr, coeffs []float64) Expr {
	var (
		s        = &Sum{}
		constant float64
	)
	if len(terms) != len(coeffs) {
		panic(fmt.Errorf("%d terms with %d coefficients", len(terms), len(coeffs)))
	}
	for i, t := range terms {
		c := coeffs[i]
		if c == 0 {
			continue
		}
		switch tt := t.(type) {
		case *Constant:
			constant += c * tt.Value
		case *Sum:
			for j, st := range tt.Terms {
				if cc, ok := st.(*Constant); ok {
					constant += c * tt.Coeffs[j] * cc.Value
					continue
				}
				s.Terms = append(s.Terms, st)
				s.Coeffs = append(s.Coeffs, c*tt.Coeffs[j])
			}
		default:
			s.Terms = append(s.Terms, t)
			s.Coeffs = append(s.Coeffs, c)
		}
	}
	if constant != 0 {
		s.Terms = append(s.Terms, NewConstant(constant))
		s.Coeffs = append(s.Coeffs, 1)
	}
	switch {
	case len(s.Terms) == 0:
		return NewConstant(0)
	case len(s.Terms) == 1 && s.Coeffs[0] == 1:
		return s.Terms[0]
	}
	s.node = node{nextNodeID()}
	return s
}

func Mul(factors ...Expr) (e Expr) {
	if len(factors) == 0 {
		return NewConstant(1)
	}
	e = factors[0]
	for _, f := range factors[1:] {
		e = mul2(e, f)
	}
	return
}

func mul2(a, b Expr) Expr {
	switch {
	case IsZero(a) || IsZero(b):
		return NewConstant(0)
	case isOne(a):
		return b
	case isOne(b):
		return a
	}
	ca, aConst := a.(*Constant)
	cb, bConst := b.(*Constant)
	switch {
	case aConst && bConst:
		return NewConstant(ca.Value * cb.Value)
	case aConst:
		return Scale(ca.Value, b)
	case bConst:
		return Scale(cb.Value, a)
	}
	return &Product{node: node{nextNodeID()}, Left: a, Right: b}
}

func Div(a, b Expr) Expr {
	if cb, ok := b.(*Constant); ok && cb.Value != 0 {
		return Scale(1/cb.Value, a)
	}
	return Mul(a, Apply(NewReciprocal(), b))
}

// Apply composes f with arg, constant arguments are folded.
func Apply(f Functor, arg Expr) Expr {
	if c, ok := arg.(*Constant); ok {
		var d [1]float64
		f.Derivs(c.Value, 0, d[:])
		return NewConstant(d[0])
	}
	if !f.NonzeroDeriv(0) {
		return NewConstant(0)
	}
	return &UnaryOp{node: node{nextNodeID()}, Func: f, Arg: arg}
}

func Pow(a Expr, p float64) Expr {
	switch p {
	case 0:
		return NewConstant(1)
	case 1:
		return a
	}
	return Apply(NewPower(p), a)
}

func Sqrt(a Expr) Expr { return Apply(NewSqrt(), a) }
func Exp(a Expr) Expr  { return Apply(NewExp(), a) }
func Log(a Expr) Expr  { return Apply(NewLog(), a) }
func Sin(a Expr) Expr  { return Apply(NewSin(), a) }
func Cos(a Expr) Expr  { return Apply(NewCos(), a) }
func Tanh(a Expr) Expr { return Apply(NewTanh(), a) }

/*
Diff is the spatial derivative of e in direction dir. It distributes over sums, products
(product rule) and compositions (chain rule through a shifted functor), so that the only
derivative nodes left in the tree are DiffOp nodes over function leaves.
*/
func Diff(dir int, e Expr) (d Expr, err error) {
	if dir < 0 || dir >= types.MaxDim {
		err = fmt.Errorf("derivative direction %d is out of range [0,%d)", dir, types.MaxDim)
		return
	}
	d = diff(dir, e)
	return
}

func MustDiff(dir int, e Expr) Expr {
	d, err := Diff(dir, e)
	if err != nil {
		panic(err)
	}
	return d
}

func diff(dir int, e Expr) Expr {
	switch n := e.(type) {
	case *Constant, *CellGeometry:
		return NewConstant(0)
	case *Coordinate:
		if n.Dir == dir {
			return NewConstant(1)
		}
		return NewConstant(0)
	case *DiscreteFunction, *FuncElement:
		return &DiffOp{node: node{nextNodeID()}, Alpha: types.UnitMultiIndex(dir), Arg: n}
	case *DiffOp:
		return &DiffOp{node: node{nextNodeID()}, Alpha: n.Alpha.Plus(types.UnitMultiIndex(dir)), Arg: n.Arg}
	case *Sum:
		var terms = make([]Expr, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = diff(dir, t)
		}
		return LinearCombination(terms, n.Coeffs)
	case *Product:
		return Add(Mul(diff(dir, n.Left), n.Right), Mul(n.Left, diff(dir, n.Right)))
	case *UnaryOp:
		return Mul(Apply(Shift(n.Func, 1), n.Arg), diff(dir, n.Arg))
	}
	panic(fmt.Errorf("no derivative rule for %T", e))
}

func Grad(e Expr, dim int) (g []Expr) {
	g = make([]Expr, dim)
	for d := 0; d < dim; d++ {
		g[d] = MustDiff(d, e)
	}
	return
}

func Dot(a, b []Expr) Expr {
	if len(a) != len(b) {
		panic(fmt.Errorf("dot product of lengths %d and %d", len(a), len(b)))
	}
	var terms = make([]Expr, len(a))
	for i := range a {
		terms[i] = Mul(a[i], b[i])
	}
	return Add(terms...)
}

// PostOrder lists the distinct nodes under root with every child ahead of its parents.
func PostOrder(root Expr) (order []Expr) {
	var (
		seen  = make(map[int64]bool)
		visit func(e Expr)
	)
	visit = func(e Expr) {
		if seen[e.ID()] {
			return
		}
		seen[e.ID()] = true
		for _, c := range e.Children() {
			visit(c)
		}
		order = append(order, e)
	}
	visit(root)
	return
}
