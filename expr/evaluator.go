package expr

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/weakform/evalmgr"
	"github.com/notargets/weakform/types"
)

// factor points at entry index of child evaluator child.
type factor struct {
	child int
	index int
	kind  StorageKind
}

// term is coef * f^(order)(g) * prod(factors). The functor part only applies to unary nodes.
type term struct {
	coef    float64
	order   int
	factors []factor
}

// leafStep produces one entry of a leaf node, either a closed form constant or a mediator call.
type leafStep struct {
	value float64
	prim  evalmgr.Primitive
	md    types.MultipleDeriv
}

/*
Evaluator turns the sparsity superset of one node under one context into numbers. Leaf
evaluators sample the mediator or use closed forms, composite evaluators run a recipe per
entry over the results of their children. Evaluators are immutable after construction.
*/
type Evaluator struct {
	node     Expr
	ctx      types.EvalContext
	superset *SparsitySuperset
	children []*Evaluator
	log      logr.Logger

	isLeaf bool
	leaves []leafStep

	recipes [][]term
	// unary nodes only
	functor    Functor
	argIndex   int
	argVarying bool
	maxOrder   int
}

func (ev *Evaluator) Node() Expr                  { return ev.node }
func (ev *Evaluator) Context() types.EvalContext  { return ev.ctx }
func (ev *Evaluator) Superset() *SparsitySuperset { return ev.superset }

// IndexOf locates the result slot of md, asking for a derivative outside the superset is an internal error.
func (ev *Evaluator) IndexOf(md types.MultipleDeriv) (i int, err error) {
	var ok bool
	if i, ok = ev.superset.IndexOf(md); !ok {
		err = internalErrorf(ev.node, md, ev.superset, "no such derivative in the sparsity superset")
	}
	return
}

func newEvaluator(n Expr, ctx types.EvalContext, ss *SparsitySuperset, children []*Evaluator,
	log logr.Logger) (ev *Evaluator, err error) {
	ev = &Evaluator{
		node:     n,
		ctx:      ctx,
		superset: ss,
		children: children,
		log:      log.WithValues("node", n.ID()),
		argIndex: -1,
	}
	switch nn := n.(type) {
	case *Constant, *Coordinate, *CellGeometry, *DiscreteFunction, *FuncElement:
		ev.isLeaf = true
		err = ev.compileLeaf()
	case *DiffOp:
		err = ev.compile(func(md types.MultipleDeriv) (terms []term, err error) {
			var f factor
			if f, err = ev.factorOf(0, md.Union(nn.Alpha.Tokens())); err != nil {
				return
			}
			terms = []term{{coef: 1, factors: []factor{f}}}
			return
		})
	case *Sum:
		err = ev.compile(func(md types.MultipleDeriv) (terms []term, err error) {
			for i := range nn.Terms {
				if f, ok := ev.lookupFactor(i, md); ok {
					terms = append(terms, term{coef: nn.Coeffs[i], factors: []factor{f}})
				}
			}
			return
		})
	case *Product:
		err = ev.compile(ev.productRecipe)
	case *UnaryOp:
		ev.functor = nn.Func
		if i, ok := children[0].superset.IndexOf(types.MultipleDeriv{}); ok {
			ev.argIndex = i
			ev.argVarying = children[0].superset.Entry(i).Kind == VaryingStorage
		}
		err = ev.compile(ev.unaryRecipe)
	default:
		err = fmt.Errorf("no evaluator for node type %T", n)
	}
	if err != nil {
		ev = nil
	}
	return
}

func (ev *Evaluator) compileLeaf() (err error) {
	ev.leaves = make([]leafStep, ev.superset.NumEntries())
	for i := range ev.leaves {
		var (
			e  = ev.superset.Entry(i)
			md = e.Deriv
			ok bool
		)
		switch nn := ev.node.(type) {
		case *Constant:
			ok = md.Order() == 0 && e.Kind == ConstantStorage
			ev.leaves[i].value = nn.Value
		case *Coordinate:
			switch {
			case md.Order() == 0:
				ok = e.Kind == VaryingStorage
				ev.leaves[i].prim = evalmgr.CoordinateOf(nn.Dir)
			case md.Order() == 1:
				ok = md.IsSpatial() && md[0].Direction() == nn.Dir && e.Kind == ConstantStorage
				ev.leaves[i].value = 1
			}
		case *CellGeometry:
			ok = md.Order() == 0 && e.Kind == VaryingStorage
			ev.leaves[i].prim = evalmgr.GeometryOf(nn.Kind)
		case *DiscreteFunction:
			ok = md.FunctionalOrder() == 0 && e.Kind == VaryingStorage
			ev.leaves[i].prim = evalmgr.DiscreteFunctionOf(nn.Name)
		case *FuncElement:
			switch md.FunctionalOrder() {
			case 0:
				ok = nn.EvalPoint != nil && e.Kind == VaryingStorage
				if ok {
					ev.leaves[i].prim = evalmgr.DiscreteFunctionOf(nn.EvalPoint.Name)
				}
			case 1:
				tok := md.Functional()[0]
				ok = e.Kind == ConstantStorage && tok.FuncID() == nn.FuncID &&
					tok.MultiIndex() == md.SpatialMultiIndex()
				ev.leaves[i].value = 1
			}
		}
		if !ok {
			return internalErrorf(ev.node, md, ev.superset,
				"entry %d is not permitted by the calculus of this node", i)
		}
		ev.leaves[i].md = md
	}
	return
}

// compile builds the recipe of every entry and checks it against the classified storage kind.
func (ev *Evaluator) compile(recipe func(md types.MultipleDeriv) ([]term, error)) (err error) {
	ev.recipes = make([][]term, ev.superset.NumEntries())
	for i := range ev.recipes {
		var e = ev.superset.Entry(i)
		if ev.recipes[i], err = recipe(e.Deriv); err != nil {
			return
		}
		if len(ev.recipes[i]) == 0 {
			return internalErrorf(ev.node, e.Deriv, ev.superset, "no contributing terms for entry %d", i)
		}
		var varying bool
		for _, t := range ev.recipes[i] {
			if ev.functor != nil {
				ev.maxOrder = max(ev.maxOrder, t.order)
				varying = varying || ev.argVarying
			}
			for _, f := range t.factors {
				varying = varying || f.kind == VaryingStorage
			}
		}
		if varying != (e.Kind == VaryingStorage) {
			return internalErrorf(ev.node, e.Deriv, ev.superset,
				"recipe for entry %d disagrees with its storage kind %s", i, e.Kind)
		}
	}
	return
}

func (ev *Evaluator) lookupFactor(child int, md types.MultipleDeriv) (f factor, ok bool) {
	var css = ev.children[child].superset
	if f.index, ok = css.IndexOf(md); ok {
		f.child = child
		f.kind = css.Entry(f.index).Kind
	}
	return
}

// factorOf is lookupFactor for derivatives the child must supply.
func (ev *Evaluator) factorOf(child int, md types.MultipleDeriv) (f factor, err error) {
	var ok bool
	if f, ok = ev.lookupFactor(child, md); !ok {
		err = internalErrorf(ev.children[child].node, md, ev.children[child].superset,
			"derivative needed by parent %s (node %d) is missing", ev.node, ev.node.ID())
	}
	return
}

// merge adds t to terms, folding it into an existing term with the same factors.
func merge(terms []term, index map[string]int, t term) []term {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", t.order)
	for _, f := range t.factors {
		fmt.Fprintf(&b, "|%d.%d", f.child, f.index)
	}
	key := b.String()
	if i, ok := index[key]; ok {
		terms[i].coef += t.coef
		return terms
	}
	index[key] = len(terms)
	return append(terms, t)
}

// productRecipe is the Leibniz rule over the positions of md.
func (ev *Evaluator) productRecipe(md types.MultipleDeriv) (terms []term, err error) {
	var (
		index                 = make(map[string]int)
		subsets, complements = indexSubsets(len(md))
	)
	for i := range subsets {
		fl, okl := ev.lookupFactor(0, md.SubMultiset(subsets[i]))
		fr, okr := ev.lookupFactor(1, md.SubMultiset(complements[i]))
		if okl && okr {
			terms = merge(terms, index, term{coef: 1, factors: []factor{fl, fr}})
		}
	}
	return
}

// unaryRecipe is the Faa di Bruno formula over the set partitions of the positions of md.
func (ev *Evaluator) unaryRecipe(md types.MultipleDeriv) (terms []term, err error) {
	if md.Order() == 0 {
		terms = []term{{coef: 1}}
		return
	}
	var index = make(map[string]int)
	for _, blocks := range setPartitions(len(md)) {
		if !ev.functor.NonzeroDeriv(len(blocks)) {
			continue
		}
		var (
			fs      = make([]factor, 0, len(blocks))
			present = true
		)
		for _, b := range blocks {
			f, ok := ev.lookupFactor(0, md.SubMultiset(b))
			if !ok {
				present = false
				break
			}
			fs = append(fs, f)
		}
		if !present {
			continue
		}
		sortFactors(fs)
		terms = merge(terms, index, term{coef: 1, order: len(blocks), factors: fs})
	}
	return
}

func sortFactors(fs []factor) {
	for i := 1; i < len(fs); i++ {
		for j := i; j > 0 && fs[j].index < fs[j-1].index; j-- {
			fs[j], fs[j-1] = fs[j-1], fs[j]
		}
	}
}

type childResult struct {
	consts []float64
	vecs   []*evalmgr.Buffer
}

// evalPass memoises node results within one Evaluate call, so shared subtrees run once.
// held owns one reference to every memoised buffer.
type evalPass struct {
	mgr     *evalmgr.ExecutionManager
	held    *evalmgr.Scope
	results map[int64]childResult
}

func (p *evalPass) child(ev *Evaluator) (r childResult, err error) {
	var ok bool
	if r, ok = p.results[ev.node.ID()]; ok {
		return
	}
	var (
		cc []float64
		cv []*evalmgr.Buffer
	)
	if cc, cv, err = ev.evaluate(p); err != nil {
		return
	}
	p.held.Adopt(cv...)
	r = childResult{consts: cc, vecs: cv}
	p.results[ev.node.ID()] = r
	return
}

// jet holds f^(k)(g) for k = 0..maxOrder, per point when g varies.
type jet struct {
	scalar []float64
	points [][]float64
}

/*
Evaluate runs the evaluator over the cell batch bound to mgr, which must be bound to the
context the evaluator was built for. Both results are aligned with the superset: slot i of
consts is set for constant entries, slot i of vecs for varying ones. The caller owns one
reference to every returned buffer. On error no buffer stays acquired.
*/
func (ev *Evaluator) Evaluate(mgr *evalmgr.ExecutionManager) (consts []float64, vecs []*evalmgr.Buffer, err error) {
	if mgr.Region() != ev.ctx {
		return nil, nil, internalErrorf(ev.node, nil, ev.superset,
			"evaluator built for %s run under %s", ev.ctx, mgr.Region())
	}
	var pass = &evalPass{
		mgr:     mgr,
		held:    mgr.NewScope(),
		results: make(map[int64]childResult),
	}
	defer pass.held.Release()
	return ev.evaluate(pass)
}

func (ev *Evaluator) evaluate(pass *evalPass) (consts []float64, vecs []*evalmgr.Buffer, err error) {
	var (
		mgr   = pass.mgr
		scope = mgr.NewScope()
		n     = ev.superset.NumEntries()
	)
	defer scope.Release()
	consts = make([]float64, n)
	vecs = make([]*evalmgr.Buffer, n)
	if ev.isLeaf {
		err = ev.evaluateLeaf(mgr, scope, consts, vecs)
	} else {
		err = ev.evaluateComposite(pass, scope, consts, vecs)
	}
	if err != nil {
		return nil, nil, err
	}
	for _, v := range vecs {
		if v != nil {
			scope.Keep(v)
		}
	}
	if ev.log.V(4).Enabled() {
		var b strings.Builder
		ev.superset.Print(&b, consts, vecs)
		ev.log.V(4).Info("evaluated", "expr", ev.node.String(), "results", b.String())
	}
	return
}

func (ev *Evaluator) evaluateLeaf(mgr *evalmgr.ExecutionManager, scope *evalmgr.Scope,
	consts []float64, vecs []*evalmgr.Buffer) (err error) {
	for i, step := range ev.leaves {
		if ev.superset.Entry(i).Kind == ConstantStorage {
			consts[i] = step.value
			continue
		}
		var buf *evalmgr.Buffer
		if buf, err = scope.Acquire(); err != nil {
			return
		}
		if err = mgr.EvaluateLeaf(step.prim, step.md, buf); err != nil {
			return
		}
		vecs[i] = buf
	}
	return
}

func (ev *Evaluator) evaluateComposite(pass *evalPass, scope *evalmgr.Scope,
	consts []float64, vecs []*evalmgr.Buffer) (err error) {
	var (
		results = make([]childResult, len(ev.children))
		fj      *jet
		scratch *evalmgr.Buffer
	)
	for i, child := range ev.children {
		if results[i], err = pass.child(child); err != nil {
			return
		}
	}
	if ev.functor != nil {
		if fj, err = ev.functorJet(scope, results[0]); err != nil {
			return
		}
	}
	for i, terms := range ev.recipes {
		if ev.superset.Entry(i).Kind == ConstantStorage {
			consts[i] = ev.scalarValue(terms, results, fj)
			continue
		}
		// a plain copy of a child entry shares the child's buffer
		if fj == nil && len(terms) == 1 && terms[0].coef == 1 && len(terms[0].factors) == 1 {
			f := terms[0].factors[0]
			vecs[i] = results[f.child].vecs[f.index].Retain()
			scope.Adopt(vecs[i])
			continue
		}
		var buf *evalmgr.Buffer
		if buf, err = scope.Acquire(); err != nil {
			return
		}
		buf.Fill(0)
		for _, t := range terms {
			if ev.needsScratch(t, fj) && scratch == nil {
				if scratch, err = scope.Acquire(); err != nil {
					return
				}
			}
			ev.accumulate(buf.Data(), scratch, t, results, fj)
		}
		vecs[i] = buf
	}
	return
}

func (ev *Evaluator) functorJet(scope *evalmgr.Scope, arg childResult) (fj *jet, err error) {
	fj = &jet{scalar: make([]float64, ev.maxOrder+1)}
	if !ev.argVarying {
		var g0 float64
		if ev.argIndex >= 0 {
			g0 = arg.consts[ev.argIndex]
		}
		ev.functor.Derivs(g0, ev.maxOrder, fj.scalar)
		return
	}
	var g = arg.vecs[ev.argIndex].Data()
	fj.points = make([][]float64, ev.maxOrder+1)
	for k := range fj.points {
		var buf *evalmgr.Buffer
		if buf, err = scope.Acquire(); err != nil {
			return
		}
		fj.points[k] = buf.Data()
	}
	for q, x := range g {
		ev.functor.Derivs(x, ev.maxOrder, fj.scalar)
		for k := range fj.points {
			fj.points[k][q] = fj.scalar[k]
		}
	}
	return
}

func (ev *Evaluator) scalarValue(terms []term, results []childResult, fj *jet) (val float64) {
	for _, t := range terms {
		c := t.coef
		if fj != nil {
			c *= fj.scalar[t.order]
		}
		for _, f := range t.factors {
			c *= results[f.child].consts[f.index]
		}
		val += c
	}
	return
}

func (ev *Evaluator) vectorFactors(t term, results []childResult, fj *jet) (c float64, vs [][]float64) {
	c = t.coef
	if fj != nil {
		if fj.points != nil {
			vs = append(vs, fj.points[t.order])
		} else {
			c *= fj.scalar[t.order]
		}
	}
	for _, f := range t.factors {
		if f.kind == ConstantStorage {
			c *= results[f.child].consts[f.index]
		} else {
			vs = append(vs, results[f.child].vecs[f.index].Data())
		}
	}
	return
}

func (ev *Evaluator) needsScratch(t term, fj *jet) bool {
	var n int
	if fj != nil && fj.points != nil {
		n++
	}
	for _, f := range t.factors {
		if f.kind == VaryingStorage {
			n++
		}
	}
	return n > 1
}

// accumulate adds the value of term t to out.
func (ev *Evaluator) accumulate(out []float64, scratch *evalmgr.Buffer, t term, results []childResult, fj *jet) {
	c, vs := ev.vectorFactors(t, results, fj)
	switch len(vs) {
	case 0:
		floats.AddConst(c, out)
	case 1:
		floats.AddScaled(out, c, vs[0])
	default:
		tmp := scratch.Data()
		floats.ScaleTo(tmp, c, vs[0])
		for _, v := range vs[1:] {
			floats.Mul(tmp, v)
		}
		floats.Add(out, tmp)
	}
}
