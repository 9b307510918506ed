package expr

import (
	"sync"

	"github.com/go-logr/logr"

	"github.com/notargets/weakform/types"
)

type cacheKey struct {
	id  int64
	ctx types.EvalContext
}

// Stats counts cache activity, it mirrors the prometheus counters for a single cache.
type Stats struct {
	SupersetBuilds  int
	EvaluatorBuilds int
	CacheHits       int
}

/*
Cache holds the sparsity supersets and evaluators of every (node, context) pair that has been
set up. Entries are built once and never changed afterwards, so a Cache can be shared by any
number of concurrent assembly workers.
*/
type Cache struct {
	mu         sync.Mutex
	requests   map[cacheKey]requestSet
	supersets  map[cacheKey]*SparsitySuperset
	evaluators map[cacheKey]*Evaluator
	stats      Stats
	log        logr.Logger
}

func NewCache(log logr.Logger) *Cache {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Cache{
		requests:   make(map[cacheKey]requestSet),
		supersets:  make(map[cacheKey]*SparsitySuperset),
		evaluators: make(map[cacheKey]*Evaluator),
		log:        log.WithName("expr"),
	}
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// requestSet is the set of derivatives some parent needs from a node, keyed by MultipleDeriv.Key.
type requestSet map[string]types.MultipleDeriv

func (rs requestSet) add(md types.MultipleDeriv) { rs[md.Key()] = md }

func (rs requestSet) sorted() (mds []types.MultipleDeriv) {
	mds = make([]types.MultipleDeriv, 0, len(rs))
	for _, md := range rs {
		mds = append(mds, md)
	}
	types.SortMultipleDerivs(mds)
	return
}

/*
Setup prepares root for evaluation under ctx. The root is asked for every multiset of the
variation tokens of order 0 through ctx.MaxOrder. The requests are pushed down the tree in
topological order, each node translating its own requests into requests on its children,
and the supersets are then classified bottom up.

Repeating a Setup is a no-op. A Setup that needs derivatives a node was not classified for
under ctx is an internal error, as the node's superset is already in use.
*/
func (c *Cache) Setup(root Expr, ctx types.EvalContext, variations []types.DerivToken) (err error) {
	if err = ctx.Validate(); err != nil {
		return
	}
	var (
		order = PostOrder(root)
		reqs  = make(map[int64]requestSet, len(order))
	)
	get := func(e Expr) requestSet {
		rs, ok := reqs[e.ID()]
		if !ok {
			rs = make(requestSet)
			reqs[e.ID()] = rs
		}
		return rs
	}
	for _, md := range types.AllMultisets(variations, ctx.MaxOrder) {
		get(root).add(md)
	}
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		for _, md := range get(n) {
			propagate(n, md, get)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// new supersets are staged and only committed once every node has classified
	var staged = make(map[cacheKey]*SparsitySuperset)
	supersetOf := func(e Expr) *SparsitySuperset {
		key := cacheKey{e.ID(), ctx}
		if ss, ok := staged[key]; ok {
			return ss
		}
		return c.supersets[key]
	}
	for _, n := range order {
		var (
			key = cacheKey{n.ID(), ctx}
			rs  = reqs[n.ID()]
		)
		for _, md := range rs {
			if md.FunctionalOrder() > ctx.MaxOrder {
				return internalErrorf(n, md, nil,
					"functional order exceeds the maximum order %d of %s", ctx.MaxOrder, ctx)
			}
		}
		if prev, ok := c.requests[key]; ok {
			for k, md := range rs {
				if _, found := prev[k]; !found {
					return internalErrorf(n, md, c.supersets[key],
						"derivative requested after the node was classified under %s", ctx)
				}
			}
			continue
		}
		var ss *SparsitySuperset
		if ss, err = classify(n, rs.sorted(), supersetOf); err != nil {
			return
		}
		staged[key] = ss
	}
	for _, n := range order {
		var key = cacheKey{n.ID(), ctx}
		ss, ok := staged[key]
		if !ok {
			continue
		}
		c.requests[key] = reqs[n.ID()]
		c.supersets[key] = ss
		c.stats.SupersetBuilds++
		supersetBuilds.Inc()
		if c.log.V(2).Enabled() {
			c.log.V(2).Info("classified", "node", n.String(), "id", n.ID(),
				"context", ctx.String(), "superset", ss.String())
		}
	}
	return
}

// propagate translates one request on n into requests on its children.
func propagate(n Expr, md types.MultipleDeriv, get func(Expr) requestSet) {
	switch nn := n.(type) {
	case *Sum:
		for _, t := range nn.Terms {
			get(t).add(md)
		}
	case *Product:
		subsets, complements := indexSubsets(len(md))
		for i := range subsets {
			get(nn.Left).add(md.SubMultiset(subsets[i]))
			get(nn.Right).add(md.SubMultiset(complements[i]))
		}
	case *UnaryOp:
		subsets, _ := indexSubsets(len(md))
		for _, s := range subsets {
			get(nn.Arg).add(md.SubMultiset(s))
		}
	case *DiffOp:
		get(nn.Arg).add(md.Union(nn.Alpha.Tokens()))
	}
}

// Classify returns the superset of node under ctx, which must have been set up.
func (c *Cache) Classify(node Expr, ctx types.EvalContext) (ss *SparsitySuperset, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supersetLocked(node, ctx)
}

func (c *Cache) supersetLocked(node Expr, ctx types.EvalContext) (ss *SparsitySuperset, err error) {
	var ok bool
	if ss, ok = c.supersets[cacheKey{node.ID(), ctx}]; !ok {
		err = internalErrorf(node, nil, nil, "no sparsity superset under %s, Setup was not run", ctx)
		return
	}
	c.stats.CacheHits++
	cacheHits.Inc()
	return
}

// Evaluator returns the evaluator of node under ctx, building it and its children on first use.
func (c *Cache) Evaluator(node Expr, ctx types.EvalContext) (ev *Evaluator, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluatorLocked(node, ctx)
}

func (c *Cache) evaluatorLocked(node Expr, ctx types.EvalContext) (ev *Evaluator, err error) {
	var (
		key = cacheKey{node.ID(), ctx}
		ok  bool
	)
	if ev, ok = c.evaluators[key]; ok {
		c.stats.CacheHits++
		cacheHits.Inc()
		return
	}
	var (
		ss       *SparsitySuperset
		children []*Evaluator
	)
	if ss, err = c.supersetLocked(node, ctx); err != nil {
		return
	}
	for _, child := range node.Children() {
		var cev *Evaluator
		if cev, err = c.evaluatorLocked(child, ctx); err != nil {
			return
		}
		children = append(children, cev)
	}
	if ev, err = newEvaluator(node, ctx, ss, children, c.log); err != nil {
		return
	}
	c.evaluators[key] = ev
	c.stats.EvaluatorBuilds++
	evaluatorBuilds.Inc()
	return
}
