package assembly

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/weakform/evalmgr"
	"github.com/notargets/weakform/expr"
	"github.com/notargets/weakform/types"
	"github.com/notargets/weakform/utils"
)

// Batch is a cell batch as the driver sees it: a mediator plus the quadrature weights
// (including the Jacobian) and the owning cell of every point.
type Batch interface {
	evalmgr.Mediator
	Weights() []float64
	PointCells() []int
}

/*
Driver runs one assembly pass of Root over a list of cell batches. The evaluation plan is
built once in Cache, each worker owns an ExecutionManager and a contiguous range of batches.
*/
type Driver struct {
	Cache      *expr.Cache
	Root       expr.Expr
	Context    types.EvalContext
	Variations []types.DerivToken
	Workers    int
	MaxBuffers int
	Log        logr.Logger
}

type Result struct {
	PassID   uuid.UUID
	Superset *expr.SparsitySuperset
	// Integrals holds, per cell (row) and superset entry (column), the integral of that entry over the cell
	Integrals utils.DOK
	cells     utils.CSR
}

// Cell lists the superset entries with a nonzero integral over cell k, and their values.
func (r *Result) Cell(k int) (entries []int, vals []float64) { return r.cells.Row(k) }

// Totals integrates every superset entry over all cells.
func (r *Result) Totals() []float64 { return r.Integrals.ColumnSums() }

func (r *Result) Print(w io.Writer) {
	var totals = r.Totals()
	fmt.Fprintf(w, "pass %s, %d nonzero cell integrals\n", r.PassID, r.Integrals.NNZ())
	for i := 0; i < r.Superset.NumEntries(); i++ {
		e := r.Superset.Entry(i)
		fmt.Fprintf(w, "%4d: %-40s %-8s %16.8e\n", i, e.Deriv, e.Kind, totals[i])
	}
}

// Assemble integrates every superset entry of Root over every cell. Any error aborts the pass.
func (d *Driver) Assemble(ctx context.Context, batches []Batch, numCells int) (res *Result, err error) {
	var (
		passID = uuid.New()
		log    = d.Log
	)
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	log = log.WithName("assembly").WithValues("pass", passID.String())
	if d.Cache == nil {
		d.Cache = expr.NewCache(log)
	}
	if err = d.Cache.Setup(d.Root, d.Context, d.Variations); err != nil {
		return
	}
	var ev *expr.Evaluator
	if ev, err = d.Cache.Evaluator(d.Root, d.Context); err != nil {
		return
	}
	var (
		ss      = ev.Superset()
		table   = utils.NewDOK(numCells, ss.NumEntries())
		workers = d.Workers
		mu      sync.Mutex
	)
	if workers < 1 {
		workers = 1
	}
	if workers > len(batches) {
		workers = max(len(batches), 1)
	}
	log.V(1).Info("assembling", "batches", len(batches), "workers", workers, "entries", ss.NumEntries())

	var (
		pm      = utils.NewPartitionMap(workers, len(batches))
		g, gctx = errgroup.WithContext(ctx)
	)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() (err error) {
			var (
				kMin, kMax = pm.GetBucketRange(w)
				local      = utils.NewDOK(numCells, ss.NumEntries())
				mgr        = evalmgr.NewExecutionManager(evalmgr.Options{
					MaxBuffers: d.MaxBuffers,
					Log:        log.WithValues("worker", w),
				})
			)
			mgr.SetRegion(d.Context)
			for k := kMin; k < kMax; k++ {
				if err = gctx.Err(); err != nil {
					return
				}
				if err = integrateBatch(ev, mgr, batches[k], local, log.WithValues("batch", k)); err != nil {
					return fmt.Errorf("batch %d: %w", k, err)
				}
				batchesEvaluated.Inc()
			}
			mu.Lock()
			local.M.DoNonZero(func(i, j int, v float64) {
				table.Accumulate(i, j, v)
			})
			mu.Unlock()
			log.V(1).Info("worker finished", "worker", w, "batches", pm.GetBucketDimension(w),
				"buffersAllocated", mgr.Allocated())
			return
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	table.SetReadOnly("integrals")
	passesCompleted.Inc()
	res = &Result{PassID: passID, Superset: ss, Integrals: table, cells: table.ToCSR()}
	return
}

// integrateBatch adds sum_q w_q value_q of every entry into the row of the cell owning q.
func integrateBatch(ev *expr.Evaluator, mgr *evalmgr.ExecutionManager, b Batch, table utils.DOK,
	log logr.Logger) (err error) {
	mgr.SetMediator(b)
	var (
		consts []float64
		vecs   []*evalmgr.Buffer
	)
	if consts, vecs, err = ev.Evaluate(mgr); err != nil {
		return
	}
	defer mgr.ReleaseAll(vecs)
	var (
		ss      = ev.Superset()
		weights = b.Weights()
		cells   = b.PointCells()
	)
	for i := 0; i < ss.NumEntries(); i++ {
		if vecs[i] != nil {
			if utils.IsNan(vecs[i].Vector) {
				return fmt.Errorf("entry %s evaluates to NaN", ss.Entry(i).Deriv)
			}
			log.V(4).Info("varying entry", "deriv", ss.Entry(i).Deriv.String(),
				"min", vecs[i].Min(), "max", vecs[i].Max())
		}
		for q, w := range weights {
			val := consts[i]
			if vecs[i] != nil {
				val = vecs[i].Data()[q]
			}
			table.Accumulate(cells[q], i, w*val)
		}
	}
	return
}
