package evalmgr

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/notargets/weakform/types"
)

type Options struct {
	// MaxBuffers caps the number of simultaneously live buffers, zero is unlimited.
	MaxBuffers int
	Log        logr.Logger
}

/*
ExecutionManager hands numeric buffers and leaf sampling to the evaluators. There is one per
worker and assembly pass. The driver binds the region and the mediator between cell batches;
evaluators only read them.
*/
type ExecutionManager struct {
	region   types.EvalContext
	mediator Mediator
	pool     *BufferPool
	log      logr.Logger
}

func NewExecutionManager(opts Options) (mgr *ExecutionManager) {
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	mgr = &ExecutionManager{
		pool: NewBufferPool(opts.MaxBuffers),
		log:  opts.Log.WithName("evalmgr"),
	}
	return
}

func (mgr *ExecutionManager) SetRegion(ctx types.EvalContext) {
	mgr.region = ctx
	mgr.log.V(4).Info("region bound", "context", ctx.String())
}

func (mgr *ExecutionManager) Region() types.EvalContext { return mgr.region }

func (mgr *ExecutionManager) SetMediator(m Mediator) {
	mgr.mediator = m
}

func (mgr *ExecutionManager) Mediator() Mediator { return mgr.mediator }

func (mgr *ExecutionManager) Log() logr.Logger { return mgr.log }

// NumPoints is the quadrature point count of the bound batch.
func (mgr *ExecutionManager) NumPoints() (n int, err error) {
	if mgr.mediator == nil {
		err = fmt.Errorf("no mediator bound to the execution manager")
		return
	}
	n = mgr.mediator.NumQuadPoints()
	return
}

// AcquireBuffer returns a buffer sized for the bound batch with a reference count of one.
func (mgr *ExecutionManager) AcquireBuffer() (b *Buffer, err error) {
	var n int
	if n, err = mgr.NumPoints(); err != nil {
		return
	}
	if b, err = mgr.pool.get(n); err != nil {
		return
	}
	bufferAcquisitions.Inc()
	return
}

func (mgr *ExecutionManager) ReleaseBuffer(b *Buffer) {
	if b != nil {
		b.Release()
	}
}

// ReleaseAll drops one reference from every non-nil buffer in bufs.
func (mgr *ExecutionManager) ReleaseAll(bufs []*Buffer) {
	for _, b := range bufs {
		mgr.ReleaseBuffer(b)
	}
}

// EvaluateLeaf asks the bound mediator to fill b with the derivative md of primitive p.
func (mgr *ExecutionManager) EvaluateLeaf(p Primitive, md types.MultipleDeriv, b *Buffer) (err error) {
	if mgr.mediator == nil {
		return fmt.Errorf("no mediator bound while evaluating %s%s", p, md)
	}
	if err = mgr.mediator.EvalPrimitive(p, md, b.Data()); err != nil {
		return fmt.Errorf("mediator failed on %s%s: %w", p, md, err)
	}
	return
}

func (mgr *ExecutionManager) InUse() int     { return mgr.pool.Live() }
func (mgr *ExecutionManager) Allocated() int { return mgr.pool.Allocated() }

func (mgr *ExecutionManager) NewScope() *Scope {
	return &Scope{mgr: mgr, held: make(map[*Buffer]int)}
}

/*
Scope ties buffer ownership to a function body:

	scope := mgr.NewScope()
	defer scope.Release()

Every reference acquired or adopted through the scope is released when the function returns,
on every exit path, unless it was handed out with Keep. A buffer adopted twice (for example
after Retain) holds two references in the scope.
*/
type Scope struct {
	mgr  *ExecutionManager
	held map[*Buffer]int
}

func (s *Scope) Acquire() (b *Buffer, err error) {
	if b, err = s.mgr.AcquireBuffer(); err != nil {
		return
	}
	s.Adopt(b)
	return
}

// Adopt makes the scope responsible for one reference of each buffer, nil entries are skipped.
func (s *Scope) Adopt(bufs ...*Buffer) {
	for _, b := range bufs {
		if b != nil {
			s.held[b]++
		}
	}
}

// Keep transfers one reference of b out of the scope.
func (s *Scope) Keep(b *Buffer) {
	if n, ok := s.held[b]; ok {
		if n <= 1 {
			delete(s.held, b)
		} else {
			s.held[b] = n - 1
		}
	}
}

func (s *Scope) Release() {
	for b, n := range s.held {
		for ; n > 0; n-- {
			b.Release()
		}
		delete(s.held, b)
	}
}
