package evalmgr

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/weakform/utils"
)

/*
Buffer holds one value per quadrature point of the current cell batch. Buffers are owned by
a BufferPool and reference counted: Retain adds an owner, Release drops one, and the buffer
goes back to its pool when the last owner releases it. Contents are undefined after that.
*/
type Buffer struct {
	utils.Vector
	backing []float64
	refs    int
	pool    *BufferPool
	serial  int
}

// Data is the raw per-point storage, aliased by the embedded vector.
func (b *Buffer) Data() []float64 { return b.V.RawVector().Data }

func (b *Buffer) Retain() *Buffer {
	if b.refs <= 0 {
		panic(fmt.Errorf("retain of released buffer #%d", b.serial))
	}
	b.refs++
	return b
}

func (b *Buffer) Release() {
	if b.refs <= 0 {
		panic(fmt.Errorf("buffer #%d released more often than acquired", b.serial))
	}
	b.refs--
	if b.refs == 0 {
		b.pool.put(b)
	}
}

func (b *Buffer) Fill(val float64) *Buffer {
	b.Set(val)
	return b
}

func (b *Buffer) String() string {
	return fmt.Sprintf("vec#%d%v", b.serial, b.Data())
}

/*
BufferPool recycles per-point buffers for one ExecutionManager. It is not safe for concurrent
use; each worker owns its own pool.
*/
type BufferPool struct {
	free      []*Buffer
	live      int
	allocated int
	maxLive   int // zero means unlimited
}

func NewBufferPool(maxLive int) *BufferPool {
	return &BufferPool{maxLive: maxLive}
}

func (p *BufferPool) get(n int) (b *Buffer, err error) {
	if n <= 0 {
		err = fmt.Errorf("cannot allocate a buffer for %d quadrature points", n)
		return
	}
	if p.maxLive > 0 && p.live >= p.maxLive {
		err = &ResourceError{Live: p.live, Limit: p.maxLive}
		return
	}
	for len(p.free) > 0 {
		b = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		if cap(b.backing) >= n {
			b.V = mat.NewVecDense(n, b.backing[:n])
			break
		}
		b = nil // too small for this batch, let it go
	}
	if b == nil {
		p.allocated++
		bufferAllocations.Inc()
		backing := make([]float64, n)
		b = &Buffer{
			Vector:  utils.Vector{V: mat.NewVecDense(n, backing)},
			backing: backing,
			pool:    p,
			serial:  p.allocated,
		}
	}
	b.refs = 1
	p.live++
	return
}

func (p *BufferPool) put(b *Buffer) {
	p.live--
	p.free = append(p.free, b)
}

// Live is the number of buffers currently acquired and not yet released.
func (p *BufferPool) Live() int { return p.live }

// Allocated is the number of distinct buffers the pool has ever created.
func (p *BufferPool) Allocated() int { return p.allocated }

// ResourceError reports buffer pool exhaustion. It is fatal for the evaluation pass.
type ResourceError struct {
	Live, Limit int
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("buffer pool exhausted: %d buffers live, limit is %d", e.Live, e.Limit)
}
