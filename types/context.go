package types

import (
	"fmt"
	"sync/atomic"
)

var contextCounter int64

/*
EvalContext identifies one evaluation purpose: the integration region, the quadrature rule,
the maximum differentiation order and a unique id. It is a comparable value and is used
directly as a cache key. Two contexts with the same region, rule and order still differ by
ID, so that e.g. state and adjoint equations over the same region never share caches.
*/
type EvalContext struct {
	Region     string
	Quadrature string
	MaxOrder   int
	ID         int64
}

// NewEvalContext allocates a context with a fresh, monotonically increasing id.
func NewEvalContext(region, quadrature string, maxOrder int) EvalContext {
	return EvalContext{
		Region:     region,
		Quadrature: quadrature,
		MaxOrder:   maxOrder,
		ID:         atomic.AddInt64(&contextCounter, 1),
	}
}

func (c EvalContext) Validate() error {
	if c.MaxOrder < 0 {
		return fmt.Errorf("context %s: negative maximum derivative order", c)
	}
	if c.ID == 0 {
		return fmt.Errorf("context %s: not created by NewEvalContext", c)
	}
	return nil
}

func (c EvalContext) String() string {
	return fmt.Sprintf("EvalContext[region=%q, quad=%q, maxOrder=%d, id=%d]",
		c.Region, c.Quadrature, c.MaxOrder, c.ID)
}
