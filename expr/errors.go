package expr

import (
	"fmt"
	"strings"

	"github.com/notargets/weakform/types"
)

/*
InternalError reports a consistency defect between the derivative requests and the calculus
of a node: a derivative the node cannot supply, an order the context does not allow, or a
cache used before it was set up. It is never recovered from.
*/
type InternalError struct {
	Node     string
	Msg      string
	Deriv    types.MultipleDeriv
	Superset *SparsitySuperset
}

func (e *InternalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "internal error at %s: %s", e.Node, e.Msg)
	if e.Deriv != nil {
		fmt.Fprintf(&b, ", derivative %s", e.Deriv)
	}
	if e.Superset != nil {
		fmt.Fprintf(&b, "\nsuperset:\n%s", e.Superset)
	}
	return b.String()
}

func internalErrorf(n Expr, md types.MultipleDeriv, ss *SparsitySuperset, format string,
	args ...interface{}) *InternalError {
	var name = "<nil>"
	if n != nil {
		name = fmt.Sprintf("%s (node %d)", n, n.ID())
	}
	return &InternalError{
		Node:     name,
		Msg:      fmt.Sprintf(format, args...),
		Deriv:    md,
		Superset: ss,
	}
}
