package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notargets/weakform/types"
)

// Env resolves the function names used by a decoded expression tree.
type Env struct {
	Functions map[string]Expr
}

func NewEnv() *Env {
	return &Env{Functions: make(map[string]Expr)}
}

// Define binds name to a DiscreteFunction or FuncElement leaf.
func (env *Env) Define(name string, e Expr) *Env {
	env.Functions[name] = e
	return env
}

/*
Decode builds an expression from its tree form, as read from YAML or JSON:

	{op: "+", args: [...]}     also "-", "*" and "/"; "-" with one argument negates
	{const: 2.5}
	{coord: 0}
	{geom: diameter}           see types.GeometryNameMap
	{func: u}                  a name defined in env
	{diff: 0, arg: {...}}      spatial derivative
	{fn: tanh, arg: {...}}     see FunctorByName
	{pow: 2, arg: {...}}
*/
func Decode(tree map[string]interface{}, env *Env) (e Expr, err error) {
	if tree == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	var form string
	for _, k := range []string{"op", "const", "coord", "geom", "func", "diff", "fn", "pow"} {
		if _, ok := tree[k]; ok {
			if form != "" {
				return nil, fmt.Errorf("expression %s has both %q and %q", describe(tree), form, k)
			}
			form = k
		}
	}
	switch form {
	case "op":
		return decodeOp(tree, env)
	case "const":
		var c float64
		if c, err = number(tree, "const"); err != nil {
			return
		}
		return NewConstant(c), nil
	case "coord":
		var dir int
		if dir, err = integer(tree, "coord"); err != nil {
			return
		}
		var c *Coordinate
		if c, err = NewCoordinate(dir); err != nil {
			return nil, fmt.Errorf("%s: %w", describe(tree), err)
		}
		return c, nil
	case "geom":
		name, ok := tree["geom"].(string)
		if !ok {
			return nil, fmt.Errorf("geom: %q must be a string", "geom")
		}
		kind, ok := types.GeometryNameMap[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("geom: unknown cell geometry %q", name)
		}
		if kind == types.CellVolume {
			return NewCellVolume(), nil
		}
		return NewCellDiameter(), nil
	case "func":
		name, ok := tree["func"].(string)
		if !ok {
			return nil, fmt.Errorf("func: %q must be a string", "func")
		}
		if env == nil {
			return nil, fmt.Errorf("func: no environment to resolve %q", name)
		}
		if e, ok = env.Functions[name]; !ok {
			return nil, fmt.Errorf("func: %q is not defined", name)
		}
		return
	case "diff":
		var (
			dir int
			arg Expr
		)
		if dir, err = integer(tree, "diff"); err != nil {
			return
		}
		if arg, err = subExpr(tree, "diff", env); err != nil {
			return
		}
		if e, err = Diff(dir, arg); err != nil {
			return nil, fmt.Errorf("%s: %w", describe(tree), err)
		}
		return
	case "fn":
		var (
			f   Functor
			arg Expr
		)
		name, ok := tree["fn"].(string)
		if !ok {
			return nil, fmt.Errorf("fn: %q must be a string", "fn")
		}
		if f, err = FunctorByName(name); err != nil {
			return nil, fmt.Errorf("fn: %w", err)
		}
		if arg, err = subExpr(tree, "fn", env); err != nil {
			return
		}
		return Apply(f, arg), nil
	case "pow":
		var (
			p   float64
			arg Expr
		)
		if p, err = number(tree, "pow"); err != nil {
			return
		}
		if arg, err = subExpr(tree, "pow", env); err != nil {
			return
		}
		return Pow(arg, p), nil
	}
	return nil, fmt.Errorf("expression %s has no recognized form", describe(tree))
}

func decodeOp(tree map[string]interface{}, env *Env) (e Expr, err error) {
	op, ok := tree["op"].(string)
	if !ok {
		return nil, fmt.Errorf("op: %q must be a string", "op")
	}
	raw, ok := tree["args"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("op %s: %q must be a non-empty array", op, "args")
	}
	var args = make([]Expr, len(raw))
	for i, it := range raw {
		m, ok := it.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("op %s: args[%d] must be an object", op, i)
		}
		if args[i], err = Decode(m, env); err != nil {
			return nil, fmt.Errorf("op %s: args[%d]: %w", op, i, err)
		}
	}
	switch op {
	case "+":
		return Add(args...), nil
	case "*":
		return Mul(args...), nil
	case "-":
		switch len(args) {
		case 1:
			return Neg(args[0]), nil
		case 2:
			return Sub(args[0], args[1]), nil
		}
	case "/":
		if len(args) == 2 {
			return Div(args[0], args[1]), nil
		}
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	return nil, fmt.Errorf("op %s: wrong number of arguments %d", op, len(args))
}

func subExpr(tree map[string]interface{}, form string, env *Env) (e Expr, err error) {
	m, ok := tree["arg"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: %q must be an object", form, "arg")
	}
	if e, err = Decode(m, env); err != nil {
		return nil, fmt.Errorf("%s: arg: %w", form, err)
	}
	return
}

func number(tree map[string]interface{}, field string) (f float64, err error) {
	switch v := tree[field].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		err = fmt.Errorf("%s: must be a number, got %T", field, tree[field])
	}
	return
}

func integer(tree map[string]interface{}, field string) (i int, err error) {
	var f float64
	if f, err = number(tree, field); err != nil {
		return
	}
	i = int(f)
	if float64(i) != f {
		err = fmt.Errorf("%s: must be an integer, got %g", field, f)
	}
	return
}

// describe names a tree by its sorted keys for error messages.
func describe(tree map[string]interface{}) string {
	var keys = make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "{" + strings.Join(keys, ",") + "}"
}
