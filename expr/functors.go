package expr

import (
	"fmt"
	"math"

	"github.com/notargets/weakform/utils"
)

/*
Functor is a scalar function of one variable with derivatives of any order. Derivs fills
out[k] with f^(k)(x) for k = 0..n; out must have length at least n+1.
NonzeroDeriv is false only when f^(k) is identically zero, e.g. k > p for x^p with integer p.
*/
type Functor interface {
	Name() string
	Derivs(x float64, n int, out []float64)
	NonzeroDeriv(k int) bool
}

type expFunctor struct{}

func NewExp() Functor { return expFunctor{} }

func (expFunctor) Name() string { return "exp" }
func (expFunctor) Derivs(x float64, n int, out []float64) {
	var v = math.Exp(x)
	for k := 0; k <= n; k++ {
		out[k] = v
	}
}
func (expFunctor) NonzeroDeriv(int) bool { return true }

type logFunctor struct{}

func NewLog() Functor { return logFunctor{} }

func (logFunctor) Name() string { return "log" }

// f^(k)(x) = (-1)^(k-1) (k-1)! / x^k
func (logFunctor) Derivs(x float64, n int, out []float64) {
	out[0] = math.Log(x)
	var (
		fact = 1.
		sign = 1.
	)
	for k := 1; k <= n; k++ {
		out[k] = sign * fact / utils.POW(x, k)
		fact *= float64(k)
		sign = -sign
	}
}
func (logFunctor) NonzeroDeriv(int) bool { return true }

type powerFunctor struct {
	p    float64
	name string
}

func NewPower(p float64) Functor {
	return powerFunctor{p: p, name: fmt.Sprintf("pow%g", p)}
}

func NewSqrt() Functor       { return powerFunctor{p: 0.5, name: "sqrt"} }
func NewReciprocal() Functor { return powerFunctor{p: -1, name: "reciprocal"} }

func (f powerFunctor) Name() string { return f.name }

func (f powerFunctor) isInteger() bool { return f.p == math.Trunc(f.p) && math.Abs(f.p) < 1<<30 }

func (f powerFunctor) Derivs(x float64, n int, out []float64) {
	var coef = 1.
	for k := 0; k <= n; k++ {
		e := f.p - float64(k)
		switch {
		case coef == 0:
			out[k] = 0
		case f.isInteger():
			out[k] = coef * utils.POW(x, int(e))
		default:
			out[k] = coef * math.Pow(x, e)
		}
		coef *= e
	}
}

func (f powerFunctor) NonzeroDeriv(k int) bool {
	if f.isInteger() && f.p >= 0 {
		return float64(k) <= f.p
	}
	return true
}

type sinFunctor struct{}

func NewSin() Functor { return sinFunctor{} }

func (sinFunctor) Name() string { return "sin" }
func (sinFunctor) Derivs(x float64, n int, out []float64) {
	s, c := math.Sincos(x)
	cycle := [4]float64{s, c, -s, -c}
	for k := 0; k <= n; k++ {
		out[k] = cycle[k%4]
	}
}
func (sinFunctor) NonzeroDeriv(int) bool { return true }

type cosFunctor struct{}

func NewCos() Functor { return cosFunctor{} }

func (cosFunctor) Name() string { return "cos" }
func (cosFunctor) Derivs(x float64, n int, out []float64) {
	s, c := math.Sincos(x)
	cycle := [4]float64{c, -s, -c, s}
	for k := 0; k <= n; k++ {
		out[k] = cycle[k%4]
	}
}
func (cosFunctor) NonzeroDeriv(int) bool { return true }

type tanhFunctor struct{}

func NewTanh() Functor { return tanhFunctor{} }

func (tanhFunctor) Name() string { return "tanh" }

// With t = tanh(x), f^(k) = P_k(t) where P_0 = t and P_k+1 = P_k'(t) (1 - t^2).
func (tanhFunctor) Derivs(x float64, n int, out []float64) {
	var (
		t    = math.Tanh(x)
		poly = []float64{0, 1}
	)
	for k := 0; k <= n; k++ {
		out[k] = evalPoly(poly, t)
		if k == n {
			break
		}
		dp := make([]float64, len(poly)+1)
		for i := 1; i < len(poly); i++ {
			c := float64(i) * poly[i]
			dp[i-1] += c
			dp[i+1] -= c
		}
		poly = dp
	}
}
func (tanhFunctor) NonzeroDeriv(int) bool { return true }

func evalPoly(coeffs []float64, t float64) (y float64) {
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = y*t + coeffs[i]
	}
	return
}

// shiftedFunctor is f^(Shift), the functor the chain rule leaves behind.
type shiftedFunctor struct {
	Base  Functor
	Shift int
}

func Shift(f Functor, n int) Functor {
	if n == 0 {
		return f
	}
	if s, ok := f.(shiftedFunctor); ok {
		return shiftedFunctor{Base: s.Base, Shift: s.Shift + n}
	}
	return shiftedFunctor{Base: f, Shift: n}
}

func (s shiftedFunctor) Name() string { return fmt.Sprintf("D%d%s", s.Shift, s.Base.Name()) }

func (s shiftedFunctor) Derivs(x float64, n int, out []float64) {
	var tmp = make([]float64, n+s.Shift+1)
	s.Base.Derivs(x, n+s.Shift, tmp)
	copy(out[:n+1], tmp[s.Shift:])
}

func (s shiftedFunctor) NonzeroDeriv(k int) bool { return s.Base.NonzeroDeriv(k + s.Shift) }

var functorsByName = map[string]func() Functor{
	"exp":        NewExp,
	"log":        NewLog,
	"sqrt":       NewSqrt,
	"sin":        NewSin,
	"cos":        NewCos,
	"tanh":       NewTanh,
	"reciprocal": NewReciprocal,
}

// FunctorByName looks up the elementary functors by their Name.
func FunctorByName(name string) (f Functor, err error) {
	ctor, ok := functorsByName[name]
	if !ok {
		err = fmt.Errorf("unknown function %q", name)
		return
	}
	f = ctor()
	return
}
