package gp

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Expr is anything which can be read as a posynomial: *Var, Monomial and Posynomial.
type Expr interface {
	Posy() Posynomial
}

// MonoExpr is anything which can be read as a monomial: *Var and Monomial.
type MonoExpr interface {
	Mono() Monomial
}

// Point maps variables to their (positive) values.
type Point map[*Var]float64

// Monomial is C·Πxᵢ^aᵢ with C > 0.
type Monomial struct {
	C    float64
	Exps map[*Var]float64
}

// Const returns the constant monomial c.
func Const(c float64) Monomial {
	if !(c > 0) || math.IsInf(c, 0) {
		panic(fmt.Errorf("monomial coefficient must be finite and positive, got %g", c))
	}
	return Monomial{C: c}
}

// Mono implements MonoExpr.
func (m Monomial) Mono() Monomial {
	return m
}

// Posy implements Expr.
func (m Monomial) Posy() Posynomial {
	return Posynomial{m}
}

// Mul returns m·o.
func (m Monomial) Mul(o MonoExpr) Monomial {
	om := o.Mono()
	r := Monomial{C: m.C * om.C, Exps: make(map[*Var]float64, len(m.Exps)+len(om.Exps))}
	for v, e := range m.Exps {
		r.Exps[v] = e
	}
	for v, e := range om.Exps {
		r.Exps[v] += e
	}
	r.prune()
	return r
}

// Div returns m/o.
func (m Monomial) Div(o MonoExpr) Monomial {
	return m.Mul(o.Mono().Pow(-1))
}

// Pow returns m^e.
func (m Monomial) Pow(e float64) Monomial {
	r := Monomial{C: math.Pow(m.C, e), Exps: make(map[*Var]float64, len(m.Exps))}
	for v, a := range m.Exps {
		r.Exps[v] = a * e
	}
	r.prune()
	return r
}

// Scale returns c·m.
func (m Monomial) Scale(c float64) Monomial {
	return m.Mul(Const(c))
}

// Eval evaluates m at x. It panics if a variable of m is missing from x.
func (m Monomial) Eval(x Point) float64 {
	val := m.C
	for v, e := range m.Exps {
		xv, ok := x[v]
		if !ok {
			panic(fmt.Errorf("no value for %s", v))
		}
		val *= math.Pow(xv, e)
	}
	return val
}

func (m *Monomial) prune() {
	for v, e := range m.Exps {
		if e == 0 {
			delete(m.Exps, v)
		}
	}
}

func (m Monomial) vars() []*Var {
	vs := make([]*Var, 0, len(m.Exps))
	for v := range m.Exps {
		vs = append(vs, v)
	}
	sortVars(vs)
	return vs
}

func (m Monomial) String() string {
	parts := []string{fmt.Sprintf("%g", m.C)}
	for _, v := range m.vars() {
		e := m.Exps[v]
		if e == 1 {
			parts = append(parts, v.String())
		} else {
			parts = append(parts, fmt.Sprintf("%s^%g", v, e))
		}
	}
	return strings.Join(parts, "·")
}

// Posynomial is a sum of monomials.
type Posynomial []Monomial

// Posy implements Expr.
func (p Posynomial) Posy() Posynomial {
	return p
}

// Mono returns the single term of p. It panics if p has more than one term.
func (p Posynomial) Mono() Monomial {
	if len(p) != 1 {
		panic(fmt.Errorf("posynomial %s is not a monomial", p))
	}
	return p[0]
}

// Add returns p + the given expressions.
func (p Posynomial) Add(es ...Expr) Posynomial {
	r := make(Posynomial, len(p), len(p)+len(es))
	copy(r, p)
	for _, e := range es {
		r = append(r, e.Posy()...)
	}
	return r
}

// Mul returns p·m.
func (p Posynomial) Mul(m MonoExpr) Posynomial {
	r := make(Posynomial, len(p))
	for i, t := range p {
		r[i] = t.Mul(m)
	}
	return r
}

// Div returns p/m.
func (p Posynomial) Div(m MonoExpr) Posynomial {
	return p.Mul(m.Mono().Pow(-1))
}

// Eval evaluates p at x.
func (p Posynomial) Eval(x Point) float64 {
	sum := 0.0
	for _, t := range p {
		sum += t.Eval(x)
	}
	return sum
}

func (p Posynomial) String() string {
	parts := make([]string, len(p))
	for i, t := range p {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

// Sum returns the posynomial sum of expressions.
func Sum(es ...Expr) Posynomial {
	return Posynomial(nil).Add(es...)
}

// Prod returns the product of monomial expressions.
func Prod(ms ...MonoExpr) Monomial {
	r := Monomial{C: 1}
	for _, m := range ms {
		r = r.Mul(m)
	}
	return r
}

// Div returns num/den.
func Div(num, den MonoExpr) Monomial {
	return num.Mono().Div(den)
}

// Pow returns m^e.
func Pow(m MonoExpr, e float64) Monomial {
	return m.Mono().Pow(e)
}

// ExpMinus1 returns the first `terms` terms of the Taylor series of exp(x)-1.
func ExpMinus1(x MonoExpr, terms int) Posynomial {
	if terms < 1 {
		panic("ExpMinus1 needs at least one term")
	}
	p := make(Posynomial, terms)
	factorial := 1.0
	for i := 1; i <= terms; i++ {
		factorial *= float64(i)
		p[i-1] = x.Mono().Pow(float64(i)).Scale(1 / factorial)
	}
	return p
}

func sortVars(vs []*Var) {
	sort.Slice(vs, func(i, j int) bool {
		ki, kj := vs[i].Key(), vs[j].Key()
		if ki != kj {
			return ki < kj
		}
		return vs[i].Index < vs[j].Index
	})
}
