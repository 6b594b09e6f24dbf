package gp

import (
	"fmt"
	"math"
)

// Sense is the relation of a constraint.
type Sense uint8

const (
	// LessEqual is Left ≤ Right.
	LessEqual Sense = iota + 1
	// Equal is Left = Right.
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case Equal:
		return "=="
	}
	panic("unknown constraint sense")
}

// Constraint relates two posynomials.
//
// A LessEqual constraint is a plain GP constraint when Right is a monomial, and a signomial
// constraint otherwise. An Equal constraint is a plain GP constraint when both sides are
// monomials, and a signomial equality otherwise.
//
// Tight marks a constraint expected to bind at the optimum. It does not change how the constraint
// is solved; solutions report Tight constraints which did not bind.
type Constraint struct {
	Left, Right Posynomial
	Sense       Sense
	Tight       bool
	Label       string
}

// Leq returns left ≤ right.
func Leq(left, right Expr) Constraint {
	return newConstraint(left, right, LessEqual)
}

// Geq returns left ≥ right.
func Geq(left, right Expr) Constraint {
	return newConstraint(right, left, LessEqual)
}

// Eq returns left = right.
func Eq(left, right Expr) Constraint {
	return newConstraint(left, right, Equal)
}

func newConstraint(left, right Expr, sense Sense) Constraint {
	l, r := left.Posy(), right.Posy()
	if len(l) == 0 || len(r) == 0 {
		panic("constraint sides must not be empty")
	}
	for _, p := range []Posynomial{l, r} {
		for _, t := range p {
			if !(t.C > 0) || math.IsInf(t.C, 0) {
				panic(fmt.Errorf("non positive coefficient %g in %s", t.C, p))
			}
		}
	}
	return Constraint{Left: l, Right: r, Sense: sense}
}

// Named returns a copy of c with a label used in diagnostics.
func (c Constraint) Named(label string) Constraint {
	c.Label = label
	return c
}

// Signomial returns whether c needs a local approximation to be expressed as a GP constraint.
func (c Constraint) Signomial() bool {
	if c.Sense == Equal {
		return len(c.Left) > 1 || len(c.Right) > 1
	}
	return len(c.Right) > 1
}

// Ratio returns Left/Right evaluated at x.
func (c Constraint) Ratio(x Point) float64 {
	return c.Left.Eval(x) / c.Right.Eval(x)
}

// Slack returns the relative violation of tightness at x: 1-Left/Right for inequalities and
// |1-Left/Right| for equalities.
func (c Constraint) Slack(x Point) float64 {
	r := c.Ratio(x)
	if c.Sense == Equal {
		return math.Abs(1 - r)
	}
	return 1 - r
}

func (c Constraint) String() string {
	s := fmt.Sprintf("%s %s %s", c.Left, c.Sense, c.Right)
	if c.Label != "" {
		s = c.Label + ": " + s
	}
	return s
}

// Tight marks every constraint as expected to bind at the optimum.
func Tight(cs ...Constraint) []Constraint {
	out := make([]Constraint, len(cs))
	for i, c := range cs {
		c.Tight = true
		out[i] = c
	}
	return out
}

// Elementwise builds one constraint per index i in [0, n).
func Elementwise(n int, f func(i int) Constraint) []Constraint {
	out := make([]Constraint, n)
	for i := 0; i < n; i++ {
		out[i] = f(i)
	}
	return out
}
