package gp

import (
	"fmt"
	"math"
)

// Model is a cost to minimise under constraints.
type Model struct {
	Cost        Posynomial
	Constraints []Constraint
}

// NewModel returns a model minimising cost.
func NewModel(cost Expr, constraints ...[]Constraint) *Model {
	m := &Model{Cost: cost.Posy()}
	for _, cs := range constraints {
		m.Constraints = append(m.Constraints, cs...)
	}
	return m
}

// Add appends constraints.
func (m *Model) Add(cs ...Constraint) {
	m.Constraints = append(m.Constraints, cs...)
}

// Signomial returns whether any constraint needs local approximations.
func (m *Model) Signomial() bool {
	for _, c := range m.Constraints {
		if c.Signomial() {
			return true
		}
	}
	return false
}

// Vars returns every variable of the model, sorted by key then index.
func (m *Model) Vars() []*Var {
	seen := make(map[*Var]bool)
	var vs []*Var
	add := func(p Posynomial) {
		for _, t := range p {
			for v := range t.Exps {
				if !seen[v] {
					seen[v] = true
					vs = append(vs, v)
				}
			}
		}
	}
	add(m.Cost)
	for _, c := range m.Constraints {
		add(c.Left)
		add(c.Right)
	}
	sortVars(vs)
	return vs
}

// Term is a log-space monomial: log(c·Πxᵢ^aᵢ) = LogC + Σ Exps[i]·yᵢ with yᵢ = log xᵢ.
// Consts records the exponent of every substituted constant folded into LogC.
type Term struct {
	LogC   float64
	Exps   map[int]float64
	Consts map[string]float64
}

func (t Term) sub(o Term) Term {
	r := Term{LogC: t.LogC - o.LogC, Exps: make(map[int]float64, len(t.Exps)+len(o.Exps)), Consts: make(map[string]float64, len(t.Consts)+len(o.Consts))}
	for i, e := range t.Exps {
		r.Exps[i] = e
	}
	for i, e := range o.Exps {
		r.Exps[i] -= e
		if r.Exps[i] == 0 {
			delete(r.Exps, i)
		}
	}
	for n, e := range t.Consts {
		r.Consts[n] = e
	}
	for n, e := range o.Consts {
		r.Consts[n] -= e
		if r.Consts[n] == 0 {
			delete(r.Consts, n)
		}
	}
	return r
}

// Value returns LogC + Σ Exps[i]·y[i].
func (t Term) Value(y []float64) float64 {
	u := t.LogC
	for i, e := range t.Exps {
		u += e * y[i]
	}
	return u
}

// Row is a log-sum-exp of terms.
type Row struct {
	Terms  []Term
	Source int // index of the originating constraint, -1 for the cost
}

// Program is a geometric program in log space:
//
//	minimise   log Σ exp(objective terms)
//	subject to log Σ exp(inequality terms) ≤ 0
//	           equality term = 0
type Program struct {
	Vars         []*Var
	Objective    Row
	Inequalities []Row
	Equalities   []Row
	Start        []float64 // log-space starting point, one per Vars
}

// RawSolution is what a Backend returns for a Program.
type RawSolution struct {
	Y         []float64 // log of every free variable
	IneqDuals []float64
	EqDuals   []float64
}

// compiler turns a Model into Programs under fixed substitutions.
type compiler struct {
	model  *Model
	vars   []*Var
	fixed  map[*Var]float64
	index  map[*Var]int
	free   []*Var
	consts map[*Var]string // the substitution reference each constant resolved through
}

func newCompiler(m *Model, subs map[string]float64) (*compiler, error) {
	c := &compiler{model: m, vars: m.Vars(), fixed: make(map[*Var]float64), index: make(map[*Var]int), consts: make(map[*Var]string)}
	for _, v := range c.vars {
		if val, ref, ok := lookup(subs, v); ok {
			if !(val > 0) || math.IsInf(val, 0) {
				return nil, fmt.Errorf("%w: substitution %s for %s must be finite and positive, got %g", ErrInvalidModel, ref, v, val)
			}
			c.fixed[v] = val
			c.consts[v] = ref
			continue
		}
		c.index[v] = len(c.free)
		c.free = append(c.free, v)
	}
	if len(c.free) == 0 {
		return nil, fmt.Errorf("%w: every variable is substituted", ErrInvalidModel)
	}
	return c, nil
}

// term folds constants into a log-space term.
func (c *compiler) term(m Monomial) Term {
	t := Term{LogC: math.Log(m.C), Exps: make(map[int]float64, len(m.Exps)), Consts: make(map[string]float64)}
	for v, e := range m.Exps {
		if val, ok := c.fixed[v]; ok {
			t.LogC += e * math.Log(val)
			t.Consts[c.consts[v]] += e
			continue
		}
		t.Exps[c.index[v]] += e
	}
	return t
}

// approx returns the local monomial approximation of p at the point at (free variables in log
// space). It matches p in value and gradient at that point and underestimates it elsewhere.
func (c *compiler) approx(p Posynomial, at []float64) Term {
	if len(p) == 1 {
		return c.term(p[0])
	}
	terms := make([]Term, len(p))
	us := make([]float64, len(p))
	for k, m := range p {
		terms[k] = c.term(m)
		us[k] = terms[k].Value(at)
	}
	lse, w := logSumExp(us)
	r := Term{LogC: lse, Exps: make(map[int]float64), Consts: make(map[string]float64)}
	for k, t := range terms {
		for i, e := range t.Exps {
			r.Exps[i] += w[k] * e
		}
		for n, e := range t.Consts {
			r.Consts[n] += w[k] * e
		}
	}
	for i, e := range r.Exps {
		r.LogC -= e * at[i]
	}
	return r
}

// compile builds the GP at the log-space point at, used for signomial approximations.
func (c *compiler) compile(at []float64) (*Program, error) {
	p := &Program{Vars: c.free, Start: at}
	p.Objective = Row{Source: -1}
	for _, m := range c.model.Cost {
		p.Objective.Terms = append(p.Objective.Terms, c.term(m))
	}
	if constantRow(p.Objective) {
		return nil, fmt.Errorf("%w: the cost does not depend on any free variable", ErrInvalidModel)
	}
	for ci, con := range c.model.Constraints {
		switch con.Sense {
		case LessEqual:
			den := c.approx(con.Right, at)
			row := Row{Source: ci}
			for _, m := range con.Left {
				row.Terms = append(row.Terms, c.term(m).sub(den))
			}
			if constantRow(row) {
				lse, _ := logSumExp(rowConstants(row))
				if lse > constantTol {
					return nil, fmt.Errorf("%w: constant constraint %s does not hold", ErrInfeasible, con)
				}
				continue
			}
			p.Inequalities = append(p.Inequalities, row)
		case Equal:
			t := c.approx(con.Left, at).sub(c.approx(con.Right, at))
			row := Row{Terms: []Term{t}, Source: ci}
			if constantRow(row) {
				if math.Abs(t.LogC) > constantTol {
					return nil, fmt.Errorf("%w: constant constraint %s does not hold", ErrInfeasible, con)
				}
				continue
			}
			p.Equalities = append(p.Equalities, row)
		default:
			return nil, fmt.Errorf("%w: constraint %d has no sense", ErrInvalidModel, ci)
		}
	}
	return p, nil
}

// point returns every variable value given the free variables in log space.
func (c *compiler) point(y []float64) Point {
	x := make(Point, len(c.vars))
	for v, val := range c.fixed {
		x[v] = val
	}
	for i, v := range c.free {
		x[v] = math.Exp(y[i])
	}
	return x
}

const constantTol = 1e-9

func constantRow(r Row) bool {
	for _, t := range r.Terms {
		if len(t.Exps) > 0 {
			return false
		}
	}
	return true
}

func rowConstants(r Row) []float64 {
	us := make([]float64, len(r.Terms))
	for i, t := range r.Terms {
		us[i] = t.LogC
	}
	return us
}

// logSumExp returns log Σ exp(uₖ) and the softmax weights.
func logSumExp(us []float64) (float64, []float64) {
	max := math.Inf(-1)
	for _, u := range us {
		if u > max {
			max = u
		}
	}
	w := make([]float64, len(us))
	if math.IsInf(max, 0) {
		return max, w
	}
	sum := 0.0
	for i, u := range us {
		w[i] = math.Exp(u - max)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return max + math.Log(sum), w
}
