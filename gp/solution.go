package gp

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Status is the outcome of a solve.
type Status uint8

const (
	// Optimal is a converged (locally, for signomial programs) optimum.
	Optimal Status = iota + 1
	// Infeasible means no point satisfies the constraints.
	Infeasible
	// Unbounded means the cost decreases without bound.
	Unbounded
	// NotConverged means the signomial loop ran out of iterations, in which case the solution
	// holds the last iterate, or the backend could not finish a geometric program.
	NotConverged
	// Failed covers every other error: invalid models, cancelled contexts and numerical failures.
	Failed
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case NotConverged:
		return "not converged"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Sensitivities holds d(log cost)/d(log constant) for every substituted constant, keyed by the
// substitution reference which fixed it.
type Sensitivities struct {
	Constants map[string]float64
}

// TightnessWarning reports a Tight constraint which did not bind.
type TightnessWarning struct {
	Constraint Constraint
	Slack      float64
}

func (w TightnessWarning) String() string {
	return fmt.Sprintf("constraint %s is not tight (slack %.3g)", w.Constraint, w.Slack)
}

// Solution is the result of a solve.
type Solution struct {
	Status        Status
	Cost          float64
	Iterations    int
	Convergence   []float64 // cost after every signomial iteration
	Point         Point     // every variable, free and substituted
	Sensitivities Sensitivities
	Warnings      []TightnessWarning

	byKey  map[string][]*Var
	byName map[string][]string // bare name to keys
}

func newSolution(vars []*Var, x Point) *Solution {
	s := &Solution{Point: x, byKey: make(map[string][]*Var), byName: make(map[string][]string)}
	for _, v := range vars {
		k := v.Key()
		if _, ok := s.byKey[k]; !ok {
			s.byName[v.Name] = append(s.byName[v.Name], k)
		}
		s.byKey[k] = append(s.byKey[k], v)
	}
	for _, vs := range s.byKey {
		sortVars(vs)
	}
	return s
}

// resolve returns the variables of a key, an unambiguous bare name or an element reference.
func (s *Solution) resolve(name string) ([]*Var, error) {
	if s == nil || s.byKey == nil {
		return nil, fmt.Errorf("%w: %s (empty solution)", ErrUnknownVariable, name)
	}
	if vs, ok := s.byKey[name]; ok {
		return vs, nil
	}
	if keys, ok := s.byName[name]; ok {
		if len(keys) > 1 {
			sort.Strings(keys)
			return nil, fmt.Errorf("%w: %s matches %s", ErrAmbiguous, name, strings.Join(keys, ", "))
		}
		return s.byKey[keys[0]], nil
	}
	if i := strings.LastIndexByte(name, '['); i > 0 && strings.HasSuffix(name, "]") {
		var idx int
		if _, err := fmt.Sscanf(name[i+1:len(name)-1], "%d", &idx); err == nil {
			vs, err := s.resolve(name[:i])
			if err != nil {
				return nil, err
			}
			if idx < 0 || idx >= len(vs) || vs[idx].Index != idx {
				return nil, fmt.Errorf("%w: %s index out of range", ErrUnknownVariable, name)
			}
			return vs[idx : idx+1], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
}

// Value returns the value of a scalar variable or of one vector element.
func (s *Solution) Value(name string) (float64, error) {
	vs, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	if len(vs) != 1 || (vs[0].Index >= 0 && !strings.HasSuffix(name, "]")) {
		return 0, fmt.Errorf("%s is a vector of %d elements", name, len(vs))
	}
	return s.Point[vs[0]], nil
}

// Vector returns the values of a vector variable, in index order.
func (s *Solution) Vector(name string) ([]float64, error) {
	vs, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	if vs[0].Index < 0 {
		return nil, fmt.Errorf("%s is a scalar", name)
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = s.Point[v]
	}
	return out, nil
}

// MustValue is Value which panics on error.
func (s *Solution) MustValue(name string) float64 {
	v, err := s.Value(name)
	if err != nil {
		panic(err)
	}
	return v
}

// MustVector is Vector which panics on error.
func (s *Solution) MustVector(name string) []float64 {
	v, err := s.Vector(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Eval evaluates an expression at the solution.
func (s *Solution) Eval(e Expr) float64 {
	return e.Posy().Eval(s.Point)
}

// sensitivities returns Σ w₀ₖe₀ₖ + Σλᵢ Σwᵢₖeᵢₖ + Σνⱼeⱼ per constant, where e are the constant
// exponents of each log-space term and w the softmax weights of the terms within their row.
func sensitivities(p *Program, raw *RawSolution) map[string]float64 {
	out := make(map[string]float64)
	addRow := func(r Row, scale float64) {
		if scale == 0 {
			return
		}
		us := make([]float64, len(r.Terms))
		for k, t := range r.Terms {
			us[k] = t.Value(raw.Y)
		}
		_, w := logSumExp(us)
		for k, t := range r.Terms {
			for n, e := range t.Consts {
				out[n] += scale * w[k] * e
			}
		}
	}
	addRow(p.Objective, 1)
	for i, r := range p.Inequalities {
		if i < len(raw.IneqDuals) {
			addRow(r, raw.IneqDuals[i])
		}
	}
	for j, r := range p.Equalities {
		if j < len(raw.EqDuals) {
			addRow(r, raw.EqDuals[j])
		}
	}
	for n, v := range out {
		if math.Abs(v) < 1e-12 {
			out[n] = 0
		}
	}
	return out
}

// tightness returns the Tight constraints whose relative slack exceeds tol at x.
func tightness(cs []Constraint, x Point, tol float64) []TightnessWarning {
	var ws []TightnessWarning
	for _, c := range cs {
		if !c.Tight {
			continue
		}
		if slack := c.Slack(x); slack > tol {
			ws = append(ws, TightnessWarning{Constraint: c, Slack: slack})
		}
	}
	return ws
}
