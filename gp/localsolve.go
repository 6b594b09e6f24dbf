package gp

import (
	"context"
	"errors"
	"math"

	"github.com/go-kit/log"
)

// SolveOptions tune LocalSolve.
type SolveOptions struct {
	MaxIter  int                // signomial iterations, default 50
	RelTol   float64            // relative cost change at which the signomial loop stops, default 1e-4
	TightTol float64            // slack above which Tight constraints are reported, default 1e-3
	Guess    map[string]float64 // initial values, resolved like substitutions
	Logger   log.Logger
}

func (o SolveOptions) withDefaults() SolveOptions {
	if o.MaxIter <= 0 {
		o.MaxIter = 50
	}
	if o.RelTol <= 0 {
		o.RelTol = 1e-4
	}
	if o.TightTol <= 0 {
		o.TightTol = 1e-3
	}
	if o.Logger == nil {
		o.Logger = log.NewNopLogger()
	}
	return o
}

// LocalSolve minimises the model cost under the given substitutions.
//
// A model without signomial constraints is solved once. Otherwise every signomial constraint is
// replaced by its local monomial approximation at the current point, the resulting geometric
// program is solved, and the loop continues from its solution until the cost changes by less than
// RelTol between iterations.
//
// The returned solution is never nil. On failure its Status tells why and the error wraps one of
// ErrInfeasible, ErrUnbounded or ErrNotConverged. The signomial loop reports an exhausted budget
// as a *ConvergenceError.
func (m *Model) LocalSolve(ctx context.Context, backend Backend, subs map[string]float64, opts SolveOptions) (*Solution, error) {
	opts = opts.withDefaults()
	logger := log.With(opts.Logger, "subsys", "gp")

	c, err := newCompiler(m, subs)
	if err != nil {
		return &Solution{Status: Failed}, err
	}
	at := make([]float64, len(c.free))
	for i, v := range c.free {
		if g, _, ok := lookup(opts.Guess, v); ok && g > 0 && !math.IsInf(g, 0) {
			at[i] = math.Log(g)
		}
	}

	signomial := m.Signomial()
	var (
		prog  *Program
		raw   *RawSolution
		costs []float64
		cerr  error
	)
	for iter := 1; ; iter++ {
		if prog, err = c.compile(at); err != nil {
			return failed(c, at, costs, err), err
		}
		if raw, err = backend.Solve(ctx, prog); err != nil {
			logger.Log("level", "critical", "iteration", iter, "err", err)
			return failed(c, at, costs, err), err
		}
		at = raw.Y
		cost := m.Cost.Eval(c.point(at))
		costs = append(costs, cost)
		if !signomial {
			break
		}
		change := math.Inf(1)
		if iter > 1 {
			prev := costs[iter-2]
			change = math.Abs(cost-prev) / prev
		}
		logger.Log("level", "debug", "iteration", iter, "cost", cost, "change", change)
		if change < opts.RelTol {
			break
		}
		if iter >= opts.MaxIter {
			cerr = &ConvergenceError{Iterations: iter, Change: change, Tol: opts.RelTol}
			break
		}
	}

	sol := newSolution(c.vars, c.point(at))
	sol.Status = Optimal
	sol.Cost = costs[len(costs)-1]
	sol.Iterations = len(costs)
	sol.Convergence = costs
	sol.Sensitivities = Sensitivities{Constants: sensitivities(prog, raw)}
	sol.Warnings = tightness(m.Constraints, sol.Point, opts.TightTol)
	for _, w := range sol.Warnings {
		logger.Log("level", "warning", "message", "loose tight constraint", "constraint", w.Constraint.Label, "slack", w.Slack)
	}
	if cerr != nil {
		sol.Status = NotConverged
		logger.Log("level", "critical", "err", cerr)
		return sol, cerr
	}
	logger.Log("level", "info", "status", sol.Status, "cost", sol.Cost, "iterations", sol.Iterations, "free", len(c.free))
	return sol, nil
}

// failed returns the solution of an aborted solve, holding the last iterate when there is one.
func failed(c *compiler, at []float64, costs []float64, err error) *Solution {
	var sol *Solution
	if len(costs) > 0 {
		sol = newSolution(c.vars, c.point(at))
		sol.Cost = costs[len(costs)-1]
	} else {
		sol = &Solution{}
	}
	sol.Iterations = len(costs)
	sol.Convergence = costs
	switch {
	case errors.Is(err, ErrUnbounded):
		sol.Status = Unbounded
	case errors.Is(err, ErrInfeasible):
		sol.Status = Infeasible
	case errors.Is(err, ErrNotConverged):
		sol.Status = NotConverged
	default:
		sol.Status = Failed
	}
	return sol
}

// Solve is LocalSolve with the default barrier backend and options.
func (m *Model) Solve(subs map[string]float64) (*Solution, error) {
	return m.LocalSolve(context.Background(), NewBarrierSolver(), subs, SolveOptions{})
}
