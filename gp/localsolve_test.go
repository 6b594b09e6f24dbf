package gp

import (
	"context"
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestSolveProductBound(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(Sum(x, y), []Constraint{Geq(x.Mono().Mul(y), Const(1))})
	sol, err := m.Solve(nil)
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if sol.Status != Optimal {
		t.Fatalf("status %s", sol.Status)
	}
	if !scalar.EqualWithinAbs(sol.Cost, 2, 1e-6) {
		t.Fatalf("cost %f != 2", sol.Cost)
	}
	if !scalar.EqualWithinAbs(sol.MustValue("x"), 1, 1e-4) || !scalar.EqualWithinAbs(sol.MustValue("y"), 1, 1e-4) {
		t.Fatalf("x=%f y=%f", sol.MustValue("x"), sol.MustValue("y"))
	}
	if sol.Iterations != 1 {
		t.Fatalf("a geometric program takes one iteration, took %d", sol.Iterations)
	}
}

func TestSolveSensitivity(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "m", "")
	c := s.Var("c", "m", "lower bound")
	m := NewModel(x, []Constraint{Geq(x, c)})
	sol, err := m.Solve(map[string]float64{"c": 3})
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if !scalar.EqualWithinAbs(sol.Cost, 3, 1e-6) {
		t.Fatalf("cost %f != 3", sol.Cost)
	}
	if sens := sol.Sensitivities.Constants["c"]; !scalar.EqualWithinAbs(sens, 1, 1e-4) {
		t.Fatalf("sensitivity to c %f != 1", sens)
	}
	if sol.MustValue("c") != 3 {
		t.Fatal("substituted constants must be reported in the solution")
	}
}

func TestSolveEquality(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(Sum(x, y), []Constraint{
		Geq(x.Mono().Mul(y), Const(8)),
		Eq(x, y.Mono().Scale(2)),
	})
	sol, err := m.Solve(nil)
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if !scalar.EqualWithinAbs(sol.Cost, 6, 1e-5) {
		t.Fatalf("cost %f != 6", sol.Cost)
	}
	if !scalar.EqualWithinAbs(sol.MustValue("x"), 4, 1e-4) {
		t.Fatalf("x %f != 4", sol.MustValue("x"))
	}
}

func TestSolveInfeasible(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	m := NewModel(x, []Constraint{Geq(x, Const(2)), Leq(x, Const(1))})
	sol, err := m.Solve(nil)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
	if sol == nil || sol.Status != Infeasible {
		t.Fatalf("expected an infeasible solution, got %+v", sol)
	}
}

func TestSolveInconsistentEqualities(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(Sum(x, y), []Constraint{Eq(x, y), Eq(x, y.Mono().Scale(2))})
	if _, err := m.Solve(nil); !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
}

func TestSolveConstantConstraint(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	a := s.Var("a", "-", "")
	m := NewModel(x, []Constraint{Geq(x, Const(1)), Leq(a, Const(1))})
	if _, err := m.Solve(map[string]float64{"a": 2}); !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible from a violated constant constraint, got %v", err)
	}
	if _, err := m.Solve(map[string]float64{"a": 0.5}); err != nil {
		t.Fatalf("a satisfied constant constraint must be dropped: %s", err)
	}
}

func TestSolveUnbounded(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	m := NewModel(x, []Constraint{Leq(x, Const(2))})
	sol, err := m.Solve(nil)
	if !errors.Is(err, ErrUnbounded) {
		t.Fatalf("expected ErrUnbounded, got %v", err)
	}
	if sol.Status != Unbounded {
		t.Fatalf("status %s", sol.Status)
	}
}

func TestSignomialInequality(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(x, []Constraint{Leq(Const(3), Sum(x, y)), Leq(y, Const(1))})
	if !m.Signomial() {
		t.Fatal("3 <= x + y is signomial")
	}
	sol, err := m.Solve(nil)
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if !scalar.EqualWithinAbs(sol.Cost, 2, 1e-2) {
		t.Fatalf("cost %f != 2", sol.Cost)
	}
	if sol.Iterations < 2 {
		t.Fatalf("expected several signomial iterations, got %d", sol.Iterations)
	}
	if len(sol.Convergence) != sol.Iterations {
		t.Fatal("one cost per iteration expected")
	}
}

func TestSignomialEquality(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(x, []Constraint{Eq(x, Sum(y, Const(1))), Geq(y, Const(2))})
	sol, err := m.Solve(nil)
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if !scalar.EqualWithinAbs(sol.Cost, 3, 1e-2) {
		t.Fatalf("cost %f != 3", sol.Cost)
	}
}

func TestSignomialNotConverged(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(x, []Constraint{Leq(Const(3), Sum(x, y)), Leq(y, Const(1))})
	sol, err := m.LocalSolve(context.Background(), NewBarrierSolver(), nil, SolveOptions{MaxIter: 1, RelTol: 1e-12})
	if !errors.Is(err, ErrNotConverged) {
		t.Fatalf("expected ErrNotConverged, got %v", err)
	}
	var cerr *ConvergenceError
	if !errors.As(err, &cerr) || cerr.Iterations != 1 {
		t.Fatalf("expected a ConvergenceError after one iteration, got %v", err)
	}
	if sol.Status != NotConverged {
		t.Fatalf("status %s", sol.Status)
	}
	if _, err := sol.Value("x"); err != nil {
		t.Fatal("the last iterate must be kept")
	}
}

func TestTightnessWarnings(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	m := NewModel(x, []Constraint{Geq(x, Const(1))}, Tight(Leq(x, Const(5)).Named("cap")))
	sol, err := m.Solve(nil)
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if len(sol.Warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(sol.Warnings))
	}
	if w := sol.Warnings[0]; w.Constraint.Label != "cap" || !scalar.EqualWithinAbs(w.Slack, 0.8, 1e-3) {
		t.Fatalf("unexpected warning %s", w)
	}
}

func TestGuessWarmStart(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(x, []Constraint{Leq(Const(3), Sum(x, y)), Leq(y, Const(1))})
	cold, err := m.Solve(nil)
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	warm, err := m.LocalSolve(context.Background(), NewBarrierSolver(), nil, SolveOptions{Guess: map[string]float64{"x": 2, "y": 1}})
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if warm.Iterations > cold.Iterations {
		t.Fatalf("a guess at the optimum took %d iterations, more than %d from scratch", warm.Iterations, cold.Iterations)
	}
}

func TestContextCancelled(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	m := NewModel(x, []Constraint{Geq(x, Const(1))})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := m.LocalSolve(ctx, NewBarrierSolver(), nil, SolveOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sol.Status != Failed {
		t.Fatalf("status %s", sol.Status)
	}
}
