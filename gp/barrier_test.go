package gp

import (
	"context"
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestStartOnBoundary(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	// x = y = 1 lies on the constraint, and the feasible set is unbounded.
	m := NewModel(Sum(x, y), []Constraint{Geq(x.Mono().Mul(y), Const(1))})
	sol, err := m.LocalSolve(context.Background(), NewBarrierSolver(), nil, SolveOptions{Guess: map[string]float64{"x": 1, "y": 1}})
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if sol.Status != Optimal || !scalar.EqualWithinAbs(sol.Cost, 2, 1e-6) {
		t.Fatalf("status %s cost %f", sol.Status, sol.Cost)
	}
}

func TestEqualityOnlyFeasibleSet(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(x.Mono().Pow(-1), []Constraint{Geq(x, Const(1)), Leq(x, y), Eq(y, Const(1))})
	sol, err := m.Solve(nil)
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if !scalar.EqualWithinAbs(sol.MustValue("x"), 1, 1e-6) || !scalar.EqualWithinAbs(sol.MustValue("y"), 1, 1e-6) {
		t.Fatalf("x=%f y=%f", sol.MustValue("x"), sol.MustValue("y"))
	}
}

func TestAltitudeChain(t *testing.T) {
	s := NewScope("")
	h := s.Vector(2, "h", "ft", "altitude")
	dh := s.Var("dh", "ft", "step")
	top := s.Var("top", "ft", "ceiling")
	// The steps add up to the ceiling exactly: no point satisfies the inequalities strictly.
	m := NewModel(h.Sum(), []Constraint{
		Geq(h[0], dh),
		Geq(h[1], Sum(h[0], dh)),
		Leq(h[1], top),
		Eq(dh.Mono().Scale(2), top),
	})
	if m.Signomial() {
		t.Fatal("the chain is a geometric program")
	}
	sol, err := m.Solve(map[string]float64{"top": 3})
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if sol.Status != Optimal || !scalar.EqualWithinAbs(sol.Cost, 4.5, 1e-5) {
		t.Fatalf("status %s cost %f", sol.Status, sol.Cost)
	}
	if v := sol.MustVector("h"); !scalar.EqualWithinRel(v[0], 1.5, 1e-5) || !scalar.EqualWithinRel(v[1], 3, 1e-5) {
		t.Fatalf("altitudes %v", v)
	}
}

func TestEqualityOnlyInfeasible(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(x.Mono().Pow(-1), []Constraint{Geq(x, Const(1)), Leq(x, y), Eq(y, Const(0.999))})
	sol, err := m.Solve(nil)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
	if sol.Status != Infeasible {
		t.Fatalf("status %s", sol.Status)
	}
}

func TestCenteringOutOfSteps(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(Sum(x, y), []Constraint{Geq(x.Mono().Mul(y), Const(8)), Leq(x, Const(100))})
	sol, err := m.LocalSolve(context.Background(), &BarrierSolver{MaxNewton: 1}, nil, SolveOptions{})
	if !errors.Is(err, ErrNotConverged) {
		t.Fatalf("expected ErrNotConverged, got %v", err)
	}
	var cerr *ConvergenceError
	if errors.As(err, &cerr) {
		t.Fatalf("a stalled backend is not a signomial convergence failure: %v", err)
	}
	if sol.Status != NotConverged {
		t.Fatalf("status %s", sol.Status)
	}
}

func TestZeroBarrierSolver(t *testing.T) {
	s := NewScope("")
	x := s.Var("x", "-", "")
	y := s.Var("y", "-", "")
	m := NewModel(Sum(x, y), []Constraint{Geq(x.Mono().Mul(y), Const(8)), Eq(x, y.Mono().Scale(2))})
	sol, err := m.LocalSolve(context.Background(), &BarrierSolver{}, nil, SolveOptions{})
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if !scalar.EqualWithinAbs(sol.Cost, 6, 1e-5) {
		t.Fatalf("cost %f != 6", sol.Cost)
	}
}
