package turbofan

import (
	"context"
	"errors"
	"testing"

	"github.com/hoburg/turbofan/gp"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestSmallMissionSolve(t *testing.T) {
	m, err := NewMission(1, 1)
	if err != nil {
		t.Fatalf("mission: %s", err)
	}
	subs := DefaultSubstitutions().Expand()[0].Values
	sol, err := m.Solve(context.Background(), gp.NewBarrierSolver(), subs, gp.SolveOptions{})
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	if sol.Status != gp.Optimal || !(sol.Cost > 0) {
		t.Fatalf("status %s cost %f", sol.Status, sol.Cost)
	}
	if err := m.Check(sol); err != nil {
		t.Fatalf("inconsistent solution: %s", err)
	}
	// The climb ends exactly at the cruise altitude, which is where every step bound binds.
	alt := sol.MustValue("Mission.CruiseAlt")
	if h := sol.MustVector("Mission.Climb.hft"); !scalar.EqualWithinRel(h[0], alt, 1e-4) {
		t.Fatalf("climb ends at %f ft, cruise at %f ft", h[0], alt)
	}
	wd, wf, wt := sol.MustValue("Mission.W_{dry}"), sol.MustValue("Mission.W_{f_{total}}"), sol.MustValue("Mission.W_{total}")
	if !scalar.EqualWithinRel(wd+wf, wt, 1e-3) {
		t.Fatalf("dry %f + fuel %f != take off %f", wd, wf, wt)
	}
}

func TestUnreachableClimbRate(t *testing.T) {
	m, err := NewMission(1, 1)
	if err != nil {
		t.Fatalf("mission: %s", err)
	}
	subs := DefaultSubstitutions().Expand()[0].Values
	if _, err := m.Solve(context.Background(), gp.NewBarrierSolver(), subs, gp.SolveOptions{}); err != nil {
		t.Fatalf("the default climb rate must be reachable: %s", err)
	}
	subs["RC_{min}"] = 1e5
	sol, err := m.Solve(context.Background(), gp.NewBarrierSolver(), subs, gp.SolveOptions{})
	if !errors.Is(err, gp.ErrInfeasible) {
		t.Fatalf("expected an infeasible mission, got %v", err)
	}
	if sol.Status != gp.Infeasible {
		t.Fatalf("status %s", sol.Status)
	}
}
