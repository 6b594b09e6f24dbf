package turbofan

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hoburg/turbofan/gp"
)

// fuelBackend echoes the starting point, and fails programs whose starting fuel burn is outside
// (lo, hi).
type fuelBackend struct{ lo, hi float64 }

func (b fuelBackend) Solve(ctx context.Context, p *gp.Program) (*gp.RawSolution, error) {
	if wf := math.Exp(p.Objective.Terms[0].Value(p.Start)); wf <= b.lo || wf >= b.hi {
		return nil, gp.ErrInfeasible
	}
	return echoBackend{}.Solve(ctx, p)
}

func rangeSweep() gp.Substitutions {
	subs := DefaultSubstitutions()
	subs["ReqRng"] = gp.Swept(1000, 2000, 3000)
	return subs
}

func buildSimple() (*Mission, error) { return NewMission(2, 2) }

func TestSweepOrder(t *testing.T) {
	res, err := RunSweep(context.Background(), buildSimple, rangeSweep(), SweepOptions{
		Workers: 3,
		Backend: func() gp.Backend { return echoBackend{} },
	})
	if err != nil {
		t.Fatalf("sweep: %s", err)
	}
	if len(res.Points) != 3 || res.Failed != 0 || len(res.Swept) != 1 || res.Swept[0] != "ReqRng" {
		t.Fatalf("unexpected sweep %+v", res)
	}
	prev := 0.0
	for i, p := range res.Points {
		if p.Point.Index != i || p.Point.Swept["ReqRng"] != float64(1000*(i+1)) {
			t.Fatalf("point %d holds %v", i, p.Point.Swept)
		}
		if p.Err != nil || p.Solution.Status != gp.Optimal {
			t.Fatalf("point %d: %v", i, p.Err)
		}
		// The starting fuel burn grows with the range, and the echo keeps it.
		wf := p.Summary["W_{f_{total}}"]
		if !(wf > prev) {
			t.Fatalf("point %d: fuel %f after %f", i, wf, prev)
		}
		prev = wf
		if p.Summary["ReqRng"] != float64(1000*(i+1)) {
			t.Fatalf("point %d: range %f", i, p.Summary["ReqRng"])
		}
	}
}

func TestSweepSkipFailures(t *testing.T) {
	res, err := RunSweep(context.Background(), buildSimple, rangeSweep(), SweepOptions{
		Workers:      2,
		SkipFailures: true,
		Backend:      func() gp.Backend { return fuelBackend{hi: 6e4} },
	})
	if err != nil {
		t.Fatalf("skipping sweep returned %s", err)
	}
	if res.Failed != 1 {
		t.Fatalf("expected one failed point, got %d", res.Failed)
	}
	last := res.Points[2]
	if !errors.Is(last.Err, gp.ErrInfeasible) || last.Solution.Status != gp.Infeasible || last.Summary != nil {
		t.Fatalf("the longest range must fail: %+v", last)
	}
	for _, p := range res.Points[:2] {
		if p.Err != nil || p.Summary == nil {
			t.Fatalf("point %d: %v", p.Point.Index, p.Err)
		}
	}
}

func TestSweepAbort(t *testing.T) {
	res, err := RunSweep(context.Background(), buildSimple, rangeSweep(), SweepOptions{
		Workers: 1,
		Backend: func() gp.Backend { return fuelBackend{lo: 4e4, hi: math.Inf(1)} },
	})
	if !errors.Is(err, gp.ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
	if res == nil || res.Failed != 3 {
		t.Fatalf("expected every point to fail, got %+v", res)
	}
	for _, p := range res.Points[1:] {
		if !errors.Is(p.Err, context.Canceled) {
			t.Fatalf("point %d should be cancelled, got %v", p.Point.Index, p.Err)
		}
	}
}

func TestSweepBuildFailure(t *testing.T) {
	res, err := RunSweep(context.Background(), func() (*Mission, error) { return NewMission(0, 2) }, DefaultSubstitutions(), SweepOptions{
		SkipFailures: true,
		Backend:      func() gp.Backend { return echoBackend{} },
	})
	if err != nil {
		t.Fatalf("sweep: %s", err)
	}
	if len(res.Points) != 1 || !errors.Is(res.Points[0].Err, ErrSegmentCount) {
		t.Fatalf("expected a build failure, got %+v", res.Points)
	}
}

func TestSweepGuessOverride(t *testing.T) {
	subs := DefaultSubstitutions()
	res, err := RunSweep(context.Background(), buildSimple, subs, SweepOptions{
		Guess:   map[string]float64{"Mission.W_{total}": 6e5},
		Backend: func() gp.Backend { return echoBackend{} },
	})
	if err != nil {
		t.Fatalf("sweep: %s", err)
	}
	if got := res.Points[0].Summary["W_{total}"]; math.Abs(got-6e5) > 1e-6 {
		t.Fatalf("take off weight %f, expected the guess", got)
	}
}

func TestSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := RunSweep(ctx, buildSimple, rangeSweep(), SweepOptions{
		Backend: func() gp.Backend { return echoBackend{} },
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a cancelled sweep, got %v", err)
	}
	if res.Failed != 3 {
		t.Fatalf("expected every point to fail, got %d", res.Failed)
	}
}
