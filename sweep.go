package turbofan

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-kit/log"
	"github.com/hoburg/turbofan/gp"
	"golang.org/x/sync/errgroup"
)

// SweepOptions tune RunSweep.
type SweepOptions struct {
	Workers      int  // concurrent solves, default runtime.NumCPU()
	SkipFailures bool // record failed points and carry on instead of aborting the sweep
	Solve        gp.SolveOptions
	Guess        map[string]float64 // merged over each point's initial guess
	// Backend returns the backend of one point. It defaults to gp.NewBarrierSolver.
	Backend func() gp.Backend
	Logger  log.Logger
}

// PointResult is the outcome of one sweep point.
type PointResult struct {
	Point    gp.SweepPoint
	Solution *gp.Solution
	Summary  map[string]float64
	Err      error
}

// SweepResult holds every point of a sweep, in expansion order.
type SweepResult struct {
	Swept  []string
	Points []PointResult
	Failed int
}

// RunSweep solves one mission per point of the cartesian product of the swept substitutions.
// Every point builds its own mission with build and is solved independently.
//
// Without SkipFailures the first failed point cancels the others and its error is returned along
// with the points solved so far.
func RunSweep(ctx context.Context, build func() (*Mission, error), subs gp.Substitutions, opts SweepOptions) (*SweepResult, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Backend == nil {
		opts.Backend = func() gp.Backend { return gp.NewBarrierSolver() }
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	logger := log.With(opts.Logger, "subsys", "sweep")

	points := subs.Expand()
	res := &SweepResult{Swept: subs.Swept(), Points: make([]PointResult, len(points))}
	logger.Log("level", "info", "points", len(points), "swept", fmt.Sprint(res.Swept), "workers", opts.Workers)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)
	for _, pt := range points {
		pt := pt
		eg.Go(func() error {
			r := solvePoint(ctx, build, pt, opts)
			res.Points[pt.Index] = r
			if r.Err != nil {
				logger.Log("level", "warning", "point", pt.Index, "values", fmt.Sprint(pt.Swept), "err", r.Err)
				if !opts.SkipFailures {
					return fmt.Errorf("sweep point %d %v: %w", pt.Index, pt.Swept, r.Err)
				}
			}
			return nil
		})
	}
	err := eg.Wait()
	for _, p := range res.Points {
		if p.Err != nil {
			res.Failed++
		}
	}
	logger.Log("level", "notice", "status", "finished", "points", len(points), "failed", res.Failed)
	return res, err
}

func solvePoint(ctx context.Context, build func() (*Mission, error), pt gp.SweepPoint, opts SweepOptions) PointResult {
	r := PointResult{Point: pt}
	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}
	m, err := build()
	if err != nil {
		r.Err = fmt.Errorf("build mission: %w", err)
		return r
	}
	so := opts.Solve
	so.Logger = log.With(opts.Logger, "point", pt.Index)
	so.Guess = m.InitialGuess(pt.Values)
	for k, v := range opts.Guess {
		so.Guess[k] = v
	}
	r.Solution, r.Err = m.Solve(ctx, opts.Backend(), pt.Values, so)
	if r.Err == nil {
		r.Summary = m.Summary(r.Solution)
	}
	return r
}
