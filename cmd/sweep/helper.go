package main

import (
	"github.com/hoburg/turbofan"
	"github.com/hoburg/turbofan/gp"
	"github.com/hoburg/turbofan/store"
)

// storePoints converts the points of a sweep for the store.
func storePoints(runID int64, res *turbofan.SweepResult) []store.Point {
	ps := make([]store.Point, len(res.Points))
	for i, p := range res.Points {
		sp := store.Point{RunID: runID, Index: p.Point.Index, Swept: p.Point.Swept, Values: p.Summary}
		switch {
		case p.Solution != nil:
			sp.Status = p.Solution.Status.String()
		case p.Err != nil:
			sp.Status = gp.Failed.String()
		default:
			sp.Status = gp.Optimal.String()
		}
		if p.Err != nil {
			sp.Err = p.Err.Error()
		}
		ps[i] = sp
	}
	return ps
}
