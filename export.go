package turbofan

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hoburg/turbofan/gp"
)

// WriteSweepCSV writes one row per sweep point: the swept values, the outcome and the summary
// values of solved points.
func WriteSweepCSV(w io.Writer, res *SweepResult) error {
	cols := summaryColumns(res)
	cw := csv.NewWriter(w)
	header := append([]string{"point"}, res.Swept...)
	header = append(header, "status", "error")
	header = append(header, cols...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range res.Points {
		record := []string{strconv.Itoa(p.Point.Index)}
		for _, name := range res.Swept {
			record = append(record, formatFloat(p.Point.Swept[name]))
		}
		status, msg := gp.Optimal.String(), ""
		if p.Solution != nil {
			status = p.Solution.Status.String()
		}
		if p.Err != nil {
			msg = p.Err.Error()
			if p.Solution == nil {
				status = gp.Failed.String()
			}
		}
		record = append(record, status, msg)
		for _, c := range cols {
			if v, ok := p.Summary[c]; ok {
				record = append(record, formatFloat(v))
			} else {
				record = append(record, "")
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func summaryColumns(res *SweepResult) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, p := range res.Points {
		for k := range p.Summary {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

// SolutionReport is the JSON rendering of a mission solution.
type SolutionReport struct {
	Topology      string             `json:"topology"`
	Status        string             `json:"status"`
	Cost          float64            `json:"cost"`
	Iterations    int                `json:"iterations"`
	Convergence   []float64          `json:"convergence,omitempty"`
	Summary       map[string]float64 `json:"summary"`
	Segments      []SegmentReport    `json:"segments"`
	Sensitivities map[string]float64 `json:"sensitivities,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
}

// SegmentReport holds the per point values of one segment.
type SegmentReport struct {
	Name   string               `json:"name"`
	Kind   string               `json:"kind"`
	Values map[string][]float64 `json:"values"`
}

// Report returns the JSON rendering of sol.
func (m *Mission) Report(sol *gp.Solution) *SolutionReport {
	r := &SolutionReport{
		Topology:    m.Topology.String(),
		Status:      sol.Status.String(),
		Cost:        sol.Cost,
		Iterations:  sol.Iterations,
		Convergence: sol.Convergence,
		Summary:     m.Summary(sol),
	}
	if sol.Sensitivities.Constants != nil {
		r.Sensitivities = sol.Sensitivities.Constants
	}
	for _, w := range sol.Warnings {
		r.Warnings = append(r.Warnings, w.String())
	}
	for _, s := range m.Segments {
		sr := SegmentReport{Name: s.Name, Kind: s.Kind.String(), Values: make(map[string][]float64)}
		vecs := []gp.Vector{s.WStart, s.WEnd, s.WBurn, s.Thr, s.Rng, s.Aero.D, s.Aero.CL,
			s.State.Field(AltitudeFt), s.State.Field(Airspeed), s.State.Field(Mach)}
		if s.Climbing() {
			vecs = append(vecs, s.RC, s.Theta)
		}
		for _, vec := range vecs {
			vals := make([]float64, len(vec))
			for i, v := range vec {
				vals[i] = sol.Point[v]
			}
			sr.Values[vec[0].Name] = vals
		}
		r.Segments = append(r.Segments, sr)
	}
	return r
}

// WriteSolutionJSON writes the report of sol as indented JSON.
func (m *Mission) WriteSolutionJSON(w io.Writer, sol *gp.Solution) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Report(sol)); err != nil {
		return fmt.Errorf("encode solution: %w", err)
	}
	return nil
}
