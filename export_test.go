package turbofan

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/hoburg/turbofan/gp"
)

func TestWriteSweepCSV(t *testing.T) {
	res, err := RunSweep(context.Background(), buildSimple, rangeSweep(), SweepOptions{
		SkipFailures: true,
		Backend:      func() gp.Backend { return fuelBackend{hi: 6e4} },
	})
	if err != nil {
		t.Fatalf("sweep: %s", err)
	}
	var buf bytes.Buffer
	if err := WriteSweepCSV(&buf, res); err != nil {
		t.Fatalf("write: %s", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %s", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected a header and 3 rows, got %d", len(rows))
	}
	header := rows[0]
	if header[0] != "point" || header[1] != "ReqRng" || header[2] != "status" || header[3] != "error" {
		t.Fatalf("unexpected header %v", header)
	}
	col := -1
	for i, h := range header {
		if h == "W_{f_{total}}" {
			col = i
		}
	}
	if col < 0 {
		t.Fatalf("no fuel column in %v", header)
	}
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			t.Fatalf("row %d has %d fields", i, len(row))
		}
		rng, err := strconv.ParseFloat(row[1], 64)
		if err != nil || rng != float64(1000*(i+1)) {
			t.Fatalf("row %d range %q", i, row[1])
		}
	}
	if rows[1][2] != "optimal" || rows[1][3] != "" || rows[1][col] == "" {
		t.Fatalf("unexpected solved row %v", rows[1])
	}
	if rows[3][2] != "infeasible" || rows[3][3] == "" || rows[3][col] != "" {
		t.Fatalf("unexpected failed row %v", rows[3])
	}
}

func TestSolutionReport(t *testing.T) {
	m, err := NewTwoClimbMission(2, 2, 3)
	if err != nil {
		t.Fatalf("mission: %s", err)
	}
	subs := DefaultSubstitutions().Expand()[0].Values
	sol, err := m.Solve(context.Background(), echoBackend{}, subs, gp.SolveOptions{})
	if err != nil {
		t.Fatalf("solve: %s", err)
	}
	var buf bytes.Buffer
	if err := m.WriteSolutionJSON(&buf, sol); err != nil {
		t.Fatalf("write: %s", err)
	}
	var r SolutionReport
	if err := json.Unmarshal(buf.Bytes(), &r); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if r.Topology != "two-climb" || r.Status != "optimal" || r.Cost != sol.Cost {
		t.Fatalf("unexpected report header %+v", r)
	}
	if len(r.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(r.Segments))
	}
	for i, n := range []int{2, 2, 3} {
		s := r.Segments[i]
		if len(s.Values["hft"]) != n || len(s.Values["W_{start}"]) != n {
			t.Fatalf("segment %s values %v", s.Name, s.Values)
		}
		if _, ok := s.Values["RC"]; !ok {
			t.Fatalf("climbing segment %s lacks a climb rate", s.Name)
		}
	}
	if r.Segments[2].Kind != "cruise-climb" || r.Summary["ReqRng"] != 2000 {
		t.Fatalf("unexpected report %+v", r)
	}
}
