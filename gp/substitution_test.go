package gp

import (
	"errors"
	"testing"
)

func TestExpandCartesian(t *testing.T) {
	subs := Substitutions{
		"ReqRng":    Swept(1000, 2000, 3000),
		"CruiseAlt": Swept(30000, 35000),
		"RC_{min}":  Fixed(1000),
	}
	if names := subs.Swept(); len(names) != 2 || names[0] != "CruiseAlt" || names[1] != "ReqRng" {
		t.Fatalf("unexpected swept names %v", names)
	}
	pts := subs.Expand()
	if len(pts) != 6 {
		t.Fatalf("expected 6 points, got %d", len(pts))
	}
	// The last sorted name varies fastest.
	exp := [][2]float64{{30000, 1000}, {30000, 2000}, {30000, 3000}, {35000, 1000}, {35000, 2000}, {35000, 3000}}
	for i, p := range pts {
		if p.Index != i || p.Values["CruiseAlt"] != exp[i][0] || p.Values["ReqRng"] != exp[i][1] {
			t.Fatalf("point %d: %+v", i, p)
		}
		if p.Values["RC_{min}"] != 1000 || len(p.Swept) != 2 {
			t.Fatalf("point %d: fixed values must be carried and not reported as swept", i)
		}
	}
}

func TestExpandWithoutSweep(t *testing.T) {
	pts := Substitutions{"a": Fixed(1)}.Expand()
	if len(pts) != 1 || pts[0].Values["a"] != 1 {
		t.Fatalf("unexpected expansion %+v", pts)
	}
}

func TestLookupPrecedence(t *testing.T) {
	s := NewScope("Mission").Sub("Climb")
	v := s.Vector(2, "hft", "ft", "")
	table := map[string]float64{"hft": 1, "Mission.Climb.hft": 2, "Mission.Climb.hft[1]": 3}
	if val, ref, _ := lookup(table, v[0]); val != 2 || ref != "Mission.Climb.hft" {
		t.Fatalf("key must win over name, got %f from %s", val, ref)
	}
	if val, _, _ := lookup(table, v[1]); val != 3 {
		t.Fatalf("element must win over key, got %f", val)
	}
	if val, _, _ := lookup(map[string]float64{"hft": 1}, v[1]); val != 1 {
		t.Fatalf("bare name must apply to every element, got %f", val)
	}
	if _, _, ok := lookup(nil, v[0]); ok {
		t.Fatal("nothing resolves in an empty table")
	}
}

func TestSolutionLookup(t *testing.T) {
	root := NewScope("Mission")
	a := root.Sub("Climb").Vector(2, "V", "m/s", "")
	b := root.Sub("Cruise").Vector(3, "V", "m/s", "")
	w := root.Var("W_{total}", "N", "")
	x := Point{w: 10}
	vars := []*Var{w}
	for i, v := range append(append(Vector{}, a...), b...) {
		x[v] = float64(i + 1)
		vars = append(vars, v)
	}
	sol := newSolution(vars, x)
	if v, err := sol.Value("W_{total}"); err != nil || v != 10 {
		t.Fatalf("bare scalar lookup: %f %v", v, err)
	}
	if _, err := sol.Vector("V"); !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
	vs, err := sol.Vector("Mission.Cruise.V")
	if err != nil || len(vs) != 3 || vs[0] != 3 {
		t.Fatalf("key lookup: %v %v", vs, err)
	}
	if v, err := sol.Value("Mission.Climb.V[1]"); err != nil || v != 2 {
		t.Fatalf("element lookup: %f %v", v, err)
	}
	if _, err := sol.Value("Mission.Climb.V"); err == nil {
		t.Fatal("a vector is not a scalar")
	}
	if _, err := sol.Value("nope"); !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("expected ErrUnknownVariable, got %v", err)
	}
	if _, err := sol.Value("Mission.Climb.V[7]"); !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}
