package turbofan

import (
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestISA(t *testing.T) {
	sl := isa(0)
	if sl.T != tSL || sl.P != pSL {
		t.Fatalf("sea level T=%f P=%f", sl.T, sl.P)
	}
	if !scalar.EqualWithinAbs(sl.ρ, 1.225, 1e-3) {
		t.Fatalf("sea level density %f", sl.ρ)
	}
	if !scalar.EqualWithinAbs(sl.a, 340.3, 0.1) {
		t.Fatalf("sea level speed of sound %f", sl.a)
	}
	if !scalar.EqualWithinRel(sl.μ, 1.789e-5, 1e-3) {
		t.Fatalf("sea level viscosity %g", sl.μ)
	}
	// Tropopause
	tp := isa(36089)
	if !scalar.EqualWithinAbs(tp.T, 216.65, 0.01) {
		t.Fatalf("tropopause temperature %f", tp.T)
	}
	if !scalar.EqualWithinRel(tp.P, 22632, 1e-3) {
		t.Fatalf("tropopause pressure %f", tp.P)
	}
}

func TestLinspace(t *testing.T) {
	if v := linspace(0, 10000, 5); !floats.Equal(v, []float64{0, 2500, 5000, 7500, 10000}) {
		t.Fatalf("linspace %v", v)
	}
	if v := linspace(3, 7, 1); len(v) != 1 || v[0] != 7 {
		t.Fatalf("single point linspace %v", v)
	}
}

func TestUnits(t *testing.T) {
	if !scalar.EqualWithinAbs(250*ktToMS, 128.611, 1e-3) {
		t.Fatalf("250 kt = %f m/s", 250*ktToMS)
	}
	if !scalar.EqualWithinAbs(1000*fpmToMS, 5.08, 1e-12) {
		t.Fatalf("1000 ft/min = %f m/s", 1000*fpmToMS)
	}
}
