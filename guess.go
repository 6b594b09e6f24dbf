package turbofan

import (
	"github.com/hoburg/turbofan/gp"
)

// Defaults used to seed a solve when a value is neither substituted nor guessed.
const (
	guessCruiseAlt   = 35000.0 // ft
	guessReqRng      = 2000.0  // nmi
	guessWTotal      = 7e5     // N
	guessLD          = 17.0
	guessClimbRate   = 10.0 // m/s
	guessCruiseStep  = 100.0
	guessTSFC        = 1.5e-4 // 1/s
	guessClimbMach   = 0.5
	guessClimb1Mach  = 0.35
	guessCruiseMach  = 0.78
	guessWingArea    = 120.0
	guessAspectRatio = 10.0
)

// InitialGuess returns a starting point for every free variable of the mission, keyed by element
// reference. The flight profile is laid out at the substituted (or default) cruise altitude and
// range, in a standard atmosphere, with fuel burnt evenly over the mission points.
func (m *Mission) InitialGuess(subs map[string]float64) map[string]float64 {
	g := make(map[string]float64)
	put := func(v *gp.Var, val float64) {
		if val > 0 {
			g[v.String()] = val
		}
	}
	ca := subValue(subs, m.CruiseAlt, guessCruiseAlt)
	rng := subValue(subs, m.ReqRng, guessReqRng)
	numeng := subValue(subs, m.Aircraft.NumEng, 1)

	wTotal := guessWTotal
	wFuel := wTotal * (0.02 + 0.06*rng/2000)
	perPoint := wFuel / float64(m.State.Len())
	put(m.WTotal, wTotal)
	put(m.WfTotal, wFuel)
	put(m.WDry, wTotal-wFuel)
	put(m.CruiseAlt, ca)

	ac := m.Aircraft
	put(ac.S, guessWingArea)
	put(ac.AR, guessAspectRatio)
	put(ac.B, 35)
	put(ac.WWing, 8e4)
	put(ac.WE, 3e5)
	put(ac.AFuse, 150)
	put(ac.WPayload, 150*91*gravity)

	if e, ok := m.Engine.(*LapseEngine); ok {
		put(e.fSL, 1.5e5)
		put(e.w, 3e4)
	}

	hfts := m.altitudePlan(ca)
	steps := m.stepPlan(ca)
	for k, s := range m.Steps {
		if k < len(steps) {
			put(s, steps[k])
		}
	}

	F, TSFC, M2, M25 := m.Engine.Thrust(), m.Engine.TSFC(), m.Engine.FanMach(), m.Engine.CompressorMach()
	j := 0
	w := wTotal
	for k, s := range m.Segments {
		put(m.Fuel[k], perPoint*float64(s.Len()))
		mach := guessCruiseMach
		switch {
		case s.Kind == Climb && m.Topology == TwoClimbCruiseClimb && k == 0:
			mach = guessClimb1Mach
		case s.Kind == Climb:
			mach = guessClimbMach
		}
		for i := 0; i < s.Len(); i++ {
			hft := hfts[j]
			atm := isa(hft)
			V := mach * atm.a
			q := 0.5 * atm.ρ * V * V * guessWingArea
			wAvg := w - perPoint/2

			state := map[StateField]float64{
				Pressure:     atm.P,
				Density:      atm.ρ,
				Temperature:  atm.T,
				Viscosity:    atm.μ,
				Altitude:     hft * ftToM,
				AltitudeFt:   hft,
				Airspeed:     V,
				SpeedOfSound: atm.a,
				Mach:         mach,
			}
			for f, val := range state {
				put(m.State.Field(f)[j], val)
				put(s.State.Field(f)[i], val)
			}

			D := wAvg / guessLD
			thrust := D
			var thr float64
			put(s.WStart[i], w)
			put(s.WEnd[i], w-perPoint)
			put(s.WBurn[i], perPoint)
			put(s.WAvg[i], wAvg)
			put(s.Aero.D[i], D)
			put(s.Aero.CL[i], wAvg/q)
			put(s.Aero.CD[i], D/q)
			if s.Climbing() {
				dh := steps[k]
				rc := guessClimbRate
				thr = dh * ftToM / rc
				if s.Kind == CruiseClimb {
					thr = rng * nmiToM / float64(s.Len()) / V
					rc = dh * ftToM / thr
				}
				θ := rc / V
				thrust = D + wAvg*θ
				put(s.ExcessP[i], rc*wAvg)
				put(s.RC[i], rc)
				put(s.Theta[i], θ)
				put(s.Dhft[i], dh)
				put(s.Rng[i], V*thr)
			} else {
				thr = rng * nmiToM / float64(s.Len()) / V
				put(s.Rng[i], V*thr)
				put(s.Zbre[i], perPoint/(w-perPoint))
			}
			put(s.Thr[i], thr)

			put(F[j], thrust/numeng)
			put(TSFC[j], guessTSFC)
			put(M2[j], mach)
			put(M25[j], 0.6)
			w -= perPoint
			j++
		}
	}
	return g
}

// altitudePlan returns the expected altitude of every mission point, in feet.
func (m *Mission) altitudePlan(ca float64) []float64 {
	switch m.Topology {
	case ClimbCruise:
		n, nc := m.Segments[0].Len(), m.Segments[1].Len()
		return append(linspace(ca/float64(n), ca, n), linspace(ca, ca, nc)...)
	case TwoClimbCruiseClimb:
		n1, n2, nc := m.Segments[0].Len(), m.Segments[1].Len(), m.Segments[2].Len()
		hfts := linspace(climb1Ceiling/float64(n1), climb1Ceiling, n1)
		hfts = append(hfts, linspace(climb1Ceiling+(ca-climb1Ceiling)/float64(n2), ca, n2)...)
		return append(hfts, linspace(ca, ca+guessCruiseStep*float64(nc-1), nc)...)
	}
	return nil
}

// stepPlan returns the expected altitude step of every segment in feet, zero for level segments.
func (m *Mission) stepPlan(ca float64) []float64 {
	switch m.Topology {
	case ClimbCruise:
		return []float64{ca / float64(m.Segments[0].Len()), 0}
	case TwoClimbCruiseClimb:
		n1, n2 := m.Segments[0].Len(), m.Segments[1].Len()
		return []float64{climb1Ceiling / float64(n1), (ca - climb1Ceiling) / float64(n2), guessCruiseStep}
	}
	return nil
}

// subValue returns the substituted value of v, or def.
func subValue(subs map[string]float64, v *gp.Var, def float64) float64 {
	for _, ref := range []string{v.String(), v.Name} {
		if val, ok := subs[ref]; ok {
			return val
		}
	}
	return def
}
