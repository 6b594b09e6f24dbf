package turbofan

import (
	"fmt"

	"github.com/hoburg/turbofan/gp"
)

// Engine is the propulsion model of an aircraft. Its performance vectors span every point of the
// mission flight state.
type Engine interface {
	// Thrust returns the thrust of one engine at every mission point.
	Thrust() gp.Vector
	// TSFC returns the thrust specific fuel consumption at every mission point.
	TSFC() gp.Vector
	// FanMach returns the fan face Mach number at every mission point.
	FanMach() gp.Vector
	// CompressorMach returns the high pressure compressor face Mach number at every mission point.
	CompressorMach() gp.Vector
	// Weight returns the installed weight of one engine.
	Weight() *gp.Var
	// Constraints returns the engine relations.
	Constraints() []gp.Constraint
}

/* Available engines */

// LapseEngine is a fixed cycle turbofan: thrust lapses with density from its sea level rating,
// fuel consumption grows with flight Mach number and ambient temperature, and weight scales with
// the rating.
type LapseEngine struct {
	state *FlightState

	f, tsfc, m2, m25 gp.Vector
	fSL, fSLMax      *gp.Var
	w, kEngine       *gp.Var
	tsfc0, tsfcM     *gp.Var
	m25Design        *gp.Var
}

// NewLapseEngine returns an engine sized against the mission flight state.
func NewLapseEngine(scope gp.Scope, state *FlightState) *LapseEngine {
	n := state.Len()
	return &LapseEngine{
		state:     state,
		f:         scope.Vector(n, "F", "N", "thrust per engine"),
		tsfc:      scope.Vector(n, "TSFC", "1/s", "thrust specific fuel consumption"),
		m2:        scope.Vector(n, "M_2", "-", "fan face Mach number"),
		m25:       scope.Vector(n, "M_{2.5}", "-", "compressor face Mach number"),
		fSL:       scope.Var("F_{SL}", "N", "sea level static thrust rating"),
		fSLMax:    scope.Var("F_{SL_{max}}", "N", "largest available rating"),
		w:         scope.Var("W_{engine}", "N", "installed weight of one engine"),
		kEngine:   scope.Var("K_{engine}", "-", "engine weight per unit of rated thrust"),
		tsfc0:     scope.Var("TSFC_{0}", "1/s", "static fuel consumption at sea level"),
		tsfcM:     scope.Var("TSFC_{M}", "1/s", "fuel consumption growth with Mach number"),
		m25Design: scope.Var("M_{2.5_D}", "-", "design compressor face Mach number"),
	}
}

// Thrust implements the Engine interface.
func (e *LapseEngine) Thrust() gp.Vector {
	return e.f
}

// TSFC implements the Engine interface.
func (e *LapseEngine) TSFC() gp.Vector {
	return e.tsfc
}

// FanMach implements the Engine interface.
func (e *LapseEngine) FanMach() gp.Vector {
	return e.m2
}

// CompressorMach implements the Engine interface.
func (e *LapseEngine) CompressorMach() gp.Vector {
	return e.m25
}

// Weight implements the Engine interface.
func (e *LapseEngine) Weight() *gp.Var {
	return e.w
}

// Constraints implements the Engine interface.
func (e *LapseEngine) Constraints() []gp.Constraint {
	var (
		ρ   = e.state.Field(Density)
		T   = e.state.Field(Temperature)
		tSL = e.state.Field(TSL)
		pSL = e.state.Field(PSL)
		Ru  = e.state.Field(GasConstant)
		Mm  = e.state.Field(MolarMass)
	)
	cs := []gp.Constraint{
		gp.Geq(e.w, gp.Prod(e.kEngine, e.fSL)).Named("engine weight"),
		gp.Leq(e.fSL, e.fSLMax).Named("engine rating"),
	}
	for i := range e.f {
		// σ = ρ/ρ_sl with ρ_sl = p_sl·M/(R·T_sl)
		σ := gp.Prod(ρ[i], Ru[i], tSL[i]).Div(gp.Prod(pSL[i], Mm[i]))
		θ := gp.Div(T[i], tSL[i]).Pow(0.5)
		cs = append(cs,
			gp.Leq(e.f[i], gp.Prod(e.fSL, σ.Pow(0.75))).Named(fmt.Sprintf("thrust lapse %d", i)),
			gp.Geq(e.tsfc[i], gp.Sum(gp.Prod(e.tsfc0, θ), gp.Prod(e.tsfcM, e.m2[i], θ))),
			gp.Eq(e.m25[i], e.m25Design),
		)
	}
	return cs
}
