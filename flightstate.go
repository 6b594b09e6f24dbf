package turbofan

import (
	"fmt"

	"github.com/hoburg/turbofan/gp"
)

// StateField is one tracked quantity of a flight state.
type StateField uint8

// The tracked fields, in linking order.
const (
	PSL StateField = iota
	TSL
	LapseRate
	MolarMass
	Pressure
	GasConstant
	Density
	Temperature
	Viscosity
	SutherlandT
	SutherlandC
	Altitude
	AltitudeFt
	Airspeed
	SpeedOfSound
	SpecificGasConstant
	HeatCapacityRatio
	Mach
	stateFieldCount
)

var stateFieldNames = [stateFieldCount]struct{ name, units, label string }{
	{"p_{sl}", "Pa", "sea level pressure"},
	{"T_{sl}", "K", "sea level temperature"},
	{"L_{atm}", "K/m", "temperature lapse rate"},
	{"M_{atm}", "kg/mol", "molar mass of air"},
	{"P_{atm}", "Pa", "air pressure"},
	{"R_{atm}", "J/mol/K", "universal gas constant"},
	{"\\rho", "kg/m^3", "air density"},
	{"T_{atm}", "K", "air temperature"},
	{"\\mu", "kg/m/s", "dynamic viscosity"},
	{"T_s", "K", "Sutherland temperature"},
	{"C_1", "kg/m/s/K^0.5", "Sutherland coefficient"},
	{"h", "m", "altitude"},
	{"hft", "ft", "altitude"},
	{"V", "m/s", "true airspeed"},
	{"a", "m/s", "speed of sound"},
	{"R", "J/kg/K", "specific gas constant of air"},
	{"\\gamma", "-", "heat capacity ratio of air"},
	{"M", "-", "Mach number"},
}

// Name returns the variable name of the field.
func (f StateField) Name() string {
	if f >= stateFieldCount {
		panic(fmt.Errorf("unknown state field %d", f))
	}
	return stateFieldNames[f].name
}

func (f StateField) String() string {
	return f.Name()
}

// StateFields returns every tracked field in linking order.
func StateFields() []StateField {
	fs := make([]StateField, stateFieldCount)
	for i := range fs {
		fs[i] = StateField(i)
	}
	return fs
}

// FlightState is a sequence of n flight conditions. Reference constants (sea level conditions, gas
// properties) are held per index like every other field and share a name, so that a single
// substitution fixes every element.
type FlightState struct {
	scope  gp.Scope
	n      int
	fields [stateFieldCount]gp.Vector
	global bool
}

// NewFlightState returns the authoritative flight state of a mission, which carries the
// atmosphere relations.
func NewFlightState(scope gp.Scope, n int) *FlightState {
	return newFlightState(scope, n, true)
}

// NewLocalFlightState returns a segment copy, which holds variables only and is tied to the
// authoritative state by LinkStates.
func NewLocalFlightState(scope gp.Scope, n int) *FlightState {
	return newFlightState(scope, n, false)
}

func newFlightState(scope gp.Scope, n int, global bool) *FlightState {
	if n <= 0 {
		panic(fmt.Errorf("flight state %s needs at least one point, got %d", scope.Lineage(), n))
	}
	fs := &FlightState{scope: scope, n: n, global: global}
	for f, d := range stateFieldNames {
		fs.fields[f] = scope.Vector(n, d.name, d.units, d.label)
	}
	return fs
}

// Len returns the number of points.
func (fs *FlightState) Len() int {
	return fs.n
}

// Lineage returns the lineage of the state variables.
func (fs *FlightState) Lineage() string {
	return fs.scope.Lineage()
}

// Field returns the variables of one field.
func (fs *FlightState) Field(f StateField) gp.Vector {
	return fs.fields[f]
}

// Slice returns a view on the points in [lo, hi). The view shares variables with fs and carries no
// relations of its own.
func (fs *FlightState) Slice(lo, hi int) *FlightState {
	if lo < 0 || hi > fs.n || lo >= hi {
		panic(fmt.Errorf("invalid slice [%d:%d] of %d point flight state", lo, hi, fs.n))
	}
	v := &FlightState{scope: fs.scope, n: hi - lo}
	for f := range fs.fields {
		v.fields[f] = fs.fields[f].Slice(lo, hi)
	}
	return v
}

// Constraints returns the atmosphere and airspeed relations of an authoritative state, and nothing
// for a local copy.
func (fs *FlightState) Constraints() []gp.Constraint {
	if !fs.global {
		return nil
	}
	var (
		pSL = fs.fields[PSL]
		tSL = fs.fields[TSL]
		L   = fs.fields[LapseRate]
		Mm  = fs.fields[MolarMass]
		P   = fs.fields[Pressure]
		Ru  = fs.fields[GasConstant]
		ρ   = fs.fields[Density]
		T   = fs.fields[Temperature]
		μ   = fs.fields[Viscosity]
		Ts  = fs.fields[SutherlandT]
		C1  = fs.fields[SutherlandC]
		h   = fs.fields[Altitude]
		hft = fs.fields[AltitudeFt]
		V   = fs.fields[Airspeed]
		a   = fs.fields[SpeedOfSound]
		R   = fs.fields[SpecificGasConstant]
		γ   = fs.fields[HeatCapacityRatio]
		M   = fs.fields[Mach]
	)
	var cs []gp.Constraint
	for i := 0; i < fs.n; i++ {
		// The pressure exponent g·M/(R·L) is evaluated at the standard constants so that the
		// troposphere pressure law stays a monomial relation.
		cs = append(cs,
			gp.Eq(gp.Sum(T[i], gp.Prod(L[i], h[i])), tSL[i]).Named(fmt.Sprintf("%s: lapse %d", fs.Lineage(), i)),
			gp.Eq(gp.Prod(P[i], gp.Pow(tSL[i], pressureExponent)), gp.Prod(pSL[i], gp.Pow(T[i], pressureExponent))),
			gp.Eq(gp.Prod(ρ[i], Ru[i], T[i]), gp.Prod(P[i], Mm[i])),
			gp.Eq(gp.Pow(a[i], 2), gp.Prod(γ[i], R[i], T[i])),
			gp.Eq(V[i], gp.Prod(M[i], a[i])),
			gp.Eq(gp.Sum(μ[i], gp.Prod(μ[i], gp.Pow(T[i], -1), Ts[i])), gp.Prod(C1[i], gp.Pow(T[i], 0.5))).Named(fmt.Sprintf("%s: sutherland %d", fs.Lineage(), i)),
			gp.Eq(h[i], hft[i].Mono().Scale(ftToM)),
		)
	}
	return cs
}

// atmosphereConstants returns the standard values of the reference constants, keyed by bare name.
func atmosphereConstants() map[string]float64 {
	return map[string]float64{
		PSL.Name():                 pSL,
		TSL.Name():                 tSL,
		LapseRate.Name():           lapseRate,
		MolarMass.Name():           molarMass,
		GasConstant.Name():         gasConstant,
		SutherlandT.Name():         sutherlandTs,
		SutherlandC.Name():         sutherlandC1,
		SpecificGasConstant.Name(): rAir,
		HeatCapacityRatio.Name():   gammaAir,
	}
}
