package turbofan

import (
	"fmt"
	"math"

	"github.com/hoburg/turbofan/gp"
)

// Aircraft is the airframe: fuselage sized by the passenger load, a wing sized for structure and
// drag, and its engines.
type Aircraft struct {
	Engine Engine

	NumEng   *gp.Var
	NPax     *gp.Var
	WPax     *gp.Var
	PaxArea  *gp.Var
	WPayload *gp.Var
	AFuse    *gp.Var
	WE       *gp.Var
	WEA      *gp.Var

	S, AR, B, BMax *gp.Var
	WWing          *gp.Var
	WWingSurf      *gp.Var
	WWingStrc      *gp.Var
	NUlt, Tau      *gp.Var

	E, CD0, CLMax, MMax *gp.Var
}

// NewAircraft returns an aircraft flying with the given engine.
func NewAircraft(scope gp.Scope, engine Engine) *Aircraft {
	return &Aircraft{
		Engine:    engine,
		NumEng:    scope.Var("numeng", "-", "number of engines"),
		NPax:      scope.Var("n_{pax}", "-", "number of passengers"),
		WPax:      scope.Var("W_{pax}", "N", "weight of one passenger with baggage"),
		PaxArea:   scope.Var("pax_{area}", "m^2", "floor area per passenger"),
		WPayload:  scope.Var("W_{payload}", "N", "payload weight"),
		AFuse:     scope.Var("A_{fuse}", "m^2", "fuselage floor area"),
		WE:        scope.Var("W_{e}", "N", "empty weight of the fuselage and systems"),
		WEA:       scope.Var("W_{e,A}", "N/m^2", "empty weight per unit of floor area"),
		S:         scope.Var("S", "m^2", "wing area"),
		AR:        scope.Var("AR", "-", "wing aspect ratio"),
		B:         scope.Var("b", "m", "wing span"),
		BMax:      scope.Var("b_{max}", "m", "largest wing span"),
		WWing:     scope.Var("W_{wing}", "N", "wing weight"),
		WWingSurf: scope.Var("W_{w,surf}", "N/m^2", "wing surface weight per unit area"),
		WWingStrc: scope.Var("W_{w,strc}", "1/m", "wing structural weight coefficient"),
		NUlt:      scope.Var("N_{ult}", "-", "ultimate load factor"),
		Tau:       scope.Var("\\tau", "-", "wing thickness to chord ratio"),
		E:         scope.Var("e", "-", "span efficiency"),
		CD0:       scope.Var("C_{D0}", "-", "zero lift drag coefficient"),
		CLMax:     scope.Var("C_{L,max}", "-", "largest lift coefficient"),
		MMax:      scope.Var("M_{max}", "-", "largest flight Mach number"),
	}
}

// Constraints returns the sizing relations of the airframe for a gross weight wTotal.
func (ac *Aircraft) Constraints(wTotal *gp.Var) []gp.Constraint {
	cs := []gp.Constraint{
		gp.Eq(ac.WPayload, gp.Prod(ac.NPax, ac.WPax)).Named("payload"),
		gp.Eq(ac.AFuse, gp.Prod(ac.NPax, ac.PaxArea)),
		gp.Geq(ac.WE, gp.Prod(ac.WEA, ac.AFuse)),
		gp.Eq(gp.Pow(ac.B, 2), gp.Prod(ac.S, ac.AR)),
		gp.Leq(ac.B, ac.BMax).Named("span limit"),
		gp.Geq(ac.WWing, gp.Sum(
			gp.Prod(ac.WWingSurf, ac.S),
			gp.Prod(ac.WWingStrc, ac.NUlt, gp.Pow(ac.AR, 1.5), wTotal, gp.Pow(ac.S, 0.5), gp.Pow(ac.Tau, -1)),
		)).Named("wing weight"),
	}
	return append(cs, ac.Engine.Constraints()...)
}

// DryWeight returns the sum of the dry weight contributors.
func (ac *Aircraft) DryWeight() gp.Posynomial {
	return gp.Sum(ac.WE, ac.WPayload, gp.Prod(ac.NumEng, ac.Engine.Weight()), ac.WWing)
}

// Aero is the aerodynamic performance of the aircraft over the points of one segment.
type Aero struct {
	D, CL, CD gp.Vector
}

// Aero returns the drag of the aircraft flying at the conditions of state while lifting wAvg.
func (ac *Aircraft) Aero(scope gp.Scope, state *FlightState, wAvg gp.Vector) (*Aero, []gp.Constraint) {
	n := state.Len()
	if len(wAvg) != n {
		panic(fmt.Errorf("lift vector has %d points, flight state has %d", len(wAvg), n))
	}
	a := &Aero{
		D:  scope.Vector(n, "D", "N", "drag"),
		CL: scope.Vector(n, "C_L", "-", "lift coefficient"),
		CD: scope.Vector(n, "C_D", "-", "drag coefficient"),
	}
	ρ, V, M := state.Field(Density), state.Field(Airspeed), state.Field(Mach)
	var cs []gp.Constraint
	for i := 0; i < n; i++ {
		q := gp.Prod(ρ[i], gp.Pow(V[i], 2), ac.S).Scale(0.5)
		cs = append(cs,
			gp.Eq(wAvg[i], q.Mul(a.CL[i])).Named(fmt.Sprintf("%s: lift %d", scope.Lineage(), i)),
			gp.Geq(a.D[i], q.Mul(a.CD[i])),
			gp.Geq(a.CD[i], gp.Sum(ac.CD0, gp.Prod(gp.Pow(a.CL[i], 2), gp.Pow(ac.E, -1), gp.Pow(ac.AR, -1)).Scale(1/math.Pi))),
			gp.Leq(a.CL[i], ac.CLMax),
			gp.Leq(M[i], ac.MMax),
		)
	}
	return a, cs
}
