package turbofan

import (
	"fmt"

	"github.com/hoburg/turbofan/gp"
)

// SegmentKind is the flight regime of a segment.
type SegmentKind uint8

const (
	// Climb is a climb at a fixed altitude step per point.
	Climb SegmentKind = iota + 1
	// Cruise is steady level flight.
	Cruise
	// CruiseClimb is cruise flight with a slowly rising altitude.
	CruiseClimb
)

func (k SegmentKind) String() string {
	switch k {
	case Climb:
		return "climb"
	case Cruise:
		return "cruise"
	case CruiseClimb:
		return "cruise-climb"
	}
	panic("unknown segment kind")
}

// Segment is a discretised part of a mission. Its points hold their own flight state copy, tied to
// the mission state by LinkStates.
type Segment struct {
	Name  string
	Kind  SegmentKind
	State *FlightState
	Aero  *Aero

	WStart, WEnd, WBurn, WAvg gp.Vector
	Thr                       gp.Vector // time spent flying each point
	Rng                       gp.Vector // ground distance covered at each point

	// Climbing segments only.
	ExcessP, RC, Theta, Dhft gp.Vector
	// Cruise segments only.
	Zbre gp.Vector

	constraints []gp.Constraint
}

// NewClimbSegment returns a climb of n points.
func NewClimbSegment(scope gp.Scope, ac *Aircraft, n int) *Segment {
	return newSegment(scope, Climb, ac, n)
}

// NewCruiseSegment returns a level cruise of n points.
func NewCruiseSegment(scope gp.Scope, ac *Aircraft, n int) *Segment {
	return newSegment(scope, Cruise, ac, n)
}

// NewCruiseClimbSegment returns a cruise of n points whose altitude may rise between points.
func NewCruiseClimbSegment(scope gp.Scope, ac *Aircraft, n int) *Segment {
	return newSegment(scope, CruiseClimb, ac, n)
}

func newSegment(scope gp.Scope, kind SegmentKind, ac *Aircraft, n int) *Segment {
	s := &Segment{
		Name:   scope.Lineage(),
		Kind:   kind,
		State:  NewLocalFlightState(scope, n),
		WStart: scope.Vector(n, "W_{start}", "N", "weight at the start of the point"),
		WEnd:   scope.Vector(n, "W_{end}", "N", "weight at the end of the point"),
		WBurn:  scope.Vector(n, "W_{burn}", "N", "fuel burnt over the point"),
		WAvg:   scope.Vector(n, "W_{avg}", "N", "mean weight over the point"),
		Thr:    scope.Vector(n, "thr", "s", "time in the point"),
	}
	if kind == Climb {
		s.Rng = scope.Vector(n, "RngClimb", "m", "ground distance covered while climbing")
	} else {
		s.Rng = scope.Vector(n, "RngCruise", "m", "ground distance covered in cruise")
	}
	var aero []gp.Constraint
	s.Aero, aero = ac.Aero(scope, s.State, s.WAvg)
	s.constraints = append(s.constraints, aero...)

	for i := 0; i < n; i++ {
		s.constraints = append(s.constraints, gp.Tight(
			gp.Geq(s.WStart[i], gp.Sum(s.WEnd[i], s.WBurn[i])).Named(fmt.Sprintf("%s: burn %d", s.Name, i)),
		)...)
		if i+1 < n {
			s.constraints = append(s.constraints, gp.Eq(s.WStart[i+1], s.WEnd[i]))
		}
	}

	V := s.State.Field(Airspeed)
	switch kind {
	case Climb, CruiseClimb:
		s.ExcessP = scope.Vector(n, "excessP", "W", "excess power")
		s.RC = scope.Vector(n, "RC", "m/s", "rate of climb")
		s.Theta = scope.Vector(n, "\\theta", "-", "sine of the flight path angle")
		s.Dhft = scope.Vector(n, "dhft", "ft", "altitude gained over the point")
		for i := 0; i < n; i++ {
			dh := s.Dhft[i].Mono().Scale(ftToM)
			s.constraints = append(s.constraints,
				gp.Eq(s.WAvg[i], gp.Prod(s.WStart[i], s.WEnd[i]).Pow(0.5)),
				gp.Eq(gp.Prod(s.RC[i], s.WAvg[i]), s.ExcessP[i]),
				gp.Eq(gp.Prod(s.Theta[i], V[i]), s.RC[i]),
				gp.Eq(gp.Prod(s.Thr[i], s.RC[i]), dh),
				// Ground distance closes the flight path: Rng² + dh² = (V·thr)².
				gp.Eq(gp.Sum(gp.Pow(s.Rng[i], 2), dh.Pow(2)), gp.Prod(V[i], s.Thr[i]).Pow(2)).Named(fmt.Sprintf("%s: path %d", s.Name, i)),
			)
		}
	case Cruise:
		s.Zbre = scope.Vector(n, "z_{bre}", "-", "Breguet range factor")
		for i := 0; i < n; i++ {
			s.constraints = append(s.constraints,
				gp.Geq(s.WAvg[i], gp.Prod(s.WStart[i], s.WEnd[i]).Pow(0.5)),
				gp.Eq(s.Rng[i], gp.Prod(V[i], s.Thr[i])),
			)
			s.constraints = append(s.constraints, gp.Tight(
				gp.Leq(gp.ExpMinus1(s.Zbre[i], 3), gp.Div(s.WBurn[i], s.WEnd[i])).Named(fmt.Sprintf("%s: breguet %d", s.Name, i)),
			)...)
		}
	default:
		panic(fmt.Errorf("unknown segment kind %d", kind))
	}
	return s
}

// Len returns the number of points.
func (s *Segment) Len() int {
	return s.State.Len()
}

// Climbing returns whether the segment carries climb rate relations.
func (s *Segment) Climbing() bool {
	return s.Kind == Climb || s.Kind == CruiseClimb
}

// Constraints returns the relations of the segment.
func (s *Segment) Constraints() []gp.Constraint {
	out := make([]gp.Constraint, len(s.constraints))
	copy(out, s.constraints)
	return out
}
