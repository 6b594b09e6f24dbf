package turbofan

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-kit/log"
	"github.com/hoburg/turbofan/gp"
)

// ErrSegmentCount is returned when a mission is asked for a segment without points.
var ErrSegmentCount = errors.New("segments need at least one point")

// Altitude of the end of the first climb of a two climb mission, in feet.
const climb1Ceiling = 10000.0

// Topology is the sequence of segments flown by a mission.
type Topology uint8

const (
	// ClimbCruise is a single climb to a level cruise.
	ClimbCruise Topology = iota + 1
	// TwoClimbCruiseClimb is a climb to 10 000 ft, a climb to the cruise altitude and a cruise
	// climb.
	TwoClimbCruiseClimb
)

func (t Topology) String() string {
	switch t {
	case ClimbCruise:
		return "climb-cruise"
	case TwoClimbCruiseClimb:
		return "two-climb"
	}
	return fmt.Sprintf("topology(%d)", uint8(t))
}

// TopologyFromString returns the topology named s.
func TopologyFromString(s string) (Topology, error) {
	switch s {
	case "climb-cruise", "simple":
		return ClimbCruise, nil
	case "two-climb", "climb-climb-cruiseclimb":
		return TwoClimbCruiseClimb, nil
	}
	return 0, fmt.Errorf("unknown mission topology %q", s)
}

// Mission is a fuel burn minimisation over a discretised flight profile. It is assembled once by
// its constructor and is not modified afterwards.
type Mission struct {
	Topology Topology
	State    *FlightState
	Engine   Engine
	Aircraft *Aircraft
	Segments []*Segment

	WfTotal   *gp.Var
	WTotal    *gp.Var
	WDry      *gp.Var
	CruiseAlt *gp.Var
	ReqRng    *gp.Var
	RCMin     *gp.Var
	Fuel      []*gp.Var // fuel burnt in each segment

	// Altitude steps: one per segment, two for the cruise climb floor.
	Steps []*gp.Var

	constraints []gp.Constraint
}

// NewMission returns a climb of nClimb points followed by a level cruise of nCruise points.
func NewMission(nClimb, nCruise int) (*Mission, error) {
	if nClimb <= 0 || nCruise <= 0 {
		return nil, fmt.Errorf("%w: climb %d, cruise %d", ErrSegmentCount, nClimb, nCruise)
	}
	m, root := newMission(ClimbCruise, nClimb+nCruise)
	climb := NewClimbSegment(root.Sub("Climb"), m.Aircraft, nClimb)
	cruise := NewCruiseSegment(root.Sub("Cruise"), m.Aircraft, nCruise)
	if err := m.assemble(root, []string{"climb", "cruise"}, climb, cruise); err != nil {
		return nil, err
	}

	dh := root.Var("dhfthold", "ft", "altitude step of the climb")
	m.Steps = []*gp.Var{dh}
	hClimb := climb.State.Field(AltitudeFt)
	hCruise := cruise.State.Field(AltitudeFt)
	for i := range hCruise {
		m.add(gp.Eq(hCruise[i], m.CruiseAlt))
	}
	m.add(gp.Tight(gp.Geq(hClimb[0], dh).Named("first climb step"))...)
	for i := 0; i+1 < nClimb; i++ {
		m.add(gp.Tight(gp.Geq(hClimb[i+1], gp.Sum(hClimb[i], dh)).Named(fmt.Sprintf("climb step %d", i+1)))...)
	}
	m.add(
		gp.Leq(hClimb.Last(), hCruise[0]).Named("top of climb"),
		gp.Eq(dh, m.CruiseAlt.Mono().Scale(1/float64(nClimb))),
		gp.Geq(m.CruiseAlt, gp.Const(30000)).Named("lowest cruise altitude"),
	)
	for i := range climb.Dhft {
		m.add(gp.Eq(climb.Dhft[i], dh))
	}
	// No range credit for the climb: the cruise covers the required range in equal legs.
	for i := range cruise.Rng {
		m.add(gp.Eq(cruise.Rng[i], m.ReqRng.Mono().Scale(nmiToM/float64(nCruise))))
	}
	return m, nil
}

// NewTwoClimbMission returns a climb of n1 points to 10 000 ft, a climb of n2 points to the cruise
// altitude and a cruise climb of nCruise points.
func NewTwoClimbMission(n1, n2, nCruise int) (*Mission, error) {
	if n1 <= 0 || n2 <= 0 || nCruise <= 0 {
		return nil, fmt.Errorf("%w: climb1 %d, climb2 %d, cruise %d", ErrSegmentCount, n1, n2, nCruise)
	}
	m, root := newMission(TwoClimbCruiseClimb, n1+n2+nCruise)
	climb1 := NewClimbSegment(root.Sub("Climb1"), m.Aircraft, n1)
	climb2 := NewClimbSegment(root.Sub("Climb2"), m.Aircraft, n2)
	cruise := NewCruiseClimbSegment(root.Sub("Cruise"), m.Aircraft, nCruise)
	if err := m.assemble(root, []string{"climb1", "climb2", "cruise"}, climb1, climb2, cruise); err != nil {
		return nil, err
	}

	dh1 := root.Var("dhftholdcl1", "ft", "altitude step of the first climb")
	dh2 := root.Var("dhftholdcl2", "ft", "altitude step of the second climb")
	dhcr := root.Var("dhftholdcr", "ft", "altitude step of the cruise climb")
	dhMin := root.Var("dhft_{min}", "ft", "smallest altitude step of the cruise climb")
	m.Steps = []*gp.Var{dh1, dh2, dhcr, dhMin}
	h1 := climb1.State.Field(AltitudeFt)
	h2 := climb2.State.Field(AltitudeFt)
	hcr := cruise.State.Field(AltitudeFt)

	// First climb: fixed steps up to 10 000 ft under the 250 kt speed limit.
	m.add(gp.Eq(dh1, gp.Const(climb1Ceiling/float64(n1))))
	m.add(gp.Tight(gp.Eq(h1[0], dh1).Named("first climb1 step"))...)
	for i := 0; i+1 < n1; i++ {
		m.add(gp.Tight(gp.Geq(h1[i+1], gp.Sum(h1[i], dh1)).Named(fmt.Sprintf("climb1 step %d", i+1)))...)
	}
	m.add(gp.Eq(h1.Last(), gp.Const(climb1Ceiling)).Named("top of climb1"))
	v1 := climb1.State.Field(Airspeed)
	for i := range climb1.Dhft {
		m.add(
			gp.Eq(climb1.Dhft[i], dh1),
			gp.Leq(v1[i], gp.Const(250*ktToMS)).Named(fmt.Sprintf("climb1 speed limit %d", i)),
		)
	}

	// Second climb: from 10 000 ft to the cruise altitude.
	m.add(gp.Geq(gp.Sum(dh2, gp.Const(climb1Ceiling/float64(n2))), m.CruiseAlt.Mono().Scale(1/float64(n2))).Named("climb2 step size"))
	m.add(gp.Tight(gp.Leq(h2[0], gp.Sum(dh2, gp.Const(climb1Ceiling))).Named("first climb2 step"))...)
	for i := 0; i+1 < n2; i++ {
		m.add(gp.Tight(gp.Leq(h2[i+1], gp.Sum(h2[i], dh2)).Named(fmt.Sprintf("climb2 step %d", i+1)))...)
	}
	m.add(gp.Eq(h2.Last(), hcr[0]).Named("top of climb2"))
	for i := range climb2.Dhft {
		m.add(gp.Eq(climb2.Dhft[i], dh2))
	}

	// Cruise climb: altitude rises by a common step from the cruise altitude.
	m.add(gp.Eq(hcr[0], m.CruiseAlt))
	for i := 0; i+1 < nCruise; i++ {
		m.add(gp.Eq(hcr[i+1], gp.Sum(hcr[i], dhcr)).Named(fmt.Sprintf("cruise climb step %d", i+1)))
	}
	for i := range cruise.Dhft {
		m.add(gp.Eq(cruise.Dhft[i], dhcr))
	}
	m.add(gp.Geq(dhcr, dhMin))

	var rng gp.Posynomial
	for _, s := range m.Segments {
		rng = rng.Add(s.Rng.Sum())
	}
	m.add(gp.Tight(gp.Geq(rng, m.ReqRng.Mono().Scale(nmiToM)).Named("range"))...)
	return m, nil
}

// newMission declares the shared state, engine, aircraft and mission scalars.
func newMission(t Topology, n int) (*Mission, gp.Scope) {
	root := gp.NewScope("Mission")
	state := NewFlightState(root.Sub("FlightState"), n)
	engine := NewLapseEngine(root.Sub("Engine"), state)
	return &Mission{
		Topology:  t,
		State:     state,
		Engine:    engine,
		Aircraft:  NewAircraft(root.Sub("Aircraft"), engine),
		WfTotal:   root.Var("W_{f_{total}}", "N", "total fuel burnt"),
		WTotal:    root.Var("W_{total}", "N", "take off weight"),
		WDry:      root.Var("W_{dry}", "N", "zero fuel weight"),
		CruiseAlt: root.Var("CruiseAlt", "ft", "cruise altitude"),
		ReqRng:    root.Var("ReqRng", "nmi", "required range"),
		RCMin:     root.Var("RC_{min}", "ft/min", "smallest initial rate of climb"),
	}, root
}

// assemble links the segments to the mission state and adds the weight bookkeeping, the engine
// wiring, the minimum climb rate and the relations of every sub-model.
func (m *Mission) assemble(root gp.Scope, fuelNames []string, segs ...*Segment) error {
	m.Segments = segs
	locals := make([]*FlightState, len(segs))
	for k, s := range segs {
		locals[k] = s.State
	}
	links, err := LinkStates(m.State, locals...)
	if err != nil {
		return fmt.Errorf("link mission segments: %w", err)
	}

	m.add(m.State.Constraints()...)
	m.add(m.Aircraft.Constraints(m.WTotal)...)
	for _, s := range segs {
		m.add(s.Constraints()...)
	}
	m.add(links...)

	// Weights flow from take off through every segment to the dry weight.
	first, last := segs[0], segs[len(segs)-1]
	m.add(gp.Eq(first.WStart[0], m.WTotal).Named("take off weight"))
	for k := 0; k+1 < len(segs); k++ {
		m.add(gp.Eq(segs[k].WEnd.Last(), segs[k+1].WStart[0]).Named(fmt.Sprintf("%s to %s", segs[k].Name, segs[k+1].Name)))
	}
	m.add(gp.Tight(
		gp.Leq(m.WDry, last.WEnd.Last()).Named("landing weight"),
		gp.Leq(gp.Sum(m.WDry, m.WfTotal), m.WTotal).Named("take off weight budget"),
		gp.Leq(m.Aircraft.DryWeight(), m.WDry).Named("dry weight"),
	)...)
	var fuels gp.Posynomial
	for k, s := range segs {
		wf := root.Var(fmt.Sprintf("W_{f_{%s}}", fuelNames[k]), "N", "fuel burnt in "+fuelNames[k])
		m.Fuel = append(m.Fuel, wf)
		fuels = fuels.Add(wf)
		m.add(gp.Tight(gp.Geq(wf, s.WBurn.Sum()).Named(fuelNames[k] + " fuel"))...)
	}
	m.add(gp.Tight(gp.Geq(m.WfTotal, fuels).Named("total fuel"))...)

	lo := 0
	for _, s := range segs {
		m.wireEngine(s, lo)
		lo += s.Len()
	}

	for _, s := range segs {
		if s.Kind == Climb {
			m.add(gp.Geq(s.RC[0], m.RCMin.Mono().Scale(fpmToMS)).Named("initial rate of climb"))
			break
		}
	}
	return nil
}

// wireEngine ties the engine performance at mission points [lo, lo+len(s)) to segment s.
func (m *Mission) wireEngine(s *Segment, lo int) {
	var (
		F      = m.Engine.Thrust()
		TSFC   = m.Engine.TSFC()
		M2     = m.Engine.FanMach()
		numeng = m.Aircraft.NumEng
		V      = s.State.Field(Airspeed)
		M      = s.State.Field(Mach)
		D      = s.Aero.D
	)
	for i := 0; i < s.Len(); i++ {
		j := lo + i
		m.add(
			gp.Eq(s.WBurn[i], gp.Prod(numeng, TSFC[j], s.Thr[i], F[j])).Named(fmt.Sprintf("%s: fuel flow %d", s.Name, i)),
			gp.Eq(M2[j], M[i]),
		)
		if s.Climbing() {
			m.add(gp.Geq(gp.Prod(numeng, F[j]), gp.Sum(D[i], gp.Prod(s.WAvg[i], s.Theta[i]))))
			m.add(gp.Tight(gp.Leq(gp.Sum(s.ExcessP[i], gp.Prod(V[i], D[i])), gp.Prod(V[i], numeng, F[j])).Named(fmt.Sprintf("%s: excess power %d", s.Name, i)))...)
			continue
		}
		m.add(gp.Eq(D[i], gp.Prod(numeng, F[j])).Named(fmt.Sprintf("%s: thrust %d", s.Name, i)))
		m.add(gp.Tight(gp.Geq(s.Zbre[i], gp.Prod(TSFC[j], s.Thr[i], D[i]).Div(s.WAvg[i])).Named(fmt.Sprintf("%s: range factor %d", s.Name, i)))...)
	}
}

func (m *Mission) add(cs ...gp.Constraint) {
	m.constraints = append(m.constraints, cs...)
}

// Model returns the fuel burn minimisation.
func (m *Mission) Model() *gp.Model {
	return gp.NewModel(m.WfTotal, m.constraints)
}

// Segment returns the segment of the given lineage, e.g. "Mission.Climb2".
func (m *Mission) Segment(name string) (*Segment, bool) {
	for _, s := range m.Segments {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Solve minimises the fuel burn under subs. Without a guess in opts, InitialGuess seeds the solve.
func (m *Mission) Solve(ctx context.Context, backend gp.Backend, subs map[string]float64, opts gp.SolveOptions) (*gp.Solution, error) {
	if opts.Guess == nil {
		opts.Guess = m.InitialGuess(subs)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	logger := log.With(opts.Logger, "subsys", "mission", "topology", m.Topology)
	logger.Log("level", "debug", "points", m.State.Len(), "segments", len(m.Segments), "constraints", len(m.constraints))
	sol, err := m.Model().LocalSolve(ctx, backend, subs, opts)
	if err != nil {
		logger.Log("level", "critical", "status", sol.Status, "err", err)
		return sol, fmt.Errorf("solve %s mission: %w", m.Topology, err)
	}
	logger.Log("level", "notice", "status", "finished", "W_f_total(N)", sol.Cost, "iterations", sol.Iterations)
	return sol, nil
}

// Summary returns the headline values of a solution, keyed by variable name.
func (m *Mission) Summary(sol *gp.Solution) map[string]float64 {
	out := make(map[string]float64)
	vars := []*gp.Var{m.WfTotal, m.WTotal, m.WDry, m.CruiseAlt, m.ReqRng, m.RCMin, m.Aircraft.S, m.Aircraft.AR, m.Aircraft.WWing}
	vars = append(vars, m.Fuel...)
	vars = append(vars, m.Steps...)
	for _, v := range vars {
		if val, ok := sol.Point[v]; ok {
			out[v.Name] = val
		}
	}
	return out
}

// checkTol is the relative tolerance of Check.
const checkTol = 1e-4

// Check verifies the physical consistency of a solution: weights never grow along the mission,
// altitude never decreases while climbing, the aircraft lands at or above its dry weight and the
// required range is flown.
func (m *Mission) Check(sol *gp.Solution) error {
	x := sol.Point
	var errs []error
	prev := math.Inf(1)
	for _, s := range m.Segments {
		for i := 0; i < s.Len(); i++ {
			ws, we := x[s.WStart[i]], x[s.WEnd[i]]
			if ws > prev*(1+checkTol) {
				errs = append(errs, fmt.Errorf("%s: weight grows to %g N at point %d", s.Name, ws, i))
			}
			if we > ws*(1+checkTol) {
				errs = append(errs, fmt.Errorf("%s: end weight %g N above start weight %g N at point %d", s.Name, we, ws, i))
			}
			prev = we
		}
	}
	alt := 0.0
	for _, s := range m.Segments {
		if !s.Climbing() {
			continue
		}
		for i, v := range s.State.Field(AltitudeFt) {
			h := x[v]
			if h < alt*(1-checkTol) {
				errs = append(errs, fmt.Errorf("%s: altitude drops to %g ft at point %d", s.Name, h, i))
			}
			alt = h
		}
	}
	last := m.Segments[len(m.Segments)-1]
	if wd, wl := x[m.WDry], x[last.WEnd.Last()]; wd > wl*(1+checkTol) {
		errs = append(errs, fmt.Errorf("landing weight %g N below dry weight %g N", wl, wd))
	}
	rng := 0.0
	for _, s := range m.Segments {
		for _, v := range s.Rng {
			rng += x[v]
		}
	}
	if req := x[m.ReqRng] * nmiToM; rng < req*(1-checkTol) {
		errs = append(errs, fmt.Errorf("range %g m short of the required %g m", rng, req))
	}
	return errors.Join(errs...)
}
