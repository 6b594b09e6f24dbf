package turbofan

import (
	"errors"
	"fmt"

	"github.com/hoburg/turbofan/gp"
)

// ErrSegmentLength is returned when segment flight states do not partition the mission state.
var ErrSegmentLength = errors.New("segment lengths do not match the mission flight state")

// Link is the correspondence of one local point to one global point.
type Link struct {
	Segment int // position of the local state in the linked list
	Local   int
	Global  int
}

// LinkPlan returns where every local point lands in the global state: local states are laid out
// back to back in the given order.
func LinkPlan(global *FlightState, locals ...*FlightState) ([]Link, error) {
	lengths := make([]int, len(locals))
	total := 0
	for k, l := range locals {
		if l == nil || l.Len() == 0 {
			return nil, fmt.Errorf("%w: segment %d is empty", ErrSegmentLength, k)
		}
		lengths[k] = l.Len()
		total += l.Len()
	}
	if total != global.Len() {
		return nil, fmt.Errorf("%w: segments %v sum to %d, mission state has %d points", ErrSegmentLength, lengths, total, global.Len())
	}
	plan := make([]Link, 0, total)
	offset := 0
	for k, l := range locals {
		for i := 0; i < l.Len(); i++ {
			plan = append(plan, Link{Segment: k, Local: i, Global: offset + i})
		}
		offset += l.Len()
	}
	return plan, nil
}

// LinkStates ties every tracked field of the local states to the global state, following LinkPlan.
// Neither state is modified.
func LinkStates(global *FlightState, locals ...*FlightState) ([]gp.Constraint, error) {
	plan, err := LinkPlan(global, locals...)
	if err != nil {
		return nil, err
	}
	fields := StateFields()
	cs := make([]gp.Constraint, 0, len(fields)*len(plan))
	for _, f := range fields {
		g := global.Field(f)
		for _, l := range plan {
			cs = append(cs, gp.Eq(locals[l.Segment].Field(f)[l.Local], g[l.Global]))
		}
	}
	return cs, nil
}
