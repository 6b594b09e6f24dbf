package turbofan

import (
	"errors"
	"testing"

	"github.com/hoburg/turbofan/gp"
)

func TestLinkStatesCount(t *testing.T) {
	root := gp.NewScope("Mission")
	for _, lens := range [][]int{{2, 2}, {3, 3, 8}, {1}, {1, 4, 2}} {
		total := 0
		locals := make([]*FlightState, len(lens))
		for k, n := range lens {
			locals[k] = NewLocalFlightState(root.Sub("Segment"), n)
			total += n
		}
		global := NewFlightState(root.Sub("FlightState"), total)
		cs, err := LinkStates(global, locals...)
		if err != nil {
			t.Fatalf("%v: %s", lens, err)
		}
		if len(cs) != 18*total {
			t.Fatalf("%v: expected %d links, got %d", lens, 18*total, len(cs))
		}
		for _, c := range cs {
			if c.Sense != gp.Equal || c.Signomial() {
				t.Fatalf("%v: links must be monomial equalities, got %s", lens, c)
			}
		}
	}
}

func TestLinkOffsets(t *testing.T) {
	root := gp.NewScope("Mission")
	global := NewFlightState(root.Sub("FlightState"), 5)
	climb := NewLocalFlightState(root.Sub("Climb"), 2)
	cruise := NewLocalFlightState(root.Sub("Cruise"), 3)
	plan, err := LinkPlan(global, climb, cruise)
	if err != nil {
		t.Fatalf("plan: %s", err)
	}
	exp := []Link{{0, 0, 0}, {0, 1, 1}, {1, 0, 2}, {1, 1, 3}, {1, 2, 4}}
	if len(plan) != len(exp) {
		t.Fatalf("plan %v", plan)
	}
	for i := range exp {
		if plan[i] != exp[i] {
			t.Fatalf("link %d: %+v != %+v", i, plan[i], exp[i])
		}
	}

	cs, err := LinkStates(global, climb, cruise)
	if err != nil {
		t.Fatalf("link: %s", err)
	}
	// Fields are linked in order, every global index once per field.
	hft := int(AltitudeFt) * 5
	for i := 0; i < 5; i++ {
		c := cs[hft+i]
		var lv, gv *gp.Var
		for v := range c.Left.Mono().Exps {
			lv = v
		}
		for v := range c.Right.Mono().Exps {
			gv = v
		}
		if lv.Name != "hft" || gv.Name != "hft" || gv.Index != i {
			t.Fatalf("link %d ties %s to %s", i, lv, gv)
		}
		wantLineage, wantIndex := "Mission.Climb", i
		if i >= 2 {
			wantLineage, wantIndex = "Mission.Cruise", i-2
		}
		if lv.Lineage != wantLineage || lv.Index != wantIndex {
			t.Fatalf("global %d linked to %s", i, lv)
		}
	}
}

func TestLinkLengthMismatch(t *testing.T) {
	root := gp.NewScope("Mission")
	global := NewFlightState(root.Sub("FlightState"), 5)
	a := NewLocalFlightState(root.Sub("A"), 2)
	b := NewLocalFlightState(root.Sub("B"), 2)
	if _, err := LinkStates(global, a, b); !errors.Is(err, ErrSegmentLength) {
		t.Fatalf("expected ErrSegmentLength for a short partition, got %v", err)
	}
	c := NewLocalFlightState(root.Sub("C"), 2)
	if _, err := LinkStates(global, a, b, c); !errors.Is(err, ErrSegmentLength) {
		t.Fatalf("expected ErrSegmentLength for a long partition, got %v", err)
	}
	if _, err := LinkStates(global, a, nil, b); !errors.Is(err, ErrSegmentLength) {
		t.Fatalf("expected ErrSegmentLength for an empty segment, got %v", err)
	}
	if _, err := LinkStates(global); !errors.Is(err, ErrSegmentLength) {
		t.Fatalf("expected ErrSegmentLength without segments, got %v", err)
	}
}

func TestLinkDoesNotMutate(t *testing.T) {
	root := gp.NewScope("Mission")
	global := NewFlightState(root.Sub("FlightState"), 3)
	local := NewLocalFlightState(root.Sub("Cruise"), 3)
	before := global.Field(Mach)[2]
	if _, err := LinkStates(global, local); err != nil {
		t.Fatalf("link: %s", err)
	}
	if global.Field(Mach)[2] != before || global.Len() != 3 || local.Len() != 3 {
		t.Fatal("linking changed a flight state")
	}
	if len(local.Constraints()) != 0 {
		t.Fatal("linking gave relations to a local state")
	}
}
