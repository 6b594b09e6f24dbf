package gp

import (
	"fmt"
	"sort"
)

// Value is the value of a constant: either a single number or an ordered sweep of numbers.
type Value struct {
	fixed float64
	swept []float64
}

// Fixed returns a constant value.
func Fixed(v float64) Value {
	return Value{fixed: v}
}

// Swept returns a value repeated once per element of vs.
func Swept(vs ...float64) Value {
	if len(vs) == 0 {
		panic("a sweep needs at least one value")
	}
	cp := make([]float64, len(vs))
	copy(cp, vs)
	return Value{swept: cp}
}

// IsSwept returns whether this is a sweep.
func (v Value) IsSwept() bool {
	return v.swept != nil
}

// Values returns every value this resolves to.
func (v Value) Values() []float64 {
	if v.swept != nil {
		cp := make([]float64, len(v.swept))
		copy(cp, v.swept)
		return cp
	}
	return []float64{v.fixed}
}

func (v Value) String() string {
	if v.swept != nil {
		return fmt.Sprintf("sweep%v", v.swept)
	}
	return fmt.Sprintf("%g", v.fixed)
}

// Substitutions maps a variable reference to its constant value. A reference is, in order of
// precedence, an element ("Mission.Climb.hft[0]"), a key ("Mission.Climb.hft") or a bare name
// ("hft") which applies to every variable with that name.
type Substitutions map[string]Value

// Clone returns a shallow copy.
func (s Substitutions) Clone() Substitutions {
	c := make(Substitutions, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Swept returns the sorted names of swept entries.
func (s Substitutions) Swept() []string {
	var names []string
	for k, v := range s {
		if v.IsSwept() {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// SweepPoint is one resolved combination of swept values.
type SweepPoint struct {
	Index  int
	Swept  map[string]float64 // swept entries only
	Values map[string]float64 // every entry, resolved
}

// Expand resolves every sweep into its cartesian product, the last swept name (sorted) varying
// fastest. Substitutions without any sweep expand into a single point.
func (s Substitutions) Expand() []SweepPoint {
	names := s.Swept()
	base := make(map[string]float64, len(s))
	for k, v := range s {
		if !v.IsSwept() {
			base[k] = v.fixed
		}
	}
	total := 1
	for _, n := range names {
		total *= len(s[n].swept)
	}
	points := make([]SweepPoint, total)
	for i := range points {
		values := make(map[string]float64, len(s))
		for k, v := range base {
			values[k] = v
		}
		swept := make(map[string]float64, len(names))
		rem := i
		for j := len(names) - 1; j >= 0; j-- {
			vals := s[names[j]].swept
			swept[names[j]] = vals[rem%len(vals)]
			values[names[j]] = vals[rem%len(vals)]
			rem /= len(vals)
		}
		points[i] = SweepPoint{Index: i, Swept: swept, Values: values}
	}
	return points
}

// lookup resolves the value of v in a name-indexed table and returns the reference it matched.
func lookup(table map[string]float64, v *Var) (float64, string, bool) {
	if len(table) == 0 {
		return 0, "", false
	}
	refs := []string{v.Key(), v.Name}
	if v.Index >= 0 {
		refs = append([]string{v.String()}, refs...)
	}
	for _, ref := range refs {
		if val, ok := table[ref]; ok {
			return val, ref, true
		}
	}
	return 0, "", false
}
