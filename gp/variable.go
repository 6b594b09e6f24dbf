package gp

import (
	"fmt"
	"strings"
)

// Var is a named scalar quantity. Whether it is a decision variable or a constant is only known
// once substitutions are applied.
type Var struct {
	Name    string
	Lineage string
	Units   string
	Label   string
	Index   int // position in the owning vector, -1 for scalars
	Len     int // length of the owning vector, 0 for scalars
}

// Key returns the lineage qualified name, shared by every element of a vector.
func (v *Var) Key() string {
	if v.Lineage == "" {
		return v.Name
	}
	return v.Lineage + "." + v.Name
}

func (v *Var) String() string {
	if v.Index < 0 {
		return v.Key()
	}
	return fmt.Sprintf("%s[%d]", v.Key(), v.Index)
}

// Mono returns v as a monomial.
func (v *Var) Mono() Monomial {
	return Monomial{C: 1, Exps: map[*Var]float64{v: 1}}
}

// Posy returns v as a single term posynomial.
func (v *Var) Posy() Posynomial {
	return Posynomial{v.Mono()}
}

// Vector is an ordered sequence of variables sharing a key.
type Vector []*Var

// Last returns the last element.
func (v Vector) Last() *Var {
	return v[len(v)-1]
}

// Slice returns the elements in [lo, hi). It panics on an invalid range.
func (v Vector) Slice(lo, hi int) Vector {
	if lo < 0 || hi > len(v) || lo > hi {
		panic(fmt.Errorf("invalid slice [%d:%d] of %d element vector %s", lo, hi, len(v), v.key()))
	}
	return v[lo:hi]
}

// Sum returns the posynomial sum of every element.
func (v Vector) Sum() Posynomial {
	p := make(Posynomial, len(v))
	for i, e := range v {
		p[i] = e.Mono()
	}
	return p
}

func (v Vector) key() string {
	if len(v) == 0 {
		return "<empty>"
	}
	return v[0].Key()
}

// Scope hands out variables under a lineage, e.g. "Mission.Climb1".
type Scope struct {
	lineage []string
}

// NewScope returns a root scope.
func NewScope(name string) Scope {
	if name == "" {
		return Scope{}
	}
	return Scope{lineage: []string{name}}
}

// Sub returns a child scope.
func (s Scope) Sub(name string) Scope {
	l := make([]string, len(s.lineage), len(s.lineage)+1)
	copy(l, s.lineage)
	return Scope{lineage: append(l, name)}
}

// Lineage returns the dotted lineage of this scope.
func (s Scope) Lineage() string {
	return strings.Join(s.lineage, ".")
}

// Var declares a scalar variable.
func (s Scope) Var(name, units, label string) *Var {
	return &Var{Name: name, Lineage: s.Lineage(), Units: units, Label: label, Index: -1}
}

// Vector declares n variables sharing a name.
func (s Scope) Vector(n int, name, units, label string) Vector {
	if n <= 0 {
		panic(fmt.Errorf("vector %s must have a positive length, got %d", name, n))
	}
	lineage := s.Lineage()
	v := make(Vector, n)
	for i := range v {
		v[i] = &Var{Name: name, Lineage: lineage, Units: units, Label: label, Index: i, Len: n}
	}
	return v
}
