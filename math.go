package turbofan

import (
	"math"
)

// Unit conversions to SI. Altitudes are declared in feet, ranges in nautical miles and climb rate
// floors in feet per minute, as in the substitution tables.
const (
	ftToM   = 0.3048
	nmiToM  = 1852.0
	ktToMS  = nmiToM / 3600
	fpmToMS = ftToM / 60
	gravity = 9.81
)

// ISA troposphere constants.
const (
	pSL          = 101325.0  // Pa
	tSL          = 288.15    // K
	lapseRate    = 0.0065    // K/m
	molarMass    = 0.0289644 // kg/mol
	gasConstant  = 8.31447   // J/(mol·K)
	rAir         = 287.05    // J/(kg·K)
	gammaAir     = 1.4
	sutherlandTs = 110.4    // K
	sutherlandC1 = 1.458e-6 // kg/(m·s·√K)
	g0           = 9.80665
)

// pressureExponent is g·M/(R·L), the exponent of the troposphere pressure law.
var pressureExponent = g0 * molarMass / (gasConstant * lapseRate)

// atmosphere is the state of the standard atmosphere at one altitude.
type atmosphere struct {
	T, P, ρ, a, μ float64
}

// isa returns the standard troposphere at hft feet. It is used to seed initial guesses.
func isa(hft float64) atmosphere {
	h := hft * ftToM
	T := tSL - lapseRate*h
	P := pSL * math.Pow(T/tSL, pressureExponent)
	return atmosphere{
		T: T,
		P: P,
		ρ: P / (rAir * T),
		a: math.Sqrt(gammaAir * rAir * T),
		μ: sutherlandC1 * math.Pow(T, 1.5) / (T + sutherlandTs),
	}
}

// linspace returns n evenly spaced values from lo to hi, both included.
func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{hi}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}
