// Package mathutil provides shared numeric helpers for the beat tracking
// pipeline: range clamping, angle wrapping, and guards that keep non-finite
// values out of filter state.
package mathutil

import "math"

// Tau is the full circle in radians (2π).
const Tau = 2.0 * math.Pi

// Clamp limits v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SanitizeFloat returns v when it is finite, otherwise fallback.
// Used at ingestion points so a single bad sample cannot poison filter state.
func SanitizeFloat(v, fallback float64) float64 {
	if IsFinite(v) {
		return v
	}
	return fallback
}

// WrapPi wraps an angle into (-π, π].
// Non-finite input wraps to 0 rather than propagating.
func WrapPi(angle float64) float64 {
	if !IsFinite(angle) {
		return 0
	}
	a := math.Mod(angle, Tau)
	if a > math.Pi {
		a -= Tau
	} else if a <= -math.Pi {
		a += Tau
	}
	return a
}

// WrapTau wraps an angle into [0, 2π).
// Non-finite input wraps to 0 rather than propagating.
func WrapTau(angle float64) float64 {
	if !IsFinite(angle) {
		return 0
	}
	a := math.Mod(angle, Tau)
	if a < 0 {
		a += Tau
	}
	// Guard against a negative remainder rounding up to exactly Tau.
	if a >= Tau {
		a -= Tau
	}
	return a
}

// Lerp linearly interpolates between a and b by fraction t ∈ [0, 1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
