// Package novelty conditions the raw onset-strength ("flux") signal before
// tempo analysis: a running z-score removes baseline and gain drift, and a
// contrast-based detector flags near-silence.
package novelty

import (
	"math"

	"github.com/tphakala/go-beat-tracker/internal/mathutil"
)

// Normalizer seed values. The first sample initializes the running
// statistics to these instead of zero so the very first impulse does not
// divide by a vanishing deviation.
const (
	seedMean      = 0.1
	seedDeviation = 0.1

	// minDeviation floors the divisor so a flat signal maps to z=0
	// instead of amplifying numeric dust.
	minDeviation = 1e-3
)

// Normalizer converts raw flux into a zero-centered, clipped z-score using
// exponentially weighted running statistics. The upstream flux baseline
// drifts with automatic gain control; the z-score keeps resonator input
// comparably scaled regardless.
type Normalizer struct {
	tau       float64 // time constant of the running statistics, seconds
	clip      float64 // output clamp, ±clip
	nominalDt float64 // fallback elapsed time when dt is unusable

	mean     float64
	variance float64
	seeded   bool
	last     float64
}

// NewNormalizer creates a normalizer with the given statistics time
// constant, output clip, and nominal hop interval in seconds.
func NewNormalizer(tauSeconds, clip, nominalHopSeconds float64) *Normalizer {
	return &Normalizer{
		tau:       tauSeconds,
		clip:      clip,
		nominalDt: nominalHopSeconds,
	}
}

// Process folds one flux sample into the running statistics and returns its
// clipped z-score. dt is the elapsed time since the previous sample;
// non-positive or non-finite dt falls back to the nominal hop. Non-finite
// flux is discarded and the previous output returned.
func (n *Normalizer) Process(flux, dt float64) float64 {
	if !mathutil.IsFinite(flux) {
		return n.last
	}
	if !n.seeded {
		n.mean = seedMean
		n.variance = seedDeviation * seedDeviation
		n.seeded = true
	}
	if !mathutil.IsFinite(dt) || dt <= 0 {
		dt = n.nominalDt
	}

	// Exponentially weighted mean and variance (West's recursion).
	alpha := 1.0 - math.Exp(-dt/n.tau)
	delta := flux - n.mean
	n.mean += alpha * delta
	n.variance = (1.0 - alpha) * (n.variance + alpha*delta*delta)

	dev := math.Sqrt(n.variance)
	if dev < minDeviation {
		dev = minDeviation
	}
	z := (flux - n.mean) / dev
	n.last = mathutil.Clamp(z, -n.clip, n.clip)
	return n.last
}

// Mean returns the current running mean, for diagnostics.
func (n *Normalizer) Mean() float64 { return n.mean }

// Deviation returns the current running standard deviation, for diagnostics.
func (n *Normalizer) Deviation() float64 { return math.Sqrt(n.variance) }

// Reset returns the normalizer to its pre-seed state.
func (n *Normalizer) Reset() {
	n.mean = 0
	n.variance = 0
	n.seeded = false
	n.last = 0
}
