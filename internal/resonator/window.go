// Package resonator implements a bank of Goertzel resonators that measures
// how strongly an onset-strength signal repeats at discrete candidate tempi.
//
// Each bin runs a single-frequency Goertzel recursion over a Gaussian-windowed
// block of recent history. Bins close together in BPM need longer blocks to
// stay distinguishable, so block sizes are derived from the spacing to the
// neighboring bins rather than fixed globally.
package resonator

import (
	"math"

	"github.com/tphakala/go-beat-tracker/internal/mathutil"
)

// gaussianWindow is a precomputed Gaussian taper sampled at fractional
// positions. One table serves every bin: a bin with block size N steps
// through the table at windowTableSize/N per sample, so shorter blocks
// simply stride faster across the same shape.
type gaussianWindow struct {
	values [windowTableSize]float64
}

// newGaussianWindow builds the table by evaluating one half of the Gaussian
// and mirroring it, which keeps the taper exactly symmetric.
func newGaussianWindow() *gaussianWindow {
	w := &gaussianWindow{}
	center := float64(windowTableSize) / 2.0
	spread := windowSigma * center

	for i := 0; i < windowTableSize/2; i++ {
		d := (float64(i) - center) / spread
		v := math.Exp(-0.5 * d * d)
		w.values[i] = v
		w.values[windowTableSize-1-i] = v
	}

	return w
}

// at returns the window value at a fractional table position using linear
// interpolation. Positions outside the table clamp to the edge values.
func (w *gaussianWindow) at(pos float64) float64 {
	if pos <= 0 {
		return w.values[0]
	}

	i := int(pos)
	if i >= windowTableSize-1 {
		return w.values[windowTableSize-1]
	}

	return mathutil.Lerp(w.values[i], w.values[i+1], pos-float64(i))
}
