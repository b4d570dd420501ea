package novelty

import (
	"math"

	"github.com/tphakala/go-beat-tracker/internal/mathutil"
)

// Silence detection shapes recent flux through a compressive curve and
// measures its contrast: near-silence has almost no variation between the
// loudest and quietest shaped value.
const (
	// silenceFrames is the length of the contrast window in hops
	// (≈2 s at the 62.5 Hz hop rate).
	silenceFrames = 128

	// shapedCeiling compresses flux above this level so a constant loud
	// pad does not read as contrast.
	shapedCeiling = 0.5
)

// SilenceDetector flags sustained near-silence in the raw flux stream.
// While silent the resolver decays confidence and the bank freezes its
// magnitude attack, so stale tempo evidence fades instead of flickering.
type SilenceDetector struct {
	threshold float64

	window [silenceFrames]float64
	pos    int

	silent bool
	level  float64
}

// NewSilenceDetector creates a detector with the given raw-silence
// threshold in [0, 1]. Higher thresholds require deader input before
// silence is declared.
func NewSilenceDetector(threshold float64) *SilenceDetector {
	d := &SilenceDetector{threshold: threshold}
	d.recompute()
	return d
}

// Observe folds one raw flux sample into the contrast window.
// Non-finite flux is treated as zero.
func (d *SilenceDetector) Observe(flux float64) {
	flux = mathutil.SanitizeFloat(flux, 0)
	d.window[d.pos] = shape(flux)
	d.pos = (d.pos + 1) % silenceFrames
	d.recompute()
}

// Silent reports whether the recent window reads as near-silence.
func (d *SilenceDetector) Silent() bool { return d.silent }

// Level returns how deep into silence the window is, normalized to [0, 1].
// Zero while not silent.
func (d *SilenceDetector) Level() float64 { return d.level }

// Reset clears the contrast window. A freshly reset detector reads as
// silent until real signal arrives.
func (d *SilenceDetector) Reset() {
	d.window = [silenceFrames]float64{}
	d.pos = 0
	d.recompute()
}

func (d *SilenceDetector) recompute() {
	minVal := d.window[0]
	maxVal := d.window[0]
	for _, v := range d.window[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	contrast := math.Abs(maxVal - minVal)
	silenceRaw := 1.0 - contrast

	if silenceRaw > d.threshold {
		d.silent = true
		rng := 1.0 - d.threshold
		if rng < 1e-3 {
			rng = 1e-3
		}
		d.level = mathutil.Clamp((silenceRaw-d.threshold)/rng, 0, 1)
	} else {
		d.silent = false
		d.level = 0
	}
}

// shape compresses flux into a perceptual loudness-like curve before the
// contrast measurement.
func shape(flux float64) float64 {
	if flux < 0 {
		flux = 0
	}
	if flux > shapedCeiling {
		flux = shapedCeiling
	}
	return math.Sqrt(flux * 2.0)
}
