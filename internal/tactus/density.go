// Package tactus resolves the tempo candidates produced by the resonator
// bank into a single stable hypothesis. Instantaneous candidates flicker
// between octave-related tempi; this package accumulates their evidence over
// time, scores whole tempo families rather than isolated peaks, and guards
// the result with an explicit lock state machine.
package tactus

import (
	"math"

	"github.com/tphakala/simd/f64"
)

// densityMap accumulates candidate evidence per tempo bin. Deposits decay
// exponentially, so the map remembers recent cycles without ever letting
// stale evidence dominate. The slow decay also preserves a fading imprint
// of the last strong tempo through short dropouts, which speeds up
// re-acquisition.
type densityMap struct {
	bins    []float64
	bpmMin  float64
	bpmStep float64
}

func newDensityMap(numBins int, bpmMin, bpmStep float64) *densityMap {
	if numBins < 1 {
		numBins = 1
	}
	if bpmStep <= 0 {
		bpmStep = 1
	}
	return &densityMap{
		bins:    make([]float64, numBins),
		bpmMin:  bpmMin,
		bpmStep: bpmStep,
	}
}

// decay ages all accumulated evidence by one cycle.
func (d *densityMap) decay() {
	f64.Scale(d.bins, d.bins, densityDecay)
}

// deposit adds a candidate's score around its bin using the triangular
// kernel, so near-miss refinements still reinforce the same neighborhood.
func (d *densityMap) deposit(center int, score float64) {
	for o := -kernelRadius; o <= kernelRadius; o++ {
		i := center + o
		if i < 0 || i >= len(d.bins) {
			continue
		}
		w := o
		if w < 0 {
			w = -w
		}
		d.bins[i] += score * kernelWeights[w]
	}
}

// peak returns the strongest bin and its value.
func (d *densityMap) peak() (int, float64) {
	bin := 0
	val := d.bins[0]
	for i, v := range d.bins {
		if v > val {
			val = v
			bin = i
		}
	}
	return bin, val
}

// runnerUp returns the strongest value at least sepBins away from peakBin.
func (d *densityMap) runnerUp(peakBin, sepBins int) float64 {
	val := 0.0
	for i, v := range d.bins {
		dist := i - peakBin
		if dist < 0 {
			dist = -dist
		}
		if dist < sepBins {
			continue
		}
		if v > val {
			val = v
		}
	}
	return val
}

// binBPM returns the tempo at the center of bin i.
func (d *densityMap) binBPM(i int) float64 {
	return d.bpmMin + float64(i)*d.bpmStep
}

// nearestBin returns the bin whose center is closest to bpm, clamped to
// the map's range.
func (d *densityMap) nearestBin(bpm float64) int {
	i := int(math.Round((bpm - d.bpmMin) / d.bpmStep))
	if i < 0 {
		return 0
	}
	if i >= len(d.bins) {
		return len(d.bins) - 1
	}
	return i
}

// at returns the accumulated evidence of bin i.
func (d *densityMap) at(i int) float64 {
	return d.bins[i]
}

func (d *densityMap) reset() {
	for i := range d.bins {
		d.bins[i] = 0
	}
}
