package resonator

import (
	"math"

	"github.com/tphakala/simd/f64"

	"github.com/tphakala/go-beat-tracker/internal/mathutil"
)

// Config describes the tempo grid and input timing of a Bank.
type Config struct {
	BPMMin  float64 // lowest tracked tempo
	BPMMax  float64 // highest tracked tempo
	BPMStep float64 // spacing between adjacent bins

	SampleRateHz   float64 // rate of the incoming novelty samples
	SubsampleRatio int     // bins are re-evaluated once per this many samples
	HistoryFrames  int     // capacity of the novelty history ring
}

// bin holds the per-tempo constants derived once at construction.
type bin struct {
	bpm       float64
	targetHz  float64
	blockSize int
	cosW      float64
	sinW      float64
	coeff     float64
}

// Bank evaluates every tempo bin against the shared novelty history and
// maintains a smoothed magnitude spectrum across evaluations. All state is
// owned by a single goroutine.
type Bank struct {
	cfg     Config
	window  *gaussianWindow
	history *History
	bins    []bin

	magnitude []float64 // instantaneous response of the last evaluation
	smooth    []float64 // exponentially averaged response
	phase     []float64 // resonator phase per bin, wrapped to (-pi, pi]
	scratch   []float64 // history tail reused across bins

	countdown int
	maxSmooth float64
	maxBin    int
	powerSum  float64
}

// NewBank builds a bank over the configured tempo grid. Each bin's block
// size follows from its spacing to the neighboring bins: resolving two
// tempi maxDistHz apart requires observing roughly 2/maxDistHz seconds of
// signal, so tight grids produce long blocks. Blocks are clamped to the
// history capacity.
func NewBank(cfg Config) *Bank {
	if cfg.BPMStep <= 0 {
		cfg.BPMStep = 1
	}
	if cfg.SubsampleRatio < 1 {
		cfg.SubsampleRatio = 1
	}
	if cfg.HistoryFrames < minBlockSize {
		cfg.HistoryFrames = minBlockSize
	}

	numBins := int(math.Round((cfg.BPMMax-cfg.BPMMin)/cfg.BPMStep)) + 1
	if numBins < 1 {
		numBins = 1
	}

	b := &Bank{
		cfg:       cfg,
		window:    newGaussianWindow(),
		history:   NewHistory(cfg.HistoryFrames),
		bins:      make([]bin, numBins),
		magnitude: make([]float64, numBins),
		smooth:    make([]float64, numBins),
		phase:     make([]float64, numBins),
		scratch:   make([]float64, cfg.HistoryFrames),
	}

	for i := range b.bins {
		bpm := cfg.BPMMin + float64(i)*cfg.BPMStep
		hz := bpm / 60.0

		dist := neighborDistanceHz(cfg, i, numBins)
		blockSize := int(cfg.SampleRateHz / (dist * 0.5))
		blockSize = min(max(blockSize, minBlockSize), cfg.HistoryFrames)

		w := mathutil.Tau * hz / cfg.SampleRateHz
		b.bins[i] = bin{
			bpm:       bpm,
			targetHz:  hz,
			blockSize: blockSize,
			cosW:      math.Cos(w),
			sinW:      math.Sin(w),
			coeff:     2.0 * math.Cos(w),
		}
	}

	return b
}

// neighborDistanceHz returns the larger frequency gap between bin i and its
// adjacent bins. Edge bins see only one neighbor.
func neighborDistanceHz(cfg Config, i, numBins int) float64 {
	binHz := func(j int) float64 {
		return (cfg.BPMMin + float64(j)*cfg.BPMStep) / 60.0
	}

	var left, right float64
	if i > 0 {
		left = math.Abs(binHz(i) - binHz(i-1))
	}
	if i < numBins-1 {
		right = math.Abs(binHz(i+1) - binHz(i))
	}

	dist := math.Max(left, right)
	if dist < 1e-6 {
		dist = 1e-6
	}
	return dist
}

// Update pushes one novelty sample into the history and re-evaluates the
// bins once every SubsampleRatio samples. It reports whether an evaluation
// happened, in which case fresh candidates are available.
//
// The silent flag freezes the attack path of the magnitude smoothing so
// residual energy drains during silence instead of locking in.
func (b *Bank) Update(noveltyZ float64, silent bool) bool {
	b.history.Push(noveltyZ)

	b.countdown++
	if b.countdown < b.cfg.SubsampleRatio {
		return false
	}
	b.countdown = 0

	b.evaluate(silent)
	return true
}

func (b *Bank) evaluate(silent bool) {
	avail := b.history.Tail(b.scratch, len(b.scratch))

	for i := range b.bins {
		b.magnitude[i] = b.resolveBin(i, avail)
	}

	// Autorange against the strongest bin so the quartic compression sees a
	// consistent scale regardless of input level. The floor keeps near-zero
	// spectra from being amplified into noise.
	peak := autorangeFloor
	for _, m := range b.magnitude {
		if m > peak {
			peak = m
		}
	}
	f64.Scale(b.magnitude, b.magnitude, 1.0/peak)

	// Quartic compression suppresses broad low-level correlation and
	// sharpens the true peaks.
	for i, m := range b.magnitude {
		m *= m
		b.magnitude[i] = m * m
	}

	for i, m := range b.magnitude {
		if !silent && m > activeBinFloor {
			b.smooth[i] = mathutil.Lerp(b.smooth[i], m, magnitudeAttack)
		} else {
			b.smooth[i] *= inactiveDecay
		}
	}

	b.powerSum = f64.Sum(b.smooth) + powerSumFloor

	b.maxSmooth = 0
	b.maxBin = 0
	for i, s := range b.smooth {
		if s > b.maxSmooth {
			b.maxSmooth = s
			b.maxBin = i
		}
	}
}

// resolveBin runs the windowed Goertzel recursion for one bin over the most
// recent samples of the history tail held in scratch. Bins whose block is
// longer than the available history evaluate over what exists; below the
// minimum fill they return zero and keep their previous phase.
func (b *Bank) resolveBin(i, avail int) float64 {
	bn := &b.bins[i]

	eff := bn.blockSize
	if eff > avail {
		eff = avail
	}
	if eff < minBlockSize {
		return 0
	}

	samples := b.scratch[avail-eff : avail]
	step := float64(windowTableSize) / float64(eff)

	var q0, q1, q2 float64
	pos := 0.0
	for _, s := range samples {
		q0 = bn.coeff*q1 - q2 + s*b.window.at(pos)
		q2 = q1
		q1 = q0
		pos += step
	}

	re := q1 - q2*bn.cosW
	im := q2 * bn.sinW
	b.phase[i] = mathutil.WrapPi(math.Atan2(im, re) + math.Pi*beatPhaseShift)

	magSq := q1*q1 + q2*q2 - q1*q2*bn.coeff
	if magSq < 0 {
		magSq = 0
	}
	return math.Sqrt(magSq) / (float64(eff) / 2.0)
}

// Confidence reports how concentrated the smoothed spectrum is: the peak
// magnitude relative to the total power, in [0, 1]. A flat or empty spectrum
// scores near zero.
func (b *Bank) Confidence() float64 {
	if b.powerSum <= 0 {
		return 0
	}
	return math.Min(b.maxSmooth/b.powerSum, 1.0)
}

// NumBins returns the number of tempo bins.
func (b *Bank) NumBins() int {
	return len(b.bins)
}

// BinBPM returns the center tempo of bin i.
func (b *Bank) BinBPM(i int) float64 {
	return b.cfg.BPMMin + float64(i)*b.cfg.BPMStep
}

// Spectrum copies the smoothed magnitudes into dst and returns the number
// of values copied.
func (b *Bank) Spectrum(dst []float64) int {
	return copy(dst, b.smooth)
}

// SpectrumAt returns the smoothed magnitude at an arbitrary tempo by linear
// interpolation between the neighboring bins. Tempi outside the tracked
// range return zero.
func (b *Bank) SpectrumAt(bpm float64) float64 {
	pos := (bpm - b.cfg.BPMMin) / b.cfg.BPMStep
	last := float64(len(b.bins) - 1)
	if pos < 0 || pos > last {
		return 0
	}

	i := int(pos)
	if i >= len(b.bins)-1 {
		return b.smooth[len(b.bins)-1]
	}
	return mathutil.Lerp(b.smooth[i], b.smooth[i+1], pos-float64(i))
}

// Reset restores the bank to its initial state, clearing the history and
// all accumulated magnitudes.
func (b *Bank) Reset() {
	b.history.Reset()
	for i := range b.smooth {
		b.magnitude[i] = 0
		b.smooth[i] = 0
		b.phase[i] = 0
	}
	b.countdown = 0
	b.maxSmooth = 0
	b.maxBin = 0
	b.powerSum = 0
}
