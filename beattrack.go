package beattrack

import (
	"github.com/tphakala/go-beat-tracker/internal/clock"
	"github.com/tphakala/go-beat-tracker/internal/mathutil"
	"github.com/tphakala/go-beat-tracker/internal/novelty"
	"github.com/tphakala/go-beat-tracker/internal/resonator"
	"github.com/tphakala/go-beat-tracker/internal/tactus"
)

// Pipeline converts a stream of onset-strength samples into a stable beat
// clock: a tempo estimate, a continuously wrapping beat phase, per-beat
// ticks, and a confidence with an explicit locked flag.
//
// Feed it one novelty sample per hop with ProcessNovelty. Between hops,
// Tick advances the clock to an arbitrary timestamp for higher-rate phase
// readout. All methods must be called from a single goroutine; use a
// Publisher to hand frames to concurrent readers.
type Pipeline struct {
	cfg    Config
	tuning TuningSpec

	normalizer *novelty.Normalizer
	silence    *novelty.SilenceDetector
	bank       *resonator.Bank
	resolver   *tactus.Resolver
	clk        *clock.Clock

	cands     []resonator.Candidate
	nominalDt float64

	lastT       float64
	haveT       bool
	lastSilent  bool
	lastLocked  bool
	lastVerdict tactus.Result
}

// New creates a beat tracking pipeline with the given configuration.
func New(config *Config) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := *config
	tuning := cfg.Tuning.resolve()

	p := &Pipeline{
		cfg:    cfg,
		tuning: tuning,

		normalizer: novelty.NewNormalizer(tuning.NormalizerTauSeconds, tuning.NoveltyClip, 1.0/cfg.InputRateHz),
		silence:    novelty.NewSilenceDetector(tuning.SilenceThreshold),

		bank: resonator.NewBank(resonator.Config{
			BPMMin:         cfg.BPMMin,
			BPMMax:         cfg.BPMMax,
			BPMStep:        cfg.BPMStep,
			SampleRateHz:   cfg.InputRateHz,
			SubsampleRatio: cfg.SubsampleRatio,
			HistoryFrames:  cfg.HistoryFrames,
		}),

		resolver: tactus.NewResolver(tactus.Config{
			BPMMin:           cfg.BPMMin,
			BPMMax:           cfg.BPMMax,
			BPMStep:          cfg.BPMStep,
			PriorCenterBPM:   tuning.PriorCenterBPM,
			PriorSigma:       tuning.PriorSigma,
			LockConfidence:   tuning.LockConfidence,
			LockStreak:       tuning.LockStreak,
			ChallengerRatio:  tuning.ChallengerRatio,
			ChallengerStreak: tuning.ChallengerStreak,
			UnlockConfidence: tuning.UnlockConfidence,
			UnlockAfter:      tuning.UnlockAfterSeconds,
		}),

		cands:      make([]resonator.Candidate, defaultTopK),
		nominalDt:  1.0 / cfg.InputRateHz,
		lastSilent: true,
	}

	p.clk = clock.New(clock.Config{
		BPMMin:             cfg.BPMMin,
		BPMMax:             cfg.BPMMax,
		ReacquireBPM:       defaultReacquireBPM,
		Kp:                 tuning.PhaseKp,
		Ki:                 tuning.PhaseKi,
		MaxIntegral:        defaultMaxIntegral,
		MaxPhaseCorrection: defaultMaxPhaseCorrection,
		MaxTempoCorrection: defaultMaxTempoCorrection,
		AttackRate:         tuning.AttackRate,
		ReleaseRate:        tuning.ReleaseRate,
		DebounceFraction:   defaultTickDebounceFraction,
		MaxStepSeconds:     defaultMaxStepSeconds,
	}, p.initialBPM())

	return p, nil
}

func (p *Pipeline) initialBPM() float64 {
	return mathutil.Clamp(p.tuning.PriorCenterBPM, p.cfg.BPMMin, p.cfg.BPMMax)
}

// ProcessNovelty consumes one onset-strength sample observed at pipeline
// time t (seconds) and returns the beat clock frame for that instant.
// Irregular timestamps are tolerated: the step is derived from t where
// possible and falls back to the nominal hop otherwise.
func (p *Pipeline) ProcessNovelty(flux, t float64) Output {
	if !mathutil.IsFinite(t) {
		t = p.lastT + p.nominalDt
	}

	dt := p.nominalDt
	if p.haveT {
		if d := t - p.lastT; d > 0 && mathutil.IsFinite(d) {
			dt = d
		}
	}
	p.lastT = t
	p.haveT = true

	z := p.normalizer.Process(flux, dt)
	p.silence.Observe(flux)
	silent := p.silence.Silent()
	p.lastSilent = silent

	if p.bank.Update(z, silent) {
		n := p.bank.ExtractTopK(p.cands)
		verdict := p.resolver.Process(p.cands[:n], p.bank, p.bank.Confidence(), silent, t)
		p.clk.CorrectFromTactus(verdict.BPM, verdict.Phase, verdict.Confidence, verdict.Locked)
		p.lastVerdict = verdict
	}

	tick := p.clk.Advance(t, dt)

	lockChanged := p.lastVerdict.Locked != p.lastLocked
	p.lastLocked = p.lastVerdict.Locked

	return p.snapshot(t, tick, lockChanged)
}

// Tick advances the clock to time t without consuming input, for callers
// that need phase at a higher rate than the novelty hop. Time shared with
// ProcessNovelty is never advanced twice: both paths measure against the
// same clock.
func (p *Pipeline) Tick(t float64) Output {
	if !mathutil.IsFinite(t) {
		t = p.lastT
	}
	tick := p.clk.Advance(t, defaultMaxStepSeconds)
	return p.snapshot(t, tick, false)
}

func (p *Pipeline) snapshot(t float64, tick, lockChanged bool) Output {
	return Output{
		T:           t,
		BPM:         p.clk.BPM(),
		Phase01:     p.clk.Phase01(),
		Tick:        tick,
		Confidence:  p.clk.Confidence(),
		Locked:      p.lastVerdict.Locked,
		LockChanged: lockChanged,
		Silent:      p.lastSilent,
	}
}

// Reset restores the pipeline to its initial state, as if freshly built
// with the same configuration.
func (p *Pipeline) Reset() {
	p.normalizer.Reset()
	p.silence.Reset()
	p.bank.Reset()
	p.resolver.Reset()
	p.clk.Reset(p.initialBPM())

	p.lastT = 0
	p.haveT = false
	p.lastSilent = true
	p.lastLocked = false
	p.lastVerdict = tactus.Result{}
}

// Info reports the static parameters of a pipeline.
type Info struct {
	NumBins        int     // resonator bins across the tempo grid
	InputRateHz    float64 // novelty sample rate
	BankRateHz     float64 // resonator evaluation rate
	BPMMin         float64
	BPMMax         float64
	HistoryFrames  int
	HistorySeconds float64 // time span covered by the novelty history
}

// Info returns the pipeline's static parameters.
func (p *Pipeline) Info() Info {
	return Info{
		NumBins:        p.bank.NumBins(),
		InputRateHz:    p.cfg.InputRateHz,
		BankRateHz:     p.cfg.InputRateHz / float64(p.cfg.SubsampleRatio),
		BPMMin:         p.cfg.BPMMin,
		BPMMax:         p.cfg.BPMMax,
		HistoryFrames:  p.cfg.HistoryFrames,
		HistorySeconds: float64(p.cfg.HistoryFrames) / p.cfg.InputRateHz,
	}
}

// Diagnostics is a point-in-time snapshot of internal tracker state,
// intended for tracing and debugging tools rather than control flow.
type Diagnostics struct {
	NoveltyMean      float64
	NoveltyDeviation float64
	SilenceLevel     float64
	Silent           bool

	BankConfidence float64

	WinnerBPM          float64
	ResolverConfidence float64
	LockState          string
	DensityPeakBPM     float64
	DensityPeakValue   float64

	ClockBPM     float64
	ClockPhase01 float64
}

// Diagnostics returns a snapshot of the tracker's internal state.
func (p *Pipeline) Diagnostics() Diagnostics {
	peakBPM, peakVal := p.resolver.DensityPeak()
	return Diagnostics{
		NoveltyMean:      p.normalizer.Mean(),
		NoveltyDeviation: p.normalizer.Deviation(),
		SilenceLevel:     p.silence.Level(),
		Silent:           p.lastSilent,

		BankConfidence: p.bank.Confidence(),

		WinnerBPM:          p.lastVerdict.BPM,
		ResolverConfidence: p.lastVerdict.Confidence,
		LockState:          p.resolver.LockState(),
		DensityPeakBPM:     peakBPM,
		DensityPeakValue:   peakVal,

		ClockBPM:     p.clk.BPM(),
		ClockPhase01: p.clk.Phase01(),
	}
}

// Spectrum copies the current smoothed tempo spectrum into dst, one value
// per bin from BPMMin upward, and returns the number of values copied.
func (p *Pipeline) Spectrum(dst []float64) int {
	return p.bank.Spectrum(dst)
}

// Density copies the resolver's accumulated tempo evidence into dst, one
// value per bin on the same grid as Spectrum, and returns the number of
// values copied.
func (p *Pipeline) Density(dst []float64) int {
	return p.resolver.Density(dst)
}

// BinBPM returns the tempo at the center of spectrum bin i.
func (p *Pipeline) BinBPM(i int) float64 {
	return p.bank.BinBPM(i)
}
