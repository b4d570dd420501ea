package beattrack

// Common novelty rates for convenience functions. Onset-strength front
// ends derive their hop rate from the audio rate and hop size; these cover
// the usual combinations.
const (
	// RateStandard is the default novelty rate: 16 kHz audio analyzed with
	// a 256 sample hop.
	RateStandard = 62.5

	// RateCD is the novelty rate of 44.1 kHz audio with a 512 sample hop.
	RateCD = 86.1328125

	// RateDAT is the novelty rate of 48 kHz audio with a 512 sample hop.
	RateDAT = 93.75

	// RateCoarse is the novelty rate of 44.1 kHz audio with a 1024 sample
	// hop, for CPU constrained callers.
	RateCoarse = 43.06640625
)

// NewBalanced creates a pipeline with the default configuration: the
// Balanced profile at the standard novelty rate.
func NewBalanced() (*Pipeline, error) {
	return NewWithProfile(ProfileBalanced)
}

// NewSteady creates a pipeline that locks slowly and holds on hard, for
// stable material with a noisy novelty signal.
func NewSteady() (*Pipeline, error) {
	return NewWithProfile(ProfileSteady)
}

// NewResponsive creates a pipeline that locks and re-acquires quickly,
// for live input that changes tempo often.
func NewResponsive() (*Pipeline, error) {
	return NewWithProfile(ProfileResponsive)
}

// NewWithProfile creates a pipeline with the default configuration and
// the given tuning profile.
func NewWithProfile(profile Profile) (*Pipeline, error) {
	cfg := DefaultConfig()
	cfg.Tuning = GetProfileTuning(profile)
	return New(cfg)
}

// NewWithRate creates a Balanced pipeline fed at a non-standard novelty
// rate.
func NewWithRate(rateHz float64) (*Pipeline, error) {
	cfg := DefaultConfig()
	cfg.InputRateHz = rateHz
	return New(cfg)
}

// Analysis summarizes an offline run over a complete novelty sequence.
type Analysis struct {
	// BPM is the tempo reported at the end of the sequence.
	BPM float64

	// Confidence is the confidence reported at the end of the sequence.
	Confidence float64

	// Locked reports whether the tracker ended the sequence locked.
	Locked bool

	// LockTime is the time of the first verified lock in seconds, or -1
	// if the tracker never locked.
	LockTime float64

	// Beats holds the timestamps of all emitted beat ticks.
	Beats []float64

	// Frames is the number of novelty samples consumed.
	Frames int
}

// AnalyzeNovelty runs a novelty sequence through a fresh Balanced pipeline
// at the given rate and summarizes the result. For streaming use build a
// Pipeline directly; this helper is for whole-file analysis.
func AnalyzeNovelty(noveltySamples []float64, rateHz float64) (*Analysis, error) {
	cfg := DefaultConfig()
	cfg.InputRateHz = rateHz
	return AnalyzeNoveltyWithConfig(noveltySamples, cfg)
}

// AnalyzeNoveltyWithConfig is AnalyzeNovelty with full control over the
// pipeline configuration.
func AnalyzeNoveltyWithConfig(noveltySamples []float64, config *Config) (*Analysis, error) {
	if len(noveltySamples) == 0 {
		return nil, ErrEmptyInput
	}

	p, err := New(config)
	if err != nil {
		return nil, err
	}

	hop := 1.0 / p.cfg.InputRateHz
	a := &Analysis{LockTime: -1, Frames: len(noveltySamples)}

	var last Output
	for i, s := range noveltySamples {
		last = p.ProcessNovelty(s, float64(i)*hop)
		if last.Tick {
			a.Beats = append(a.Beats, last.T)
		}
		if last.Locked && a.LockTime < 0 {
			a.LockTime = last.T
		}
	}

	a.BPM = last.BPM
	a.Confidence = last.Confidence
	a.Locked = last.Locked
	return a, nil
}

// EstimateBPM analyzes a novelty sequence and returns just the tempo.
func EstimateBPM(noveltySamples []float64, rateHz float64) (float64, error) {
	a, err := AnalyzeNovelty(noveltySamples, rateHz)
	if err != nil {
		return 0, err
	}
	return a.BPM, nil
}
