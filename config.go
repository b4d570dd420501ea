package beattrack

import (
	"errors"
	"fmt"
	"math"
)

// Config holds beat tracker configuration.
type Config struct {
	// InputRateHz is the rate at which novelty samples arrive, in Hz.
	// Typical onset-strength front ends produce 50-100 samples per second.
	InputRateHz float64

	// BPMMin and BPMMax bound the tracked tempo range. Tempi outside the
	// range are reported through their in-range octave relatives.
	BPMMin float64
	BPMMax float64

	// BPMStep is the spacing of the resonator grid in BPM. Finer grids
	// resolve tempo more precisely but cost proportionally more CPU.
	BPMStep float64

	// HistoryFrames is the capacity of the novelty history ring. Longer
	// history sharpens tempo resolution and slows reaction to changes.
	HistoryFrames int

	// SubsampleRatio re-evaluates the resonator bank once per this many
	// input samples. Tempo evolves far slower than the novelty rate, so
	// values around 6 lose nothing.
	SubsampleRatio int

	// Tuning selects the lock and controller behavior.
	Tuning TuningSpec
}

// TuningSpec defines lock acquisition and clock controller parameters.
// Users can either pick a profile or customize individual parameters.
type TuningSpec struct {
	// Profile is a convenience setting for common tracking behaviors.
	// Any profile other than ProfileCustom overrides the other fields.
	Profile Profile

	// PriorCenterBPM is the tempo favored when the evidence is ambiguous
	// between octave-related interpretations.
	PriorCenterBPM float64

	// PriorSigma is the width of that preference in octaves.
	PriorSigma float64

	// LockConfidence is the minimum confidence to begin acquiring a lock.
	LockConfidence float64

	// LockStreak is the number of consecutive agreeing cycles required to
	// verify a lock.
	LockStreak int

	// ChallengerRatio is the evidence advantage a rival tempo family must
	// hold over the locked one before it is even counted.
	ChallengerRatio float64

	// ChallengerStreak is the number of consecutive winning cycles a rival
	// needs to displace a verified lock.
	ChallengerStreak int

	// UnlockConfidence is the floor below which a verified lock erodes.
	UnlockConfidence float64

	// UnlockAfterSeconds is how long confidence must stay below the floor
	// before the lock is abandoned.
	UnlockAfterSeconds float64

	// AttackRate and ReleaseRate blend the output tempo toward the
	// resolver's estimate, faster upward than downward.
	AttackRate  float64
	ReleaseRate float64

	// PhaseKp and PhaseKi are the proportional and integral gains of the
	// phase controller.
	PhaseKp float64
	PhaseKi float64

	// NormalizerTauSeconds is the adaptation constant of the novelty
	// z-score normalizer.
	NormalizerTauSeconds float64

	// NoveltyClip bounds the normalized novelty in deviations.
	NoveltyClip float64

	// SilenceThreshold is the contrast score above which the input counts
	// as silent.
	SilenceThreshold float64
}

// Profile enumerates predefined tracking behaviors.
type Profile int

const (
	// ProfileBalanced suits most material: locks within a couple of
	// seconds and tolerates moderate noise.
	ProfileBalanced Profile = iota

	// ProfileSteady locks slowly and holds on hard. Use for material with
	// a stable tempo and a noisy novelty signal.
	ProfileSteady

	// ProfileResponsive locks and re-acquires quickly at the cost of
	// occasional wander. Use for live input that changes tempo often.
	ProfileResponsive

	// ProfileCustom indicates manual configuration of tuning parameters.
	ProfileCustom
)

// Common errors returned by the beat tracker.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid beat tracker configuration")

	// ErrEmptyInput indicates an analysis call received no samples.
	ErrEmptyInput = errors.New("empty input")
)

// DefaultConfig returns the configuration used by the convenience
// constructors: a 60-180 BPM grid at 1 BPM resolution fed at 62.5 Hz,
// with the Balanced tuning profile.
func DefaultConfig() *Config {
	return &Config{
		InputRateHz:    defaultInputRateHz,
		BPMMin:         defaultBPMMin,
		BPMMax:         defaultBPMMax,
		BPMStep:        defaultBPMStep,
		HistoryFrames:  defaultHistoryFrames,
		SubsampleRatio: defaultSubsampleRatio,
		Tuning:         GetProfileTuning(ProfileBalanced),
	}
}

// GetProfileTuning returns the tuning specification for a profile.
func GetProfileTuning(profile Profile) TuningSpec {
	t := TuningSpec{
		Profile:              profile,
		PriorCenterBPM:       defaultPriorCenterBPM,
		PriorSigma:           defaultPriorSigma,
		LockConfidence:       defaultLockConfidence,
		LockStreak:           defaultLockStreak,
		ChallengerRatio:      defaultChallengerRatio,
		ChallengerStreak:     defaultChallengerStreak,
		UnlockConfidence:     defaultUnlockConfidence,
		UnlockAfterSeconds:   defaultUnlockAfterSeconds,
		AttackRate:           defaultAttackRate,
		ReleaseRate:          defaultReleaseRate,
		PhaseKp:              defaultPhaseKp,
		PhaseKi:              defaultPhaseKi,
		NormalizerTauSeconds: defaultNormalizerTau,
		NoveltyClip:          defaultNoveltyClip,
		SilenceThreshold:     defaultSilenceThreshold,
	}

	switch profile {
	case ProfileSteady:
		t.LockStreak = steadyLockStreak
		t.ChallengerStreak = steadyChallengerStreak
		t.UnlockAfterSeconds = steadyUnlockAfterSeconds
		t.AttackRate = steadyAttackRate
		t.ReleaseRate = steadyReleaseRate

	case ProfileResponsive:
		t.LockStreak = responsiveLockStreak
		t.ChallengerStreak = responsiveChallengerStreak
		t.UnlockAfterSeconds = responsiveUnlockAfterSeconds
		t.AttackRate = responsiveAttackRate
		t.ReleaseRate = responsiveReleaseRate
	}

	return t
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.InputRateHz <= 0 || math.IsInf(c.InputRateHz, 0) || math.IsNaN(c.InputRateHz) {
		return fmt.Errorf("%w: input rate must be positive and finite", ErrInvalidConfig)
	}

	if c.BPMMin < minTempoFloor || c.BPMMax > maxTempoCeil {
		return fmt.Errorf("%w: tempo range must lie within %v-%v BPM", ErrInvalidConfig, minTempoFloor, maxTempoCeil)
	}

	if c.BPMMax <= c.BPMMin {
		return fmt.Errorf("%w: BPMMax must exceed BPMMin", ErrInvalidConfig)
	}

	if c.BPMStep <= 0 || c.BPMStep > c.BPMMax-c.BPMMin {
		return fmt.Errorf("%w: BPMStep must be positive and within the tempo range", ErrInvalidConfig)
	}

	bins := int(math.Round((c.BPMMax-c.BPMMin)/c.BPMStep)) + 1
	if bins > maxTempoBins {
		return fmt.Errorf("%w: tempo grid too fine (%d bins, max %d)", ErrInvalidConfig, bins, maxTempoBins)
	}

	if c.HistoryFrames < minHistoryFrames {
		return fmt.Errorf("%w: history must hold at least %d frames", ErrInvalidConfig, minHistoryFrames)
	}

	if c.SubsampleRatio < 1 {
		return fmt.Errorf("%w: subsample ratio must be at least 1", ErrInvalidConfig)
	}

	return c.Tuning.Validate()
}

// Validate checks if the tuning specification is valid.
func (t *TuningSpec) Validate() error {
	switch t.Profile {
	case ProfileBalanced, ProfileSteady, ProfileResponsive:
		return nil
	case ProfileCustom:
		// fall through to field validation
	default:
		return fmt.Errorf("%w: unknown profile %d", ErrInvalidConfig, t.Profile)
	}

	if t.PriorCenterBPM <= 0 {
		return fmt.Errorf("%w: prior center must be positive", ErrInvalidConfig)
	}

	if t.PriorSigma <= 0 {
		return fmt.Errorf("%w: prior sigma must be positive", ErrInvalidConfig)
	}

	if t.LockConfidence <= 0 || t.LockConfidence > 1 {
		return fmt.Errorf("%w: lock confidence must be in (0, 1]", ErrInvalidConfig)
	}

	if t.UnlockConfidence < 0 || t.UnlockConfidence >= t.LockConfidence {
		return fmt.Errorf("%w: unlock confidence must be in [0, lock confidence)", ErrInvalidConfig)
	}

	if t.LockStreak < 1 || t.ChallengerStreak < 1 {
		return fmt.Errorf("%w: streaks must be at least 1", ErrInvalidConfig)
	}

	if t.ChallengerRatio < 1 {
		return fmt.Errorf("%w: challenger ratio must be at least 1", ErrInvalidConfig)
	}

	if t.UnlockAfterSeconds < 0 {
		return fmt.Errorf("%w: unlock delay must not be negative", ErrInvalidConfig)
	}

	if t.AttackRate <= 0 || t.AttackRate > 1 || t.ReleaseRate <= 0 || t.ReleaseRate > 1 {
		return fmt.Errorf("%w: blend rates must be in (0, 1]", ErrInvalidConfig)
	}

	if t.PhaseKp <= 0 || t.PhaseKi < 0 {
		return fmt.Errorf("%w: controller gains must be positive (Kp) and non-negative (Ki)", ErrInvalidConfig)
	}

	if t.NormalizerTauSeconds <= 0 {
		return fmt.Errorf("%w: normalizer tau must be positive", ErrInvalidConfig)
	}

	if t.NoveltyClip <= 0 {
		return fmt.Errorf("%w: novelty clip must be positive", ErrInvalidConfig)
	}

	if t.SilenceThreshold <= 0 || t.SilenceThreshold >= 1 {
		return fmt.Errorf("%w: silence threshold must be in (0, 1)", ErrInvalidConfig)
	}

	return nil
}

// resolve returns the effective tuning: profile presets expand to their
// full parameter set, custom tuning passes through as-is.
func (t TuningSpec) resolve() TuningSpec {
	if t.Profile == ProfileCustom {
		return t
	}
	return GetProfileTuning(t.Profile)
}
