package beattrack

// Tempo grid
const (
	defaultBPMMin  = 60.0
	defaultBPMMax  = 180.0
	defaultBPMStep = 1.0

	minTempoFloor = 20.0  // lowest supported BPMMin
	maxTempoCeil  = 400.0 // highest supported BPMMax
	maxTempoBins  = 2048  // guard against absurd grid resolutions
)

// Input timing
const (
	defaultInputRateHz    = 62.5 // novelty samples per second
	defaultSubsampleRatio = 6    // bank evaluations once per this many samples
	defaultHistoryFrames  = 512  // novelty history ring capacity

	minHistoryFrames = 32
)

// Novelty conditioning
const (
	defaultNormalizerTau    = 4.0 // seconds, adaptation constant of the z-score
	defaultNoveltyClip      = 6.0 // deviations, symmetric clip on the z-score
	defaultSilenceThreshold = 0.5 // contrast score above which input counts as silent
)

// Tempo prior
const (
	defaultPriorCenterBPM = 120.0
	defaultPriorSigma     = 0.6 // octaves
)

// Lock state machine defaults (Balanced profile)
const (
	defaultLockConfidence     = 0.3
	defaultLockStreak         = 5
	defaultChallengerRatio    = 1.1
	defaultChallengerStreak   = 5
	defaultUnlockConfidence   = 0.15
	defaultUnlockAfterSeconds = 2.0
)

// Clock controller defaults (Balanced profile)
const (
	defaultAttackRate           = 0.15
	defaultReleaseRate          = 0.05
	defaultPhaseKp              = 0.1
	defaultPhaseKi              = 0.01
	defaultMaxIntegral          = 2.0
	defaultMaxPhaseCorrection   = 0.1
	defaultMaxTempoCorrection   = 5.0
	defaultReacquireBPM         = 10.0
	defaultTickDebounceFraction = 0.6
	defaultMaxStepSeconds       = 1.0
)

// Steady profile: slower to commit, very hard to dislodge.
const (
	steadyLockStreak         = 8
	steadyChallengerStreak   = 8
	steadyUnlockAfterSeconds = 3.0
	steadyAttackRate         = 0.10
	steadyReleaseRate        = 0.03
)

// Responsive profile: commits and re-acquires quickly at the cost of
// occasional tempo wander.
const (
	responsiveLockStreak         = 3
	responsiveChallengerStreak   = 3
	responsiveUnlockAfterSeconds = 1.0
	responsiveAttackRate         = 0.25
	responsiveReleaseRate        = 0.10
)

// Candidate extraction
const (
	defaultTopK = 3
)
