package resonator

const (
	// Gaussian window table
	windowTableSize = 4096
	windowSigma     = 0.8

	// Goertzel evaluation
	minBlockSize = 32

	// Beat phase alignment. The resonator phase lags the perceptual beat
	// slightly; this fraction of a half-cycle compensates.
	beatPhaseShift = 0.08

	// Magnitude post-processing
	autorangeFloor  = 0.01
	activeBinFloor  = 0.005
	magnitudeAttack = 0.025
	inactiveDecay   = 0.995
	powerSumFloor   = 1e-6

	// Candidate refinement
	parabolicGuard = 1e-12
	maxBinOffset   = 0.5
)
