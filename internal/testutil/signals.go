package testutil

import "math"

// Synthetic signal parameters shared across pipeline tests.
const (
	// ImpulseLevel is the flux value of a synthetic onset impulse.
	ImpulseLevel = 1.0

	// FloorLevel is the flux value between synthetic impulses.
	FloorLevel = 0.02

	// DecayPerHop shapes an impulse into a short exponential tail, closer
	// to real onset-strength curves than a bare delta.
	DecayPerHop = 0.35
)

// ImpulseTrain generates a synthetic novelty sequence of n samples at
// hopRateHz with one decaying impulse per beat at the given tempo.
// Output values lie in [0, 1].
func ImpulseTrain(bpm, hopRateHz float64, n int) []float64 {
	out := make([]float64, n)
	if hopRateHz <= 0 || bpm <= 0 {
		return out
	}
	beatPeriod := 60.0 / bpm
	hop := 1.0 / hopRateHz
	level := 0.0
	nextBeat := 0.0
	for i := range n {
		t := float64(i) * hop
		level *= DecayPerHop
		if t >= nextBeat {
			level = ImpulseLevel
			nextBeat += beatPeriod
		}
		v := level
		if v < FloorLevel {
			v = FloorLevel
		}
		out[i] = v
	}
	return out
}

// MixedImpulseTrain generates a novelty sequence with impulses at two
// tempi. The second train is scaled by secondaryLevel, useful for
// half/double tempo ambiguity scenarios.
func MixedImpulseTrain(primaryBPM, secondaryBPM, secondaryLevel, hopRateHz float64, n int) []float64 {
	primary := ImpulseTrain(primaryBPM, hopRateHz, n)
	secondary := ImpulseTrain(secondaryBPM, hopRateHz, n)
	out := make([]float64, n)
	for i := range n {
		v := primary[i] + secondary[i]*secondaryLevel
		out[i] = math.Min(1.0, v)
	}
	return out
}

// Silence generates n samples of all-zero novelty.
func Silence(n int) []float64 {
	return make([]float64, n)
}
