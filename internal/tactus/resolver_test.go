package tactus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-beat-tracker/internal/resonator"
	"github.com/tphakala/go-beat-tracker/internal/testutil"
)

// testCycleDt matches the bank evaluation cadence of roughly 10.4 Hz.
const testCycleDt = 0.096

// spectrumFunc adapts a plain function to the Spectrum interface.
type spectrumFunc func(float64) float64

func (f spectrumFunc) SpectrumAt(bpm float64) float64 { return f(bpm) }

var flatSpectrum = spectrumFunc(func(float64) float64 { return 0 })

func testResolverConfig() Config {
	return Config{
		BPMMin:           60,
		BPMMax:           180,
		BPMStep:          1,
		PriorCenterBPM:   120,
		PriorSigma:       0.6,
		LockConfidence:   0.3,
		LockStreak:       5,
		ChallengerRatio:  1.1,
		ChallengerStreak: 5,
		UnlockConfidence: 0.15,
		UnlockAfter:      2.0,
	}
}

func cand(bin int, bpm, raw, phase float64) resonator.Candidate {
	return resonator.Candidate{BPM: bpm, Bin: bin, Raw: raw, Magnitude: 1, Phase: phase}
}

// runCycles drives n identical cycles starting at the given time and
// returns the last result and the time just past the final cycle.
func runCycles(r *Resolver, cands []resonator.Candidate, spec Spectrum, bankConf float64, silent bool, start float64, n int) (Result, float64) {
	var res Result
	now := start
	for i := 0; i < n; i++ {
		res = r.Process(cands, spec, bankConf, silent, now)
		now += testCycleDt
	}
	return res, now
}

func TestResolver_InitialState(t *testing.T) {
	r := NewResolver(testResolverConfig())

	assert.Equal(t, "unlocked", r.LockState())

	res := r.Process(nil, flatSpectrum, 0, false, 0)
	assert.Equal(t, 120.0, res.BPM)
	assert.Zero(t, res.Confidence)
	assert.False(t, res.Locked)
}

func TestResolver_LocksOnConsistentCandidates(t *testing.T) {
	r := NewResolver(testResolverConfig())

	cands := []resonator.Candidate{
		cand(60, 120, 0.9, 1.2),
		cand(90, 150, 0.2, -2.0),
	}

	now := 0.0
	for i := 1; i <= 5; i++ {
		res := r.Process(cands, flatSpectrum, 0.6, false, now)
		now += testCycleDt

		assert.Equal(t, 120.0, res.BPM, "cycle %d", i)
		if i < 5 {
			assert.False(t, res.Locked, "cycle %d should still be acquiring", i)
		} else {
			assert.True(t, res.Locked, "cycle %d should be locked", i)
		}
	}

	assert.Equal(t, "locked", r.LockState())
}

func TestResolver_ConfidenceCombinesGroupingAndBank(t *testing.T) {
	r := NewResolver(testResolverConfig())

	// A single clean peak has no runner-up, so grouping confidence is 1 and
	// the output is the midpoint with the bank confidence.
	res := r.Process([]resonator.Candidate{cand(60, 120, 0.9, 0)}, flatSpectrum, 0.6, false, 0)
	assert.InDelta(t, 0.5*1.0+0.5*0.6, res.Confidence, testutil.DefaultTolerance)

	testutil.AssertInRange(t, res.Confidence, 0.0, 1.0)
}

func TestResolver_OctavePrefersPriorCenter(t *testing.T) {
	r := NewResolver(testResolverConfig())

	// Equal raw evidence at 60 and 120 BPM: the prior must break the tie
	// toward the center of the musical range.
	cands := []resonator.Candidate{
		cand(0, 60, 0.8, 0),
		cand(60, 120, 0.8, 0),
	}

	res, _ := runCycles(r, cands, flatSpectrum, 0.6, false, 0, 6)

	assert.Equal(t, 120.0, res.BPM)
	assert.True(t, res.Locked)
}

func TestResolver_WinnerSnapsToRefinedCandidate(t *testing.T) {
	r := NewResolver(testResolverConfig())

	res, _ := runCycles(r, []resonator.Candidate{cand(60, 119.62, 0.9, 0)}, flatSpectrum, 0.6, false, 0, 3)

	assert.InDelta(t, 119.62, res.BPM, testutil.DefaultTolerance)
}

func TestResolver_PhaseHintTracksWinnerFamily(t *testing.T) {
	r := NewResolver(testResolverConfig())

	res, now := runCycles(r, []resonator.Candidate{
		cand(60, 120, 0.9, 1.2),
		cand(90, 150, 0.3, -2.0),
	}, flatSpectrum, 0.6, false, 0, 6)
	assert.InDelta(t, 1.2, res.Phase, testutil.DefaultTolerance)

	// The winner's resonator phase moved: the hint follows.
	res, now = runCycles(r, []resonator.Candidate{
		cand(60, 120, 0.9, 1.5),
	}, flatSpectrum, 0.6, false, now, 1)
	assert.InDelta(t, 1.5, res.Phase, testutil.DefaultTolerance)

	// No candidate in the locked family this cycle: the hint is held.
	res, _ = runCycles(r, []resonator.Candidate{
		cand(90, 150, 0.3, -2.0),
	}, flatSpectrum, 0.6, false, now, 1)
	assert.InDelta(t, 1.5, res.Phase, testutil.DefaultTolerance)
}

func TestResolver_HoldsLockThroughFlicker(t *testing.T) {
	r := NewResolver(testResolverConfig())

	steady := []resonator.Candidate{cand(60, 120, 0.9, 0)}
	_, now := runCycles(r, steady, flatSpectrum, 0.7, false, 0, 10)
	require.Equal(t, "locked", r.LockState())

	// Alternate cycles flip the instantaneous winner toward 150 BPM. The
	// accumulated density must keep the reported tempo pinned at 120.
	rival := []resonator.Candidate{cand(90, 150, 1.0, 0)}
	for i := 0; i < 20; i++ {
		cands := steady
		if i%2 == 0 {
			cands = rival
		}
		res := r.Process(cands, flatSpectrum, 0.7, false, now)
		now += testCycleDt

		assert.Equal(t, 120.0, res.BPM, "cycle %d", i)
		assert.True(t, res.Locked, "cycle %d", i)
	}
}

func TestResolver_ChallengerTakesOverAfterSustainedShift(t *testing.T) {
	r := NewResolver(testResolverConfig())

	steady := []resonator.Candidate{cand(60, 120, 0.9, 0)}
	_, now := runCycles(r, steady, flatSpectrum, 0.7, false, 0, 20)
	require.Equal(t, "locked", r.LockState())

	// The input tempo jumps to 150. The lock must hold briefly, then yield
	// once the new family has decisively out-accumulated the old one.
	rival := []resonator.Candidate{cand(90, 150, 1.0, 0)}

	res, now := runCycles(r, rival, flatSpectrum, 0.7, false, now, 10)
	assert.Equal(t, 120.0, res.BPM, "lock should survive the first second of the shift")
	assert.True(t, res.Locked)

	res, _ = runCycles(r, rival, flatSpectrum, 0.7, false, now, 40)
	assert.Equal(t, 150.0, res.BPM)
	assert.True(t, res.Locked)
	assert.Equal(t, "locked", r.LockState())
}

func TestResolver_SilentConfidenceDecays(t *testing.T) {
	r := NewResolver(testResolverConfig())

	res, now := runCycles(r, []resonator.Candidate{cand(60, 120, 0.9, 0)}, flatSpectrum, 0.6, false, 0, 3)
	base := res.Confidence
	require.Positive(t, base)

	res, _ = runCycles(r, nil, flatSpectrum, 0, true, now, 3)
	want := base * silentConfidenceDecay * silentConfidenceDecay * silentConfidenceDecay
	assert.InDelta(t, want, res.Confidence, testutil.DefaultTolerance)
}

func TestResolver_ShortSilenceKeepsLock(t *testing.T) {
	r := NewResolver(testResolverConfig())

	_, now := runCycles(r, []resonator.Candidate{cand(60, 120, 0.9, 0)}, flatSpectrum, 0.6, false, 0, 10)
	require.Equal(t, "locked", r.LockState())

	// One second of dropout is not enough to erode a verified lock.
	res, _ := runCycles(r, nil, flatSpectrum, 0, true, now, 10)
	assert.True(t, res.Locked)
	assert.Equal(t, 120.0, res.BPM)
}

func TestResolver_UnlocksAfterSustainedLowConfidence(t *testing.T) {
	r := NewResolver(testResolverConfig())

	_, now := runCycles(r, []resonator.Candidate{cand(60, 120, 0.9, 0)}, flatSpectrum, 0.6, false, 0, 10)
	require.Equal(t, "locked", r.LockState())

	res, _ := runCycles(r, nil, flatSpectrum, 0, true, now, 60)
	assert.False(t, res.Locked)
	assert.Equal(t, "unlocked", r.LockState())
}

func TestResolver_NoCandidatesHoldsHypothesis(t *testing.T) {
	r := NewResolver(testResolverConfig())

	_, now := runCycles(r, []resonator.Candidate{cand(60, 120, 0.9, 0)}, flatSpectrum, 0.6, false, 0, 10)
	require.Equal(t, "locked", r.LockState())

	// Candidates vanish but the signal is not silent: the density memory
	// keeps the hypothesis in place.
	res, _ := runCycles(r, nil, flatSpectrum, 0.5, false, now, 5)
	assert.Equal(t, 120.0, res.BPM)
	assert.True(t, res.Locked)
}

func TestResolver_ResetMatchesFresh(t *testing.T) {
	cands := []resonator.Candidate{
		cand(60, 120, 0.9, 0.4),
		cand(90, 150, 0.3, -1.0),
	}

	reused := NewResolver(testResolverConfig())
	runCycles(reused, []resonator.Candidate{cand(30, 90, 0.8, 0)}, flatSpectrum, 0.6, false, 0, 8)
	reused.Reset()
	gotReused, _ := runCycles(reused, cands, flatSpectrum, 0.6, false, 0, 8)

	fresh := NewResolver(testResolverConfig())
	gotFresh, _ := runCycles(fresh, cands, flatSpectrum, 0.6, false, 0, 8)

	assert.InDelta(t, gotFresh.BPM, gotReused.BPM, testutil.DefaultTolerance)
	assert.InDelta(t, gotFresh.Phase, gotReused.Phase, testutil.DefaultTolerance)
	assert.InDelta(t, gotFresh.Confidence, gotReused.Confidence, testutil.DefaultTolerance)
	assert.Equal(t, gotFresh.Locked, gotReused.Locked)
}

func TestResolver_DensityPeakDiagnostics(t *testing.T) {
	r := NewResolver(testResolverConfig())
	runCycles(r, []resonator.Candidate{cand(60, 120, 0.9, 0)}, flatSpectrum, 0.6, false, 0, 5)

	bpm, val := r.DensityPeak()
	assert.Equal(t, 120.0, bpm)
	assert.Positive(t, val)
}
