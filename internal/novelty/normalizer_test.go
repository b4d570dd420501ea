package novelty

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-beat-tracker/internal/testutil"
)

// Test configuration matching the pipeline defaults.
const (
	testTau  = 4.0
	testClip = 6.0
	testHop  = 1.0 / 62.5
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(testTau, testClip, testHop)
}

func TestNormalizer_OutputWithinClip(t *testing.T) {
	n := newTestNormalizer()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		z := n.Process(rng.Float64(), testHop)
		testutil.AssertInRange(t, z, -testClip, testClip)
	}
}

func TestNormalizer_ExtremeInputWithinClip(t *testing.T) {
	tests := []struct {
		name string
		flux float64
	}{
		{"zero", 0.0},
		{"one", 1.0},
		{"huge", 1e12},
		{"negative_huge", -1e12},
		{"tiny", 1e-300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNormalizer()
			// Settle on a quiet baseline first.
			for i := 0; i < 100; i++ {
				n.Process(0.05, testHop)
			}
			z := n.Process(tt.flux, testHop)
			testutil.AssertInRange(t, z, -testClip, testClip)
			assert.False(t, math.IsNaN(z))
		})
	}
}

func TestNormalizer_NonFiniteInputHeld(t *testing.T) {
	n := newTestNormalizer()

	var last float64
	for i := 0; i < 50; i++ {
		last = n.Process(0.3, testHop)
	}
	meanBefore := n.Mean()

	assert.Equal(t, last, n.Process(math.NaN(), testHop))
	assert.Equal(t, last, n.Process(math.Inf(1), testHop))
	assert.Equal(t, meanBefore, n.Mean(), "non-finite input must not move the statistics")
}

func TestNormalizer_AdaptsToBaseline(t *testing.T) {
	n := newTestNormalizer()

	// A constant baseline is not novel: z should settle near zero no
	// matter where the baseline sits.
	var z float64
	for i := 0; i < 5000; i++ {
		z = n.Process(0.8, testHop)
	}
	assert.InDelta(t, 0.0, z, 0.05, "constant input should normalize to ~0")
}

func TestNormalizer_ImpulseStandsOutFromFloor(t *testing.T) {
	n := newTestNormalizer()

	// Quiet floor with periodic impulses: impulses must map to strongly
	// positive z regardless of the floor level.
	var impulseZ, floorZ float64
	for i := 0; i < 2000; i++ {
		if i%31 == 0 {
			impulseZ = n.Process(0.9, testHop)
		} else {
			floorZ = n.Process(0.05, testHop)
		}
	}
	assert.Greater(t, impulseZ, 1.0, "impulse should be clearly positive")
	assert.Less(t, floorZ, impulseZ, "floor must score below impulses")
}

func TestNormalizer_GainDriftInvariance(t *testing.T) {
	// The same rhythm at two upstream gain levels should produce
	// comparable z-scores once the statistics settle.
	runTrain := func(scale float64) float64 {
		n := newTestNormalizer()
		var peak float64
		for i := 0; i < 4000; i++ {
			flux := 0.02 * scale
			if i%31 == 0 {
				flux = 0.8 * scale
			}
			z := n.Process(flux, testHop)
			if i > 2000 && z > peak {
				peak = z
			}
		}
		return peak
	}

	loud := runTrain(1.0)
	quiet := runTrain(0.1)
	require.Positive(t, loud)
	require.Positive(t, quiet)
	assert.InDelta(t, loud, quiet, 0.5,
		"peak z should be gain invariant: loud=%f quiet=%f", loud, quiet)
}

func TestNormalizer_DtFallback(t *testing.T) {
	a := newTestNormalizer()
	b := newTestNormalizer()

	for i := 0; i < 200; i++ {
		za := a.Process(0.4, testHop)
		zb := b.Process(0.4, 0) // falls back to the nominal hop
		assert.Equal(t, za, zb, "dt=0 must behave like the nominal hop")
	}
	zb := b.Process(0.4, math.NaN())
	assert.Equal(t, a.Process(0.4, testHop), zb)
}

func TestNormalizer_Reset(t *testing.T) {
	n := newTestNormalizer()
	fresh := newTestNormalizer()

	input := testutil.ImpulseTrain(120, 62.5, 500)
	for _, flux := range input {
		n.Process(flux, testHop)
	}
	n.Reset()

	for _, flux := range input {
		assert.Equal(t, fresh.Process(flux, testHop), n.Process(flux, testHop),
			"reset normalizer must match a fresh instance")
	}
}

func BenchmarkNormalizer_Process(b *testing.B) {
	n := newTestNormalizer()
	for b.Loop() {
		n.Process(0.37, testHop)
	}
}
