package tactus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/go-beat-tracker/internal/testutil"
)

func TestDensityMap_DepositSpreadsKernel(t *testing.T) {
	d := newDensityMap(11, 60, 1)
	d.deposit(5, 1.0)

	want := []float64{0, 0, 0, 0.25, 0.5, 1.0, 0.5, 0.25, 0, 0, 0}
	for i, w := range want {
		assert.InDelta(t, w, d.at(i), testutil.DefaultTolerance, "bin %d", i)
	}
}

func TestDensityMap_DepositClipsAtEdges(t *testing.T) {
	d := newDensityMap(5, 60, 1)
	d.deposit(0, 1.0)
	d.deposit(4, 2.0)

	assert.InDelta(t, 1.0, d.at(0), testutil.DefaultTolerance)
	assert.InDelta(t, 0.5, d.at(1), testutil.DefaultTolerance)
	assert.InDelta(t, 0.25+0.5, d.at(2), testutil.DefaultTolerance)
	assert.InDelta(t, 1.0, d.at(3), testutil.DefaultTolerance)
	assert.InDelta(t, 2.0, d.at(4), testutil.DefaultTolerance)
}

func TestDensityMap_DecayAgesEvidence(t *testing.T) {
	d := newDensityMap(11, 60, 1)
	d.deposit(5, 1.0)
	d.decay()

	assert.InDelta(t, densityDecay, d.at(5), testutil.DefaultTolerance)
	assert.InDelta(t, 0.5*densityDecay, d.at(4), testutil.DefaultTolerance)
}

func TestDensityMap_PeakAndRunnerUp(t *testing.T) {
	d := newDensityMap(121, 60, 1)
	d.deposit(60, 1.0)
	d.deposit(62, 0.9) // shoulder of the same peak
	d.deposit(90, 0.6) // separate rival

	bin, val := d.peak()
	assert.Equal(t, 60, bin)
	assert.InDelta(t, 1.0+0.9*0.25, val, testutil.DefaultTolerance)

	runner := d.runnerUp(bin, 10)
	assert.InDelta(t, 0.6, runner, testutil.DefaultTolerance)
}

func TestDensityMap_RunnerUpIgnoresOwnShoulders(t *testing.T) {
	d := newDensityMap(121, 60, 1)
	d.deposit(60, 1.0)

	assert.Zero(t, d.runnerUp(60, 10))
}

func TestDensityMap_NearestBinClamps(t *testing.T) {
	d := newDensityMap(121, 60, 1)

	assert.Equal(t, 0, d.nearestBin(60))
	assert.Equal(t, 60, d.nearestBin(120.4))
	assert.Equal(t, 61, d.nearestBin(120.6))
	assert.Equal(t, 120, d.nearestBin(180))
	assert.Equal(t, 0, d.nearestBin(10))
	assert.Equal(t, 120, d.nearestBin(500))
}

func TestDensityMap_BinBPM(t *testing.T) {
	d := newDensityMap(121, 60, 1)
	assert.Equal(t, 60.0, d.binBPM(0))
	assert.Equal(t, 180.0, d.binBPM(120))
}

func TestDensityMap_Reset(t *testing.T) {
	d := newDensityMap(11, 60, 1)
	d.deposit(5, 1.0)
	d.reset()

	_, val := d.peak()
	assert.Zero(t, val)
}
