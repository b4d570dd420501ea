package tactus

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// tempoPrior weights hypotheses toward typical musical tempi with a
// log-normal curve: one octave away from the center costs the same factor
// in either direction. The curve is scaled so the center scores exactly 1.
type tempoPrior struct {
	dist distuv.Normal
	peak float64
}

func newTempoPrior(centerBPM, sigmaOctaves float64) *tempoPrior {
	d := distuv.Normal{
		Mu:    math.Log2(centerBPM),
		Sigma: sigmaOctaves,
	}
	return &tempoPrior{
		dist: d,
		peak: d.Prob(d.Mu),
	}
}

// at returns the prior weight for a tempo, in (0, 1].
func (p *tempoPrior) at(bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return p.dist.Prob(math.Log2(bpm)) / p.peak
}
