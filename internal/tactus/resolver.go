package tactus

import (
	"math"

	"github.com/tphakala/go-beat-tracker/internal/resonator"
)

// Spectrum provides smoothed periodicity magnitude at arbitrary tempi.
// It is satisfied by the resonator bank.
type Spectrum interface {
	SpectrumAt(bpm float64) float64
}

// Config describes the tempo grid the resolver shares with the resonator
// bank plus the thresholds of the lock state machine.
type Config struct {
	BPMMin  float64
	BPMMax  float64
	BPMStep float64

	PriorCenterBPM float64 // tempo favored by the log-normal prior
	PriorSigma     float64 // prior width in octaves

	LockConfidence   float64 // minimum confidence to begin acquiring a lock
	LockStreak       int     // consecutive same-family cycles to verify a lock
	ChallengerRatio  float64 // density advantage a rival family must hold
	ChallengerStreak int     // consecutive winning cycles a rival needs
	UnlockConfidence float64 // confidence floor below which a lock erodes
	UnlockAfter      float64 // seconds of sustained low confidence to unlock
}

// Result is the resolver's per-cycle verdict.
type Result struct {
	BPM        float64 // current tempo hypothesis
	Phase      float64 // beat phase hint from the matching resonator, (-pi, pi]
	Confidence float64 // combined grouping and spectral confidence, [0, 1]
	Locked     bool    // true once the hypothesis is verified
}

type lockState int

const (
	lockUnlocked lockState = iota
	lockPending
	lockVerified
)

// Resolver turns per-cycle candidate lists into one stable tempo. All state
// is owned by a single goroutine.
type Resolver struct {
	cfg     Config
	prior   *tempoPrior
	density *densityMap
	sepBins int

	winnerBPM float64
	lastPhase float64
	conf      float64

	state            lockState
	lockBPM          float64
	streak           int
	challengerBPM    float64
	challengerStreak int
	lowConfSince     float64
}

// NewResolver builds a resolver over the given tempo grid. The initial
// hypothesis sits at the center of the grid until evidence arrives.
func NewResolver(cfg Config) *Resolver {
	if cfg.BPMStep <= 0 {
		cfg.BPMStep = 1
	}
	numBins := int(math.Round((cfg.BPMMax-cfg.BPMMin)/cfg.BPMStep)) + 1

	sepBins := int(minSeparationBPM / cfg.BPMStep)
	if sepBins < 1 {
		sepBins = 1
	}

	r := &Resolver{
		cfg:          cfg,
		prior:        newTempoPrior(cfg.PriorCenterBPM, cfg.PriorSigma),
		density:      newDensityMap(numBins, cfg.BPMMin, cfg.BPMStep),
		sepBins:      sepBins,
		lowConfSince: -1,
	}
	r.winnerBPM = r.density.binBPM(numBins / 2)
	return r
}

// Process consumes one cycle of candidates. bankConfidence is the spectral
// concentration reported by the bank, silent mutes evidence accumulation,
// and now is the pipeline timestamp in seconds.
func (r *Resolver) Process(cands []resonator.Candidate, spec Spectrum, bankConfidence float64, silent bool, now float64) Result {
	r.density.decay()

	if !silent {
		for i := range cands {
			c := &cands[i]
			if c.Raw <= 0 {
				continue
			}
			r.density.deposit(c.Bin, r.score(c, spec))
		}
	}

	peakBin, peakVal := r.density.peak()
	if peakVal > 0 {
		r.winnerBPM = snapToCandidate(r.density.binBPM(peakBin), cands)
	}

	if silent {
		r.conf *= silentConfidenceDecay
	} else {
		grouped := 0.0
		if peakVal > 0 {
			grouped = 1.0 - r.density.runnerUp(peakBin, r.sepBins)/peakVal
		}
		r.conf = 0.5*grouped + 0.5*bankConfidence
	}

	r.updateLock(peakVal, now)

	out := r.winnerBPM
	if r.state != lockUnlocked {
		out = r.lockBPM
	}
	r.refreshPhase(out, cands)

	return Result{
		BPM:        out,
		Phase:      r.lastPhase,
		Confidence: r.conf,
		Locked:     r.state == lockVerified,
	}
}

// score rates one candidate by the evidence for its whole tempo family:
// its own smoothed magnitude plus discounted support from the half and
// double tempi, shaped by the prior.
func (r *Resolver) score(c *resonator.Candidate, spec Spectrum) float64 {
	s := c.Raw
	if spec != nil {
		s += familyOctaveWeight * spec.SpectrumAt(c.BPM/2.0)
		s += familyOctaveWeight * spec.SpectrumAt(c.BPM*2.0)
	}
	return s * r.prior.at(c.BPM)
}

// snapToCandidate replaces a bin-center tempo with the nearest refined
// candidate inside the family band, recovering sub-bin resolution without
// letting an unrelated candidate hijack the winner. Ties keep the stronger
// candidate.
func snapToCandidate(bpm float64, cands []resonator.Candidate) float64 {
	best := bpm
	bestDist := math.Inf(1)
	for i := range cands {
		c := &cands[i]
		if c.Raw <= 0 {
			continue
		}
		d := math.Abs(c.BPM - bpm)
		if d <= groupBandBPM && d < bestDist {
			best = c.BPM
			bestDist = d
		}
	}
	return best
}

func (r *Resolver) updateLock(peakVal, now float64) {
	switch r.state {
	case lockUnlocked:
		if r.conf >= r.cfg.LockConfidence && r.winnerBPM > 0 {
			r.state = lockPending
			r.lockBPM = r.winnerBPM
			r.streak = 1
		}

	case lockPending:
		if r.conf < r.cfg.LockConfidence {
			r.unlock()
			return
		}
		if sameFamily(r.winnerBPM, r.lockBPM) {
			r.streak++
		} else {
			r.streak = 1
		}
		r.lockBPM = r.winnerBPM
		if r.streak >= r.cfg.LockStreak {
			r.state = lockVerified
			r.lowConfSince = -1
		}

	case lockVerified:
		r.verifyIncumbent(peakVal, now)
	}
}

// verifyIncumbent holds an established lock against noise while still
// allowing a decisively better family to take over, and erodes the lock
// when confidence stays low.
func (r *Resolver) verifyIncumbent(peakVal, now float64) {
	if r.conf < r.cfg.UnlockConfidence {
		if r.lowConfSince < 0 {
			r.lowConfSince = now
		} else if now-r.lowConfSince >= r.cfg.UnlockAfter {
			r.unlock()
			return
		}
	} else {
		r.lowConfSince = -1
	}

	if sameFamily(r.winnerBPM, r.lockBPM) {
		// Same family: follow the refined estimate, drop any challenger.
		r.lockBPM = r.winnerBPM
		r.challengerStreak = 0
		return
	}

	incumbent := r.density.at(r.density.nearestBin(r.lockBPM))
	if peakVal > incumbent*r.cfg.ChallengerRatio {
		if r.challengerStreak > 0 && sameFamily(r.winnerBPM, r.challengerBPM) {
			r.challengerStreak++
		} else {
			r.challengerBPM = r.winnerBPM
			r.challengerStreak = 1
		}
		if r.challengerStreak >= r.cfg.ChallengerStreak {
			r.state = lockPending
			r.lockBPM = r.challengerBPM
			r.streak = 1
			r.challengerStreak = 0
		}
	} else {
		r.challengerStreak = 0
	}
}

func (r *Resolver) unlock() {
	r.state = lockUnlocked
	r.streak = 0
	r.challengerStreak = 0
	r.lowConfSince = -1
}

// refreshPhase latches the beat phase of the strongest candidate in the
// output tempo's family. Without a family match this cycle the previous
// phase is held.
func (r *Resolver) refreshPhase(bpm float64, cands []resonator.Candidate) {
	for i := range cands {
		c := &cands[i]
		if c.Raw > 0 && math.Abs(c.BPM-bpm) <= groupBandBPM {
			r.lastPhase = c.Phase
			return
		}
	}
}

// sameFamily reports whether two tempi count as the same hypothesis family.
func sameFamily(a, b float64) bool {
	return math.Abs(a-b) <= groupBandBPM
}

// LockState reports the acquisition stage as a short label for diagnostics.
func (r *Resolver) LockState() string {
	switch r.state {
	case lockVerified:
		return "locked"
	case lockPending:
		return "pending"
	default:
		return "unlocked"
	}
}

// DensityPeak returns the tempo and value of the strongest accumulated
// evidence, for diagnostics.
func (r *Resolver) DensityPeak() (float64, float64) {
	bin, val := r.density.peak()
	return r.density.binBPM(bin), val
}

// Density copies the accumulated per-bin evidence into dst and returns the
// number of values copied. Bin i covers the same tempo as the bank's bin i.
func (r *Resolver) Density(dst []float64) int {
	return copy(dst, r.density.bins)
}

// Reset restores the resolver to its initial state.
func (r *Resolver) Reset() {
	r.density.reset()
	r.conf = 0
	r.winnerBPM = r.density.binBPM(len(r.density.bins) / 2)
	r.lastPhase = 0
	r.lockBPM = 0
	r.unlock()
}
