// Package clock maintains the output beat clock: a tempo and a continuously
// advancing phase. Resolver verdicts arrive only a few times per second and
// may jitter; the clock smooths them with a small PI controller so the
// published phase never jumps while still converging on the resolver's beat
// grid.
package clock

import (
	"math"

	"github.com/tphakala/go-beat-tracker/internal/mathutil"
)

// Config holds the controller gains and limits.
type Config struct {
	BPMMin float64
	BPMMax float64

	// ReacquireBPM is the tempo jump beyond which the clock snaps instead
	// of slewing.
	ReacquireBPM float64

	Kp          float64 // proportional gain on phase error
	Ki          float64 // integral gain on accumulated phase error
	MaxIntegral float64 // clamp on the accumulated phase error, radians

	MaxPhaseCorrection float64 // clamp on one phase nudge, radians
	MaxTempoCorrection float64 // clamp on one integral-driven tempo nudge, BPM

	AttackRate  float64 // blend rate when the target tempo is above the current
	ReleaseRate float64 // blend rate when the target tempo is below the current

	// DebounceFraction suppresses a beat tick that follows the previous one
	// within this fraction of a beat period.
	DebounceFraction float64

	// MaxStepSeconds caps a single Advance step, bounding the work and the
	// tick burst after a host stall.
	MaxStepSeconds float64
}

// Clock is the beat clock state. It is owned by a single goroutine.
type Clock struct {
	cfg Config

	bpm      float64
	phase    float64 // current beat phase, [0, 2*pi)
	integral float64
	conf     float64

	lastBeatT    float64
	lastAdvanceT float64
}

// New creates a clock idling at the given tempo with zero phase.
func New(cfg Config, initialBPM float64) *Clock {
	return &Clock{
		cfg:          cfg,
		bpm:          clampBPM(cfg, initialBPM),
		lastBeatT:    math.Inf(-1),
		lastAdvanceT: math.Inf(-1),
	}
}

// CorrectFromTactus applies one resolver verdict. Unlocked verdicts zero
// the published confidence and leave tempo and phase untouched, so the
// clock freewheels at its last rate. A locked verdict within ReacquireBPM
// of the current tempo is tracked smoothly; a larger jump snaps the clock
// onto the new grid at once.
func (c *Clock) CorrectFromTactus(bpm, phaseHint, confidence float64, locked bool) {
	if !locked {
		c.conf = 0
		return
	}
	c.conf = confidence

	if math.Abs(bpm-c.bpm) > c.cfg.ReacquireBPM {
		c.bpm = clampBPM(c.cfg, bpm)
		c.phase = mathutil.WrapTau(phaseHint + math.Pi)
		c.integral = 0
		return
	}

	rate := c.cfg.ReleaseRate
	if bpm > c.bpm {
		rate = c.cfg.AttackRate
	}
	c.bpm += rate * (bpm - c.bpm)

	target := phaseHint + math.Pi
	err := mathutil.WrapPi(target - c.phase)

	c.integral = mathutil.Clamp(c.integral+err, -c.cfg.MaxIntegral, c.cfg.MaxIntegral)

	nudge := mathutil.Clamp(c.cfg.Kp*err, -c.cfg.MaxPhaseCorrection, c.cfg.MaxPhaseCorrection)
	c.phase = mathutil.WrapTau(c.phase + nudge)

	trim := mathutil.Clamp(c.cfg.Ki*c.integral, -c.cfg.MaxTempoCorrection, c.cfg.MaxTempoCorrection)
	c.bpm = clampBPM(c.cfg, c.bpm+trim)
}

// Advance moves the phase forward to time now, where dt is the caller's
// nominal step in seconds. The effective step never exceeds the elapsed
// time since the previous Advance, so interleaved callers sharing one
// clock cannot advance it twice for the same interval. It returns true
// when a beat boundary was crossed and survives the debounce window.
func (c *Clock) Advance(now, dt float64) bool {
	if !mathutil.IsFinite(now) {
		return false
	}
	if dt < 0 || !mathutil.IsFinite(dt) {
		dt = 0
	}
	if elapsed := now - c.lastAdvanceT; elapsed < dt {
		dt = elapsed
	}
	c.lastAdvanceT = now
	if dt <= 0 {
		return false
	}
	if dt > c.cfg.MaxStepSeconds {
		dt = c.cfg.MaxStepSeconds
	}

	c.phase += mathutil.Tau * (c.bpm / 60.0) * dt

	wraps := 0
	if c.phase >= mathutil.Tau {
		wraps = int(c.phase / mathutil.Tau)
		c.phase = math.Mod(c.phase, mathutil.Tau)
	}
	if wraps == 0 {
		return false
	}

	if now-c.lastBeatT < c.cfg.DebounceFraction*(60.0/c.bpm) {
		return false
	}
	c.lastBeatT = now
	return true
}

// BPM returns the current tempo.
func (c *Clock) BPM() float64 {
	return c.bpm
}

// Phase01 returns the beat phase normalized to [0, 1), 0 being the beat
// instant.
func (c *Clock) Phase01() float64 {
	return c.phase / mathutil.Tau
}

// Confidence returns the confidence of the last locked correction, zero
// while unlocked.
func (c *Clock) Confidence() float64 {
	return c.conf
}

// Reset returns the clock to idle at the given tempo.
func (c *Clock) Reset(initialBPM float64) {
	c.bpm = clampBPM(c.cfg, initialBPM)
	c.phase = 0
	c.integral = 0
	c.conf = 0
	c.lastBeatT = math.Inf(-1)
	c.lastAdvanceT = math.Inf(-1)
}

func clampBPM(cfg Config, bpm float64) float64 {
	return mathutil.Clamp(bpm, cfg.BPMMin, cfg.BPMMax)
}
