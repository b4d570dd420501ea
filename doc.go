// Package beattrack converts a noisy onset-strength signal into a stable
// beat clock in pure Go.
//
// The input is a stream of novelty samples: non-negative values, one per
// analysis hop, that spike when something rhythmic happens in the source.
// The output is a beat clock: a tempo in BPM, a phase that sweeps [0, 1)
// once per beat, a tick on every beat boundary, and a confidence with an
// explicit locked flag. The tracker favors stability over reactivity: the
// reported tempo holds through dropouts, octave flicker, and short bursts
// of contradictory evidence, and moves only when the new evidence is
// sustained.
//
// # Features
//
//   - Goertzel resonator bank measuring periodicity on a configurable
//     tempo grid, with per-bin block sizes derived from grid spacing
//   - Self-normalizing input stage: an adaptive z-score absorbs gain
//     changes, so any novelty source works without calibration
//   - Octave-aware tempo resolution with a log-normal prior and an
//     evidence density that accumulates across cycles
//   - Explicit lock state machine with hysteresis: pending, verified,
//     challenger takeover, and confidence-erosion unlock
//   - Smooth output clock driven by a small PI controller, so the phase
//     never jumps while locked
//   - Silence detection that freezes adaptation instead of hallucinating
//     beats in noise
//   - Optional SIMD acceleration via github.com/tphakala/simd
//   - Pure Go implementation with no CGO dependencies
//
// # Quick Start
//
// For one-shot analysis of a recorded novelty sequence:
//
//	a, err := beattrack.AnalyzeNovelty(novelty, 62.5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%.1f BPM (locked=%v)\n", a.BPM, a.Locked)
//
// For streaming use, build a pipeline and feed it one sample per hop:
//
//	p, err := beattrack.NewBalanced()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for frame := range noveltyFrames {
//	    out := p.ProcessNovelty(frame.Flux, frame.T)
//	    if out.Tick {
//	        onBeat(out)
//	    }
//	}
//
// Between novelty hops, [Pipeline.Tick] advances the clock to an arbitrary
// timestamp for higher-rate phase readout, for example once per video
// frame. Shared time is never advanced twice.
//
// # Tuning Profiles
//
// The tracker ships three profiles for common situations:
//
//   - [ProfileBalanced]: locks within a couple of seconds, tolerates
//     moderate noise. The default.
//   - [ProfileSteady]: slow to commit and very hard to dislodge, for
//     stable material with a poor novelty signal.
//   - [ProfileResponsive]: fast locking and re-acquisition, for live
//     input that changes tempo often.
//
// Individual parameters can be overridden using [TuningSpec] with the
// [ProfileCustom] profile.
//
// # Architecture
//
// The pipeline is a fixed chain of four stages:
//
//	Novelty -> [Normalize] -> [Resonator Bank] -> [Tactus Resolver] -> [Clock]
//	              (z-score)      (Goertzel grid)     (lock machine)      (PI)
//
// The normalizer turns raw flux into a zero-mean z-score and flags
// silence. The resonator bank measures periodicity at every tempo on the
// grid and extracts the strongest candidates. The resolver accumulates
// candidate evidence over time, scores whole octave families, and runs
// the lock state machine. The clock smooths the resolver's verdicts into
// a continuously advancing phase.
//
// # Thread Safety
//
// A [Pipeline] is owned by a single goroutine: calls to
// [Pipeline.ProcessNovelty], [Pipeline.Tick], and [Pipeline.Reset] must be
// serialized. To share results with other goroutines, publish each frame
// through a [Publisher], which hands out consistent snapshots without
// locking.
package beattrack
