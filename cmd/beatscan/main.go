// Command beatscan estimates the tempo of a WAV file and reports the
// detected beat grid.
//
// Usage:
//
//	beatscan track.wav
//	beatscan -profile steady -json track.beat.json track.wav
//	beatscan -v track.wav
//
// The audio is reduced to a wavelet energy envelope, differenced into an
// onset-strength signal and fed through the beat tracking pipeline. An
// independent peak-spacing estimate over the same envelope is printed
// alongside as a sanity check.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccmack/godsp/peaks"

	beattrack "github.com/tphakala/go-beat-tracker"
)

const (
	// Default novelty rate fed to the tracker. The effective rate is the
	// envelope rate divided by a whole hop count, so the realized value
	// lands near this target rather than exactly on it.
	defaultNoveltyRateHz = 62.5

	// Peak separation for the cross-check, as a fraction of the detected
	// beat period. Matches the debounce the clock itself applies.
	peakSeparationFraction = 0.6

	// minCrossCheckPeaks is the fewest envelope peaks worth summarizing.
	minCrossCheckPeaks = 3

	maxPrintedBeats = 8
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	profile := flag.String("profile", "balanced", "Tuning profile: balanced, steady, responsive")
	rateHz := flag.Float64("rate", defaultNoveltyRateHz, "Target novelty rate in Hz")
	jsonPath := flag.String("json", "", "Write the full analysis to this file as JSON")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s track.wav                        # Report tempo and beat grid\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -profile steady track.wav        # Slow, stable locking\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -json track.beat.json track.wav  # Machine readable output\n", os.Args[0])
		return fmt.Errorf("exactly one input file required")
	}
	inputPath := flag.Arg(0)

	tuning, err := parseProfile(*profile)
	if err != nil {
		return err
	}

	start := time.Now()

	nov, err := extractNovelty(inputPath, *rateHz, *verbose)
	if err != nil {
		return err
	}

	cfg := beattrack.DefaultConfig()
	cfg.InputRateHz = nov.rateHz
	cfg.Tuning = beattrack.GetProfileTuning(tuning)

	analysis, err := beattrack.AnalyzeNoveltyWithConfig(nov.flux, cfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	crossBPM := peakIntervalBPM(nov, analysis.BPM)

	printSummary(inputPath, nov, analysis, crossBPM, elapsed)

	if *jsonPath != "" {
		if err := writeJSON(*jsonPath, inputPath, nov, analysis, crossBPM); err != nil {
			return err
		}
		if *verbose {
			log.Printf("Wrote %s", *jsonPath)
		}
	}

	return nil
}

func parseProfile(name string) (beattrack.Profile, error) {
	switch name {
	case "balanced":
		return beattrack.ProfileBalanced, nil
	case "steady":
		return beattrack.ProfileSteady, nil
	case "responsive":
		return beattrack.ProfileResponsive, nil
	default:
		return 0, fmt.Errorf("unknown profile %q (want balanced, steady or responsive)", name)
	}
}

// peakIntervalBPM estimates tempo from the spacing of envelope peaks,
// independent of the resonator pipeline. Returns 0 when the envelope has
// too few usable peaks.
func peakIntervalBPM(nov *noveltyData, detectedBPM float64) float64 {
	if detectedBPM <= 0 || len(nov.envelope) == 0 {
		return 0
	}

	beatPeriod := 60.0 / detectedBPM
	sep := int(peakSeparationFraction * beatPeriod * nov.envelopeRateHz)
	if sep < 1 {
		return 0
	}

	pks := peaks.Get(nov.envelope, sep)
	if len(pks) < minCrossCheckPeaks {
		return 0
	}
	sort.Ints(pks)

	intervals := make([]float64, 0, len(pks)-1)
	for i := 1; i < len(pks); i++ {
		intervals = append(intervals, float64(pks[i]-pks[i-1])/nov.envelopeRateHz)
	}
	sort.Float64s(intervals)
	median := intervals[len(intervals)/2]
	if median <= 0 {
		return 0
	}
	return 60.0 / median
}

func printSummary(inputPath string, nov *noveltyData, a *beattrack.Analysis, crossBPM float64, elapsed time.Duration) {
	fmt.Printf("Analyzed %s\n", filepath.Base(inputPath))
	fmt.Printf("  %d Hz, %d channels, %.1fs of audio\n",
		nov.sampleRate, nov.channels, nov.durationSeconds)
	fmt.Printf("  Novelty: %d frames at %.2f Hz\n", len(nov.flux), nov.rateHz)

	if a.Locked {
		fmt.Printf("  Tempo: %.1f BPM (confidence %.2f, locked at %.1fs)\n",
			a.BPM, a.Confidence, a.LockTime)
	} else {
		fmt.Printf("  Tempo: %.1f BPM (confidence %.2f, no lock)\n", a.BPM, a.Confidence)
	}

	if crossBPM > 0 {
		fmt.Printf("  Peak spacing estimate: %.1f BPM", crossBPM)
		if a.BPM > 0 && relativeGap(crossBPM, a.BPM) > 0.1 {
			fmt.Printf("  (disagrees with tracker)")
		}
		fmt.Println()
	}

	fmt.Printf("  Beats: %d", len(a.Beats))
	if len(a.Beats) > 0 {
		fmt.Printf(", first at")
		for i, b := range a.Beats {
			if i >= maxPrintedBeats {
				fmt.Printf(" ...")
				break
			}
			fmt.Printf(" %.2fs", b)
		}
	}
	fmt.Println()
	fmt.Printf("  Duration: %.2fs, Speed: %.0fx realtime\n",
		elapsed.Seconds(), nov.durationSeconds/elapsed.Seconds())
}

// relativeGap compares two tempi accounting for octave errors: the peak
// estimate often lands on half or double the tracked tempo.
func relativeGap(a, b float64) float64 {
	best := math.Inf(1)
	for _, mult := range []float64{0.5, 1, 2} {
		if gap := math.Abs(a*mult-b) / b; gap < best {
			best = gap
		}
	}
	return best
}

type outRecord struct {
	FileName        string    `json:"fileName"`
	SampleRate      int       `json:"sampleRate"`
	Channels        int       `json:"channels"`
	NoveltyRateHz   float64   `json:"noveltyRateHz"`
	BPM             float64   `json:"bpm"`
	PeakIntervalBPM float64   `json:"peakIntervalBpm,omitempty"`
	Confidence      float64   `json:"confidence"`
	Locked          bool      `json:"locked"`
	LockTimeSeconds float64   `json:"lockTimeSeconds"`
	Beats           []float64 `json:"beats"`
}

func writeJSON(path, inputPath string, nov *noveltyData, a *beattrack.Analysis, crossBPM float64) error {
	rec := outRecord{
		FileName:        inputPath,
		SampleRate:      nov.sampleRate,
		Channels:        nov.channels,
		NoveltyRateHz:   nov.rateHz,
		BPM:             a.BPM,
		PeakIntervalBPM: crossBPM,
		Confidence:      a.Confidence,
		Locked:          a.Locked,
		LockTimeSeconds: a.LockTime,
		Beats:           a.Beats,
	}

	buf, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write analysis: %w", err)
	}
	return nil
}
