package main

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/goccmack/godsp"
	"github.com/goccmack/godsp/dwt"
)

const (
	// dwtLevel is the number of wavelet scales in the energy envelope.
	// Each level halves the rate, so the envelope runs at fs / 2^dwtLevel.
	dwtLevel = 4
	dwtScale = 1 << dwtLevel

	// Max sample values per bit depth, for normalization to [-1, 1].
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32
)

// noveltyData is the onset-strength signal extracted from a WAV file,
// plus the intermediate envelope kept for the peak cross-check.
type noveltyData struct {
	flux            []float64 // rectified onset strength, one value per hop
	rateHz          float64   // flux sample rate
	envelope        []float64 // wavelet energy envelope before hop aggregation
	envelopeRateHz  float64
	sampleRate      int
	channels        int
	durationSeconds float64
}

// extractNovelty decodes a WAV file and reduces it to an onset-strength
// signal near the target rate.
func extractNovelty(path string, targetRateHz float64, verbose bool) (*noveltyData, error) {
	if targetRateHz <= 0 {
		return nil, fmt.Errorf("target novelty rate must be positive, got %v", targetRateHz)
	}

	mono, sampleRate, channels, err := readMonoWAV(path, verbose)
	if err != nil {
		return nil, err
	}

	// The wavelet transform halves the signal per level, so trim to a
	// multiple of the full scale factor.
	usable := (len(mono) / dwtScale) * dwtScale
	if usable < dwtScale {
		return nil, fmt.Errorf("input too short: %d samples", len(mono))
	}
	mono = mono[:usable]

	envelope := energyEnvelope(mono)
	envelopeRate := float64(sampleRate) / dwtScale

	hopLen := int(math.Round(envelopeRate / targetRateHz))
	if hopLen < 1 {
		hopLen = 1
	}
	numHops := len(envelope) / hopLen
	if numHops < 2 {
		return nil, fmt.Errorf("input too short for tempo analysis: %.2fs",
			float64(len(mono))/float64(sampleRate))
	}
	noveltyRate := envelopeRate / float64(hopLen)

	if verbose {
		log.Printf("Envelope: %d samples at %.1f Hz", len(envelope), envelopeRate)
		log.Printf("Novelty: %d hops of %d samples at %.2f Hz", numHops, hopLen, noveltyRate)
	}

	return &noveltyData{
		flux:            onsetFlux(envelope, hopLen, numHops),
		rateHz:          noveltyRate,
		envelope:        envelope,
		envelopeRateHz:  envelopeRate,
		sampleRate:      sampleRate,
		channels:        channels,
		durationSeconds: float64(len(mono)) / float64(sampleRate),
	}, nil
}

// readMonoWAV decodes a WAV file and mixes all channels down to a single
// float64 signal in [-1, 1].
func readMonoWAV(path string, verbose bool) (mono []float64, sampleRate, channels int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	sampleRate = format.SampleRate
	channels = format.NumChannels
	bitDepth := int(decoder.BitDepth)

	if verbose {
		log.Printf("Input format: %d Hz, %d channels, %d-bit", sampleRate, channels, bitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read audio data: %w", err)
	}
	if channels < 1 || len(buf.Data) < channels {
		return nil, 0, 0, fmt.Errorf("no audio data in %s", path)
	}

	return mixToMono(buf, bitDepth, channels), sampleRate, channels, nil
}

// mixToMono averages the interleaved channels of a PCM buffer into one
// float64 signal normalized to [-1, 1].
func mixToMono(buf *audio.IntBuffer, bitDepth, channels int) []float64 {
	scale := 1.0 / (getMaxValue(bitDepth) * float64(channels))
	frames := len(buf.Data) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0
		base := i * channels
		for ch := range channels {
			sum += buf.Data[base+ch]
		}
		mono[i] = float64(sum) * scale
	}
	return mono
}

// getMaxValue returns the maximum sample value for the given bit depth.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// energyEnvelope reduces audio to a wavelet energy envelope: the absolute
// detail coefficients of each scale, downsampled to the coarsest rate and
// summed, then normalized around the mean level.
func energyEnvelope(mono []float64) []float64 {
	transform := dwt.Daubechies4(mono, dwtLevel)
	coefs := godsp.AbsAll(transform.GetCoefficients())
	envelope := godsp.SumVectors(godsp.DownSampleAll(coefs))

	if avg := godsp.Average(envelope); avg > 0 {
		envelope = godsp.DivS(envelope, avg)
	}
	return envelope
}

// onsetFlux aggregates the envelope into hops and takes the rectified
// first difference, leaving only energy rises: the onsets.
func onsetFlux(envelope []float64, hopLen, numHops int) []float64 {
	hops := make([]float64, numHops)
	for i := range numHops {
		sum := 0.0
		for _, v := range envelope[i*hopLen : (i+1)*hopLen] {
			sum += v
		}
		hops[i] = sum / float64(hopLen)
	}

	flux := make([]float64, numHops)
	for i := 1; i < numHops; i++ {
		if rise := hops[i] - hops[i-1]; rise > 0 {
			flux[i] = rise
		}
	}

	if peak := godsp.Max(flux); peak > 0 {
		flux = godsp.DivS(flux, peak)
	}
	return flux
}
