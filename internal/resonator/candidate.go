package resonator

import "math"

// Candidate is one tempo hypothesis extracted from the bank.
type Candidate struct {
	BPM       float64 // parabolic-refined tempo estimate
	Bin       int     // index of the underlying bin
	Magnitude float64 // smoothed magnitude relative to the strongest bin, in [0, 1]
	Raw       float64 // smoothed magnitude before normalization
	Phase     float64 // resonator beat phase, wrapped to (-pi, pi]
}

// ExtractTopK fills dst with the strongest tempo candidates in descending
// magnitude order and returns how many were written. Each candidate's BPM is
// refined by fitting a parabola through the bin and its neighbors, so the
// estimate is not limited to the grid spacing. Ties keep the lower tempo
// first.
func (b *Bank) ExtractTopK(dst []Candidate) int {
	k := len(dst)
	if k > len(b.bins) {
		k = len(b.bins)
	}
	if k == 0 {
		return 0
	}

	count := 0
	for i, s := range b.smooth {
		if count < k {
			j := count
			for j > 0 && dst[j-1].Raw < s {
				dst[j] = dst[j-1]
				j--
			}
			dst[j] = Candidate{Bin: i, Raw: s}
			count++
			continue
		}

		if s <= dst[k-1].Raw {
			continue
		}
		j := k - 1
		for j > 0 && dst[j-1].Raw < s {
			dst[j] = dst[j-1]
			j--
		}
		dst[j] = Candidate{Bin: i, Raw: s}
	}

	for c := 0; c < count; c++ {
		bin := dst[c].Bin
		dst[c].BPM = b.refineBPM(bin)
		dst[c].Phase = b.phase[bin]
		if b.maxSmooth > 0 {
			dst[c].Magnitude = dst[c].Raw / b.maxSmooth
		}
	}

	return count
}

// refineBPM interpolates the true peak position from the smoothed magnitudes
// of a bin and its immediate neighbors. The offset is clamped to half a bin;
// a flat neighborhood keeps the bin center.
func (b *Bank) refineBPM(bin int) float64 {
	offset := 0.0
	if bin > 0 && bin < len(b.bins)-1 {
		l := b.smooth[bin-1]
		c := b.smooth[bin]
		r := b.smooth[bin+1]

		den := l - 2.0*c + r
		if math.Abs(den) > parabolicGuard {
			offset = 0.5 * (l - r) / den
			if offset > maxBinOffset {
				offset = maxBinOffset
			} else if offset < -maxBinOffset {
				offset = -maxBinOffset
			}
		}
	}

	return b.cfg.BPMMin + (float64(bin)+offset)*b.cfg.BPMStep
}
