package dsp

import (
	"math"
)

// voicingThreshold is the minimum normalized autocorrelation peak for a
// frame to count as voiced. Below it the tracker reports NaN, mirroring
// probabilistic pitch trackers that emit NaN for unvoiced frames.
const voicingThreshold = 0.3

// TrackPitch estimates a fundamental-frequency contour for x sampled at
// rate Hz, one value per analysis frame (frame 2048, hop 512). Frames with
// no clear periodicity in [fmin, fmax] yield NaN. The result is empty when
// x is shorter than one frame hop's worth of analysis.
func TrackPitch(x []float64, rate, fmin, fmax float64) []float64 {
	if len(x) == 0 || fmin <= 0 || fmax <= fmin {
		return nil
	}

	frameLength := stftFrameLength
	hopLength := stftHopLength
	if len(x) < frameLength {
		padded := make([]float64, frameLength)
		copy(padded, x)
		x = padded
	}

	minLag := int(rate / fmax)
	maxLag := int(rate / fmin)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= frameLength {
		maxLag = frameLength - 1
	}
	if minLag > maxLag {
		return nil
	}

	var f0 []float64
	frame := make([]float64, frameLength)
	for start := 0; start+frameLength <= len(x); start += hopLength {
		copy(frame, x[start:start+frameLength])

		// Detrend the frame so a DC offset does not masquerade as
		// periodicity.
		var mean float64
		for _, v := range frame {
			mean += v
		}
		mean /= float64(frameLength)
		var energy float64
		for i := range frame {
			frame[i] -= mean
			energy += frame[i] * frame[i]
		}
		if energy == 0 {
			f0 = append(f0, math.NaN())
			continue
		}

		bestLag, bestCorr := 0, 0.0
		for lag := minLag; lag <= maxLag; lag++ {
			var corr float64
			for i := 0; i+lag < frameLength; i++ {
				corr += frame[i] * frame[i+lag]
			}
			corr /= energy
			if corr > bestCorr {
				bestCorr = corr
				bestLag = lag
			}
		}

		if bestLag == 0 || bestCorr < voicingThreshold {
			f0 = append(f0, math.NaN())
			continue
		}
		f0 = append(f0, rate/float64(bestLag))
	}
	return f0
}
