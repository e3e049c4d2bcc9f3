package voice

import (
	"math"

	"github.com/oscillab/tremord/internal/dsp"
)

// Pitch search range in Hz and the analysis geometry shared with the
// trained models.
const (
	pitchMin       = 75.0
	pitchMax       = 300.0
	rmsFrameLength = 1024
	rmsHopLength   = 512

	// Noise-energy floor for the HNR computation; keeps the ratio finite
	// when the residual energy collapses to zero.
	noiseFloor = 1e-5
)

// Features is the per-clip voice feature set. Vector() fixes the order the
// classifier expects.
type Features struct {
	JitterPct  float64
	ShimmerPct float64
	HNRdB      float64
	MFCCMean   float64
}

// Vector returns the features in classifier order: jitter, shimmer, HNR,
// MFCC mean.
func (f Features) Vector() []float64 {
	return []float64{f.JitterPct, f.ShimmerPct, f.HNRdB, f.MFCCMean}
}

// Extract computes the feature set of a silence-trimmed clip sampled at
// rate Hz. It returns ErrInsufficientSignal when the clip carries fewer
// than two voiced pitch estimates or fewer than two amplitude frames after
// truncation.
func Extract(clip []float64, rate float64) (Features, error) {
	if len(clip) == 0 {
		return Features{}, ErrInsufficientSignal
	}

	mfccMean := dsp.MFCCMean(clip, rate)

	// Voiced fundamental-frequency estimates; unvoiced frames are NaN and
	// dropped.
	track := dsp.TrackPitch(clip, rate, pitchMin, pitchMax)
	f0 := track[:0:0]
	for _, f := range track {
		if !math.IsNaN(f) {
			f0 = append(f0, f)
		}
	}
	if len(f0) < 2 {
		return Features{}, ErrInsufficientSignal
	}

	periods := make([]float64, len(f0))
	for i, f := range f0 {
		periods[i] = 1 / f
	}
	jitter := cycleVariationPct(periods)

	rms := dsp.RMSEnvelope(clip, rmsFrameLength, rmsHopLength)
	// The pitch and amplitude tracks cover the clip with different frame
	// counts; compare them over their shared prefix.
	if len(rms) > len(f0) {
		rms = rms[:len(f0)]
	}
	if len(rms) < 2 {
		return Features{}, ErrInsufficientSignal
	}
	shimmer := cycleVariationPct(rms)

	harm, total := dsp.HarmonicRatio(clip)
	noise := total - harm
	if noise < noiseFloor {
		noise = noiseFloor
	}
	if harm < noiseFloor {
		harm = noiseFloor
	}
	hnr := 10 * math.Log10(harm/noise)

	return Features{
		JitterPct:  jitter,
		ShimmerPct: shimmer,
		HNRdB:      hnr,
		MFCCMean:   mfccMean,
	}, nil
}

// cycleVariationPct is the mean absolute consecutive difference of values
// divided by their mean, as a percentage. Callers guarantee len >= 2 and a
// non-zero mean for real signals; a zero mean yields 0 rather than NaN.
func cycleVariationPct(values []float64) float64 {
	var diffSum, sum float64
	for i, v := range values {
		sum += v
		if i > 0 {
			diffSum += math.Abs(v - values[i-1])
		}
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}
	return diffSum / float64(len(values)-1) / mean * 100
}
