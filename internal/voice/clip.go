// Package voice extracts the four acoustic features the voice tremor
// classifier consumes from raw audio clips: jitter, shimmer,
// harmonics-to-noise ratio, and a mel-cepstral summary.
package voice

import (
	"errors"

	"github.com/oscillab/tremord/internal/dsp"
)

// Trim geometry: RMS frames of trimFrameLength samples advanced by
// trimHopLength, with anything more than trimTopDB below the loudest frame
// treated as silence.
const (
	trimFrameLength = 2048
	trimHopLength   = 512
	trimTopDB       = 20.0
)

// ErrInsufficientSignal marks a clip with too little tonal content to
// analyze: all silence, or fewer than two voiced pitch or amplitude
// estimates.
var ErrInsufficientSignal = errors.New("voice: insufficient tonal content")

// Trim strips leading and trailing silence from clip, keeping the span
// between the first and last RMS frame within trimTopDB of the loudest
// frame. An all-silent clip returns an empty slice.
func Trim(clip []float64) []float64 {
	env := dsp.RMSEnvelope(clip, trimFrameLength, trimHopLength)
	if len(env) == 0 {
		return nil
	}

	var peak float64
	for _, v := range env {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return nil
	}
	// 20 dB below peak amplitude is a factor of 10.
	threshold := peak / 10

	first, last := -1, -1
	for i, v := range env {
		if v >= threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}

	start := first * trimHopLength
	end := (last + 1) * trimHopLength
	if start > len(clip) {
		start = len(clip)
	}
	if end > len(clip) {
		end = len(clip)
	}
	return clip[start:end]
}
