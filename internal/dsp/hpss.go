package dsp

import (
	"sort"
)

// hpssKernel is the median-filter length used for harmonic-percussive
// separation. Sustained voiced energy survives the median across time while
// broadband noise and transients survive the median across frequency.
const hpssKernel = 31

// HarmonicRatio separates x into harmonic and residual components via
// median-filter harmonic-percussive decomposition and returns the harmonic
// and total spectral energies. The ratio harmonic/total is what matters to
// callers; both energies are computed in the same short-time spectral domain
// so the ratio is windowing-invariant.
func HarmonicRatio(x []float64) (harmonic, total float64) {
	if len(x) == 0 {
		return 0, 0
	}

	power := STFT(x, stftFrameLength, stftHopLength).PowerSpectrogram()
	if len(power) == 0 {
		return 0, 0
	}

	numFrames := len(power)
	numBins := len(power[0])

	// Harmonic-enhanced spectrogram: median across time per bin.
	harm := make([][]float64, numFrames)
	for t := range harm {
		harm[t] = make([]float64, numBins)
	}
	kt := oddMin(hpssKernel, numFrames)
	column := make([]float64, 0, kt)
	for k := 0; k < numBins; k++ {
		for t := 0; t < numFrames; t++ {
			column = column[:0]
			for dt := -kt / 2; dt <= kt/2; dt++ {
				if tt := t + dt; tt >= 0 && tt < numFrames {
					column = append(column, power[tt][k])
				}
			}
			harm[t][k] = median(column)
		}
	}

	// Percussive-enhanced spectrogram: median across frequency per frame.
	kf := oddMin(hpssKernel, numBins)
	row := make([]float64, 0, kf)
	perc := make([][]float64, numFrames)
	for t := 0; t < numFrames; t++ {
		perc[t] = make([]float64, numBins)
		for k := 0; k < numBins; k++ {
			row = row[:0]
			for dk := -kf / 2; dk <= kf/2; dk++ {
				if kk := k + dk; kk >= 0 && kk < numBins {
					row = append(row, power[t][kk])
				}
			}
			perc[t][k] = median(row)
		}
	}

	// Soft Wiener mask and energy accumulation. The harmonic component is
	// S*mask, so its energy contribution per bin is power * mask^2.
	for t := 0; t < numFrames; t++ {
		for k := 0; k < numBins; k++ {
			total += power[t][k]
			denom := harm[t][k] + perc[t][k]
			if denom <= 0 {
				continue
			}
			mask := harm[t][k] / denom
			harmonic += power[t][k] * mask * mask
		}
	}
	return harmonic, total
}

// median returns the median of values. The slice is sorted in place.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return 0.5 * (values[mid-1] + values[mid])
}

// oddMin clamps k to at most n, keeping the result odd so the filter stays
// centred.
func oddMin(k, n int) int {
	if k > n {
		k = n
	}
	if k%2 == 0 {
		k--
	}
	if k < 1 {
		k = 1
	}
	return k
}
