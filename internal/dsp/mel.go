package dsp

import (
	"math"
)

// Mel filterbank geometry. 13 cepstral coefficients over 40 triangular mel
// bands is the configuration the voice models were trained with.
const (
	NumMFCC     = 13
	numMelBands = 40
	logFloor    = 1e-10
)

// hzToMel converts a frequency in Hz to the mel scale.
func hzToMel(f float64) float64 {
	return 2595 * math.Log10(1+f/700)
}

// melToHz converts a mel value back to Hz.
func melToHz(m float64) float64 {
	return 700 * (math.Pow(10, m/2595) - 1)
}

// melFilterbank builds numMelBands triangular filters spanning [0, rate/2]
// over numBins spectral bins of an n-point FFT.
func melFilterbank(rate float64, numBins, fftLength int) [][]float64 {
	melMax := hzToMel(rate / 2)
	// Band edges: numMelBands+2 equally spaced points on the mel scale.
	edges := make([]float64, numMelBands+2)
	for i := range edges {
		edges[i] = melToHz(melMax * float64(i) / float64(numMelBands+1))
	}

	binFreq := func(k int) float64 {
		return float64(k) * rate / float64(fftLength)
	}

	bank := make([][]float64, numMelBands)
	for m := range bank {
		lo, mid, hi := edges[m], edges[m+1], edges[m+2]
		filt := make([]float64, numBins)
		for k := 0; k < numBins; k++ {
			f := binFreq(k)
			switch {
			case f <= lo || f >= hi:
				// outside the triangle
			case f <= mid:
				if mid > lo {
					filt[k] = (f - lo) / (mid - lo)
				}
			default:
				if hi > mid {
					filt[k] = (hi - f) / (hi - mid)
				}
			}
		}
		bank[m] = filt
	}
	return bank
}

// MFCC computes per-frame mel-frequency cepstral coefficients of x sampled
// at rate Hz, returning [frame][coefficient] with NumMFCC coefficients per
// frame. Returns nil when x is empty.
func MFCC(x []float64, rate float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}

	power := STFT(x, stftFrameLength, stftHopLength).PowerSpectrogram()
	if len(power) == 0 {
		return nil
	}
	numBins := len(power[0])
	bank := melFilterbank(rate, numBins, stftFrameLength)

	coeffs := make([][]float64, len(power))
	logMel := make([]float64, numMelBands)
	for t, frame := range power {
		for m, filt := range bank {
			var e float64
			for k, w := range filt {
				if w != 0 {
					e += w * frame[k]
				}
			}
			logMel[m] = math.Log(math.Max(e, logFloor))
		}
		coeffs[t] = dctII(logMel, NumMFCC)
	}
	return coeffs
}

// MFCCMean reduces the MFCC matrix of x to a single scalar: the mean over
// both the coefficient and time axes. Returns 0 for an empty signal.
func MFCCMean(x []float64, rate float64) float64 {
	coeffs := MFCC(x, rate)
	if len(coeffs) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, frame := range coeffs {
		for _, c := range frame {
			sum += c
			n++
		}
	}
	return sum / float64(n)
}

// dctII computes the first numOut coefficients of the orthonormal DCT-II of
// in. gonum's DCT uses a different normalisation convention than the one the
// models were trained against, so the projection is written out directly —
// the input is only numMelBands long.
func dctII(in []float64, numOut int) []float64 {
	n := len(in)
	out := make([]float64, numOut)
	scale0 := math.Sqrt(1 / float64(n))
	scale := math.Sqrt(2 / float64(n))
	for k := 0; k < numOut && k < n; k++ {
		var sum float64
		for i, v := range in {
			sum += v * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
		if k == 0 {
			out[k] = sum * scale0
		} else {
			out[k] = sum * scale
		}
	}
	return out
}
