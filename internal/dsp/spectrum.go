// Package dsp provides the frequency- and time-domain primitives shared by
// the motion and voice feature extractors: one-sided amplitude spectra,
// short-time Fourier analysis, harmonic-percussive separation, mel-cepstral
// coefficients, pitch tracking, and RMS envelopes.
//
// All functions are pure and allocate their own output; none of them keeps
// state between calls. FFTs are computed with gonum's real-input transform.
package dsp

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum is a one-sided amplitude spectrum. Freqs[k] = k * rate / N for
// k in [0, N/2) and Amps[k] = (2/N) * |FFT_k|. Both slices always have the
// same length.
type Spectrum struct {
	Freqs []float64
	Amps  []float64
}

// AmplitudeSpectrum computes the one-sided amplitude spectrum of signal
// sampled at rate Hz. A zero-length signal yields an empty spectrum.
func AmplitudeSpectrum(signal []float64, rate float64) Spectrum {
	n := len(signal)
	if n == 0 {
		return Spectrum{}
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, signal)

	half := n / 2
	s := Spectrum{
		Freqs: make([]float64, half),
		Amps:  make([]float64, half),
	}
	for k := 0; k < half; k++ {
		s.Freqs[k] = float64(k) * rate / float64(n)
		s.Amps[k] = 2.0 / float64(n) * cmplx.Abs(coeff[k])
	}
	return s
}

// Dominant returns the frequency of the bin with the largest amplitude.
// Ties are broken toward the lowest-frequency bin. An empty spectrum
// returns 0.
func (s Spectrum) Dominant() float64 {
	if len(s.Amps) == 0 {
		return 0
	}
	best := 0
	for k := 1; k < len(s.Amps); k++ {
		if s.Amps[k] > s.Amps[best] {
			best = k
		}
	}
	return s.Freqs[best]
}

// BandSumInclusive sums amplitudes over bins whose frequency lies in
// [low, high].
func (s Spectrum) BandSumInclusive(low, high float64) float64 {
	var sum float64
	for k, f := range s.Freqs {
		if f >= low && f <= high {
			sum += s.Amps[k]
		}
	}
	return sum
}

// BandSumExclusive sums amplitudes over bins whose frequency lies strictly
// inside (low, high).
func (s Spectrum) BandSumExclusive(low, high float64) float64 {
	var sum float64
	for k, f := range s.Freqs {
		if f > low && f < high {
			sum += s.Amps[k]
		}
	}
	return sum
}
