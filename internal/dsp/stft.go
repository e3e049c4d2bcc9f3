package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Defaults for short-time analysis. They match the analysis geometry the
// trained voice models were fitted against, so changing them invalidates any
// persisted model artifact.
const (
	stftFrameLength = 2048
	stftHopLength   = 512
)

// STFTResult holds the complex short-time spectrum of a signal: one slice of
// frameLength/2+1 coefficients per analysis frame.
type STFTResult struct {
	Frames      [][]complex128
	FrameLength int
	HopLength   int
}

// hannWindow returns an n-point Hann window.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// STFT computes the Hann-windowed short-time Fourier transform of x. Signals
// shorter than one frame are zero-padded to a single frame so that even very
// short clips yield a spectrum.
func STFT(x []float64, frameLength, hopLength int) STFTResult {
	if len(x) < frameLength {
		padded := make([]float64, frameLength)
		copy(padded, x)
		x = padded
	}

	window := hannWindow(frameLength)
	fft := fourier.NewFFT(frameLength)

	numFrames := 1 + (len(x)-frameLength)/hopLength
	frames := make([][]complex128, 0, numFrames)
	buf := make([]float64, frameLength)

	for start := 0; start+frameLength <= len(x); start += hopLength {
		for i := 0; i < frameLength; i++ {
			buf[i] = x[start+i] * window[i]
		}
		frames = append(frames, fft.Coefficients(nil, buf))
	}

	return STFTResult{Frames: frames, FrameLength: frameLength, HopLength: hopLength}
}

// PowerSpectrogram returns the per-frame, per-bin magnitude-squared spectrum
// of the STFT result, indexed as [frame][bin].
func (r STFTResult) PowerSpectrogram() [][]float64 {
	power := make([][]float64, len(r.Frames))
	for t, frame := range r.Frames {
		row := make([]float64, len(frame))
		for k, c := range frame {
			m := cmplx.Abs(c)
			row[k] = m * m
		}
		power[t] = row
	}
	return power
}
