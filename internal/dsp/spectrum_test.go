package dsp

import (
	"math"
	"testing"
)

// sine returns n samples of a sine at freq Hz sampled at rate Hz.
func sine(freq, rate float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return x
}

func TestAmplitudeSpectrumSinusoid(t *testing.T) {
	t.Parallel()

	// 5 Hz at 50 Hz over 100 samples lands exactly on bin 10.
	s := AmplitudeSpectrum(sine(5, 50, 100), 50)

	if got, want := len(s.Freqs), 50; got != want {
		t.Fatalf("len(Freqs) = %d, want %d", got, want)
	}
	if got := s.Dominant(); math.Abs(got-5) > 1e-9 {
		t.Errorf("Dominant() = %g, want 5", got)
	}
	// A unit sinusoid on an exact bin has one-sided amplitude 1.
	if got := s.Amps[10]; math.Abs(got-1) > 1e-6 {
		t.Errorf("Amps[10] = %g, want 1", got)
	}
}

func TestAmplitudeSpectrumEmpty(t *testing.T) {
	t.Parallel()

	s := AmplitudeSpectrum(nil, 50)
	if len(s.Freqs) != 0 || len(s.Amps) != 0 {
		t.Errorf("empty signal produced non-empty spectrum: %+v", s)
	}
	if got := s.Dominant(); got != 0 {
		t.Errorf("Dominant() on empty spectrum = %g, want 0", got)
	}
}

func TestDominantTieBreaksLow(t *testing.T) {
	t.Parallel()

	s := Spectrum{
		Freqs: []float64{0, 1, 2, 3},
		Amps:  []float64{0, 0.5, 0.5, 0.2},
	}
	if got := s.Dominant(); got != 1 {
		t.Errorf("Dominant() = %g, want 1 (lowest tied bin)", got)
	}
}

func TestBandSums(t *testing.T) {
	t.Parallel()

	s := Spectrum{
		Freqs: []float64{0, 1, 2, 3, 4, 5},
		Amps:  []float64{1, 2, 3, 4, 5, 6},
	}

	tests := []struct {
		name      string
		got, want float64
	}{
		{"inclusive keeps both edges", s.BandSumInclusive(1, 3), 2 + 3 + 4},
		{"exclusive drops both edges", s.BandSumExclusive(1, 3), 3},
		{"empty band", s.BandSumInclusive(7, 9), 0},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s: got %g, want %g", tc.name, tc.got, tc.want)
		}
	}
}

func TestSTFTShortSignalPadsToOneFrame(t *testing.T) {
	t.Parallel()

	r := STFT(sine(100, 8000, 300), stftFrameLength, stftHopLength)
	if got, want := len(r.Frames), 1; got != want {
		t.Fatalf("frames = %d, want %d", got, want)
	}
	if got, want := len(r.Frames[0]), stftFrameLength/2+1; got != want {
		t.Errorf("bins = %d, want %d", got, want)
	}
}

func TestRMSEnvelope(t *testing.T) {
	t.Parallel()

	// Constant signal: every frame has RMS equal to the value.
	x := make([]float64, 4096)
	for i := range x {
		x[i] = 0.5
	}
	env := RMSEnvelope(x, 1024, 512)
	if got, want := len(env), 1+(4096-1024)/512; got != want {
		t.Fatalf("len(env) = %d, want %d", got, want)
	}
	for i, v := range env {
		if math.Abs(v-0.5) > 1e-12 {
			t.Fatalf("env[%d] = %g, want 0.5", i, v)
		}
	}
}

func TestTrackPitchSinusoid(t *testing.T) {
	t.Parallel()

	rate := 8000.0
	f0 := TrackPitch(sine(200, rate, 8000), rate, 75, 300)
	if len(f0) == 0 {
		t.Fatal("no pitch frames returned")
	}
	for i, f := range f0 {
		if math.IsNaN(f) {
			t.Fatalf("frame %d unvoiced for a pure tone", i)
		}
		// Lag quantization at 8 kHz near 200 Hz is about 5 Hz.
		if math.Abs(f-200) > 6 {
			t.Errorf("frame %d: f0 = %g, want ~200", i, f)
		}
	}
}

func TestTrackPitchSilenceIsUnvoiced(t *testing.T) {
	t.Parallel()

	f0 := TrackPitch(make([]float64, 4096), 8000, 75, 300)
	if len(f0) == 0 {
		t.Fatal("no pitch frames returned")
	}
	for i, f := range f0 {
		if !math.IsNaN(f) {
			t.Errorf("frame %d: silence tracked as %g Hz", i, f)
		}
	}
}

func TestHarmonicRatioPureToneMostlyHarmonic(t *testing.T) {
	t.Parallel()

	harm, total := HarmonicRatio(sine(220, 8000, 16000))
	if total <= 0 {
		t.Fatal("total energy not positive")
	}
	if ratio := harm / total; ratio < 0.8 {
		t.Errorf("harmonic ratio = %g, want > 0.8 for a steady tone", ratio)
	}
}

func TestHarmonicRatioEmpty(t *testing.T) {
	t.Parallel()

	harm, total := HarmonicRatio(nil)
	if harm != 0 || total != 0 {
		t.Errorf("HarmonicRatio(nil) = %g, %g, want 0, 0", harm, total)
	}
}

func TestMFCCShape(t *testing.T) {
	t.Parallel()

	coeffs := MFCC(sine(150, 8000, 8192), 8000)
	if len(coeffs) == 0 {
		t.Fatal("no MFCC frames")
	}
	for i, frame := range coeffs {
		if got, want := len(frame), NumMFCC; got != want {
			t.Fatalf("frame %d: %d coefficients, want %d", i, got, want)
		}
	}

	if mean := MFCCMean(sine(150, 8000, 8192), 8000); math.IsNaN(mean) || math.IsInf(mean, 0) {
		t.Errorf("MFCCMean returned %g", mean)
	}
}
