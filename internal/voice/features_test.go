package voice

import (
	"errors"
	"math"
	"testing"
)

// voicedClip synthesizes a steady 200 Hz tone at 8 kHz, padded with silence
// on both ends so trimming has work to do.
func voicedClip(seconds float64) []float64 {
	rate := 8000.0
	n := int(rate * seconds)
	clip := make([]float64, n)
	for i := range clip {
		clip[i] = 0.8 * math.Sin(2*math.Pi*200*float64(i)/rate)
	}
	return clip
}

func TestTrimRemovesSilentEdges(t *testing.T) {
	t.Parallel()

	tone := voicedClip(1)
	padded := make([]float64, 0, len(tone)+16384)
	padded = append(padded, make([]float64, 8192)...)
	padded = append(padded, tone...)
	padded = append(padded, make([]float64, 8192)...)

	trimmed := Trim(padded)
	if len(trimmed) == 0 {
		t.Fatal("tone trimmed to nothing")
	}
	if len(trimmed) > len(tone)+2*trimFrameLength {
		t.Errorf("trimmed length %d, want close to %d", len(trimmed), len(tone))
	}
	// The leading silence must be gone.
	var leadEnergy float64
	for _, v := range trimmed[:512] {
		leadEnergy += v * v
	}
	if leadEnergy == 0 {
		t.Error("trimmed clip still starts with pure silence")
	}
}

func TestTrimAllSilence(t *testing.T) {
	t.Parallel()

	if got := Trim(make([]float64, 16384)); len(got) != 0 {
		t.Errorf("silence trimmed to %d samples, want 0", len(got))
	}
	if got := Trim(nil); len(got) != 0 {
		t.Errorf("nil clip trimmed to %d samples, want 0", len(got))
	}
}

func TestExtractSteadyTone(t *testing.T) {
	t.Parallel()

	f, err := Extract(voicedClip(2), 8000)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// A perfectly steady tone has near-zero jitter and shimmer and high HNR.
	if f.JitterPct > 1 {
		t.Errorf("JitterPct = %g, want < 1 for a steady tone", f.JitterPct)
	}
	if f.ShimmerPct > 5 {
		t.Errorf("ShimmerPct = %g, want < 5 for a steady tone", f.ShimmerPct)
	}
	if f.HNRdB < 3 {
		t.Errorf("HNRdB = %g, want clearly positive for a pure tone", f.HNRdB)
	}
	for i, v := range f.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("feature %d not finite: %g", i, v)
		}
	}
}

func TestExtractUnanalyzable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		clip []float64
	}{
		{"empty after trim", Trim(make([]float64, 16384))},
		{"nil", nil},
		{"unvoiced noise-free silence", make([]float64, 8192)},
		{"too short for two pitch frames", voicedClip(0.1)[:800]},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Extract(tc.clip, 8000)
			if !errors.Is(err, ErrInsufficientSignal) {
				t.Errorf("err = %v, want ErrInsufficientSignal", err)
			}
		})
	}
}

func TestVectorOrder(t *testing.T) {
	t.Parallel()

	f := Features{JitterPct: 1, ShimmerPct: 2, HNRdB: 3, MFCCMean: 4}
	want := []float64{1, 2, 3, 4}
	for i, v := range f.Vector() {
		if v != want[i] {
			t.Errorf("Vector()[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestCycleVariationPct(t *testing.T) {
	t.Parallel()

	if got := cycleVariationPct([]float64{1, 1, 1, 1}); got != 0 {
		t.Errorf("constant series variation = %g, want 0", got)
	}
	// Alternating 1,3: mean 2, mean |diff| 2 -> 100%.
	if got := cycleVariationPct([]float64{1, 3, 1, 3}); math.Abs(got-100) > 1e-9 {
		t.Errorf("alternating series variation = %g, want 100", got)
	}
	if got := cycleVariationPct([]float64{0, 0}); got != 0 {
		t.Errorf("zero-mean series variation = %g, want 0", got)
	}
}
