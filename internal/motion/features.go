package motion

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/oscillab/tremord/internal/dsp"
)

// Spectral bands in Hz. The tremor band is inclusive on both edges, the
// voluntary band strictly exclusive; both follow the definitions the models
// were trained against.
const (
	tremorBandLow     = 3.5
	tremorBandHigh    = 7.5
	voluntaryBandLow  = 0.1
	voluntaryBandHigh = 3.0
)

// Features is the per-window motion feature set. Vector() fixes the order
// the classifier expects.
type Features struct {
	DomFreq         float64
	TremorEnergy    float64
	VoluntaryEnergy float64
	AccStd          float64
	FSRMean         float64
	FSRStd          float64
}

// Vector returns the features in classifier order: dominant frequency,
// tremor-band energy, voluntary-band energy, acceleration std, FSR mean,
// FSR std. Reordering here invalidates every trained artifact.
func (f Features) Vector() []float64 {
	return []float64{f.DomFreq, f.TremorEnergy, f.VoluntaryEnergy, f.AccStd, f.FSRMean, f.FSRStd}
}

// Extract computes the feature set of one frame. An empty frame yields the
// all-zero feature set rather than an error.
func Extract(frame Frame) Features {
	if len(frame) == 0 {
		return Features{}
	}

	mag := make([]float64, len(frame))
	fsr := make([]float64, len(frame))
	for i, s := range frame {
		mag[i] = math.Sqrt(s.AccelX*s.AccelX + s.AccelY*s.AccelY + s.AccelZ*s.AccelZ)
		fsr[i] = s.FSR
	}

	// Remove the gravity offset before spectral analysis.
	mean := stat.Mean(mag, nil)
	for i := range mag {
		mag[i] -= mean
	}

	spec := dsp.AmplitudeSpectrum(mag, SamplingRate)

	return Features{
		DomFreq:         spec.Dominant(),
		TremorEnergy:    spec.BandSumInclusive(tremorBandLow, tremorBandHigh),
		VoluntaryEnergy: spec.BandSumExclusive(voluntaryBandLow, voluntaryBandHigh),
		AccStd:          stat.PopStdDev(mag, nil),
		FSRMean:         stat.Mean(fsr, nil),
		FSRStd:          stat.PopStdDev(fsr, nil),
	}
}
