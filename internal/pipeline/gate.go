package pipeline

// Band is an inclusive frequency range in Hz.
type Band struct {
	Low  float64
	High float64
}

// The two gate bands observed in production use. The request path gates
// against [3.0, 7.0] while the live path gates against [3.5, 7.5]; both are
// kept as configured defaults rather than unified, pending clarification of
// which was intended.
var (
	RequestBand = Band{Low: 3.0, High: 7.0}
	LiveBand    = Band{Low: 3.5, High: 7.5}
)

// Contains reports whether f lies inside the band, edges included.
func (b Band) Contains(f float64) bool {
	return f >= b.Low && f <= b.High
}

// ApplyGate reconciles the classifier's motion class with the measured
// dominant frequency: a Tremor prediction whose dominant frequency falls
// outside the band is physically inconsistent with resting tremor and is
// overridden to Voluntary. All other classes pass through unchanged. The
// second return reports whether an override happened.
//
// Voice verdicts have no gate; the asymmetry is deliberate.
func ApplyGate(class int, domFreq float64, band Band) (int, bool) {
	if class == MotionTremor && !band.Contains(domFreq) {
		return MotionVoluntary, true
	}
	return class, false
}
