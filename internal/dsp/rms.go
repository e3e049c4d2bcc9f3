package dsp

import "math"

// RMSEnvelope computes the root-mean-square amplitude of x over consecutive
// frames of frameLength samples advanced by hopLength. A signal shorter than
// one frame is zero-padded to a single frame so that it still yields one
// value.
func RMSEnvelope(x []float64, frameLength, hopLength int) []float64 {
	if frameLength <= 0 || hopLength <= 0 {
		return nil
	}
	if len(x) < frameLength {
		padded := make([]float64, frameLength)
		copy(padded, x)
		x = padded
	}

	var env []float64
	for start := 0; start+frameLength <= len(x); start += hopLength {
		var sum float64
		for _, v := range x[start : start+frameLength] {
			sum += v * v
		}
		env = append(env, math.Sqrt(sum/float64(frameLength)))
	}
	return env
}
