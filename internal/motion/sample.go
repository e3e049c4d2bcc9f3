// Package motion turns raw wrist-sensor samples into the fixed-order
// feature vectors the tremor classifier was trained on: windowing of the
// 50 Hz sample stream and per-window frequency/time-domain extraction.
package motion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Nominal sensor geometry. WindowSize samples at SamplingRate Hz cover two
// seconds of motion; the trained models assume exactly this framing.
const (
	SamplingRate = 50.0
	WindowSize   = 100
	WindowStep   = 50
)

// ErrMalformedLine marks a sample line that does not parse: wrong field
// count or a non-numeric field. Such lines are dropped whole, never
// partially ingested.
var ErrMalformedLine = errors.New("motion: malformed sample line")

// Sample is one timestamped reading from the wrist sensor: tri-axial
// accelerometer and gyroscope plus a force-sensitive resistor.
type Sample struct {
	Timestamp float64
	AccelX    float64
	AccelY    float64
	AccelZ    float64
	GyroX     float64
	GyroY     float64
	GyroZ     float64
	FSR       float64
}

// ParseLine parses one comma-separated sensor line of exactly eight fields
// (timestamp, accelX..Z, gyroX..Z, fsr). Any deviation yields
// ErrMalformedLine with detail.
func ParseLine(line string) (Sample, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 8 {
		return Sample{}, fmt.Errorf("%w: got %d fields, want 8", ErrMalformedLine, len(fields))
	}

	vals := make([]float64, 8)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: field %d %q is not numeric", ErrMalformedLine, i, f)
		}
		vals[i] = v
	}

	return Sample{
		Timestamp: vals[0],
		AccelX:    vals[1],
		AccelY:    vals[2],
		AccelZ:    vals[3],
		GyroX:     vals[4],
		GyroY:     vals[5],
		GyroZ:     vals[6],
		FSR:       vals[7],
	}, nil
}
