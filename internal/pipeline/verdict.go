// Package pipeline composes windowing, feature extraction, classification,
// and the decision gate into the three consumer shapes the service exposes:
// request inference, live streaming, and batch training-table building.
// Every consumer goes through this one surface so training-time and
// inference-time feature definitions cannot drift apart.
package pipeline

import (
	"github.com/oscillab/tremord/internal/motion"
	"github.com/oscillab/tremord/internal/voice"
)

// Motion class ids and labels. The ids are the classifier's output space.
const (
	MotionRest      = 0
	MotionTremor    = 1
	MotionVoluntary = 2
)

// Voice class ids.
const (
	VoiceHealthy = 0
	VoiceTremor  = 1
)

var motionLabels = map[int]string{
	MotionRest:      "Rest",
	MotionTremor:    "Tremor",
	MotionVoluntary: "Voluntary",
}

var voiceLabels = map[int]string{
	VoiceHealthy: "Healthy",
	VoiceTremor:  "Tremor",
}

// MotionLabel returns the human-readable label for a motion class id, or
// "Unknown" for an id outside the closed set.
func MotionLabel(class int) string {
	if l, ok := motionLabels[class]; ok {
		return l
	}
	return "Unknown"
}

// VoiceLabel returns the human-readable label for a voice class id.
func VoiceLabel(class int) string {
	if l, ok := voiceLabels[class]; ok {
		return l
	}
	return "Unknown"
}

// MotionVerdict is the structured outcome of one motion window.
type MotionVerdict struct {
	Class         int
	Label         string
	Confidence    float64
	HasConfidence bool
	Features      motion.Features
	// Overridden is true when the decision gate changed the classifier's
	// class.
	Overridden bool
}

// VoiceVerdict is the structured outcome of one voice clip.
type VoiceVerdict struct {
	Class         int
	Label         string
	Confidence    float64
	HasConfidence bool
	Features      voice.Features
}
