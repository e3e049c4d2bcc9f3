// Package model loads trained classifier artifacts and serves predictions.
//
// An artifact is a single JSON bundle produced by the training tooling. It
// carries the model kind, the class ids it emits, the feature scaler fitted
// alongside it, and the kind-specific parameters. Scaler and model travel
// as one unit so inference can never run on unscaled features by accident.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrNotFound reports that the artifact file does not exist.
	ErrNotFound = errors.New("model: artifact not found")
	// ErrCorrupt reports that the artifact exists but cannot be decoded
	// into a usable model.
	ErrCorrupt = errors.New("model: artifact corrupt")
)

// Prediction is one classifier output: a class id and, when the model
// exposes posteriors, the maximum posterior probability.
type Prediction struct {
	Class         int
	Confidence    float64
	HasConfidence bool
}

// Classifier maps a feature vector to a class prediction. Implementations
// are immutable after load and safe for concurrent use.
type Classifier interface {
	Predict(features []float64) (Prediction, error)
}

// bundle is the on-disk artifact layout.
type bundle struct {
	Kind       string      `json:"kind"`
	Classes    []int       `json:"classes"`
	Scaler     *Scaler     `json:"scaler,omitempty"`
	Trees      []tree      `json:"trees,omitempty"`
	Prototypes []prototype `json:"prototypes,omitempty"`
	Neighbors  int         `json:"neighbors,omitempty"`
}

// Load reads a classifier artifact from path. A missing file yields
// ErrNotFound; a file that cannot be decoded or fails validation yields
// ErrCorrupt.
func Load(path string) (Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("model: read %s: %w", path, err)
	}

	var b bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	switch b.Kind {
	case "forest":
		return newForest(b)
	case "nearest":
		return newNearest(b)
	default:
		return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrCorrupt, path, b.Kind)
	}
}

// argmax returns the index of the largest value, lowest index on ties.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
