package model

import (
	"errors"
	"fmt"
)

// Scaler standardizes features to the distribution the model was fitted on:
// (x - mean) / std per dimension.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (s *Scaler) validate() error {
	var errs []error
	if len(s.Mean) == 0 {
		errs = append(errs, errors.New("scaler mean is empty"))
	}
	if len(s.Mean) != len(s.Std) {
		errs = append(errs, fmt.Errorf("scaler mean/std length mismatch: %d vs %d", len(s.Mean), len(s.Std)))
	}
	for i, sd := range s.Std {
		if sd <= 0 {
			errs = append(errs, fmt.Errorf("scaler std[%d] = %g, must be positive", i, sd))
		}
	}
	return errors.Join(errs...)
}

// Transform returns the standardized copy of features.
func (s *Scaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("model: feature vector has %d dimensions, scaler expects %d", len(features), len(s.Mean))
	}
	out := make([]float64, len(features))
	for i, v := range features {
		out[i] = (v - s.Mean[i]) / s.Std[i]
	}
	return out, nil
}

// apply standardizes features via s, or returns them unchanged when the
// artifact carries no scaler.
func apply(s *Scaler, features []float64) ([]float64, error) {
	if s == nil {
		return features, nil
	}
	return s.Transform(features)
}
