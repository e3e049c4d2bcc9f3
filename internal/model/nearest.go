package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// prototype is one stored training example in the standardized feature
// space.
type prototype struct {
	Features []float64 `json:"features"`
	Class    int       `json:"class"`
}

// nearest is a distance-weighted k-nearest-neighbor classifier. Confidence
// is the winning class's share of the inverse-distance weight mass, a
// posterior-like value in (0, 1].
type nearest struct {
	classes    []int
	scaler     *Scaler
	prototypes []prototype
	k          int
}

func newNearest(b bundle) (*nearest, error) {
	var errs []error
	if len(b.Classes) == 0 {
		errs = append(errs, errors.New("no classes"))
	}
	if len(b.Prototypes) == 0 {
		errs = append(errs, errors.New("no prototypes"))
	}
	dim := -1
	for i, p := range b.Prototypes {
		if dim == -1 {
			dim = len(p.Features)
		} else if len(p.Features) != dim {
			errs = append(errs, fmt.Errorf("prototype %d has %d dimensions, want %d", i, len(p.Features), dim))
		}
	}
	if b.Scaler != nil {
		if err := b.Scaler.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: nearest: %v", ErrCorrupt, err)
	}

	k := b.Neighbors
	if k <= 0 {
		k = 5
	}
	if k > len(b.Prototypes) {
		k = len(b.Prototypes)
	}
	return &nearest{classes: b.Classes, scaler: b.Scaler, prototypes: b.Prototypes, k: k}, nil
}

func (n *nearest) Predict(features []float64) (Prediction, error) {
	x, err := apply(n.scaler, features)
	if err != nil {
		return Prediction{}, err
	}
	if len(n.prototypes[0].Features) != len(x) {
		return Prediction{}, fmt.Errorf("model: feature vector has %d dimensions, prototypes have %d", len(x), len(n.prototypes[0].Features))
	}

	type scored struct {
		dist  float64
		class int
	}
	all := make([]scored, len(n.prototypes))
	for i, p := range n.prototypes {
		var d2 float64
		for j, v := range p.Features {
			diff := x[j] - v
			d2 += diff * diff
		}
		all[i] = scored{dist: math.Sqrt(d2), class: p.Class}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	// Inverse-distance vote over the k nearest; an exact match dominates.
	weights := make(map[int]float64, len(n.classes))
	var totalWeight float64
	for _, s := range all[:n.k] {
		w := 1 / (s.dist + 1e-12)
		weights[s.class] += w
		totalWeight += w
	}

	best := n.classes[0]
	for _, c := range n.classes[1:] {
		if weights[c] > weights[best] {
			best = c
		}
	}
	return Prediction{
		Class:         best,
		Confidence:    weights[best] / totalWeight,
		HasConfidence: true,
	}, nil
}
