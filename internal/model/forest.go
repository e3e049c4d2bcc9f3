package model

import (
	"errors"
	"fmt"
)

// tree is one CART decision tree in flattened node-array form. Internal
// nodes test features[Feature] <= Threshold and branch to Left/Right; leaf
// nodes (Left == -1) carry a per-class probability distribution aligned
// with the bundle's class list.
type tree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Dist      []float64 `json:"dist,omitempty"`
}

// forest averages the leaf distributions of its trees; the prediction is
// the class with the largest averaged probability.
type forest struct {
	classes []int
	scaler  *Scaler
	trees   []tree
}

func newForest(b bundle) (*forest, error) {
	var errs []error
	if len(b.Classes) == 0 {
		errs = append(errs, errors.New("no classes"))
	}
	if len(b.Trees) == 0 {
		errs = append(errs, errors.New("no trees"))
	}
	for ti, t := range b.Trees {
		if len(t.Nodes) == 0 {
			errs = append(errs, fmt.Errorf("tree %d has no nodes", ti))
			continue
		}
		for ni, n := range t.Nodes {
			if n.Left == -1 {
				if len(n.Dist) != len(b.Classes) {
					errs = append(errs, fmt.Errorf("tree %d leaf %d: distribution over %d classes, want %d", ti, ni, len(n.Dist), len(b.Classes)))
				}
				continue
			}
			if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				errs = append(errs, fmt.Errorf("tree %d node %d: child out of range", ti, ni))
			}
		}
	}
	if b.Scaler != nil {
		if err := b.Scaler.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: forest: %v", ErrCorrupt, err)
	}
	return &forest{classes: b.Classes, scaler: b.Scaler, trees: b.Trees}, nil
}

func (f *forest) Predict(features []float64) (Prediction, error) {
	x, err := apply(f.scaler, features)
	if err != nil {
		return Prediction{}, err
	}

	probs := make([]float64, len(f.classes))
	for _, t := range f.trees {
		dist, err := t.walk(x)
		if err != nil {
			return Prediction{}, err
		}
		for i, p := range dist {
			probs[i] += p
		}
	}
	for i := range probs {
		probs[i] /= float64(len(f.trees))
	}

	best := argmax(probs)
	return Prediction{
		Class:         f.classes[best],
		Confidence:    probs[best],
		HasConfidence: true,
	}, nil
}

// walk descends from the root to a leaf and returns its distribution.
func (t tree) walk(x []float64) ([]float64, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[idx]
		if n.Left == -1 {
			return n.Dist, nil
		}
		if n.Feature < 0 || n.Feature >= len(x) {
			return nil, fmt.Errorf("model: tree references feature %d of %d", n.Feature, len(x))
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return nil, errors.New("model: tree walk did not reach a leaf")
}
