package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/oscillab/tremord/internal/model"
	"github.com/oscillab/tremord/internal/motion"
	"github.com/oscillab/tremord/internal/observe"
	"github.com/oscillab/tremord/internal/voice"
)

// ErrModelUnavailable marks an analysis attempted without a loaded
// classifier.
var ErrModelUnavailable = errors.New("pipeline: classifier not loaded")

// Motion runs the request-path motion pipeline: extract, classify, gate.
// It is safe for concurrent use; the classifier is read-only after
// construction and the gate band may be swapped at runtime via [Motion.SetBand].
type Motion struct {
	clf     model.Classifier
	metrics *observe.Metrics

	mu   sync.RWMutex
	band Band
}

// NewMotion builds a motion pipeline gating against band. clf may be nil;
// Analyze then fails with ErrModelUnavailable.
func NewMotion(clf model.Classifier, band Band) *Motion {
	return &Motion{clf: clf, band: band, metrics: observe.DefaultMetrics()}
}

// Ready reports whether a classifier is loaded.
func (p *Motion) Ready() bool { return p.clf != nil }

// SetBand replaces the gate band. Used by the config hot-reload path.
func (p *Motion) SetBand(b Band) {
	p.mu.Lock()
	p.band = b
	p.mu.Unlock()
}

func (p *Motion) gateBand() Band {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.band
}

// Analyze runs one frame through extraction, classification, and the gate.
func (p *Motion) Analyze(ctx context.Context, frame motion.Frame) (MotionVerdict, error) {
	if p.clf == nil {
		return MotionVerdict{}, ErrModelUnavailable
	}

	start := time.Now()
	feats := motion.Extract(frame)
	p.metrics.ExtractDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("modality", "motion")))

	start = time.Now()
	pred, err := p.clf.Predict(feats.Vector())
	if err != nil {
		return MotionVerdict{}, fmt.Errorf("pipeline: classify motion window: %w", err)
	}
	p.metrics.PredictDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("modality", "motion")))

	class, overridden := ApplyGate(pred.Class, feats.DomFreq, p.gateBand())
	if overridden {
		p.metrics.GateOverrides.Add(ctx, 1)
	}

	v := MotionVerdict{
		Class:         class,
		Label:         MotionLabel(class),
		Confidence:    pred.Confidence,
		HasConfidence: pred.HasConfidence,
		Features:      feats,
		Overridden:    overridden,
	}
	p.metrics.RecordVerdict(ctx, "motion", v.Label)
	return v, nil
}

// Voice runs the request-path voice pipeline: trim, extract, classify.
// There is no gate stage.
type Voice struct {
	clf     model.Classifier
	metrics *observe.Metrics
}

// NewVoice builds a voice pipeline. clf may be nil; Analyze then fails with
// ErrModelUnavailable.
func NewVoice(clf model.Classifier) *Voice {
	return &Voice{clf: clf, metrics: observe.DefaultMetrics()}
}

// Ready reports whether a classifier is loaded.
func (p *Voice) Ready() bool { return p.clf != nil }

// Analyze trims clip, extracts voice features, and classifies them.
// A clip without enough tonal content yields voice.ErrInsufficientSignal.
func (p *Voice) Analyze(ctx context.Context, clip []float64, rate float64) (VoiceVerdict, error) {
	if p.clf == nil {
		return VoiceVerdict{}, ErrModelUnavailable
	}

	start := time.Now()
	feats, err := voice.Extract(voice.Trim(clip), rate)
	if err != nil {
		p.metrics.RecordExtractionFailure(ctx, "voice")
		return VoiceVerdict{}, fmt.Errorf("pipeline: extract voice features: %w", err)
	}
	p.metrics.ExtractDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("modality", "voice")))

	start = time.Now()
	pred, err := p.clf.Predict(feats.Vector())
	if err != nil {
		return VoiceVerdict{}, fmt.Errorf("pipeline: classify voice clip: %w", err)
	}
	p.metrics.PredictDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("modality", "voice")))

	v := VoiceVerdict{
		Class:         pred.Class,
		Label:         VoiceLabel(pred.Class),
		Confidence:    pred.Confidence,
		HasConfidence: pred.HasConfidence,
		Features:      feats,
	}
	p.metrics.RecordVerdict(ctx, "voice", v.Label)
	return v, nil
}
