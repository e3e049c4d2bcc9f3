package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oscillab/tremord/internal/model"
	"github.com/oscillab/tremord/internal/motion"
	"github.com/oscillab/tremord/internal/observe"
)

// Detector is the live-streaming motion pipeline: it accumulates sample
// lines into a sliding window and emits a gated verdict on every push once
// the window is full. Malformed lines are counted and dropped without
// interrupting the stream.
//
// A Detector is owned by a single goroutine, typically the one draining a
// WebSocket connection or broker subscription.
type Detector struct {
	buf      *motion.Buffer
	pipe     *Motion
	metrics  *observe.Metrics
	log      *slog.Logger
	rejected int

	// emitStride emits a verdict every n-th full window instead of every
	// push; 1 reproduces the per-push cadence of the wired sensor loop.
	emitStride int
	sincelast  int
}

// NewDetector builds a live detector classifying with clf and gating
// against the live band. emitStride < 1 is treated as 1.
func NewDetector(clf model.Classifier, emitStride int, log *slog.Logger) *Detector {
	if emitStride < 1 {
		emitStride = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Detector{
		buf:        motion.NewBuffer(),
		pipe:       NewMotion(clf, LiveBand),
		metrics:    observe.DefaultMetrics(),
		log:        log,
		emitStride: emitStride,
	}
}

// Feed parses one raw sample line and advances the window. The returned
// bool reports whether a verdict was emitted. Malformed lines increment
// the rejection count and return no verdict and no error; a classifier
// failure is returned as an error without touching the buffered samples.
func (d *Detector) Feed(ctx context.Context, line string) (MotionVerdict, bool, error) {
	sample, err := motion.ParseLine(line)
	if err != nil {
		d.rejected++
		d.metrics.RejectedSamples.Add(ctx, 1)
		d.log.Debug("dropping malformed sample line", "error", err)
		return MotionVerdict{}, false, nil
	}

	frame, full := d.buf.Push(sample)
	if !full {
		return MotionVerdict{}, false, nil
	}

	d.sincelast++
	if d.sincelast < d.emitStride {
		return MotionVerdict{}, false, nil
	}
	d.sincelast = 0

	d.metrics.RecordWindow(ctx, "motion", "live")
	v, err := d.pipe.Analyze(ctx, frame)
	if err != nil {
		return MotionVerdict{}, false, fmt.Errorf("pipeline: live window: %w", err)
	}
	return v, true, nil
}

// SetBand replaces the gate band of the underlying pipeline. Call before
// the first Feed.
func (d *Detector) SetBand(b Band) { d.pipe.SetBand(b) }

// Rejected reports how many malformed lines have been dropped so far.
func (d *Detector) Rejected() int { return d.rejected }

// Reset drops all buffered samples, e.g. after a sensor gap.
func (d *Detector) Reset() { d.buf.Reset() }
