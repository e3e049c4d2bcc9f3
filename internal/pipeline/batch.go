package pipeline

import (
	"context"

	"github.com/oscillab/tremord/internal/motion"
	"github.com/oscillab/tremord/internal/observe"
)

// TrainingRow is one labeled feature vector destined for model fitting.
type TrainingRow struct {
	Features []float64
	Label    int
}

// TrainingTable is the outcome of batch windowing a labeled recording:
// the feature rows plus the number of windows discarded for straddling a
// label boundary.
type TrainingTable struct {
	Rows    []TrainingRow
	Skipped int
}

// BuildTrainingTable slices a labeled recording into windows of
// motion.WindowSize advanced by motion.WindowStep and extracts features
// from every label-pure window. It never classifies; fitting happens in
// external tooling that consumes the table.
func BuildTrainingTable(ctx context.Context, series []motion.LabeledSample) TrainingTable {
	metrics := observe.DefaultMetrics()

	frames, skipped := motion.SliceLabeled(series, motion.WindowSize, motion.WindowStep)
	table := TrainingTable{Skipped: skipped}
	for _, lf := range frames {
		feats := motion.Extract(lf.Frame)
		table.Rows = append(table.Rows, TrainingRow{Features: feats.Vector(), Label: lf.Label})
		metrics.RecordWindow(ctx, "motion", "batch")
	}
	return table
}
