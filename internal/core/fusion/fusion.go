// Package fusion wires the fusion stages together: normalize, threshold,
// deduplicate, rank and index.
package fusion

import (
	"fmt"
	"time"

	"github.com/penwyp/go-rhythm-fusion/internal/core/dedup"
	"github.com/penwyp/go-rhythm-fusion/internal/core/measure"
	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
	"github.com/penwyp/go-rhythm-fusion/internal/core/normalize"
	"github.com/penwyp/go-rhythm-fusion/internal/core/salience"
	"github.com/penwyp/go-rhythm-fusion/internal/core/threshold"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

// AutoBudget asks the ranker for one salient event per detected downbeat.
const AutoBudget = -1

// Params holds the tunables of one fusion run.
type Params struct {
	Tolerance float64
	Threshold threshold.Selector
	// Budget is the number of salient events, or AutoBudget.
	Budget int
}

// DefaultParams mirrors the settings of the reference analysis scripts.
func DefaultParams() Params {
	return Params{
		Tolerance: 0.02,
		Threshold: threshold.Selector{Mode: threshold.ModeRelative, Value: 0.3},
		Budget:    AutoBudget,
	}
}

// Validate checks parameters before any estimator work is spent.
func (p Params) Validate() error {
	if p.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance %g must be > 0", model.ErrInvalidParameter, p.Tolerance)
	}
	if p.Budget < AutoBudget {
		return fmt.Errorf("%w: budget %d must be >= 0", model.ErrInvalidParameter, p.Budget)
	}
	// Probe the selector so a bad percentile or factor fails early.
	if _, err := p.Threshold.Select([]float64{0}); err != nil {
		return err
	}
	return nil
}

// Inputs are the already decoded outputs of the external estimators.
type Inputs struct {
	Beats  []model.BeatRecord
	Curve  *model.StrengthCurve
	Onsets []float64
}

// Stats summarises what each stage kept or dropped.
type Stats struct {
	Downbeats      int
	Beats          int
	OnsetsPicked   int
	OnsetsStrong   int
	EventsMerged   int
	Budget         int
	Cutoff         float64
	StageDurations map[string]time.Duration
}

// Result is the annotated timeline plus bookkeeping.
type Result struct {
	Timeline model.Timeline
	Stats    Stats
}

// Cutoff derives the onset strength cutoff from the activation curve. A
// missing or empty curve yields 0.
func Cutoff(curve *model.StrengthCurve, sel threshold.Selector) (float64, error) {
	if curve.Len() == 0 {
		return 0, nil
	}
	return sel.Select(curve.Values)
}

// Fuse runs the whole pipeline synchronously. It is deterministic: the same
// inputs always produce the same timeline.
func Fuse(in Inputs, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	stats := Stats{StageDurations: make(map[string]time.Duration)}
	stage := func(name string, start time.Time) {
		stats.StageDurations[name] = time.Since(start)
	}

	start := time.Now()
	downbeats, beats := normalize.Beats(in.Beats, in.Curve)
	stage("normalize_beats", start)

	start = time.Now()
	cutoff, err := Cutoff(in.Curve, p.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to select threshold: %w", err)
	}
	stage("threshold", start)

	start = time.Now()
	onsets := normalize.Onsets(in.Onsets, in.Curve, cutoff)
	stage("normalize_onsets", start)

	start = time.Now()
	merged, err := dedup.MergeStreams(p.Tolerance, downbeats, beats, onsets)
	if err != nil {
		return nil, fmt.Errorf("failed to merge streams: %w", err)
	}
	stage("dedup", start)

	// Stats.Downbeats and the automatic budget both count the tracker's
	// downbeats before dedup.
	budget := p.Budget
	if budget == AutoBudget {
		budget = salience.BudgetFromDownbeats(downbeats)
	}

	start = time.Now()
	ranked, err := salience.Rank(merged, budget)
	if err != nil {
		return nil, fmt.Errorf("failed to rank events: %w", err)
	}
	stage("rank", start)

	start = time.Now()
	indexed := measure.Index(ranked)
	stage("measure", start)

	stats.Downbeats = len(downbeats)
	stats.Beats = len(beats)
	stats.OnsetsPicked = len(in.Onsets)
	stats.OnsetsStrong = len(onsets)
	stats.EventsMerged = len(merged)
	stats.Budget = budget
	stats.Cutoff = cutoff

	util.LogDebugf("Fusion complete: downbeats=%d beats=%d onsets=%d/%d merged=%d budget=%d cutoff=%.4f",
		stats.Downbeats, stats.Beats, stats.OnsetsStrong, stats.OnsetsPicked, stats.EventsMerged, budget, cutoff)

	return &Result{Timeline: indexed, Stats: stats}, nil
}
