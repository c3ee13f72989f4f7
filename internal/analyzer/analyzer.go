package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/penwyp/go-rhythm-fusion/internal/audio"
	"github.com/penwyp/go-rhythm-fusion/internal/core/fusion"
	"github.com/penwyp/go-rhythm-fusion/internal/data/cache"
	"github.com/penwyp/go-rhythm-fusion/internal/data/scanner"
	"github.com/penwyp/go-rhythm-fusion/internal/estimator"
	"github.com/penwyp/go-rhythm-fusion/internal/presentation/formatter"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

type Analyzer struct {
	config  *Config
	params  fusion.Params
	backend estimator.Backend
	picker  estimator.PeakPicker
	cache   cache.Cache
}

// New builds an analyzer with the backend selected by config.
func New(config *Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	beatCfg := estimator.BeatConfig{FramesPerSecond: config.FPS, BeatsPerBar: config.BeatsPerBar}
	var backend estimator.Backend
	switch config.EstimatorKind {
	case EstimatorCommand:
		name, args, err := estimator.SplitCommand(config.EstimatorCmd)
		if err != nil {
			return nil, err
		}
		backend = estimator.NewCommandBackend(beatCfg, name, args, config.EstimatorTimeout)
	default:
		backend = estimator.NewSidecarBackend(beatCfg, config.EstimatesPath)
	}
	return NewWithBackend(config, backend, estimator.NewLocalPeakPicker())
}

// NewWithBackend builds an analyzer around caller supplied estimators.
func NewWithBackend(config *Config, backend estimator.Backend, picker estimator.PeakPicker) (*Analyzer, error) {
	params, err := config.FusionParams()
	if err != nil {
		return nil, err
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	a := &Analyzer{
		config:  config,
		params:  params,
		backend: backend,
		picker:  picker,
	}

	if config.UseCache {
		fileCache, err := cache.NewFileCache(util.ExpandPath(config.CacheDir))
		if err != nil {
			util.LogWarnf("Cache disabled: %v", err)
		} else {
			a.cache = fileCache
		}
	}
	return a, nil
}

// Outcome is the result of analysing one input.
type Outcome struct {
	Input      string
	Document   *formatter.Document
	Cached     bool
	MissReason cache.CacheMissReason
}

// Analyze fuses the estimator output for one input into a document.
func (a *Analyzer) Analyze(ctx context.Context, input string) (*formatter.Document, error) {
	out, err := a.analyze(ctx, input)
	if err != nil {
		return nil, err
	}
	return out.Document, nil
}

func (a *Analyzer) analyze(ctx context.Context, input string) (*Outcome, error) {
	startTime := time.Now()
	log := util.Log().With(util.F("run_id", uuid.NewString()), util.F("input", input))
	log.Debug("Starting analysis")

	key := cache.KeyFor(input)
	paramsKey := a.config.ParamsKey()
	out := &Outcome{Input: input, MissReason: cache.MissReasonNotFound}

	// Phase 1: cache lookup
	if a.cache != nil {
		res := a.cache.Get(key, paramsKey)
		if res.Found {
			log.Debug("Cache hit", util.F("duration", time.Since(startTime)))
			out.Cached = true
			out.MissReason = cache.MissReasonNone
			out.Document = &formatter.Document{
				Source:     input,
				SampleRate: res.Entry.SampleRate,
				FrameRate:  res.Entry.FrameRate,
				Timeline:   res.Entry.Result.Timeline,
				Stats:      res.Entry.Result.Stats,
			}
			return out, nil
		}
		out.MissReason = res.MissReason
		log.Debug("Cache miss", util.F("reason", res.MissReason.String()))
	}

	defer a.backend.Release(input)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 2: beat and downbeat tracking
	phaseStart := time.Now()
	beats, err := a.backend.TrackBeats(ctx, input, estimator.BeatConfig{
		FramesPerSecond: a.config.FPS,
		BeatsPerBar:     a.config.BeatsPerBar,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("Phase 2 - beat tracking", util.F("duration", time.Since(phaseStart)), util.F("beats", len(beats)))

	// Phase 3: onset activation and peak picking
	phaseStart = time.Now()
	curve, err := a.backend.Activate(ctx, input, a.config.FPS)
	if err != nil {
		return nil, err
	}
	cutoff, err := fusion.Cutoff(curve, a.params.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to select threshold: %w", err)
	}
	var onsets []float64
	if curve.Len() > 0 {
		onsets, err = a.picker.Pick(curve, cutoff, a.config.Window)
		if err != nil {
			return nil, fmt.Errorf("failed to pick onsets: %w", err)
		}
	}
	log.Debug("Phase 3 - onset activation", util.F("duration", time.Since(phaseStart)),
		util.F("frames", curve.Len()), util.F("onsets", len(onsets)), util.F("cutoff", cutoff))

	// Phase 4: sample rate
	sampleRate, err := a.backend.SampleRate(ctx, input)
	if err != nil {
		return nil, err
	}
	if sampleRate == 0 && audio.IsWAV(input) {
		if sr, err := audio.SampleRate(input); err == nil {
			sampleRate = sr
		} else {
			log.Warn("Failed to probe sample rate", util.F("error", err.Error()))
		}
	}

	// Phase 5: fusion
	phaseStart = time.Now()
	result, err := fusion.Fuse(fusion.Inputs{Beats: beats, Curve: curve, Onsets: onsets}, a.params)
	if err != nil {
		return nil, err
	}
	log.Debug("Phase 5 - fusion", util.F("duration", time.Since(phaseStart)), util.F("events", len(result.Timeline)))

	frameRate := a.config.FPS
	if curve.Len() > 0 {
		frameRate = curve.FrameRate
	}
	out.Document = &formatter.Document{
		Source:     input,
		SampleRate: sampleRate,
		FrameRate:  frameRate,
		Timeline:   result.Timeline,
		Stats:      result.Stats,
	}

	if a.cache != nil {
		entry := &cache.Entry{
			Source:     input,
			ParamsKey:  paramsKey,
			SampleRate: sampleRate,
			FrameRate:  frameRate,
			Result:     result,
		}
		if err := a.cache.Set(key, entry, a.dependencies(input)); err != nil {
			log.Warn("Failed to save cache", util.F("error", err.Error()))
		}
	}

	log.Info("Analysis complete", util.F("duration", time.Since(startTime)),
		util.F("events", len(result.Timeline)), util.F("salient", result.Timeline.SalientCount()))
	return out, nil
}

// dependencies lists the existing files a result was derived from.
func (a *Analyzer) dependencies(input string) []string {
	candidates := []string{input}
	if a.config.EstimatorKind == EstimatorSidecar {
		switch {
		case a.config.EstimatesPath != "":
			candidates = append(candidates, a.config.EstimatesPath)
		case !estimator.IsSidecar(input):
			candidates = append(candidates, estimator.SidecarPath(input))
		}
	}

	var deps []string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			deps = append(deps, p)
		}
	}
	return deps
}

// Render writes a document in the configured format.
func (a *Analyzer) Render(w io.Writer, doc *formatter.Document) error {
	f, err := formatter.New(a.config.OutputFormat)
	if err != nil {
		return err
	}
	return f.Format(w, doc)
}

// Run analyses one input and writes the record to output, or to stdout
// when output is empty.
func (a *Analyzer) Run(ctx context.Context, input, output string, stdout io.Writer) error {
	doc, err := a.Analyze(ctx, input)
	if err != nil {
		return err
	}
	if output == "" {
		return a.Render(stdout, doc)
	}
	return a.writeFile(output, doc)
}

// writeFile renders into memory first so a failed render leaves no file.
func (a *Analyzer) writeFile(path string, doc *formatter.Document) error {
	var buf bytes.Buffer
	if err := a.Render(&buf, doc); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := util.EnsureDir(dir); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	util.LogDebugf("Wrote %s", path)
	return nil
}

// OutputPath returns where the batch and watch drivers export an input
// found below root. Without an output directory the record lands beside the
// input; with one, the input's directory relative to root is kept so that
// equal stems in different subdirectories do not collide.
func (a *Analyzer) OutputPath(root, input string) string {
	name := scanner.InputStem(input) + ".timeline" + formatter.Extension(a.config.OutputFormat)
	if a.config.OutDir == "" {
		return filepath.Join(filepath.Dir(input), name)
	}

	rel, err := filepath.Rel(root, filepath.Dir(input))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = ""
	}
	return filepath.Join(a.config.OutDir, rel, name)
}

// ResetCache drops every cached result.
func (a *Analyzer) ResetCache() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Clear()
}
