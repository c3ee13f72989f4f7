package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/penwyp/go-rhythm-fusion/internal/analyzer"
	"github.com/penwyp/go-rhythm-fusion/internal/core/fusion"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Logging related
	debug bool

	// Preset and cache
	configPath string
	reset      bool
	noCache    bool

	// Estimator backend
	estimatorKind    string
	estimatesPath    string
	estimatorCmd     string
	estimatorTimeout time.Duration
	fps              float64
	beatsPerBar      int

	// Fusion parameters
	tolerance       float64
	thresholdMode   string
	thresholdFactor float64
	percentile      float64
	budget          int

	// Peak picking windows
	preAvg  float64
	postAvg float64
	preMax  float64
	postMax float64
	combine float64

	// Output related
	outputFormat string

	rootCmd = &cobra.Command{
		Use:   "go-rhythm-fusion <audio> [output]",
		Short: "Fuse beat, downbeat and onset estimates into one rhythm timeline",
		Long: `go-rhythm-fusion merges the output of external rhythm estimators into a single
deduplicated, salience-ranked timeline with measure and beat positions.

Estimates are read from a "<stem>.rhythm.json" file next to the audio file, or
produced by running an external estimator command. The record is written to the
output path, or to stdout when no output path is given.

Examples:
  go-rhythm-fusion song.wav                               # Print the beat grid record
  go-rhythm-fusion song.wav song.json --format rich       # Write every event with strength and salience
  go-rhythm-fusion song.wav --format table                # Show the timeline as a table
  go-rhythm-fusion song.wav --threshold-mode percentile --percentile 80
  go-rhythm-fusion song.wav --estimator command --estimator-cmd "python3 track.py"
  go-rhythm-fusion batch ./music --out-dir ./timelines    # Fuse a whole directory
  go-rhythm-fusion watch ./music                          # Re-export on estimate changes`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errMissingAudio
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		RunE: runFuse,
	}
)

var errMissingAudio = errors.New("missing audio file path")

const (
	defaultLogFile  = "~/.go-rhythm-fusion/logs/app.log"
	defaultCacheDir = "~/.go-rhythm-fusion/cache"
)

func init() {
	defaults := analyzer.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&configPath, "config", "",
		"YAML preset with analysis settings (flags override it)")

	// Estimator backend
	flags.StringVar(&estimatorKind, "estimator", defaults.EstimatorKind,
		"Estimator backend (sidecar, command)")
	flags.StringVar(&estimatesPath, "estimates", "",
		"Explicit estimates file for the sidecar backend")
	flags.StringVar(&estimatorCmd, "estimator-cmd", "",
		"External estimator command; audio path, fps and beats per bar are appended")
	flags.DurationVar(&estimatorTimeout, "estimator-timeout", 0,
		"Timeout for one estimator command run (0 = none)")
	flags.Float64Var(&fps, "fps", defaults.FPS,
		"Frames per second of the activation curve")
	flags.IntVar(&beatsPerBar, "beats-per-bar", defaults.BeatsPerBar,
		"Beats per bar passed to the beat tracker")

	// Fusion
	flags.Float64Var(&tolerance, "tolerance", defaults.Tolerance,
		"Seconds under which events of different kinds are merged")
	flags.StringVar(&thresholdMode, "threshold-mode", defaults.ThresholdMode,
		"Onset cutoff mode (relative, percentile)")
	flags.Float64Var(&thresholdFactor, "threshold-factor", defaults.ThresholdFactor,
		"Fraction of the maximum strength used in relative mode")
	flags.Float64Var(&percentile, "percentile", defaults.Percentile,
		"Percentile (0-100) used in percentile mode")
	flags.IntVar(&budget, "budget", fusion.AutoBudget,
		"Number of salient events (-1 = number of downbeats)")

	// Peak picking
	flags.Float64Var(&preAvg, "pre-avg", defaults.Window.PreAvg, "Peak picker averaging window before a frame (s)")
	flags.Float64Var(&postAvg, "post-avg", defaults.Window.PostAvg, "Peak picker averaging window after a frame (s)")
	flags.Float64Var(&preMax, "pre-max", defaults.Window.PreMax, "Peak picker maximum window before a frame (s)")
	flags.Float64Var(&postMax, "post-max", defaults.Window.PostMax, "Peak picker maximum window after a frame (s)")
	flags.Float64Var(&combine, "combine", defaults.Window.Combine, "Merge onsets closer than this (s)")

	// Output configuration
	flags.StringVarP(&outputFormat, "format", "f", defaults.OutputFormat,
		"Output format (json, rich, csv, table, summary)")

	// System and debugging
	flags.BoolVar(&debug, "debug", false,
		"Enable debug mode")
	flags.BoolVarP(&reset, "reset", "r", false,
		"Clear cache before analysis")
	flags.BoolVar(&noCache, "no-cache", false,
		"Do not read or write cached results")
}

// setup initialises logging and builds the analyzer configuration from the
// flags and the optional preset.
func setup(cmd *cobra.Command) (*analyzer.Config, error) {
	// Determine log level based on debug flag
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}

	logFile := util.ExpandPath(defaultLogFile)
	if err := util.EnsureDir(filepath.Dir(logFile)); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := util.InitLogger(util.LoggerOptions{Level: logLevel, File: logFile, Console: debug}); err != nil {
		return nil, err
	}

	config := &analyzer.Config{
		EstimatorKind:    estimatorKind,
		EstimatesPath:    estimatesPath,
		EstimatorCmd:     estimatorCmd,
		EstimatorTimeout: estimatorTimeout,
		FPS:              fps,
		BeatsPerBar:      beatsPerBar,
		Tolerance:        tolerance,
		ThresholdMode:    thresholdMode,
		ThresholdFactor:  thresholdFactor,
		Percentile:       percentile,
		Budget:           budget,
		OutputFormat:     outputFormat,
		CacheDir:         util.ExpandPath(defaultCacheDir),
		UseCache:         !noCache,
		Concurrency:      runtime.NumCPU(),
	}
	config.Window.PreAvg = preAvg
	config.Window.PostAvg = postAvg
	config.Window.PreMax = preMax
	config.Window.PostMax = postMax
	config.Window.Combine = combine
	if config.EstimatesPath != "" {
		config.EstimatesPath = util.ExpandPath(config.EstimatesPath)
	}

	if configPath != "" {
		preset, err := analyzer.LoadPreset(util.ExpandPath(configPath))
		if err != nil {
			return nil, err
		}
		preset.Apply(config, func(name string) bool {
			f := cmd.Flags().Lookup(name)
			return f != nil && f.Changed
		})
		util.LogDebugf("Applied preset %s", configPath)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// newAnalyzer builds the analyzer and honours --reset.
func newAnalyzer(config *analyzer.Config) (*analyzer.Analyzer, error) {
	a, err := analyzer.New(config)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := a.ResetCache(); err != nil {
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
		util.LogInfo("Cache cleared")
	}
	return a, nil
}

func runFuse(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	config, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := newAnalyzer(config)
	if err != nil {
		return err
	}

	input := util.ExpandPath(args[0])
	output := ""
	if len(args) > 1 {
		output = util.ExpandPath(args[1])
	}
	return a.Run(cmd.Context(), input, output, cmd.OutOrStdout())
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		util.LogError(err.Error())
	}
	return err
}
