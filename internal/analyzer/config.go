package analyzer

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/penwyp/go-rhythm-fusion/internal/core/fusion"
	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
	"github.com/penwyp/go-rhythm-fusion/internal/core/threshold"
	"github.com/penwyp/go-rhythm-fusion/internal/estimator"
	"github.com/penwyp/go-rhythm-fusion/internal/presentation/formatter"
	"gopkg.in/yaml.v3"
)

const (
	EstimatorSidecar = "sidecar"
	EstimatorCommand = "command"
)

type Config struct {
	// Estimator backend
	EstimatorKind    string
	EstimatesPath    string
	EstimatorCmd     string
	EstimatorTimeout time.Duration
	FPS              float64
	BeatsPerBar      int

	// Fusion parameters
	Tolerance       float64
	ThresholdMode   string
	ThresholdFactor float64
	Percentile      float64
	Budget          int
	Window          estimator.PeakWindow

	// Output and drivers
	OutputFormat string
	OutDir       string
	CacheDir     string
	UseCache     bool
	Concurrency  int
	Debounce     time.Duration
	Progress     io.Writer
}

// DefaultConfig returns the settings of the reference analysis.
func DefaultConfig() *Config {
	p := fusion.DefaultParams()
	return &Config{
		EstimatorKind:   EstimatorSidecar,
		FPS:             100,
		BeatsPerBar:     4,
		Tolerance:       p.Tolerance,
		ThresholdMode:   string(p.Threshold.Mode),
		ThresholdFactor: p.Threshold.Value,
		Percentile:      75,
		Budget:          p.Budget,
		Window:          estimator.DefaultPeakWindow(),
		OutputFormat:    "json",
		CacheDir:        "~/.go-rhythm-fusion/cache",
		Concurrency:     runtime.NumCPU(),
		Debounce:        300 * time.Millisecond,
	}
}

// FusionParams builds and validates the fusion parameters.
func (c *Config) FusionParams() (fusion.Params, error) {
	mode, err := threshold.ParseMode(c.ThresholdMode)
	if err != nil {
		return fusion.Params{}, err
	}
	value := c.ThresholdFactor
	if mode == threshold.ModePercentile {
		value = c.Percentile
	}

	p := fusion.Params{
		Tolerance: c.Tolerance,
		Threshold: threshold.Selector{Mode: mode, Value: value},
		Budget:    c.Budget,
	}
	return p, p.Validate()
}

// Validate checks everything that does not need an input file.
func (c *Config) Validate() error {
	if _, err := c.FusionParams(); err != nil {
		return err
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps %g must be > 0", model.ErrInvalidParameter, c.FPS)
	}
	if c.BeatsPerBar < 1 {
		return fmt.Errorf("%w: beats per bar %d must be >= 1", model.ErrInvalidParameter, c.BeatsPerBar)
	}
	w := c.Window
	if w.PreAvg < 0 || w.PostAvg < 0 || w.PreMax < 0 || w.PostMax < 0 || w.Combine < 0 {
		return fmt.Errorf("%w: peak picking windows must be >= 0", model.ErrInvalidParameter)
	}
	switch c.EstimatorKind {
	case EstimatorSidecar:
	case EstimatorCommand:
		if strings.TrimSpace(c.EstimatorCmd) == "" {
			return fmt.Errorf("%w: --estimator-cmd is required with the command estimator", model.ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("%w: unknown estimator %q", model.ErrInvalidParameter, c.EstimatorKind)
	}
	if _, err := formatter.New(c.OutputFormat); err != nil {
		return err
	}
	return nil
}

// ParamsKey identifies every setting that changes a fused result.
func (c *Config) ParamsKey() string {
	w := c.Window
	return fmt.Sprintf("est=%s|cmd=%s|fps=%g|bpb=%d|tol=%g|thr=%s:%g:%g|budget=%d|win=%g,%g,%g,%g,%g",
		c.EstimatorKind, c.EstimatorCmd, c.FPS, c.BeatsPerBar, c.Tolerance,
		c.ThresholdMode, c.ThresholdFactor, c.Percentile, c.Budget,
		w.PreAvg, w.PostAvg, w.PreMax, w.PostMax, w.Combine)
}

// Preset is a YAML file of analysis settings. Absent keys keep the
// current value.
type Preset struct {
	Estimator        *string        `yaml:"estimator"`
	EstimatorCmd     *string        `yaml:"estimator_cmd"`
	EstimatorTimeout *time.Duration `yaml:"estimator_timeout"`
	FPS              *float64       `yaml:"fps"`
	BeatsPerBar      *int           `yaml:"beats_per_bar"`
	Tolerance        *float64       `yaml:"tolerance"`
	ThresholdMode    *string        `yaml:"threshold_mode"`
	ThresholdFactor  *float64       `yaml:"threshold_factor"`
	Percentile       *float64       `yaml:"percentile"`
	Budget           *int           `yaml:"budget"`
	PreAvg           *float64       `yaml:"pre_avg"`
	PostAvg          *float64       `yaml:"post_avg"`
	PreMax           *float64       `yaml:"pre_max"`
	PostMax          *float64       `yaml:"post_max"`
	Combine          *float64       `yaml:"combine"`
	Format           *string        `yaml:"format"`
}

// LoadPreset reads a preset file. Unknown keys are rejected.
func LoadPreset(path string) (*Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset: %w", err)
	}
	defer f.Close()

	var p Preset
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse preset %s: %w", path, err)
	}
	return &p, nil
}

// Apply copies the preset into cfg. explicit reports whether a flag was set
// on the command line; such flags win over the preset.
func (p *Preset) Apply(cfg *Config, explicit func(flag string) bool) {
	if explicit == nil {
		explicit = func(string) bool { return false }
	}
	setString(p.Estimator, &cfg.EstimatorKind, explicit("estimator"))
	setString(p.EstimatorCmd, &cfg.EstimatorCmd, explicit("estimator-cmd"))
	if p.EstimatorTimeout != nil && !explicit("estimator-timeout") {
		cfg.EstimatorTimeout = *p.EstimatorTimeout
	}
	setFloat(p.FPS, &cfg.FPS, explicit("fps"))
	if p.BeatsPerBar != nil && !explicit("beats-per-bar") {
		cfg.BeatsPerBar = *p.BeatsPerBar
	}
	setFloat(p.Tolerance, &cfg.Tolerance, explicit("tolerance"))
	setString(p.ThresholdMode, &cfg.ThresholdMode, explicit("threshold-mode"))
	setFloat(p.ThresholdFactor, &cfg.ThresholdFactor, explicit("threshold-factor"))
	setFloat(p.Percentile, &cfg.Percentile, explicit("percentile"))
	if p.Budget != nil && !explicit("budget") {
		cfg.Budget = *p.Budget
	}
	setFloat(p.PreAvg, &cfg.Window.PreAvg, explicit("pre-avg"))
	setFloat(p.PostAvg, &cfg.Window.PostAvg, explicit("post-avg"))
	setFloat(p.PreMax, &cfg.Window.PreMax, explicit("pre-max"))
	setFloat(p.PostMax, &cfg.Window.PostMax, explicit("post-max"))
	setFloat(p.Combine, &cfg.Window.Combine, explicit("combine"))
	setString(p.Format, &cfg.OutputFormat, explicit("format"))
}

func setString(v *string, dst *string, explicit bool) {
	if v != nil && !explicit {
		*dst = *v
	}
}

func setFloat(v *float64, dst *float64, explicit bool) {
	if v != nil && !explicit {
		*dst = *v
	}
}
