// Package estimator defines the contracts of the external rhythm estimators
// and ships backends that satisfy them.
package estimator

import (
	"context"
	"fmt"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
)

// BeatConfig configures a beat/downbeat tracker.
type BeatConfig struct {
	FramesPerSecond float64
	BeatsPerBar     int
}

// PeakWindow holds the local windows of the peak picker, in seconds.
type PeakWindow struct {
	PreAvg  float64
	PostAvg float64
	PreMax  float64
	PostMax float64
	// Combine merges peaks closer than this, keeping the first.
	Combine float64
}

// DefaultPeakWindow matches the windows used by the reference analysis.
func DefaultPeakWindow() PeakWindow {
	return PeakWindow{PreAvg: 0.01, PostAvg: 0.01, PreMax: 0.01, PostMax: 0.01, Combine: 0.03}
}

// BeatTracker returns ordered (time, position) records; position 1 is a downbeat.
type BeatTracker interface {
	TrackBeats(ctx context.Context, audioPath string, cfg BeatConfig) ([]model.BeatRecord, error)
}

// OnsetActivator returns a dense per-frame onset activation curve.
type OnsetActivator interface {
	Activate(ctx context.Context, audioPath string, fps float64) (*model.StrengthCurve, error)
}

// PeakPicker turns an activation curve into discrete onset times.
type PeakPicker interface {
	Pick(curve *model.StrengthCurve, threshold float64, win PeakWindow) ([]float64, error)
}

// SampleRater reports the sample rate of the analysed audio, when known.
type SampleRater interface {
	SampleRate(ctx context.Context, audioPath string) (int, error)
}

// Backend bundles the capabilities one inference backend provides.
type Backend interface {
	BeatTracker
	OnsetActivator
	SampleRater
	// Release drops anything memoised for audioPath.
	Release(audioPath string)
}

func estimatorError(op, audioPath string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", model.ErrEstimator, op, audioPath, err)
}
