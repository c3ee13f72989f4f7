package estimator

import (
	"fmt"
	"math"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
	"gonum.org/v1/gonum/floats"
)

// LocalPeakPicker performs offline onset peak picking. A frame is a peak when
// it equals the maximum of its [pre_max, post_max] neighbourhood, is non-zero,
// and is at least the mean of its [pre_avg, post_avg] neighbourhood plus the
// threshold. Frames outside the curve count as zero.
type LocalPeakPicker struct{}

// NewLocalPeakPicker returns the built-in picker.
func NewLocalPeakPicker() *LocalPeakPicker {
	return &LocalPeakPicker{}
}

func (p *LocalPeakPicker) Pick(curve *model.StrengthCurve, threshold float64, win PeakWindow) ([]float64, error) {
	if curve.Len() == 0 {
		return nil, nil
	}
	if curve.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: frame rate %g must be > 0", model.ErrInvalidParameter, curve.FrameRate)
	}
	if win.PreAvg < 0 || win.PostAvg < 0 || win.PreMax < 0 || win.PostMax < 0 || win.Combine < 0 {
		return nil, fmt.Errorf("%w: peak windows must be >= 0", model.ErrInvalidParameter)
	}

	fps := curve.FrameRate
	frames := func(sec float64) int { return int(math.Round(sec * fps)) }
	preAvg, postAvg := frames(win.PreAvg), frames(win.PostAvg)
	preMax, postMax := frames(win.PreMax), frames(win.PostMax)

	act := curve.Values
	var onsets []float64
	for i, v := range act {
		if v <= 0 {
			continue
		}
		if v != windowMax(act, i-preMax, i+postMax) {
			continue
		}
		if v < windowMean(act, i-preAvg, i+postAvg)+threshold {
			continue
		}
		t := float64(i) / fps
		if n := len(onsets); n > 0 && t-onsets[n-1] <= win.Combine {
			continue
		}
		onsets = append(onsets, t)
	}
	return onsets, nil
}

// windowMax returns the maximum over [lo, hi], treating out-of-range frames as 0.
func windowMax(act []float64, lo, hi int) float64 {
	clo, chi := clamp(lo, hi, len(act))
	m := floats.Max(act[clo : chi+1])
	if (lo < 0 || hi >= len(act)) && m < 0 {
		return 0
	}
	return m
}

// windowMean averages over the full window size, out-of-range frames being 0.
func windowMean(act []float64, lo, hi int) float64 {
	clo, chi := clamp(lo, hi, len(act))
	return floats.Sum(act[clo:chi+1]) / float64(hi-lo+1)
}

func clamp(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}
