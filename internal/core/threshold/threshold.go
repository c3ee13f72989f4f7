package threshold

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
	"gonum.org/v1/gonum/floats"
)

// Mode selects how a cutoff is derived from a strength distribution.
type Mode string

const (
	ModeRelative   Mode = "relative"
	ModePercentile Mode = "percentile"
)

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeRelative, "relative-max", "rel":
		return ModeRelative, nil
	case ModePercentile, "pct":
		return ModePercentile, nil
	}
	return "", fmt.Errorf("%w: unknown threshold mode %q", model.ErrInvalidParameter, s)
}

// Selector describes one threshold selection. Value is the percentile
// (0-100) in percentile mode or the factor applied to the maximum in
// relative mode.
type Selector struct {
	Mode  Mode
	Value float64
}

// Select derives the cutoff for strengths.
func (s Selector) Select(strengths []float64) (float64, error) {
	switch s.Mode {
	case ModePercentile:
		return Percentile(strengths, s.Value)
	case ModeRelative:
		return RelativeMax(strengths, s.Value)
	}
	return 0, fmt.Errorf("%w: unknown threshold mode %q", model.ErrInvalidParameter, s.Mode)
}

func (s Selector) String() string {
	return fmt.Sprintf("%s(%g)", s.Mode, s.Value)
}

// Percentile returns the p-th percentile of strengths, interpolating
// linearly between the two nearest order statistics.
func Percentile(strengths []float64, p float64) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, fmt.Errorf("%w: percentile %g outside [0, 100]", model.ErrInvalidParameter, p)
	}
	if len(strengths) == 0 {
		return 0, emptyDistribution()
	}

	sorted := make([]float64, len(strengths))
	copy(sorted, strengths)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], nil
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo)), nil
}

// RelativeMax returns factor * max(strengths).
func RelativeMax(strengths []float64, factor float64) (float64, error) {
	if math.IsNaN(factor) || factor <= 0 {
		return 0, fmt.Errorf("%w: relative factor %g must be > 0", model.ErrInvalidParameter, factor)
	}
	if len(strengths) == 0 {
		return 0, emptyDistribution()
	}
	return factor * floats.Max(strengths), nil
}

func emptyDistribution() error {
	return fmt.Errorf("%w: %w: strength distribution has no values", model.ErrEmptyInput, model.ErrInvalidParameter)
}
