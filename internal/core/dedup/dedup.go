// Package dedup merges event streams of different kinds so that each
// physical attack is represented exactly once.
package dedup

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
)

// epsilon absorbs floating point noise so that two events exactly one
// tolerance apart (1.52 vs 1.50 at 0.02) count as the same attack.
const epsilon = 1e-9

// Merge deduplicates events across kinds. Events are considered in
// precedence order (downbeat, beat, onset) and, within a kind, in input
// order. An event is discarded when an already accepted event lies within
// tolerance seconds of it. The result is sorted chronologically.
func Merge(events []model.TimedEvent, tolerance float64) (model.Timeline, error) {
	if math.IsNaN(tolerance) || tolerance <= 0 {
		return nil, fmt.Errorf("%w: tolerance %g must be > 0", model.ErrInvalidParameter, tolerance)
	}

	ordered := make([]model.TimedEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind.Precedence() < ordered[j].Kind.Precedence()
	})

	idx := newTimeIndex(len(ordered))
	merged := make(model.Timeline, 0, len(ordered))
	for _, e := range ordered {
		if idx.near(e.Time, tolerance+epsilon) {
			continue
		}
		idx.insert(e.Time)
		merged = append(merged, e)
	}

	model.SortChronological(merged)
	return merged, nil
}

// MergeStreams is a convenience wrapper taking one slice per kind.
func MergeStreams(tolerance float64, streams ...[]model.TimedEvent) (model.Timeline, error) {
	var all []model.TimedEvent
	for _, s := range streams {
		all = append(all, s...)
	}
	return Merge(all, tolerance)
}

// timeIndex keeps accepted times sorted so that proximity checks are a
// binary search instead of a scan over every accepted event.
type timeIndex struct {
	times []float64
}

func newTimeIndex(capacity int) *timeIndex {
	return &timeIndex{times: make([]float64, 0, capacity)}
}

func (x *timeIndex) near(t, window float64) bool {
	i := sort.SearchFloat64s(x.times, t)
	if i < len(x.times) && x.times[i]-t <= window {
		return true
	}
	if i > 0 && t-x.times[i-1] <= window {
		return true
	}
	return false
}

func (x *timeIndex) insert(t float64) {
	i := sort.SearchFloat64s(x.times, t)
	x.times = slices.Insert(x.times, i, t)
}
