package model

import (
	"sort"
)

// Timeline is a chronologically ordered sequence of events.
type Timeline []TimedEvent

// SortChronological orders events by time. Equal times fall back to kind
// precedence and then to source order so the result is deterministic.
func SortChronological(events []TimedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Seq < b.Seq
	})
}

// IsChronological reports whether times are non-decreasing.
func (t Timeline) IsChronological() bool {
	for i := 1; i < len(t); i++ {
		if t[i].Time < t[i-1].Time {
			return false
		}
	}
	return true
}

// Count returns the number of events of the given kind.
func (t Timeline) Count(kind Kind) int {
	n := 0
	for _, e := range t {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// SalientCount returns the number of salient events, optionally restricted to kinds.
func (t Timeline) SalientCount(kinds ...Kind) int {
	n := 0
	for _, e := range t {
		if !e.Salient {
			continue
		}
		if len(kinds) == 0 {
			n++
			continue
		}
		for _, k := range kinds {
			if e.Kind == k {
				n++
				break
			}
		}
	}
	return n
}

// Tempo estimates beats per minute from the median inter-beat interval of
// the downbeat and beat events. It returns 0 with fewer than two beats.
func (t Timeline) Tempo() float64 {
	var times []float64
	for _, e := range t {
		if e.Kind.IsBeat() {
			times = append(times, e.Time)
		}
	}
	if len(times) < 2 {
		return 0
	}

	intervals := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		if d := times[i] - times[i-1]; d > 0 {
			intervals = append(intervals, d)
		}
	}
	if len(intervals) == 0 {
		return 0
	}
	sort.Float64s(intervals)

	mid := len(intervals) / 2
	median := intervals[mid]
	if len(intervals)%2 == 0 {
		median = (intervals[mid-1] + intervals[mid]) / 2
	}
	return 60 / median
}
