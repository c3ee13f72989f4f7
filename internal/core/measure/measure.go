// Package measure assigns bar numbers and beat positions to a chronological timeline.
package measure

import (
	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
)

// Indexer is a single-pass state machine. Measure 0 means no downbeat has
// been seen yet.
type Indexer struct {
	current int

	// position of the most recent downbeat or beat; onsets inherit it
	lastPosition float64
}

// NewIndexer returns an indexer positioned before the first bar.
func NewIndexer() *Indexer {
	return &Indexer{}
}

// Visit annotates e and advances the state.
func (x *Indexer) Visit(e *model.TimedEvent) {
	switch e.Kind {
	case model.KindDownbeat:
		x.current++
		x.lastPosition = 1
		e.Measure = x.current
		e.BeatInMeasure = 1
		return
	case model.KindBeat:
		x.lastPosition = e.Position
	}

	position := e.Position
	if e.Kind == model.KindOnset && position <= 0 {
		position = x.lastPosition
	}

	e.Measure = x.current
	// Before bar 1 the tracker's label is used as is; it may not line up
	// with the bar that eventually starts.
	e.BeatInMeasure = int(position)
}

// Index annotates a copy of the timeline in one forward pass. The copy is
// put in chronological order first if needed. An empty timeline yields an
// empty timeline.
func Index(t model.Timeline) model.Timeline {
	out := make(model.Timeline, len(t))
	copy(out, t)
	if !out.IsChronological() {
		model.SortChronological(out)
	}

	x := NewIndexer()
	for i := range out {
		x.Visit(&out[i])
	}
	return out
}
