// Package normalize turns raw estimator output into TimedEvent streams.
package normalize

import (
	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
)

// Beats splits tracker records into downbeat and beat events. Strength is
// looked up from the onset activation curve; a nil curve yields 0.
func Beats(records []model.BeatRecord, curve *model.StrengthCurve) (downbeats, beats []model.TimedEvent) {
	for i, r := range records {
		e := model.TimedEvent{
			Time:     r.Time,
			Strength: curve.At(r.Time),
			Kind:     model.KindBeat,
			Position: r.Position,
			Seq:      i,
		}
		if r.IsDownbeat() {
			e.Kind = model.KindDownbeat
			downbeats = append(downbeats, e)
			continue
		}
		beats = append(beats, e)
	}
	return downbeats, beats
}

// Onsets converts peak-picked onset times into events, dropping any onset
// whose strength is below cutoff. Without a curve every onset has strength 0
// and no filtering is applied.
func Onsets(times []float64, curve *model.StrengthCurve, cutoff float64) []model.TimedEvent {
	filter := curve.Len() > 0
	events := make([]model.TimedEvent, 0, len(times))
	for i, t := range times {
		strength := curve.At(t)
		if filter && strength < cutoff {
			continue
		}
		events = append(events, model.TimedEvent{
			Time:     t,
			Strength: strength,
			Kind:     model.KindOnset,
			Seq:      i,
		})
	}
	return events
}
