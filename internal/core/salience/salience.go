// Package salience marks the most prominent events of a timeline.
package salience

import (
	"fmt"
	"sort"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
)

// BudgetFromDownbeats is the default budget: one salient event per detected bar.
func BudgetFromDownbeats(t model.Timeline) int {
	return t.Count(model.KindDownbeat)
}

// Rank marks at most budget events as salient, choosing the strongest ones.
// Ties on strength go to the earlier event, then to source order. The
// returned timeline is a chronologically ordered copy; the input is not
// modified.
func Rank(events model.Timeline, budget int) (model.Timeline, error) {
	if budget < 0 {
		return nil, fmt.Errorf("%w: budget %d must be >= 0", model.ErrInvalidParameter, budget)
	}

	ranked := make(model.Timeline, len(events))
	copy(ranked, events)
	for i := range ranked {
		ranked[i].Salient = false
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Seq < b.Seq
	})

	if budget > len(ranked) {
		budget = len(ranked)
	}
	for i := 0; i < budget; i++ {
		ranked[i].Salient = true
	}

	model.SortChronological(ranked)
	return ranked, nil
}

// Select returns only the salient events of a ranked timeline, in order.
func Select(t model.Timeline) model.Timeline {
	out := make(model.Timeline, 0, t.SalientCount())
	for _, e := range t {
		if e.Salient {
			out = append(out, e)
		}
	}
	return out
}
