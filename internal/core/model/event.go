package model

import "fmt"

// Kind identifies which estimator stream produced an event.
type Kind int

// Kinds are declared in precedence order: a lower value wins a deduplication conflict.
const (
	KindDownbeat Kind = iota
	KindBeat
	KindOnset
)

func (k Kind) String() string {
	switch k {
	case KindDownbeat:
		return "downbeat"
	case KindBeat:
		return "beat"
	case KindOnset:
		return "onset"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a kind label back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "downbeat":
		return KindDownbeat, nil
	case "beat":
		return KindBeat, nil
	case "onset":
		return KindOnset, nil
	}
	return 0, fmt.Errorf("%w: unknown event kind %q", ErrInvalidParameter, s)
}

// MarshalText encodes a kind as its label.
func (k Kind) MarshalText() ([]byte, error) {
	if k < KindDownbeat || k > KindOnset {
		return nil, fmt.Errorf("%w: unknown event kind %d", ErrInvalidParameter, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind label.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Precedence returns the rank used by the deduplicator. Lower ranks dominate.
func (k Kind) Precedence() int {
	return int(k)
}

// IsBeat reports whether the kind sits on the beat grid (downbeats are beats too).
func (k Kind) IsBeat() bool {
	return k == KindDownbeat || k == KindBeat
}

// BeatRecord is one (time, positionLabel) pair returned by a beat/downbeat tracker.
// Position 1 marks a downbeat.
type BeatRecord struct {
	Time     float64
	Position float64
}

// IsDownbeat reports whether the tracker labelled this beat as the first of a bar.
func (r BeatRecord) IsDownbeat() bool {
	return int(r.Position) == 1
}

// TimedEvent is the atomic unit of the fused timeline.
type TimedEvent struct {
	Time     float64
	Strength float64
	Kind     Kind

	// Position is the raw position label reported by the beat tracker.
	// Onsets carry 0 until the measure indexer resolves them.
	Position float64

	Measure       int
	BeatInMeasure int
	Salient       bool

	// Seq is the index of the event in its source stream, used to keep
	// orderings deterministic when times or strengths tie.
	Seq int
}

func (e TimedEvent) String() string {
	return fmt.Sprintf("%s@%.3fs(strength=%.3f measure=%d beat=%d salient=%t)",
		e.Kind, e.Time, e.Strength, e.Measure, e.BeatInMeasure, e.Salient)
}
