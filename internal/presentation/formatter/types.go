package formatter

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/penwyp/go-rhythm-fusion/internal/core/fusion"
	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
)

// Document is everything one analysis run hands to a formatter.
type Document struct {
	Source     string
	SampleRate int
	FrameRate  float64
	Timeline   model.Timeline
	Stats      fusion.Stats
}

// Record is the exported structure. The basic form carries only the beat
// grid; the rich form carries every fused event with strength, kind and
// salience.
type Record struct {
	SampleRate int     `json:"sampleRate"`
	FrameRate  float64 `json:"frameRate,omitempty"`
	Tempo      float64 `json:"tempo,omitempty"`
	Beats      []Entry `json:"beats"`
}

// Entry is one exported event.
type Entry struct {
	Time          float64  `json:"time"`
	Measure       int      `json:"measure"`
	BeatInMeasure int      `json:"beatInMeasure"`
	Strength      *float64 `json:"strength,omitempty"`
	Kind          string   `json:"kind,omitempty"`
	Salient       *bool    `json:"salient,omitempty"`
}

// NewRecord converts a document without recomputing anything.
func NewRecord(doc *Document, rich bool) *Record {
	rec := &Record{
		SampleRate: doc.SampleRate,
		Beats:      make([]Entry, 0, len(doc.Timeline)),
	}
	if rich {
		rec.FrameRate = doc.FrameRate
		rec.Tempo = RoundTo(doc.Timeline.Tempo(), 2)
	}

	for _, e := range doc.Timeline {
		if !rich && !e.Kind.IsBeat() {
			continue
		}
		entry := Entry{
			Time:          RoundTo(e.Time, 2),
			Measure:       e.Measure,
			BeatInMeasure: e.BeatInMeasure,
		}
		if rich {
			strength := RoundTo(e.Strength, 4)
			salient := e.Salient
			entry.Strength = &strength
			entry.Kind = e.Kind.String()
			entry.Salient = &salient
		}
		rec.Beats = append(rec.Beats, entry)
	}
	return rec
}

// RoundTo rounds v to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Formatter renders a document.
type Formatter interface {
	Format(w io.Writer, doc *Document) error
}

// Formats lists the accepted --format values.
var Formats = []string{"json", "rich", "csv", "table", "summary"}

// New returns the formatter registered under name.
func New(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return NewJSONFormatter(false), nil
	case "rich":
		return NewJSONFormatter(true), nil
	case "csv":
		return NewCSVFormatter(), nil
	case "table":
		return NewTableFormatter(), nil
	case "summary":
		return NewSummaryFormatter(), nil
	}
	return nil, fmt.Errorf("%w: unknown output format %q (want one of %s)",
		model.ErrInvalidParameter, name, strings.Join(Formats, ", "))
}

// Extension returns the file extension matching a format.
func Extension(name string) string {
	switch strings.ToLower(name) {
	case "csv":
		return ".csv"
	case "table", "summary":
		return ".txt"
	default:
		return ".json"
	}
}
