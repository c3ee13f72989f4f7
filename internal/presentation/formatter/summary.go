package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
	"github.com/penwyp/go-rhythm-fusion/internal/core/salience"
)

// SummaryFormatter prints stage counts and the salient breakdown.
type SummaryFormatter struct{}

func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{}
}

func (f *SummaryFormatter) Format(w io.Writer, doc *Document) error {
	tl := doc.Timeline
	downbeats := tl.Count(model.KindDownbeat)
	beats := tl.Count(model.KindBeat)
	onsets := tl.Count(model.KindOnset)
	salient := tl.SalientCount()

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("Rhythm Fusion Summary\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if doc.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", doc.Source)
	}
	if doc.SampleRate > 0 {
		fmt.Fprintf(&b, "Sample Rate: %d Hz\n", doc.SampleRate)
	}
	if tempo := tl.Tempo(); tempo > 0 {
		fmt.Fprintf(&b, "Tempo: %.2f BPM\n", tempo)
	}
	if len(tl) > 0 {
		fmt.Fprintf(&b, "Measures: %d\n", tl[len(tl)-1].Measure)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Downbeats: %d\n", downbeats)
	fmt.Fprintf(&b, "Beats (incl. downbeats): %d\n", downbeats+beats)
	fmt.Fprintf(&b, "Onsets (not on a beat): %d\n", onsets)
	if doc.Stats.OnsetsPicked > 0 {
		fmt.Fprintf(&b, "Onsets picked / above cutoff: %d / %d (cutoff %.4f)\n",
			doc.Stats.OnsetsPicked, doc.Stats.OnsetsStrong, doc.Stats.Cutoff)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Salient events: %d (budget %d)\n", salient, doc.Stats.Budget)
	fmt.Fprintf(&b, "  - downbeats: %d\n", tl.SalientCount(model.KindDownbeat))
	fmt.Fprintf(&b, "  - beats: %d\n", tl.SalientCount(model.KindBeat))
	fmt.Fprintf(&b, "  - onsets: %d\n", tl.SalientCount(model.KindOnset))
	if picked := salience.Select(tl); len(picked) > 0 {
		times := make([]string, len(picked))
		for i, e := range picked {
			times[i] = fmt.Sprintf("%.2fs %s", e.Time, e.Kind)
		}
		fmt.Fprintf(&b, "Salient at: %s\n", strings.Join(times, ", "))
	}
	b.WriteString(strings.Repeat("=", 60) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
