package formatter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
)

// TableFormatter prints one row per event in chronological order.
type TableFormatter struct {
	headers []string
	// color forces colouring on or off; nil means auto-detect.
	color *bool
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		headers: []string{"Time (s)", "Bar", "Beat", "Strength", "Strong", "Kind"},
	}
}

// WithColor overrides terminal detection.
func (f *TableFormatter) WithColor(enabled bool) *TableFormatter {
	f.color = &enabled
	return f
}

func (f *TableFormatter) Format(w io.Writer, doc *Document) error {
	rows := make([][]string, 0, len(doc.Timeline))
	for _, e := range doc.Timeline {
		strong := "0"
		if e.Salient {
			strong = "1"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%05.1f", e.Time),
			fmt.Sprintf("%03d", e.Measure),
			fmt.Sprintf("%d", e.BeatInMeasure),
			fmt.Sprintf("%.2f", e.Strength),
			strong,
			e.Kind.String(),
		})
	}

	widths := f.columnWidths(rows)
	colored := f.useColor(w)

	if doc.Source != "" {
		if _, err := fmt.Fprintf(w, "%s\n", doc.Source); err != nil {
			return err
		}
	}
	if err := f.printBorder(w, widths); err != nil {
		return err
	}
	if err := f.printRow(w, f.headers, widths, ""); err != nil {
		return err
	}
	if err := f.printBorder(w, widths); err != nil {
		return err
	}
	for i, row := range rows {
		style := ""
		if colored && doc.Timeline[i].Salient {
			style = colorBold + colorCyan
		}
		if err := f.printRow(w, row, widths, style); err != nil {
			return err
		}
	}
	return f.printBorder(w, widths)
}

func (f *TableFormatter) columnWidths(rows [][]string) []int {
	widths := make([]int, len(f.headers))
	for i, h := range f.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	return widths
}

func (f *TableFormatter) useColor(w io.Writer) bool {
	if f.color != nil {
		return *f.color
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func (f *TableFormatter) printBorder(w io.Writer, widths []int) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width+2)
	}
	_, err := fmt.Fprintf(w, "+%s+\n", strings.Join(parts, "+"))
	return err
}

func (f *TableFormatter) printRow(w io.Writer, cells []string, widths []int, style string) error {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		padded := runewidth.FillRight(cell, widths[i])
		if style != "" {
			padded = style + padded + colorReset
		}
		parts[i] = " " + padded + " "
	}
	_, err := fmt.Fprintf(w, "|%s|\n", strings.Join(parts, "|"))
	return err
}
