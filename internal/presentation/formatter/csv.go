package formatter

import (
	"encoding/csv"
	"io"
	"strconv"
)

type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

func (f *CSVFormatter) Format(w io.Writer, doc *Document) error {
	cw := csv.NewWriter(w)

	headers := []string{"Time", "Measure", "Beat", "Strength", "Kind", "Salient"}
	if err := cw.Write(headers); err != nil {
		return err
	}

	for _, e := range doc.Timeline {
		record := []string{
			strconv.FormatFloat(RoundTo(e.Time, 2), 'f', 2, 64),
			strconv.Itoa(e.Measure),
			strconv.Itoa(e.BeatInMeasure),
			strconv.FormatFloat(e.Strength, 'f', 4, 64),
			e.Kind.String(),
			strconv.FormatBool(e.Salient),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
