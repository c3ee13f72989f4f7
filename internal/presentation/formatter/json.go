package formatter

import (
	"io"

	"github.com/bytedance/sonic"
)

type JSONFormatter struct {
	rich bool
}

func NewJSONFormatter(rich bool) *JSONFormatter {
	return &JSONFormatter{rich: rich}
}

func (f *JSONFormatter) Format(w io.Writer, doc *Document) error {
	data, err := sonic.ConfigStd.MarshalIndent(NewRecord(doc, f.rich), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// DecodeRecord parses a record written by JSONFormatter.
func DecodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
