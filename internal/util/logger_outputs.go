package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

// writerOutput renders entries onto any io.Writer
type writerOutput struct {
	w      io.Writer
	closer io.Closer
	format LogFormat
	mu     sync.Mutex
}

// NewConsoleOutput writes entries to w without owning it
func NewConsoleOutput(w io.Writer, format LogFormat) Output {
	return &writerOutput{w: w, format: format}
}

// NewFileOutput appends entries to the file at path
func NewFileOutput(path string, format LogFormat) (Output, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &writerOutput{w: file, closer: file, format: format}, nil
}

func (o *writerOutput) Write(entry LogEntry) error {
	line, err := renderEntry(entry, o.format)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_, err = fmt.Fprintln(o.w, line)
	return err
}

func (o *writerOutput) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

func renderEntry(entry LogEntry, format LogFormat) (string, error) {
	if format == FormatJSON {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var b strings.Builder
	b.WriteString(entry.Timestamp.Format("2006/01/02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(entry.Level)
	b.WriteString("] ")
	b.WriteString(entry.Message)
	for _, k := range sortedFieldKeys(entry.Fields) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}
	return b.String(), nil
}
