package converters

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/feichai0017/paper-extractor/internal/models"
)

var rowSanitizer = strings.NewReplacer(
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
	"\t", " ",
	`"`, "",
)

// TSVWriter appends one record line per document under the canonical
// header. Every line is flushed as soon as it is written, so an interrupted
// run leaves only complete lines behind.
type TSVWriter struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

// NewTSVWriter writes the header to w immediately.
func NewTSVWriter(w io.Writer) (*TSVWriter, error) {
	t := &TSVWriter{w: bufio.NewWriter(w)}
	if err := t.writeLine(models.HeaderTSV()); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTSVFile truncates path and writes the header.
func CreateTSVFile(path string) (*TSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create tsv file: %w", err)
	}
	t, err := NewTSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.closer = f
	return t, nil
}

// AppendTSVFile opens path for appending, writing the header only when the
// file is new or empty.
func AppendTSVFile(path string) (*TSVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open tsv file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat tsv file: %w", err)
	}

	t := &TSVWriter{w: bufio.NewWriter(f), closer: f}
	if info.Size() == 0 {
		if err := t.writeLine(models.HeaderTSV()); err != nil {
			f.Close()
			return nil, err
		}
	}
	return t, nil
}

// FormatRow renders rec as a single unquoted line. Line breaks, tabs and
// double quotes inside fields are removed so the row always has 8 columns.
func FormatRow(rec models.Record) string {
	fields := rec.Fields()
	for i, f := range fields {
		fields[i] = strings.TrimSpace(rowSanitizer.Replace(f))
	}
	return strings.Join(fields, "\t")
}

// Write appends rec. It is safe for concurrent use.
func (t *TSVWriter) Write(rec models.Record) error {
	return t.writeLine(FormatRow(rec))
}

func (t *TSVWriter) writeLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write tsv line: %w", err)
	}
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush tsv line: %w", err)
	}
	return nil
}

func (t *TSVWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.w.Flush(); err != nil {
		return err
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
