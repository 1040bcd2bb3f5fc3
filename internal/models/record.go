package models

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// NotFound is the value a field carries when nothing was located for it.
const NotFound = "Not Found"

// FieldCount is the fixed number of columns in a record.
const FieldCount = 8

// MultiValueSeparator joins the values of a multi-value field.
const MultiValueSeparator = ";"

// Columns is the canonical header row, in record order.
var Columns = []string{
	"Title",
	"Variables",
	"Theories",
	"Hypotheses",
	"Methodology",
	"Dataset(s)",
	"Results",
	"Limitation",
}

var ErrFieldCount = errors.New("record must have exactly 8 fields")

// Record is the structured summary of one research paper, either for a single
// page or aggregated over a whole document.
type Record struct {
	Title       string `json:"title"`
	Variables   string `json:"variables"`
	Theories    string `json:"theories"`
	Hypotheses  string `json:"hypotheses"`
	Methodology string `json:"methodology"`
	Datasets    string `json:"datasets"`
	Results     string `json:"results"`
	Limitation  string `json:"limitation"`
}

// EmptyRecord returns a record with every field set to NotFound.
func EmptyRecord() Record {
	return Record{
		Title:       NotFound,
		Variables:   NotFound,
		Theories:    NotFound,
		Hypotheses:  NotFound,
		Methodology: NotFound,
		Datasets:    NotFound,
		Results:     NotFound,
		Limitation:  NotFound,
	}
}

// Fields returns the values in column order.
func (r Record) Fields() []string {
	return []string{
		r.Title,
		r.Variables,
		r.Theories,
		r.Hypotheses,
		r.Methodology,
		r.Datasets,
		r.Results,
		r.Limitation,
	}
}

// RecordFromFields builds a record from exactly FieldCount values in column order.
func RecordFromFields(fields []string) (Record, error) {
	if len(fields) != FieldCount {
		return Record{}, fmt.Errorf("%w: got %d", ErrFieldCount, len(fields))
	}
	return Record{
		Title:       fields[0],
		Variables:   fields[1],
		Theories:    fields[2],
		Hypotheses:  fields[3],
		Methodology: fields[4],
		Datasets:    fields[5],
		Results:     fields[6],
		Limitation:  fields[7],
	}, nil
}

// IsSentinel reports whether v carries no information.
func IsSentinel(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == NotFound
}

// HasTitle reports whether the record carries a usable title.
func (r Record) HasTitle() bool {
	return !IsSentinel(r.Title)
}

// MarshalTSV renders the record as a single tab-separated line without a
// trailing newline. Fields that need it are quoted per standard TSV rules.
func (r Record) MarshalTSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	if err := w.Write(r.Fields()); err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return strings.TrimRight(buf.String(), "\r\n"), nil
}

// ParseTSV splits one tab-separated line into its fields, honouring quoted
// fields that contain tabs.
func ParseTSV(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to parse tsv line: %w", err)
	}
	return fields, nil
}

// UnmarshalTSV parses a line written by MarshalTSV.
func UnmarshalTSV(line string) (Record, error) {
	fields, err := ParseTSV(line)
	if err != nil {
		return Record{}, err
	}
	return RecordFromFields(fields)
}

// HeaderTSV is the canonical header line.
func HeaderTSV() string {
	return strings.Join(Columns, "\t")
}
