// Package logcsv reads uploaded log CSV files and writes them back with
// their labels.
package logcsv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"logclassifier/internal/classifier"
	"logclassifier/internal/config"
)

var (
	// ErrMissingColumns is returned when the header lacks source or log_message
	ErrMissingColumns = errors.New("CSV must contain 'source' and 'log_message' columns.")

	// ErrNoColumns is returned for an empty upload
	ErrNoColumns = errors.New("No columns to parse from file")
)

const bom = "\ufeff"

// ParseError wraps anything that went wrong while reading the file
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error processing file: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Table is a parsed upload. Rows always have len(Header) fields.
type Table struct {
	Header []string
	Rows   [][]string

	sourceIdx  int
	messageIdx int
}

// Parse reads a CSV with a header row. Missing required columns yield
// ErrMissingColumns; every other failure is a *ParseError.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: ErrNoColumns}
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	header = normalizeHeader(header)
	if len(header) == 1 && header[0] == "" {
		return nil, &ParseError{Err: ErrNoColumns}
	}
	header = dedupeHeader(header)

	t := &Table{
		Header:     header,
		sourceIdx:  indexOf(header, config.ColumnSource),
		messageIdx: indexOf(header, config.ColumnMessage),
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		line++

		if isEmptyLine(record) {
			continue
		}
		if len(record) > len(header) {
			return nil, &ParseError{Err: fmt.Errorf("expected %d fields in line %d, saw %d", len(header), line, len(record))}
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		t.Rows = append(t.Rows, record)
	}

	if t.sourceIdx < 0 || t.messageIdx < 0 {
		return nil, ErrMissingColumns
	}
	return t, nil
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(bom)); err == nil && string(b) == bom {
		_, _ = br.Discard(len(bom))
	}
	return br
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// dedupeHeader names unnamed columns "Unnamed: <i>" and renames repeats to
// "name.1", "name.2", ... so every column keeps its own values.
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		for n := counts[h]; n > 0; n = counts[h] {
			counts[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n)
		}
		counts[h]++
		out[i] = h
	}
	return out
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// isEmptyLine matches a line with nothing on it. Rows of empty fields such
// as ",," are kept.
func isEmptyLine(record []string) bool {
	return len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "")
}

// Len is the number of data rows
func (t *Table) Len() int { return len(t.Rows) }

// Inputs returns the (source, log_message) pairs in row order
func (t *Table) Inputs() []classifier.Input {
	inputs := make([]classifier.Input, len(t.Rows))
	for i, row := range t.Rows {
		inputs[i] = classifier.Input{
			Source:  row[t.sourceIdx],
			Message: row[t.messageIdx],
		}
	}
	return inputs
}

// Sources returns the source column
func (t *Table) Sources() []string {
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[t.sourceIdx]
	}
	return out
}

// Preview returns up to n rows keyed by header name
func (t *Table) Preview(n int) []map[string]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([]map[string]string, 0, n)
	for _, row := range t.Rows[:n] {
		m := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			m[h] = row[i]
		}
		out = append(out, m)
	}
	return out
}

// WithLabels returns a copy of the table with a target_label column set
// from labels. An existing target_label column is overwritten in place.
func (t *Table) WithLabels(labels []string) (*Table, error) {
	if len(labels) != len(t.Rows) {
		return nil, fmt.Errorf("label count %d does not match row count %d", len(labels), len(t.Rows))
	}

	labelIdx := indexOf(t.Header, config.ColumnLabel)
	header := append([]string(nil), t.Header...)
	if labelIdx < 0 {
		labelIdx = len(header)
		header = append(header, config.ColumnLabel)
	}

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(header))
		copy(r, row)
		r[labelIdx] = labels[i]
		rows[i] = r
	}

	return &Table{
		Header:     header,
		Rows:       rows,
		sourceIdx:  t.sourceIdx,
		messageIdx: t.messageIdx,
	}, nil
}

// Write writes the header and rows as CSV with no index column
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
