package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrColumnNotFound is returned when a requested column is missing from a header.
	ErrColumnNotFound = errors.New("column not found in header")
	// ErrEmptyFile is returned when a file has no header record.
	ErrEmptyFile = errors.New("file has no header")
)

// Table is a header plus the data rows of a delimited text file.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of column in the header.
func (t Table) Index(column string) (int, error) {
	for i, h := range t.Header {
		if h == column {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: can't find %q in header %v", ErrColumnNotFound, column, t.Header)
}

// Indexes resolves every column in order.
func (t Table) Indexes(columns []string) ([]int, error) {
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		i, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		idx = append(idx, i)
	}
	return idx, nil
}

// Pick returns the fields of row at the given positions. ok is false when the
// row is too short.
func Pick(row []string, idx []int) (out []string, ok bool) {
	out = make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= len(row) {
			return nil, false
		}
		out = append(out, row[i])
	}
	return out, true
}

// Reindex returns a table restricted to columns, in that order. Rows that are
// too short for the requested columns are dropped.
func (t Table) Reindex(columns []string) (Table, error) {
	idx, err := t.Indexes(columns)
	if err != nil {
		return Table{}, err
	}
	out := Table{Header: append([]string(nil), columns...)}
	for _, row := range t.Rows {
		if picked, ok := Pick(row, idx); ok {
			out.Rows = append(out.Rows, picked)
		}
	}
	return out, nil
}

// Read parses delimited text from r. Blank lines are ignored and rows may have
// a varying number of fields.
func Read(r io.Reader, sep rune) (Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, err
	}
	if len(records) == 0 {
		return Table{}, ErrEmptyFile
	}
	return Table{Header: records[0], Rows: records[1:]}, nil
}

// ReadTable opens path and parses it with Read.
func ReadTable(path string, sep rune) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	t, err := Read(f, sep)
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Write writes the header followed by all rows as comma separated text.
func Write(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteTable writes t to path, creating parent directories as needed.
func WriteTable(path string, t Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
