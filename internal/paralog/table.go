package paralog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// headerRef is the first header field of a persisted paralog table.
const headerRef = "#REF"

// cellSep joins gene ids inside one cell.
const cellSep = "|"

// Row is one reference gene and the genes assigned to it in every genome column.
type Row struct {
	Ref   string
	Cells [][]string // one per genome column; nil when nothing matched
}

// Table is the cross-genome paralog table. Columns are only ever appended.
type Table struct {
	Genomes []string
	Rows    []Row
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := &Table{
		Genomes: append([]string(nil), t.Genomes...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		cells := make([][]string, len(r.Cells))
		for j, c := range r.Cells {
			if c != nil {
				cells[j] = append([]string(nil), c...)
			}
		}
		out.Rows[i] = Row{Ref: r.Ref, Cells: cells}
	}
	return out
}

// Column returns the position of a genome column, or -1.
func (t *Table) Column(genome string) int {
	for i, g := range t.Genomes {
		if g == genome {
			return i
		}
	}
	return -1
}

// Find returns the row for a reference gene.
func (t *Table) Find(ref string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Ref == ref {
			return r, true
		}
	}
	return Row{}, false
}

// Write serializes the table as comma-separated text: a "#REF,<genome>..." header,
// then one line per row with pipe-joined cells.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{headerRef}, t.Genomes...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write table header: %w", err)
	}

	record := make([]string, len(t.Genomes)+1)
	for _, r := range t.Rows {
		record[0] = r.Ref
		for i := range t.Genomes {
			record[i+1] = ""
			if i < len(r.Cells) {
				record[i+1] = strings.Join(r.Cells[i], cellSep)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write table row %s: %w", r.Ref, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path through a temporary file, so a failed
// write never leaves a partial table behind.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create table directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close table: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename table: %w", err)
	}
	return nil
}

// ReadTable parses a table written by Write.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Line: 1, Message: "missing header"}
	}
	if err != nil {
		return nil, wrapCSVError(err)
	}
	if len(header) == 0 || header[0] != headerRef {
		return nil, &ParseError{Line: 1, Message: fmt.Sprintf("header must start with %s", headerRef)}
	}

	t := &Table{Genomes: append([]string(nil), header[1:]...)}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) != len(header) {
			return nil, &ParseError{
				Line:    line,
				Message: fmt.Sprintf("expected %d fields, found %d", len(header), len(record)),
			}
		}
		if record[0] == "" {
			return nil, &ParseError{Line: line, Message: "empty reference gene"}
		}

		row := Row{Ref: record[0], Cells: make([][]string, len(t.Genomes))}
		for i, cell := range record[1:] {
			if cell != "" {
				row.Cells[i] = strings.Split(cell, cellSep)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadTableFile reads a paralog table from disk.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open paralog table: %w", err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func wrapCSVError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Message: pe.Err.Error()}
	}
	return fmt.Errorf("read paralog table: %w", err)
}

// ParseError represents a malformed paralog table line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("paralog table parse error at line %d: %s", e.Line, e.Message)
}
