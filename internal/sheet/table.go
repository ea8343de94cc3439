// Package sheet holds the canonical spreadsheet: a header row of named
// columns followed by ordered data rows, persisted as a single-sheet XLSX.
package sheet

import (
	"errors"
	"strings"
)

// ErrEmpty is returned when a source has no header row
var ErrEmpty = errors.New("table has no header row")

// Table is a header plus rows of string cells. Every row has exactly
// len(Header) cells once built through this package.
type Table struct {
	Header []string
	Rows   [][]string
}

// FromRows builds a table whose first row is the header. Cells are
// trimmed, short rows are padded and long rows truncated to the header
// width.
func FromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrEmpty
	}

	t := &Table{Header: trimAll(rows[0])}
	for _, r := range rows[1:] {
		t.AppendRow(r)
	}
	return t, nil
}

// AppendRow adds a row, fitted to the header width
func (t *Table) AppendRow(cells []string) {
	row := make([]string, len(t.Header))
	for i := 0; i < len(row) && i < len(cells); i++ {
		row[i] = strings.TrimSpace(cells[i])
	}
	t.Rows = append(t.Rows, row)
}

// Column returns the index of the named column, or -1
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// EnsureColumn returns the index of the named column, appending an empty
// column when it is absent.
func (t *Table) EnsureColumn(name string) int {
	if i := t.Column(name); i >= 0 {
		return i
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Header) - 1
}

// Get returns a cell, or "" when out of range
func (t *Table) Get(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Set writes a cell; out-of-range writes are ignored
func (t *Table) Set(row, col int, value string) {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return
	}
	t.Rows[row][col] = value
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
