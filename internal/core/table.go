package core

import (
	"fmt"
	"strings"
)

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// Lookup returns the position of a column, matching case-insensitively.
func (h HeaderIndex) Lookup(column string) (int, bool) {
	pos, ok := h[strings.ToLower(strings.TrimSpace(column))]
	return pos, ok
}

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// Table is an in-memory relational table: a fixed column set and rows whose
// cells follow that column order. Tables are fully materialized; nothing in
// this package streams.
type Table struct {
	Key     string
	Columns []string
	Rows    []Row

	index HeaderIndex
}

// NewTable creates an empty table with the given columns.
func NewTable(key string, columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{
		Key:     key,
		Columns: cols,
		index:   MakeHeaderIndex(cols),
	}
}

// TableOf builds a table from typed records.
func TableOf[R Record](key string, columns []string, records []R) *Table {
	t := NewTable(key, columns)
	t.Rows = make([]Row, 0, len(records))
	for _, r := range records {
		t.Rows = append(t.Rows, r.Cells())
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds a row after checking its width against the column set.
func (t *Table) Append(row Row) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d cells, expected %d", t.Key, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// ColumnIndex returns the position of a column (case-insensitive).
func (t *Table) ColumnIndex(column string) (int, bool) {
	if t.index == nil {
		t.index = MakeHeaderIndex(t.Columns)
	}
	return t.index.Lookup(column)
}

// HasColumn reports whether the table's schema contains column.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.ColumnIndex(column)
	return ok
}

// MissingColumns returns the columns from want that the table lacks,
// in the order given.
func (t *Table) MissingColumns(want []string) []string {
	var missing []string
	for _, c := range want {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Derive returns an empty table with the same key and schema.
func (t *Table) Derive() *Table {
	return NewTable(t.Key, t.Columns)
}

// Column returns every value of column in row order.
func (t *Table) Column(column string) ([]Cell, error) {
	pos, ok := t.ColumnIndex(column)
	if !ok {
		return nil, fmt.Errorf("table %s: column not found: %q", t.Key, column)
	}
	out := make([]Cell, len(t.Rows))
	for i, r := range t.Rows {
		if pos < len(r) {
			out[i] = r[pos]
		}
	}
	return out, nil
}

// Strings renders the rows as plain strings, with null cells as "".
func (t *Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rec := make([]string, len(r))
		for j, c := range r {
			if c.Valid {
				rec[j] = c.String
			}
		}
		out[i] = rec
	}
	return out
}
