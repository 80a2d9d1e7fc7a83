package models

import (
	"fmt"
	"strings"
)

// Row maps column names to cell values. A missing column reads as null.
type Row map[string]Value

// Get returns the value of column, or null when the row lacks it
func (r Row) Get(column string) Value {
	return r[column]
}

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered list of rows over named columns. Operations that
// transform a table return a new one and leave the receiver untouched.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable creates an empty table with the given columns
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: make([]Row, 0)}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// AddRow appends a row
func (t *Table) AddRow(row Row) {
	t.Rows = append(t.Rows, row)
}

// HasColumn reports whether the table carries column
func (t *Table) HasColumn(column string) bool {
	return t.ColumnIndex(column) >= 0
}

// ColumnIndex returns the position of column, or -1
func (t *Table) ColumnIndex(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// MissingColumns returns the required columns the table lacks, in the order given
func (t *Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Filter returns the rows for which keep is true, in their original order
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := NewTable(t.Columns...)
	for _, row := range t.Rows {
		if keep(row) {
			out.AddRow(row)
		}
	}
	return out
}

// Select projects the table onto the listed columns that exist, in the order listed
func (t *Table) Select(columns ...string) *Table {
	var present []string
	for _, c := range columns {
		if t.HasColumn(c) {
			present = append(present, c)
		}
	}

	out := NewTable(present...)
	for _, row := range t.Rows {
		projected := make(Row, len(present))
		for _, c := range present {
			if v, ok := row[c]; ok {
				projected[c] = v
			}
		}
		out.AddRow(projected)
	}
	return out
}

// WithColumn returns a copy of the table with column set on every row by fn.
// An existing column keeps its position; a new one is appended.
func (t *Table) WithColumn(column string, fn func(Row) Value) *Table {
	cols := t.Columns
	if !t.HasColumn(column) {
		cols = append(append([]string{}, t.Columns...), column)
	}

	out := NewTable(cols...)
	for _, row := range t.Rows {
		next := row.Clone()
		next[column] = fn(row)
		out.AddRow(next)
	}
	return out
}

// RenameColumn returns a copy of the table with from renamed to to
func (t *Table) RenameColumn(from, to string) *Table {
	idx := t.ColumnIndex(from)
	if idx < 0 || from == to {
		return t.Clone()
	}

	cols := append([]string{}, t.Columns...)
	cols[idx] = to

	out := NewTable(cols...)
	for _, row := range t.Rows {
		next := row.Clone()
		if v, ok := next[from]; ok {
			next[to] = v
			delete(next, from)
		}
		out.AddRow(next)
	}
	return out
}

// RenameColumns returns a copy with every header passed through fn.
// Later duplicates of a normalized header are dropped.
func (t *Table) RenameColumns(fn func(string) string) *Table {
	seen := make(map[string]bool, len(t.Columns))
	var cols []string
	mapping := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		name := fn(c)
		if seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, name)
		mapping[c] = name
	}

	out := NewTable(cols...)
	for _, row := range t.Rows {
		next := make(Row, len(row))
		for c, v := range row {
			if name, ok := mapping[c]; ok {
				next[name] = v
			}
		}
		out.AddRow(next)
	}
	return out
}

// Clone returns a copy of the table with cloned rows
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		out.AddRow(row.Clone())
	}
	return out
}

// Records renders the header followed by every row as strings
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, append([]string{}, t.Columns...))
	for _, row := range t.Rows {
		record := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			record[i] = row.Get(c).String()
		}
		records = append(records, record)
	}
	return records
}

// String returns a short description of the table
func (t *Table) String() string {
	return fmt.Sprintf("Table{Columns: [%s], Rows: %d}", strings.Join(t.Columns, ", "), t.Len())
}
