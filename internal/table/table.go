// Package table holds the in-memory tabular dataset the cleaning step works on.
//
// A Table keeps its column order and row order. Cell values read from CSV are
// raw strings; steps that coerce a column (dates) replace those cells with
// typed values such as time.Time or nil.
package table

import (
	"fmt"
	"strings"
)

// Row is one record keyed by column name.
type Row map[string]interface{}

// Table is an ordered set of rows sharing the same columns.
type Table struct {
	Columns []string
	Rows    []Row
}

// MissingColumnError is returned when a required column is absent.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Columns) == 1 {
		return fmt.Sprintf("missing required column %q", e.Columns[0])
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns returns a *MissingColumnError listing every absent column.
func (t *Table) RequireColumns(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing}
	}
	return nil
}

// Append adds a row. Missing columns are stored as nil.
func (t *Table) Append(row Row) {
	r := make(Row, len(t.Columns))
	for _, c := range t.Columns {
		r[c] = row[c]
	}
	t.Rows = append(t.Rows, r)
}

// Filter returns a new table with the rows for which keep returns true.
// Rows are shared with the receiver, not copied. Order is preserved.
// The first error returned by keep aborts the filter.
func (t *Table) Filter(keep func(i int, row Row) (bool, error)) (*Table, error) {
	out := &Table{Columns: t.Columns, Rows: make([]Row, 0, len(t.Rows))}
	for i, row := range t.Rows {
		ok, err := keep(i, row)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// Clone returns a deep copy of the table structure. Cell values are copied
// by assignment.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: make([]string, len(t.Columns)),
		Rows:    make([]Row, len(t.Rows)),
	}
	copy(out.Columns, t.Columns)
	for i, row := range t.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Head returns a table with at most n leading rows, sharing rows with the receiver.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}
