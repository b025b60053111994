// Package table holds the in-memory tabular structure passed between pipeline stages.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered set of rows over a fixed list of named columns.
// Stages treat a Table as immutable and derive new ones with Clone, Filter
// and WithColumn.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty table with the given columns.
func New(columns ...string) (*Table, error) {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is New for column lists known to be valid.
func MustNew(columns ...string) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Append adds a row. The row must have one value per column.
func (t *Table) Append(row ...Value) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.columns))
	}
	cp := make([]Value, len(row))
	copy(cp, row)
	t.rows = append(t.rows, cp)
	return nil
}

// Get returns the cell at row i in the named column.
// Unknown columns and out-of-range rows yield a null value.
func (t *Table) Get(i int, column string) Value {
	c, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.rows) {
		return Null()
	}
	return t.rows[i][c]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Column returns a copy of the named column's values, or nil if absent.
func (t *Table) Column(name string) []Value {
	c, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[c]
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := MustNew(t.columns...)
	out.rows = make([][]Value, len(t.rows))
	for i, r := range t.rows {
		cp := make([]Value, len(r))
		copy(cp, r)
		out.rows[i] = cp
	}
	return out
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := MustNew(t.columns...)
	for i, r := range t.rows {
		if keep(i) {
			cp := make([]Value, len(r))
			copy(cp, r)
			out.rows = append(out.rows, cp)
		}
	}
	return out
}

// WithColumn returns a copy of the table with the named column set to values.
// An existing column of that name is overwritten in place; otherwise the column
// is appended.
func (t *Table) WithColumn(name string, values []Value) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.rows))
	}
	out := t.Clone()
	c, ok := out.index[name]
	if !ok {
		c = len(out.columns)
		out.index[name] = c
		out.columns = append(out.columns, name)
		for i := range out.rows {
			out.rows[i] = append(out.rows[i], Null())
		}
	}
	for i := range out.rows {
		out.rows[i][c] = values[i]
	}
	return out, nil
}

// Head returns a table holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	return t.Filter(func(i int) bool { return i < n })
}

// Records returns every row rendered as strings, header excluded.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = v.String()
		}
		out[i] = rec
	}
	return out
}

// ColumnInfo summarises one column for previews.
type ColumnInfo struct {
	Name    string
	NonNull int
	Kinds   []Kind
}

// Info describes each column's non-null count and the kinds it holds.
func (t *Table) Info() []ColumnInfo {
	out := make([]ColumnInfo, len(t.columns))
	for c, name := range t.columns {
		info := ColumnInfo{Name: name}
		seen := map[Kind]bool{}
		for _, r := range t.rows {
			v := r[c]
			if v.IsNull() {
				continue
			}
			info.NonNull++
			if !seen[v.Kind()] {
				seen[v.Kind()] = true
				info.Kinds = append(info.Kinds, v.Kind())
			}
		}
		out[c] = info
	}
	return out
}

// KindsString joins the kinds for display.
func (ci ColumnInfo) KindsString() string {
	if len(ci.Kinds) == 0 {
		return "null"
	}
	parts := make([]string, len(ci.Kinds))
	for i, k := range ci.Kinds {
		parts[i] = k.String()
	}
	return strings.Join(parts, "|")
}

// KeyOf builds a composite key for the given row over the given column positions.
// Equal values produce equal keys.
func (t *Table) KeyOf(i int, cols []int) string {
	var b strings.Builder
	for n, c := range cols {
		if n > 0 {
			b.WriteByte(0)
		}
		b.WriteString(t.rows[i][c].Key())
	}
	return b.String()
}
