package asqlite

import "strings"

// Column is one (name, value) pair in a result row. Names are not unique
// within a row; the engine's projection can repeat them.
type Column struct {
	Name  string
	Value Value
}

// Row is an immutable snapshot of one result row, columns in engine
// projection order with duplicate names preserved positionally.
type Row struct {
	columns []Column
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.columns) }

// At returns the column at index i.
func (r Row) At(i int) Column { return r.columns[i] }

// Columns returns every column in order, duplicates included. The returned
// slice is shared; treat it as read-only.
func (r Row) Columns() []Column { return r.columns }

// Value returns the value of the first column named name.
func (r Row) Value(name string) (Value, bool) {
	for _, c := range r.columns {
		if c.Name == name {
			return c.Value, true
		}
	}
	return Value{}, false
}

// String renders the row for diagnostics.
func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(c.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}
