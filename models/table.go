package models

import "database/sql"

// Table is an ordered set of rows of nullable text cells.
type Table struct {
	Columns []string
	Rows    [][]sql.NullString
}

// NewTable returns an empty table with the given header.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// Text returns a valid cell holding s.
func Text(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// Null returns a null cell.
func Null() sql.NullString {
	return sql.NullString{}
}

// Len reports the number of rows. A nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Append adds a row. Short rows are padded with nulls and long rows truncated
// so every row matches the header width.
func (t *Table) Append(cells ...sql.NullString) {
	row := make([]sql.NullString, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// AppendText adds a row of valid cells.
func (t *Table) AppendText(values ...string) {
	cells := make([]sql.NullString, len(values))
	for i, v := range values {
		cells[i] = Text(v)
	}
	t.Append(cells...)
}

// Cell returns the cell at row i for the named column.
func (t *Table) Cell(i int, column string) (sql.NullString, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= t.Len() {
		return sql.NullString{}, false
	}
	return t.Rows[i][idx], true
}

// Subset returns a view holding the rows at the given indices. Rows are shared
// with t, so callers must treat the result as read-only.
func (t *Table) Subset(indices []int) *Table {
	view := &Table{Columns: t.Columns, Rows: make([][]sql.NullString, 0, len(indices))}
	for _, i := range indices {
		view.Rows = append(view.Rows, t.Rows[i])
	}
	return view
}

// Shape returns rows and columns, matching the debug panel.
func (t *Table) Shape() (int, int) {
	if t == nil {
		return 0, 0
	}
	return len(t.Rows), len(t.Columns)
}
