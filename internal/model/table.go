package model

// Table is the raw, untyped shape produced by sources and consumed by the engine.
// Columns carry whatever names the export used; rows may be ragged until padded.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of the first column named name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether a column named name exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Column returns the cells of the named column. Missing cells in short rows
// come back as "".
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, true
}

// Rename changes the header of column from to to. Returns false if from is absent.
func (t *Table) Rename(from, to string) bool {
	idx := t.Index(from)
	if idx < 0 {
		return false
	}
	t.Columns[idx] = to
	return true
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
