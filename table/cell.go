package table

// Cell is a single text cell in a row.
type Cell struct {
	text string
}

// Empty reports whether the cell has nothing to draw.
func (c *Cell) Empty() bool { return c.text == "" }

// Row is a single row of a table.
type Row struct {
	cells []*Cell
}

// AddCell appends a text cell to the row.
func (r *Row) AddCell(text string) *Row {
	r.cells = append(r.cells, &Cell{text: text})
	return r
}
