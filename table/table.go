// Package table lays out repeating rows on a fixed page.
//
// A Table is built from column definitions and rows of text cells, then
// planned against a page height. Planning is pure: it produces the positions
// of every cell that fits and reports how many rows were cut at the page
// bottom. Drawing is left to the caller.
package table

import (
	"github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/resolve"
)

// ColumnDef defines a column. X is relative to the table's left edge.
type ColumnDef struct {
	Key   string
	X     float64
	Width float64
	Align pdftemplate.Align
}

// Table is a builder for a repeating-row layout.
type Table struct {
	columns    []ColumnDef
	rows       []*Row
	x, y       float64
	rowHeight  float64
	pageHeight float64
}

// New creates an empty table with the default row height and an A4 page.
func New() *Table {
	return &Table{
		rowHeight:  pdftemplate.DefaultRowHeight,
		pageHeight: pdftemplate.DefaultPageHeight,
	}
}

// FromRepeat builds a table for a repeat element: one row per item, one cell
// per column holding the formatted item field. Items that are not objects
// yield empty rows, which still consume vertical space.
func FromRepeat(e *pdftemplate.RepeatElement, items []any, pageHeight float64) *Table {
	t := New().
		SetPosition(e.BBox.X, e.BBox.Y).
		SetRowHeight(e.RowHeight).
		SetPageHeight(pageHeight)

	cols := make([]ColumnDef, len(e.Columns))
	for i, c := range e.Columns {
		cols[i] = ColumnDef{Key: c.Key, X: c.X, Width: c.W, Align: c.Align}
	}
	t.SetColumns(cols...)

	for _, item := range items {
		r := t.AddRow()
		for _, c := range cols {
			v, ok := resolve.Field(item, c.Key)
			if !ok {
				r.AddCell("")
				continue
			}
			r.AddCell(resolve.Text(v))
		}
	}
	return t
}

// SetColumns sets column definitions for the table.
func (t *Table) SetColumns(cols ...ColumnDef) *Table {
	t.columns = cols
	return t
}

// SetPosition sets the top-left corner of the first row.
func (t *Table) SetPosition(x, y float64) *Table {
	t.x = x
	t.y = y
	return t
}

// SetRowHeight sets the vertical advance per row. Non-positive values keep
// the default.
func (t *Table) SetRowHeight(h float64) *Table {
	if h > 0 {
		t.rowHeight = h
	}
	return t
}

// SetPageHeight sets the page height rows are truncated against.
func (t *Table) SetPageHeight(h float64) *Table {
	if h > 0 {
		t.pageHeight = h
	}
	return t
}

// AddRow adds a new row to the table and returns it for chaining.
func (t *Table) AddRow() *Row {
	r := &Row{}
	t.rows = append(t.rows, r)
	return r
}

// Rows returns the number of rows added.
func (t *Table) Rows() int { return len(t.rows) }

// Placement is a cell positioned on the page, in top-left screen space.
type Placement struct {
	Row, Col int
	Text     string
	X, Y     float64 // top-left corner of the cell
	W, H     float64
	Align    pdftemplate.Align
}

// Layout is the result of planning a table.
type Layout struct {
	Cells     []Placement
	Rows      int // rows placed
	Truncated int // rows dropped at the page bottom
}

// Plan positions every non-empty cell of every row that fits on the page.
// A row is placed only when its bottom edge stays within the page height;
// the first row that would cross it stops the layout.
func (t *Table) Plan() Layout {
	var out Layout
	y := t.y
	for i, r := range t.rows {
		if y+t.rowHeight > t.pageHeight {
			out.Truncated = len(t.rows) - i
			break
		}
		for j, cell := range r.cells {
			if j >= len(t.columns) {
				break
			}
			if cell.Empty() {
				continue
			}
			col := t.columns[j]
			out.Cells = append(out.Cells, Placement{
				Row:   i,
				Col:   j,
				Text:  cell.text,
				X:     t.x + col.X,
				Y:     y,
				W:     col.Width,
				H:     t.rowHeight,
				Align: pdftemplate.ParseAlign(string(col.Align)),
			})
		}
		out.Rows++
		y += t.rowHeight
	}
	return out
}
