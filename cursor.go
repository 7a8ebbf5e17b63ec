package rowdb

import (
	"fmt"

	"github.com/oda/rowdb/internal/dberr"
	"github.com/oda/rowdb/internal/row"
)

// Cursor is a forward-only position over a table's rows.
// Once EndOfTable reports true it stays true and Advance does nothing.
type Cursor struct {
	table      *Table
	rowNum     int
	endOfTable bool
}

// Start returns a cursor at row 0.
func (t *Table) Start() *Cursor {
	return &Cursor{
		table:      t,
		endOfTable: t.numRows == 0,
	}
}

// EndOfTable reports whether the cursor is one past the last row.
func (c *Cursor) EndOfTable() bool {
	return c.endOfTable
}

// Position returns the current row index.
func (c *Cursor) Position() int {
	return c.rowNum
}

// Value returns a copy of the serialized row at the cursor.
func (c *Cursor) Value() ([]byte, error) {
	if c.endOfTable {
		return nil, dberr.RowError(dberr.KindOutOfRange, "cursor value", c.rowNum,
			fmt.Errorf("cursor is at end of table"))
	}

	pageID, off := slot(c.rowNum)
	page, err := c.table.pager.PageForRead(pageID)
	if err != nil {
		return nil, fmt.Errorf("cursor value at row %d: %w", c.rowNum, err)
	}

	out := make([]byte, RowSize)
	copy(out, page[off:off+RowSize])
	return out, nil
}

// Row decodes the row at the cursor.
func (c *Cursor) Row() (Row, error) {
	v, err := c.Value()
	if err != nil {
		return Row{}, err
	}
	r, err := row.Deserialize(v)
	if err != nil {
		return Row{}, fmt.Errorf("cursor row %d: %w", c.rowNum, err)
	}
	return r, nil
}

// Advance moves to the next row.
func (c *Cursor) Advance() {
	if c.endOfTable {
		return
	}
	c.rowNum++
	if c.rowNum >= c.table.numRows {
		c.endOfTable = true
	}
}
