package rowdb

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/oda/rowdb/internal/dberr"
	"github.com/oda/rowdb/internal/mmap"
	"github.com/oda/rowdb/internal/pager"
	"github.com/oda/rowdb/internal/row"
)

// Table maps a growing row count onto page slots.
type Table struct {
	pager   *pager.Pager
	cfg     Config
	numRows int
	closed  bool
	log     *slog.Logger
}

// Open opens or creates the table at cfg.Path.
//
// The row count is not stored in the file. It is recovered as all slots of
// the full pages plus the slots of the last page up to its last non-zero
// slot. Insert rejects rows that serialize to all zero bytes, so an empty
// slot always marks the end of the table.
func Open(cfg Config) (*Table, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	b, err := openBackend(cfg)
	if err != nil {
		return nil, dberr.New(dberr.KindIO, "open "+cfg.Path, err)
	}

	p, err := pager.Open(b, pager.Options{
		MaxPages:   cfg.MaxPages,
		CachePages: cfg.CachePages,
		Logger:     log,
	})
	if err != nil {
		b.Close()
		return nil, err
	}

	t := &Table{pager: p, cfg: cfg, log: log}
	n, err := t.recoverRowCount()
	if err != nil {
		p.Close()
		return nil, err
	}
	t.numRows = n

	log.Debug("table opened", "path", cfg.Path, "backend", cfg.Backend, "rows", n, "pages", p.NumPages())
	return t, nil
}

func openBackend(cfg Config) (pager.Backend, error) {
	if cfg.Backend == BackendMmap {
		m, err := mmap.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	f, err := pager.OpenFile(cfg.Path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (t *Table) recoverRowCount() (int, error) {
	pages := t.pager.NumPages()
	if pages == 0 {
		return 0, nil
	}

	last := pages - 1
	page, err := t.pager.PageForRead(last)
	if err != nil {
		return 0, fmt.Errorf("recover row count: %w", err)
	}

	used := 0
	for s := RowsPerPage - 1; s >= 0; s-- {
		if !row.IsZero(page[s*RowSize:]) {
			used = s + 1
			break
		}
	}
	return last*RowsPerPage + used, nil
}

// slot returns the page and byte offset of row i.
func slot(i int) (pager.PageID, int) {
	return i / RowsPerPage, (i % RowsPerPage) * RowSize
}

// NumRows returns the number of rows appended so far.
func (t *Table) NumRows() int {
	return t.numRows
}

// Insert appends r after the last row. A row with id 0 and empty username
// and email is rejected with ErrInvalidRow; it is indistinguishable from an
// unused slot.
func (t *Table) Insert(r Row) error {
	if t.closed {
		return dberr.New(dberr.KindClosed, "insert", nil)
	}

	buf, err := row.Serialize(r)
	if err != nil {
		return err
	}
	if row.IsZero(buf) {
		return dberr.RowError(dberr.KindInvalidRow, "insert", t.numRows,
			fmt.Errorf("row is all zero bytes"))
	}

	pageID, off := slot(t.numRows)
	page, err := t.pager.PageForWrite(pageID)
	if err != nil {
		return fmt.Errorf("insert row %d: %w", t.numRows, err)
	}
	copy(page[off:off+RowSize], buf)
	t.numRows++
	return nil
}

// Read returns row i. It fails with ErrOutOfRange unless 0 <= i < NumRows.
func (t *Table) Read(i int) (Row, error) {
	if t.closed {
		return Row{}, dberr.RowError(dberr.KindClosed, "read", i, nil)
	}
	if i < 0 || i >= t.numRows {
		return Row{}, dberr.RowError(dberr.KindOutOfRange, "read", i,
			fmt.Errorf("table has %d rows", t.numRows))
	}

	pageID, off := slot(i)
	page, err := t.pager.PageForRead(pageID)
	if err != nil {
		return Row{}, fmt.Errorf("read row %d: %w", i, err)
	}
	r, err := row.Deserialize(page[off : off+RowSize])
	if err != nil {
		return Row{}, fmt.Errorf("read row %d: %w", i, err)
	}
	return r, nil
}

// Scan returns the rows from 0 to NumRows-1 in insertion order.
// Each iteration starts a fresh cursor. Iteration stops after the first
// error is yielded.
func (t *Table) Scan() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for c := t.Start(); !c.EndOfTable(); c.Advance() {
			r, err := c.Row()
			if !yield(r, err) || err != nil {
				return
			}
		}
	}
}

// All collects every row.
func (t *Table) All() ([]Row, error) {
	rows := make([]Row, 0, t.numRows)
	for r, err := range t.Scan() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// Flush writes every resident page back to the file without closing it.
func (t *Table) Flush() error {
	if t.closed {
		return dberr.New(dberr.KindClosed, "flush", nil)
	}
	return t.pager.FlushAll()
}

// Close flushes all pages and releases the file. Calling Close again is a no-op.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.pager.Close()
	t.log.Debug("table closed", "path", t.cfg.Path, "rows", t.numRows, "err", err)
	return err
}

// Stats returns the table geometry and page cache counters.
func (t *Table) Stats() Stats {
	ps := t.pager.Stats()
	return Stats{
		Path:        t.cfg.Path,
		Backend:     t.cfg.Backend,
		Rows:        t.numRows,
		MaxRows:     t.cfg.MaxRows(),
		RowsPerPage: RowsPerPage,
		Pages:       ps.NumPages,
		MaxPages:    ps.MaxPages,
		Resident:    ps.Resident,
		CacheHits:   ps.Hits,
		CacheMisses: ps.Misses,
		Evictions:   ps.Evictions,
		Flushes:     ps.Flushes,
	}
}
