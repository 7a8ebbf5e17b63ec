package pager

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/oda/rowdb/internal/dberr"
)

// Options configures a Pager.
type Options struct {
	// MaxPages caps the page index space. Zero means DefaultMaxPages.
	MaxPages int

	// CachePages bounds the number of resident pages with LRU eviction.
	// Zero keeps every touched page resident until Close.
	CachePages int

	// Logger receives debug events. Nil discards them.
	Logger *slog.Logger
}

// Stats is a snapshot of pager counters.
type Stats struct {
	NumPages  int    `json:"numPages"`
	MaxPages  int    `json:"maxPages"`
	Resident  int    `json:"resident"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Flushes   uint64 `json:"flushes"`
}

// Pager caches fixed-size pages of a Backend.
// It is not safe for concurrent use.
type Pager struct {
	backend  Backend
	cache    *cache
	maxPages int
	numPages int // high-water mark of pages on disk or touched for write
	flushes  uint64
	closed   bool
	log      *slog.Logger
}

// Open wraps b. The page count is the backing size divided by PageSize;
// a trailing partial page is ignored.
func Open(b Backend, opts Options) (*Pager, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.CachePages < 0 {
		return nil, fmt.Errorf("%w: negative cache size %d", dberr.ErrInvalidConfig, opts.CachePages)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	size, err := b.Size()
	if err != nil {
		return nil, dberr.New(dberr.KindIO, "open", err)
	}

	numPages := int(size / PageSize)
	if rem := size % PageSize; rem != 0 {
		log.Warn("ignoring partial trailing page", "file_bytes", size, "trailing_bytes", rem)
	}
	if numPages > opts.MaxPages {
		return nil, dberr.New(dberr.KindCapacityExceeded, "open",
			fmt.Errorf("file holds %d pages, limit is %d", numPages, opts.MaxPages))
	}

	log.Debug("pager opened", "pages", numPages, "max_pages", opts.MaxPages, "cache_pages", opts.CachePages)

	return &Pager{
		backend:  b,
		cache:    newCache(opts.CachePages),
		maxPages: opts.MaxPages,
		numPages: numPages,
		log:      log,
	}, nil
}

// NumPages returns the high-water mark of pages on disk or written in memory.
func (p *Pager) NumPages() int {
	return p.numPages
}

// MaxPages returns the page cap.
func (p *Pager) MaxPages() int {
	return p.maxPages
}

// PageForRead returns page id, loading it from the backend on first touch.
// Bytes past the end of the file read as zero. The returned page must not
// be modified; use PageForWrite for that.
func (p *Pager) PageForRead(id PageID) (Page, error) {
	if err := p.check("read page", id); err != nil {
		return nil, err
	}
	if page, ok := p.cache.get(id); ok {
		return page, nil
	}

	page := newPage()
	if err := p.load(id, page); err != nil {
		return nil, err
	}
	if err := p.admit(id, page); err != nil {
		return nil, err
	}
	return page, nil
}

// PageForWrite returns page id for modification. An uncached page is
// zero-filled, and loaded from the backend only when it lies inside the
// known on-disk extent. The page count grows to cover id.
func (p *Pager) PageForWrite(id PageID) (Page, error) {
	if err := p.check("write page", id); err != nil {
		return nil, err
	}

	// A page made resident by PageForRead may lie past the count, so the
	// count is raised on a cache hit too.
	if page, ok := p.cache.get(id); ok {
		p.cover(id)
		return page, nil
	}

	page := newPage()
	if id < p.numPages {
		if err := p.load(id, page); err != nil {
			return nil, err
		}
	}
	if err := p.admit(id, page); err != nil {
		return nil, err
	}
	p.cover(id)
	return page, nil
}

// Flush writes page id to its file offset if it is resident.
// Every resident page is written in full; flushing twice is harmless.
func (p *Pager) Flush(id PageID) error {
	if p.closed {
		return dberr.PageError(dberr.KindClosed, "flush", id, nil)
	}
	page, ok := p.cache.peek(id)
	if !ok {
		return nil
	}
	return p.write(id, page)
}

// FlushAll flushes pages 0 through NumPages-1 in order, then syncs the backend.
func (p *Pager) FlushAll() error {
	if p.closed {
		return dberr.New(dberr.KindClosed, "flush", nil)
	}
	for id := 0; id < p.numPages; id++ {
		if err := p.Flush(id); err != nil {
			return err
		}
	}
	if err := p.backend.Sync(); err != nil {
		return dberr.New(dberr.KindIO, "sync", err)
	}
	return nil
}

// Close flushes every page and closes the backend.
// Calling Close again returns nil without touching the file.
func (p *Pager) Close() error {
	if p.closed {
		return nil
	}

	flushErr := p.FlushAll()
	closeErr := p.backend.Close()
	p.closed = true
	p.cache.clear()
	p.log.Debug("pager closed", "pages", p.numPages, "flushes", p.flushes)

	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return dberr.New(dberr.KindIO, "close", closeErr)
	}
	return nil
}

// Stats returns the current counters.
func (p *Pager) Stats() Stats {
	return Stats{
		NumPages:  p.numPages,
		MaxPages:  p.maxPages,
		Resident:  p.cache.len(),
		Hits:      p.cache.hits,
		Misses:    p.cache.misses,
		Evictions: p.cache.evictions,
		Flushes:   p.flushes,
	}
}

// cover raises the page count to include id.
func (p *Pager) cover(id PageID) {
	if id >= p.numPages {
		p.numPages = id + 1
	}
}

func (p *Pager) check(op string, id PageID) error {
	if p.closed {
		return dberr.PageError(dberr.KindClosed, op, id, nil)
	}
	if id < 0 || id >= p.maxPages {
		return dberr.PageError(dberr.KindCapacityExceeded, op, id,
			fmt.Errorf("limit is %d pages", p.maxPages))
	}
	return nil
}

// load fills page from the backend; a short read leaves the tail zeroed.
func (p *Pager) load(id PageID, page Page) error {
	n, err := p.backend.ReadAt(page, Offset(id))
	if err != nil && !errors.Is(err, io.EOF) {
		return dberr.PageError(dberr.KindIO, "read page", id, err)
	}
	p.log.Debug("page loaded", "page", id, "bytes", n)
	return nil
}

func (p *Pager) write(id PageID, page Page) error {
	if _, err := p.backend.WriteAt(page, Offset(id)); err != nil {
		return dberr.PageError(dberr.KindIO, "write page", id, err)
	}
	p.flushes++
	return nil
}

// admit makes room in a bounded cache and stores page. An evicted page is
// written back first when it lies inside the page count.
func (p *Pager) admit(id PageID, page Page) error {
	if p.cache.full() {
		victim := p.cache.oldest()
		if victim.id < p.numPages {
			if err := p.write(victim.id, victim.page); err != nil {
				return err
			}
		}
		p.cache.remove(victim.id)
		p.cache.evictions++
		p.log.Debug("page evicted", "page", victim.id, "for", id)
	}
	p.cache.put(id, page)
	return nil
}
