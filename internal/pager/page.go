// Package pager maps page numbers onto a backing file and caches pages in memory.
package pager

const (
	// PageSize is the size of each page in bytes.
	// 4096 bytes is the standard OS page size and the unit of all file I/O.
	PageSize = 4096

	// DefaultMaxPages is the page cap used when Options.MaxPages is zero.
	DefaultMaxPages = 100
)

// PageID is the zero-based number of a page in the backing file.
// Page i occupies file bytes [i*PageSize, (i+1)*PageSize).
type PageID = int

// Page is one PageSize-byte buffer owned by the Pager.
type Page []byte

func newPage() Page {
	return make(Page, PageSize)
}

// Offset returns the file offset of page id.
func Offset(id PageID) int64 {
	return int64(id) * PageSize
}
