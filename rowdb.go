// Package rowdb is a single-table record store over a paged file.
//
// Rows are fixed-width (id, username, email) records appended to 4096-byte
// pages, 14 rows per page. Pages are cached in memory and written back on
// Flush and Close. There is no file header: page i occupies file bytes
// [i*4096, (i+1)*4096) and row j of the table sits in page j/14 at byte
// offset (j%14)*292.
//
// Example:
//
//	tbl, err := rowdb.Open(rowdb.Config{Path: "users.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tbl.Close()
//
//	tbl.Insert(rowdb.Row{ID: 1, Username: "alice", Email: "alice@x.com"})
//	for r, err := range tbl.Scan() {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(r)
//	}
//
// A Table is not safe for concurrent use, and a backing file must not be
// opened by two tables at once.
package rowdb

import (
	"github.com/oda/rowdb/internal/pager"
	"github.com/oda/rowdb/internal/row"
)

// Row is one record: a numeric id and two bounded text fields.
type Row = row.Row

const (
	// PageSize is the size of a page in bytes.
	PageSize = pager.PageSize
	// RowSize is the serialized size of a row in bytes.
	RowSize = row.Size
	// RowsPerPage is the number of row slots in a page.
	RowsPerPage = PageSize / RowSize // 14
	// MaxUsernameLen is the maximum username length in bytes.
	MaxUsernameLen = row.UsernameSize
	// MaxEmailLen is the maximum email length in bytes.
	MaxEmailLen = row.EmailSize
)

// Stats describes a table and its page cache.
type Stats struct {
	Path        string `json:"path"`
	Backend     string `json:"backend"`
	Rows        int    `json:"rows"`
	MaxRows     int    `json:"maxRows"`
	RowsPerPage int    `json:"rowsPerPage"`
	Pages       int    `json:"pages"`
	MaxPages    int    `json:"maxPages"`
	Resident    int    `json:"resident"`
	CacheHits   uint64 `json:"cacheHits"`
	CacheMisses uint64 `json:"cacheMisses"`
	Evictions   uint64 `json:"evictions"`
	Flushes     uint64 `json:"flushes"`
}
