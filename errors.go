package rowdb

import "github.com/oda/rowdb/internal/dberr"

// Errors returned by a Table. Match them with errors.Is.
var (
	// ErrCapacityExceeded is returned when a row would land past the page cap.
	ErrCapacityExceeded = dberr.ErrCapacityExceeded
	// ErrIO wraps open, read, write and sync failures on the backing file.
	ErrIO = dberr.ErrIO
	// ErrCorruptRecord is returned when stored bytes are not a valid row.
	ErrCorruptRecord = dberr.ErrCorruptRecord
	// ErrOutOfRange is returned for a row index at or beyond NumRows.
	ErrOutOfRange = dberr.ErrOutOfRange
	// ErrInvalidRow is returned when a row cannot be stored unchanged.
	ErrInvalidRow = dberr.ErrInvalidRow
	// ErrClosed is returned for any use of a closed table.
	ErrClosed = dberr.ErrClosed
	// ErrInvalidConfig is returned by Open for a bad Config.
	ErrInvalidConfig = dberr.ErrInvalidConfig
)
