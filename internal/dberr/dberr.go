// Package dberr defines the error taxonomy shared by the storage packages.
package dberr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per Kind. Match them with errors.Is.
var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrIO               = errors.New("storage I/O failure")
	ErrCorruptRecord    = errors.New("corrupt record")
	ErrOutOfRange       = errors.New("row index out of range")
	ErrInvalidRow       = errors.New("invalid row")
	ErrClosed           = errors.New("table is closed")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Kind classifies a storage failure.
type Kind int

const (
	// KindCapacityExceeded means a page index reached the configured page cap.
	KindCapacityExceeded Kind = iota + 1
	// KindIO covers open, seek, read, write and sync failures on the backing file.
	KindIO
	// KindCorruptRecord means stored bytes did not decode into a row.
	KindCorruptRecord
	// KindOutOfRange means a row index at or beyond the logical row count.
	KindOutOfRange
	// KindInvalidRow means a row was rejected before it was serialized.
	KindInvalidRow
	// KindClosed means the table or pager was used after Close.
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindIO:
		return "IoFailure"
	case KindCorruptRecord:
		return "CorruptRecord"
	case KindOutOfRange:
		return "OutOfRange"
	case KindInvalidRow:
		return "InvalidRow"
	case KindClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindCapacityExceeded:
		return ErrCapacityExceeded
	case KindIO:
		return ErrIO
	case KindCorruptRecord:
		return ErrCorruptRecord
	case KindOutOfRange:
		return ErrOutOfRange
	case KindInvalidRow:
		return ErrInvalidRow
	case KindClosed:
		return ErrClosed
	default:
		return nil
	}
}

// Error is a storage failure with the operation and position that caused it.
// Page and Row are -1 when they do not apply.
type Error struct {
	Kind Kind
	Op   string // e.g. "read page", "insert", "decode email"
	Page int
	Row  int
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.sentinel().Error()
	if e.Page >= 0 {
		msg += fmt.Sprintf(" (page %d)", e.Page)
	}
	if e.Row >= 0 {
		msg += fmt.Sprintf(" (row %d)", e.Row)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New returns an *Error with no page or row position.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Page: -1, Row: -1, Err: err}
}

// PageError returns an *Error positioned at a page.
func PageError(kind Kind, op string, page int, err error) *Error {
	return &Error{Kind: kind, Op: op, Page: page, Row: -1, Err: err}
}

// RowError returns an *Error positioned at a row.
func RowError(kind Kind, op string, row int, err error) *Error {
	return &Error{Kind: kind, Op: op, Page: -1, Row: row, Err: err}
}

// KindOf returns the Kind carried by err, or 0 when err is not a storage error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrCorruptRecord):
		return KindCorruptRecord
	case errors.Is(err, ErrOutOfRange):
		return KindOutOfRange
	case errors.Is(err, ErrInvalidRow):
		return KindInvalidRow
	case errors.Is(err, ErrClosed):
		return KindClosed
	}
	return 0
}
