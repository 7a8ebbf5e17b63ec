package pager

import (
	"fmt"
	"io"
	"os"
)

// Backend is the byte store under a Pager.
// ReadAt past the end returns io.EOF with the bytes that were available.
type Backend interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Sync() error
	Close() error
}

// File is a Backend over a regular file using positioned reads and writes.
type File struct {
	f *os.File
}

// OpenFile opens or creates the backing file at path for reading and writing.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return &File{f: f}, nil
}

// ReadAt reads len(p) bytes at off.
func (b *File) ReadAt(p []byte, off int64) (int, error) {
	return b.f.ReadAt(p, off)
}

// WriteAt writes p at off, extending the file if needed.
func (b *File) WriteAt(p []byte, off int64) (int, error) {
	return b.f.WriteAt(p, off)
}

// Size returns the current file length.
func (b *File) Size() (int64, error) {
	info, err := b.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Size(), nil
}

// Sync commits written pages to stable storage.
func (b *File) Sync() error {
	return b.f.Sync()
}

// Close closes the file.
func (b *File) Close() error {
	return b.f.Close()
}
