// Package mmap provides a memory-mapped page backend.
package mmap

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is a memory-mapped file that satisfies pager.Backend.
// The mapping always covers the whole file; writes past the end grow the
// file to exactly the written extent and remap it.
type File struct {
	file *os.File
	data []byte
	size int64
}

// Open opens or creates a file and maps it into memory.
// An empty file is not mapped until the first write.
func Open(path string) (*File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	m := &File{file: file, size: info.Size()}
	if m.size > 0 {
		if err := m.mapFile(); err != nil {
			file.Close()
			return nil, err
		}
	}
	return m, nil
}

func (m *File) mapFile() error {
	data, err := unix.Mmap(int(m.file.Fd()), 0, int(m.size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to mmap: %w", err)
	}
	m.data = data
	return nil
}

func (m *File) unmap() error {
	if m.data == nil {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("failed to munmap: %w", err)
	}
	m.data = nil
	return nil
}

// ReadAt copies mapped bytes at off into p.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.file == nil {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= m.size {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt copies p into the mapping at off, growing the file if needed.
func (m *File) WriteAt(p []byte, off int64) (int, error) {
	if m.file == nil {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	end := off + int64(len(p))
	if end > m.size {
		if err := m.Grow(end); err != nil {
			return 0, err
		}
	}
	return copy(m.data[off:end], p), nil
}

// Size returns the current mapped size.
func (m *File) Size() (int64, error) {
	if m.file == nil {
		return 0, os.ErrClosed
	}
	return m.size, nil
}

// Sync flushes changes to disk.
func (m *File) Sync() error {
	if m.file == nil {
		return os.ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Grow extends the file to newSize and remaps it.
// This invalidates any previously returned slices.
func (m *File) Grow(newSize int64) error {
	if newSize <= m.size {
		return nil
	}

	if err := m.unmap(); err != nil {
		return fmt.Errorf("grow: %w", err)
	}
	if err := m.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to extend file during grow: %w", err)
	}
	m.size = newSize
	if err := m.mapFile(); err != nil {
		return fmt.Errorf("grow: %w", err)
	}
	return nil
}

// Close unmaps and closes the file.
func (m *File) Close() error {
	if err := m.unmap(); err != nil {
		return err
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			return fmt.Errorf("failed to close file: %w", err)
		}
		m.file = nil
	}
	return nil
}
