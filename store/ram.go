package store

import (
	"errors"
	"io"
	"os"
)

var _ Store = (*RamStore)(nil)
var _ Truncater = (*RamStore)(nil)

// RamStore is a Store in memory.
type RamStore struct {
	data   []byte
	pos    int64
	closed bool
}

// NewRamStore returns a store with a copy of data. The cursor is 0.
func NewRamStore(data []byte) *RamStore {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &RamStore{
		data: buf,
	}
}

// Bytes returns the content of the store (not a copy).
func (s *RamStore) Bytes() []byte {
	return s.data
}

//--------------------------------------------------------------------------------------------------------------------//

func (s *RamStore) Read(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

// Write writes p at the cursor. Writing beyond the end fills the gap with zeros.
func (s *RamStore) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	end := s.pos + int64(len(p))
	if end > int64(len(s.data)) {
		s.grow(end)
	}
	n := copy(s.data[s.pos:], p)
	s.pos += int64(n)
	return n, nil
}

func (s *RamStore) Seek(pos int64) error {
	if s.closed {
		return os.ErrClosed
	}
	if pos < 0 {
		return errors.New("negative position")
	}
	s.pos = pos
	return nil
}

func (s *RamStore) Position() (int64, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.pos, nil
}

func (s *RamStore) Length() (int64, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return int64(len(s.data)), nil
}

// Truncate changes the size of the store. The cursor is not moved.
func (s *RamStore) Truncate(size int64) error {
	if s.closed {
		return os.ErrClosed
	}
	if size < 0 {
		return errors.New("negative size")
	}
	if size > int64(len(s.data)) {
		s.grow(size)
	} else {
		s.data = s.data[:size]
	}
	return nil
}

// Close marks the store as closed. Close is idempotent.
func (s *RamStore) Close() error {
	s.closed = true
	return nil
}

// grow extends data with zeros up to size.
func (s *RamStore) grow(size int64) {
	buf := make([]byte, size)
	copy(buf, s.data)
	s.data = buf
}
