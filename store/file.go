package store

import (
	"io"
	"log"
	"os"
)

var _ Store = (*FileStore)(nil)
var _ Truncater = (*FileStore)(nil)

// FileStore is a Store backed by an os.File.
type FileStore struct {
	file  *os.File
	mode  Mode
	debug bool
}

// OpenFile opens the file at path.
// ReadOnly fails if the file does not exist; ReadWrite creates missing files (0600).
func OpenFile(path string, mode Mode, debugLvl uint8) (*FileStore, error) {
	var f *os.File
	var err error

	switch mode {
	case ReadOnly:
		f, err = os.Open(path)
	case ReadWrite:
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	default:
		return nil, os.ErrInvalid
	}
	if err != nil {
		return nil, err
	}

	// debug (0=off, 1=debug, 2=high)
	debug := debugLvl >= DebugHigh
	if debug {
		log.Printf("DEBUG: %s/OpenFile: '%s' (%s)", packageName, path, mode)
	}

	return &FileStore{
		file:  f,
		mode:  mode,
		debug: debug,
	}, nil
}

//--------------------------------------------------------------------------------------------------------------------//

// Name returns the path of the file.
func (s *FileStore) Name() string {
	return s.file.Name()
}

// Mode returns the open mode.
func (s *FileStore) Mode() Mode {
	return s.mode
}

func (s *FileStore) Read(p []byte) (int, error) {
	return s.file.Read(p)
}

func (s *FileStore) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

func (s *FileStore) Seek(pos int64) error {
	_, err := s.file.Seek(pos, io.SeekStart)
	return err
}

func (s *FileStore) Position() (int64, error) {
	return s.file.Seek(0, io.SeekCurrent)
}

func (s *FileStore) Length() (int64, error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Truncate changes the size of the file. The cursor is not moved.
func (s *FileStore) Truncate(size int64) error {
	return s.file.Truncate(size)
}

// Close closes the file. A second call returns an error (@see os.File).
func (s *FileStore) Close() error {
	if s.debug {
		log.Printf("DEBUG: %s/Close: '%s'", packageName, s.file.Name())
	}
	return s.file.Close()
}
