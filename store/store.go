package store

// Mode is the open mode of a store.
type Mode uint8

const (
	// ReadOnly opens an existing file. A missing file is an error (os.ErrNotExist).
	ReadOnly Mode = iota

	// ReadWrite opens a file for reading and writing. A missing file is created.
	ReadWrite
)

// String returns the mode name for log messages.
func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "ReadOnly"
	case ReadWrite:
		return "ReadWrite"
	default:
		return "Unknown"
	}
}

// Store is a random access byte store with a cursor.
// It holds the raw (encrypted) bytes and knows nothing about encryption.
type Store interface {
	// Read reads up to len(p) bytes at the cursor and moves the cursor.
	// At the end of the store Read returns 0, io.EOF.
	Read(p []byte) (n int, err error)

	// Write writes p at the cursor and moves the cursor.
	Write(p []byte) (n int, err error)

	// Seek sets the cursor to the absolute position pos.
	Seek(pos int64) error

	// Position returns the cursor.
	Position() (int64, error)

	// Length returns the size of the store in bytes.
	Length() (int64, error)

	// Close releases the store.
	Close() error
}

// Truncater is implemented by stores that can change their size.
type Truncater interface {
	Truncate(size int64) error
}
