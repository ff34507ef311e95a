package core

import (
	"fmt"
	enc "github.com/SchnorcherSepp/ctrfs/encoding"
	"github.com/SchnorcherSepp/ctrfs/store"
	"io"
	"log"
	"os"
)

var _ io.ReadWriteSeeker = (*File)(nil)
var _ io.Closer = (*File)(nil)

// File is an encrypted random access file.
// The store holds the ciphertext, the caller reads and writes plaintext at the same offsets.
//
// A File is not safe for concurrent use (one reader or writer at a time).
type File struct {
	engine *enc.Engine
	store  store.Store
	pos    int64
	closed bool

	name  string
	debug bool
}

// New encapsulates a store. The logical position is the cursor of the store.
// Init must be called before the first Read or Write.
func New(s store.Store, name string, debugLvl uint8) (*File, error) {
	// nil check
	if s == nil {
		return nil, os.ErrInvalid
	}

	// sync position
	pos, err := s.Position()
	if err != nil {
		return nil, err
	}

	return &File{
		engine: enc.NewEngine(),
		store:  s,
		pos:    pos,
		name:   name,
		debug:  debugLvl >= store.DebugLow,
	}, nil
}

// Open opens an encrypted file (@see store.OpenFile).
// The position is 0. Init must be called before the first Read or Write.
func Open(path string, mode store.Mode, debugLvl uint8) (*File, error) {
	s, err := store.OpenFile(path, mode, debugLvl)
	if err != nil {
		return nil, err
	}

	f, err := New(s, path, debugLvl)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	if f.debug {
		log.Printf("DEBUG: %s/Open: '%s' (%s)", packageName, path, mode)
	}
	return f, nil
}

//--------------------------------------------------------------------------------------------------------------------//

// Init sets key (32 bytes) and iv (16 bytes). It can be called again to change them.
// The caller must store both and keep the iv unique per key.
func (f *File) Init(key, iv []byte) error {
	return f.engine.Init(key, iv)
}

// Read reads and decrypts up to len(p) bytes at the current position.
// At the end of the file Read returns 0, io.EOF and the position is not changed.
func (f *File) Read(p []byte) (int, error) {
	// the store is not touched before Init
	if !f.engine.Ready() {
		return 0, enc.ErrNotInitialized
	}
	if len(p) == 0 {
		return 0, nil
	}

	// read
	n, err := f.store.Read(p)
	if n <= 0 {
		return 0, err // io.EOF or store error
	}

	// decrypt (in place) and update position
	if _, e := f.engine.Transform(p[:n], f.pos, false); e != nil {
		_ = f.store.Seek(f.pos) // undo read
		return 0, e
	}
	f.pos += int64(n)

	// return n AND error
	return n, err
}

// ReadFull reads exactly len(p) bytes.
// If the end of the file is reached first, ErrEndOfInput is returned.
// The bytes read so far are in p and the position is moved behind them.
func (f *File) ReadFull(p []byte) error {
	if !f.engine.Ready() {
		return enc.ErrNotInitialized
	}

	n, err := io.ReadFull(f, p)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %d of %d bytes", enc.ErrEndOfInput, n, len(p))
	}
	return err
}

// Write encrypts and writes p at the current position.
// p is not changed; the encryption uses its own buffer.
func (f *File) Write(p []byte) (int, error) {
	if !f.engine.Ready() {
		return 0, enc.ErrNotInitialized
	}

	// encrypt
	out, err := f.engine.Transform(p, f.pos, true)
	if err != nil {
		return 0, err
	}

	// write and update position
	n, err := f.store.Write(out)
	if n > 0 {
		f.pos += int64(n)
	}
	return n, err
}

// Seek @see io.Seeker
//
// Seek sets the position for the next Read or Write to offset, interpreted
// according to whence: io.SeekStart, io.SeekCurrent or io.SeekEnd.
// A negative result is ErrInvalidArgument. Seeking beyond the end is allowed.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	// whence
	newPos := int64(0)
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		l, err := f.store.Length()
		if err != nil {
			return f.pos, err
		}
		newPos = l + offset
	default:
		return f.pos, fmt.Errorf("%w: whence %d", enc.ErrInvalidArgument, whence)
	}

	if err := f.SeekTo(newPos); err != nil {
		return f.pos, err
	}
	return f.pos, nil
}

// SeekTo sets the absolute position. It does no crypto work:
// the counter is derived from the position at the next Read or Write.
func (f *File) SeekTo(pos int64) error {
	// check
	if pos < 0 {
		return enc.ErrInvalidArgument
	}

	// set store cursor and position
	if err := f.store.Seek(pos); err != nil {
		return err
	}
	f.pos = pos
	return nil
}

// Position returns the current logical position.
func (f *File) Position() int64 {
	return f.pos
}

// Length returns the size of the file (plaintext and ciphertext have the same size).
func (f *File) Length() (int64, error) {
	return f.store.Length()
}

// Truncate changes the size of the file. The position is not changed.
// Stores without a Truncate method return os.ErrInvalid.
func (f *File) Truncate(size int64) error {
	tr, ok := f.store.(store.Truncater)
	if !ok {
		return os.ErrInvalid
	}
	if size < 0 {
		return enc.ErrInvalidArgument
	}
	return tr.Truncate(size)
}

// Counter returns the block counter of the last transform (@see enc.Engine).
func (f *File) Counter() uint32 {
	return f.engine.Counter()
}

// Name returns the name given to New or the path given to Open.
func (f *File) Name() string {
	return f.name
}

// Close closes the engine and the store.
// Errors of the store are returned. Further calls do nothing.
func (f *File) Close() error {
	_ = f.engine.Close()

	if f.closed {
		return nil
	}
	f.closed = true

	if f.debug {
		log.Printf("DEBUG: %s/Close: '%s'", packageName, f.name)
	}
	return f.store.Close()
}
