package core_test

import (
	"bytes"
	"errors"
	"github.com/SchnorcherSepp/ctrfs/core"
	enc "github.com/SchnorcherSepp/ctrfs/encoding"
	"github.com/SchnorcherSepp/ctrfs/store"
	"io"
	"os"
	"path/filepath"
	"testing"
)

var (
	testKey = bytes.Repeat([]byte{0x42}, enc.KeySize)
	testIV  = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 0, 0, 0, 0}
)

// spyStore counts the calls to the inner store.
type spyStore struct {
	store.Store
	calls    int
	closeErr error
}

func (s *spyStore) Read(p []byte) (int, error)  { s.calls++; return s.Store.Read(p) }
func (s *spyStore) Write(p []byte) (int, error) { s.calls++; return s.Store.Write(p) }
func (s *spyStore) Close() error {
	s.calls++
	_ = s.Store.Close()
	return s.closeErr
}

func newRamFile(t *testing.T, data []byte) (*core.File, *store.RamStore) {
	rs := store.NewRamStore(data)
	f, err := core.New(rs, "ram", store.DebugOff)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Init(testKey, testIV); err != nil {
		t.Fatal(err)
	}
	return f, rs
}

func TestNew(t *testing.T) {
	if _, err := core.New(nil, "nil", store.DebugOff); err == nil {
		t.Fatal("no error")
	}

	// position from store cursor
	rs := store.NewRamStore(make([]byte, 100))
	_ = rs.Seek(33)
	f, err := core.New(rs, "ram", store.DebugOff)
	if err != nil {
		t.Fatal(err)
	}
	if f.Position() != 33 || f.Name() != "ram" {
		t.Fatalf("pos=%d, name=%s", f.Position(), f.Name())
	}
}

func TestFile_notInitialized(t *testing.T) {
	spy := &spyStore{Store: store.NewRamStore(make([]byte, 64))}
	f, err := core.New(spy, "spy", store.DebugOff)
	if err != nil {
		t.Fatal(err)
	}

	if n, err := f.Read(make([]byte, 10)); n != 0 || err != enc.ErrNotInitialized {
		t.Errorf("n=%d, err=%v", n, err)
	}
	if n, err := f.Write([]byte("test")); n != 0 || err != enc.ErrNotInitialized {
		t.Errorf("n=%d, err=%v", n, err)
	}
	if err := f.ReadFull(make([]byte, 10)); err != enc.ErrNotInitialized {
		t.Errorf("wrong error: %v", err)
	}
	if spy.calls != 0 {
		t.Fatalf("store was used %d times", spy.calls)
	}

	// seek is allowed
	if err := f.SeekTo(10); err != nil || f.Position() != 10 {
		t.Fatalf("pos=%d, err=%v", f.Position(), err)
	}

	// closed
	_ = f.Init(testKey, testIV)
	_ = f.Close()
	calls := spy.calls
	if _, err := f.Read(make([]byte, 10)); err != enc.ErrNotInitialized {
		t.Errorf("wrong error: %v", err)
	}
	if _, err := f.Write([]byte("x")); err != enc.ErrNotInitialized {
		t.Errorf("wrong error: %v", err)
	}
	if err := f.Init(testKey, testIV); err != enc.ErrClosed {
		t.Errorf("wrong error: %v", err)
	}
	if spy.calls != calls {
		t.Fatal("store was used after close")
	}
}

func TestFile_boundaryCrossing(t *testing.T) {
	f, rs := newRamFile(t, nil)

	plain := make([]byte, 256)
	for i := range plain {
		plain[i] = byte(i)
	}

	// write 0..255
	if n, err := f.Write(plain); n != 256 || err != nil {
		t.Fatalf("n=%d, err=%v", n, err)
	}
	if f.Position() != 256 || f.Counter() != 15 {
		t.Fatalf("pos=%d, counter=%d", f.Position(), f.Counter())
	}

	// store holds ciphertext of the same length
	raw := append([]byte{}, rs.Bytes()...)
	if len(raw) != 256 || bytes.Equal(raw, plain) {
		t.Fatal("no ciphertext")
	}
	if err := enc.CryptBytes(raw, 0, testKey, testIV); err != nil || !bytes.Equal(raw, plain) {
		t.Fatalf("wrong ciphertext: %v", err)
	}

	// read all
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 256)
	if err := f.ReadFull(buf); err != nil || !bytes.Equal(buf, plain) {
		t.Fatalf("buf=%v, err=%v", buf, err)
	}

	// read 4 bytes at 14
	if _, err := f.Seek(14, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	buf = make([]byte, 4)
	if n, err := f.Read(buf); n != 4 || err != nil || !bytes.Equal(buf, []byte{14, 15, 16, 17}) {
		t.Fatalf("n=%d, buf=%v, err=%v", n, buf, err)
	}
	if f.Position() != 18 {
		t.Fatalf("pos=%d", f.Position())
	}
}

func TestFile_writeDoesNotChangeInput(t *testing.T) {
	f, _ := newRamFile(t, nil)

	p := []byte("the caller buffer must stay plain text")
	orig := append([]byte{}, p...)
	if _, err := f.Write(p); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p, orig) {
		t.Fatal("input changed")
	}
}

func TestFile_endOfFile(t *testing.T) {
	f, _ := newRamFile(t, nil)
	_, _ = f.Write([]byte("0123456789"))

	// at end
	if n, err := f.Read(make([]byte, 5)); n != 0 || err != io.EOF {
		t.Fatalf("n=%d, err=%v", n, err)
	}
	if f.Position() != 10 {
		t.Fatalf("pos=%d", f.Position())
	}

	// beyond end
	if _, err := f.Seek(5, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	if n, err := f.Read(make([]byte, 5)); n != 0 || err != io.EOF {
		t.Fatalf("n=%d, err=%v", n, err)
	}
	if f.Position() != 15 {
		t.Fatalf("pos=%d", f.Position())
	}

	// short read is no error
	_ = f.SeekTo(7)
	buf := make([]byte, 5)
	if n, err := f.Read(buf); n != 3 || err != nil || string(buf[:n]) != "789" {
		t.Fatalf("n=%d, err=%v", n, err)
	}

	// full read is an error
	_ = f.SeekTo(7)
	err := f.ReadFull(make([]byte, 5))
	if !errors.Is(err, enc.ErrEndOfInput) {
		t.Fatalf("wrong error: %v", err)
	}

	// empty buffer
	if n, err := f.Read(nil); n != 0 || err != nil {
		t.Fatalf("n=%d, err=%v", n, err)
	}
}

func TestFile_Seek(t *testing.T) {
	f, _ := newRamFile(t, make([]byte, 100))

	tests := []struct {
		offset int64
		whence int
		pos    int64
	}{
		{10, io.SeekStart, 10},
		{5, io.SeekCurrent, 15},
		{-5, io.SeekCurrent, 10},
		{0, io.SeekEnd, 100},
		{-1, io.SeekEnd, 99},
		{1000, io.SeekStart, 1000},
	}
	for _, tt := range tests {
		pos, err := f.Seek(tt.offset, tt.whence)
		if err != nil || pos != tt.pos || f.Position() != tt.pos {
			t.Errorf("Seek(%d, %d): pos=%d, err=%v", tt.offset, tt.whence, pos, err)
		}
	}

	// negative
	_ = f.SeekTo(3)
	if _, err := f.Seek(-4, io.SeekCurrent); !errors.Is(err, enc.ErrInvalidArgument) {
		t.Errorf("wrong error: %v", err)
	}
	if err := f.SeekTo(-1); err != enc.ErrInvalidArgument {
		t.Errorf("wrong error: %v", err)
	}
	if _, err := f.Seek(0, 99); !errors.Is(err, enc.ErrInvalidArgument) {
		t.Errorf("wrong error: %v", err)
	}
	if f.Position() != 3 {
		t.Fatalf("pos=%d", f.Position())
	}
}

func TestFile_overwriteInTheMiddle(t *testing.T) {
	f, _ := newRamFile(t, nil)

	plain := bytes.Repeat([]byte("abcdefghijklmnopqrstuvwxyz"), 10)
	_, _ = f.Write(plain)

	// patch across a block boundary
	_ = f.SeekTo(30)
	_, _ = f.Write([]byte("XXXXX"))
	copy(plain[30:], "XXXXX")

	_ = f.SeekTo(0)
	buf := make([]byte, len(plain))
	if err := f.ReadFull(buf); err != nil || !bytes.Equal(buf, plain) {
		t.Fatalf("%s\nis not\n%s (%v)", buf, plain, err)
	}
}

func TestFile_Truncate(t *testing.T) {
	f, _ := newRamFile(t, nil)
	_, _ = f.Write(make([]byte, 50))

	if err := f.Truncate(20); err != nil {
		t.Fatal(err)
	}
	if l, err := f.Length(); l != 20 || err != nil {
		t.Fatalf("l=%d, err=%v", l, err)
	}
	if err := f.Truncate(-1); err != enc.ErrInvalidArgument {
		t.Errorf("wrong error: %v", err)
	}

	// store without Truncate
	spy := &spyStore{Store: store.NewRamStore(nil)}
	f2, _ := core.New(spy, "spy", store.DebugOff)
	if err := f2.Truncate(0); err != os.ErrInvalid {
		t.Errorf("wrong error: %v", err)
	}
}

func TestFile_Close(t *testing.T) {
	spy := &spyStore{Store: store.NewRamStore(nil), closeErr: errors.New("close error")}
	f, _ := core.New(spy, "spy", store.DebugOff)

	// store error is returned
	if err := f.Close(); err == nil || err.Error() != "close error" {
		t.Fatalf("wrong error: %v", err)
	}

	// idempotent
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if spy.calls != 1 {
		t.Fatalf("store closed %d times", spy.calls)
	}
}

func TestOpen(t *testing.T) {
	p := filepath.Join(t.TempDir(), "secret.dat")

	// read only: not found
	if _, err := core.Open(p, store.ReadOnly, store.DebugOff); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("wrong error: %v", err)
	}

	// read write: create and write
	f, err := core.Open(p, store.ReadWrite, store.DebugLow)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Init(testKey, testIV); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("Hello secret world!")); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	// ciphertext on disk
	raw, _ := os.ReadFile(p)
	if len(raw) != 19 || bytes.Contains(raw, []byte("secret")) {
		t.Fatalf("raw=%q", raw)
	}

	// read only: read
	f, err = core.Open(p, store.ReadOnly, store.DebugOff)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	_ = f.Init(testKey, testIV)
	_ = f.SeekTo(6)
	buf := make([]byte, 6)
	if err := f.ReadFull(buf); err != nil || string(buf) != "secret" {
		t.Fatalf("buf=%q, err=%v", buf, err)
	}

	// write to read only file: store error
	if _, err := f.Write([]byte("x")); err == nil {
		t.Error("no error")
	}
}
