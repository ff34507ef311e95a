package webdav

/*
	IN THIS FILE: I/O Implementation
		- files: Read(), Write(), Seek(), Close()  ->  encrypted core.File
		- folders: Readdir()  ->  os.File
*/

import (
	"github.com/SchnorcherSepp/ctrfs/core"
	"golang.org/x/net/webdav"
	"io"
	"os"
	"sync"
)

var _ webdav.File = (*_File)(nil)
var _ webdav.File = (*_Dir)(nil)

// _File is returned by a FileSystem's OpenFile method for regular files.
// The webdav handler may use a file from more than one goroutine, core.File may not.
type _File struct {
	inner   *core.File
	absPath string
	mux     sync.Mutex
}

// newFile encapsulate a core.File and return a webdav.File (random read and write access)
func newFile(f *core.File, absPath string) webdav.File {
	return &_File{
		inner:   f,
		absPath: absPath,
	}
}

// Close @see os.File
func (f *_File) Close() error {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.inner.Close()
}

// Read @see os.File
//
// At end of file, Read returns 0, io.EOF.
func (f *_File) Read(p []byte) (int, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.inner.Read(p)
}

// Write @see os.File
//
// Write returns a non-nil error when n != len(b).
func (f *_File) Write(p []byte) (int, error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	n, err := f.inner.Write(p)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// Seek @see os.File
func (f *_File) Seek(offset int64, whence int) (int64, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.inner.Seek(offset, whence)
}

// Readdir is not possible on a file.
func (f *_File) Readdir(_ int) ([]os.FileInfo, error) {
	return nil, os.ErrInvalid
}

// Stat @see os.File
func (f *_File) Stat() (os.FileInfo, error) {
	info, err := os.Stat(f.absPath)
	if err != nil {
		return nil, err
	}
	return newFileInfo(info), nil
}

// ------------------------------------------------------------------------------------------------------------------ //

// _Dir is returned by a FileSystem's OpenFile method for folders.
type _Dir struct {
	inner *os.File
}

// newDir opens a local folder.
func newDir(absPath string) (webdav.File, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	return &_Dir{inner: f}, nil
}

func (d *_Dir) Close() error {
	return d.inner.Close()
}

// Read is not possible on a folder.
func (d *_Dir) Read(_ []byte) (int, error) {
	return 0, os.ErrInvalid
}

// Write is not possible on a folder.
func (d *_Dir) Write(_ []byte) (int, error) {
	return 0, webdav.ErrForbidden
}

func (d *_Dir) Seek(offset int64, whence int) (int64, error) {
	return d.inner.Seek(offset, whence)
}

// Readdir @see os.File
func (d *_Dir) Readdir(count int) ([]os.FileInfo, error) {
	list, err := d.inner.Readdir(count)
	for i := range list {
		list[i] = newFileInfo(list[i])
	}
	return list, err
}

func (d *_Dir) Stat() (os.FileInfo, error) {
	info, err := d.inner.Stat()
	if err != nil {
		return nil, err
	}
	return newFileInfo(info), nil
}
