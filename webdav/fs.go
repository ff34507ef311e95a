package webdav

/*
	IN THIS FILE: FileSystem implementation
		- path mapping (url path -> local path)
		- FS: OpenFile(), Stat(), Mkdir(), RemoveAll(), Rename()
		- no I/O implementations (@see file.go)
*/

import (
	"context"
	"github.com/SchnorcherSepp/ctrfs/core"
	enc "github.com/SchnorcherSepp/ctrfs/encoding"
	"github.com/SchnorcherSepp/ctrfs/store"
	"golang.org/x/net/webdav"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var _ webdav.FileSystem = (*_FileSystem)(nil)

// _FileSystem serves the encrypted files of a local folder as plain text.
// Every file has its own key and iv, derived from the relative path (@see enc.KeyFile).
type _FileSystem struct {
	root     string
	keys     *enc.KeyFile
	readOnly bool
	debugLvl uint8
}

// NewFileSystem creates a new webdav file system.
//
// ATTENTION: Overwriting a file (PUT) encrypts the new content with the same key and iv.
// Old copies of the encrypted file and the new one share the key stream: together
// they reveal the XOR of both plain texts.
//
// 'root' is the local folder with the encrypted files.
// 'keys' provides key and iv for every file.
// 'readOnly' forbids all changes.
// 'debugLvl' controls the print output (@see store.DebugOff, store.DebugLow and store.DebugHigh).
func NewFileSystem(root string, keys *enc.KeyFile, readOnly bool, debugLvl uint8) webdav.FileSystem {
	return &_FileSystem{
		root:     root,
		keys:     keys,
		readOnly: readOnly,
		debugLvl: debugLvl,
	}
}

// ------------------------------------------------------------------------------------------------------------------ //

// OpenFile @see os.OpenFile
//
// Folders are opened with os.Open, files are opened as encrypted core.File.
// If the file does not exist, and the O_CREATE flag is passed, it is created.
func (fs *_FileSystem) OpenFile(_ context.Context, name string, flag int, _ os.FileMode) (webdav.File, error) {
	relPath, absPath, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}
	write := flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0

	// folder
	info, err := os.Stat(absPath)
	if err == nil && info.IsDir() {
		if write {
			return nil, os.ErrPermission
		}
		return newDir(absPath)
	}

	// read only
	if write && fs.readOnly {
		return nil, webdav.ErrForbidden
	}

	// exist?
	if err != nil && !(os.IsNotExist(err) && flag&os.O_CREATE != 0) {
		return nil, err
	}
	if err == nil && flag&(os.O_CREATE|os.O_EXCL) == os.O_CREATE|os.O_EXCL {
		return nil, os.ErrExist
	}

	// open encrypted file
	mode := store.ReadOnly
	if write {
		mode = store.ReadWrite
	}
	f, err := fs.openCrypt(relPath, absPath, mode)
	if err != nil {
		return nil, err
	}

	// truncate and append
	if flag&os.O_TRUNC != 0 {
		if err := f.Truncate(0); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if flag&os.O_APPEND != 0 {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if fs.debugLvl >= store.DebugHigh {
		log.Printf("DEBUG: %s/OpenFile: '%s' (%s)", packageName, relPath, mode)
	}
	return newFile(f, absPath), nil
}

// Stat @see os.Stat
//
// The size of the encrypted file is the size of the plain text.
func (fs *_FileSystem) Stat(_ context.Context, name string) (os.FileInfo, error) {
	_, absPath, err := fs.resolve(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	return newFileInfo(info), nil
}

// Mkdir @see os.Mkdir
func (fs *_FileSystem) Mkdir(_ context.Context, name string, perm os.FileMode) error {
	if fs.readOnly {
		return webdav.ErrForbidden // read only
	}
	_, absPath, err := fs.resolve(name)
	if err != nil {
		return err
	}
	return os.Mkdir(absPath, perm)
}

// RemoveAll @see os.RemoveAll
//
// The root folder can not be removed.
func (fs *_FileSystem) RemoveAll(_ context.Context, name string) error {
	if fs.readOnly {
		return webdav.ErrForbidden // read only
	}
	relPath, absPath, err := fs.resolve(name)
	if err != nil {
		return err
	}
	if relPath == "." {
		return webdav.ErrForbidden // root
	}
	return os.RemoveAll(absPath)
}

// Rename @see os.Rename
//
// Key and iv depend on the path. A renamed file must be decrypted with the old
// key and encrypted with the new key; folders are processed file by file.
func (fs *_FileSystem) Rename(_ context.Context, oldName, newName string) error {
	if fs.readOnly {
		return webdav.ErrForbidden // read only
	}
	oldRel, oldAbs, err := fs.resolve(oldName)
	if err != nil {
		return err
	}
	newRel, newAbs, err := fs.resolve(newName)
	if err != nil {
		return err
	}
	if oldRel == "." || newRel == "." {
		return webdav.ErrForbidden // root
	}
	if oldRel == newRel {
		return nil
	}
	if strings.HasPrefix(newRel+"/", oldRel+"/") {
		return os.ErrInvalid // into itself
	}

	// walk the source (one call for a single file)
	err = filepath.Walk(oldAbs, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		sub, err := filepath.Rel(oldAbs, p)
		if err != nil {
			return err
		}
		target := filepath.Join(newAbs, sub)
		targetRel := path.Join(newRel, filepath.ToSlash(sub))
		sourceRel := path.Join(oldRel, filepath.ToSlash(sub))

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return fs.reencrypt(sourceRel, p, targetRel, target)
	})
	if err != nil {
		log.Printf("ERROR: %s/Rename: '%s' -> '%s': %v", packageName, oldRel, newRel, err)
		return err
	}

	if fs.debugLvl >= store.DebugLow {
		log.Printf("DEBUG: %s/Rename: '%s' -> '%s'", packageName, oldRel, newRel)
	}
	return os.RemoveAll(oldAbs)
}

// ---------  Helper  ----------------------------------------------------------------------------------------------- //

// resolve returns the key name (slash separated, '.' for the root) and the local path.
func (fs *_FileSystem) resolve(name string) (string, string, error) {
	if strings.ContainsRune(name, 0) || fs.root == "" {
		return "", "", os.ErrNotExist
	}

	// clean ('..' can not leave the root)
	absPath := filepath.Join(fs.root, filepath.FromSlash(path.Clean("/"+name)))

	// same key name as the CLI
	relPath, err := enc.KeyName(fs.root, absPath)
	if err != nil {
		return "", "", err
	}
	return relPath, absPath, nil
}

// openCrypt opens a file with the key and iv of relPath.
func (fs *_FileSystem) openCrypt(relPath, absPath string, mode store.Mode) (*core.File, error) {
	f, err := core.Open(absPath, mode, fs.debugLvl)
	if err != nil {
		return nil, err
	}
	if err := f.Init(fs.keys.DataKey(relPath), fs.keys.IV(relPath)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// reencrypt copies a file to a new path with the new key.
func (fs *_FileSystem) reencrypt(oldRel, oldAbs, newRel, newAbs string) error {
	src, err := fs.openCrypt(oldRel, oldAbs, store.ReadOnly)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := fs.openCrypt(newRel, newAbs, store.ReadWrite)
	if err != nil {
		return err
	}
	if err := dst.Truncate(0); err != nil {
		_ = dst.Close()
		return err
	}

	// copy (decrypt -> encrypt)
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
