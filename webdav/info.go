package webdav

/*
	IN THIS FILE: helper (encapsulation)
		- os.FileInfo with content type
*/

import (
	"context"
	"golang.org/x/net/webdav"
	"mime"
	"os"
	"path/filepath"
)

var _ os.FileInfo = (*_FileInfo)(nil)
var _ webdav.ContentTyper = (*_FileInfo)(nil)

// _FileInfo is the os.FileInfo of the encrypted file.
// Size, ModTime and Mode are valid for the plain text, because the encryption keeps the length.
type _FileInfo struct {
	os.FileInfo
}

// newFileInfo return a local os.FileInfo with content type support.
func newFileInfo(info os.FileInfo) os.FileInfo {
	return &_FileInfo{
		FileInfo: info,
	}
}

// ContentType returns the content type for the file extension.
//
// Unknown extensions return ErrNotImplemented. Then the webdav handler reads
// the first 512 bytes (plain text) and detects the type.
func (i *_FileInfo) ContentType(_ context.Context) (string, error) {
	if i.IsDir() {
		return "", webdav.ErrNotImplemented
	}
	if cType := mime.TypeByExtension(filepath.Ext(i.Name())); cType != "" {
		return cType, nil
	}
	return "", webdav.ErrNotImplemented
}
