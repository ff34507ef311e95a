package main

import (
	"bytes"
	"context"
	"encoding/hex"
	enc "github.com/SchnorcherSepp/ctrfs/encoding"
	"github.com/SchnorcherSepp/ctrfs/store"
	"github.com/SchnorcherSepp/ctrfs/webdav"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCrypt(t *testing.T) {
	dir := t.TempDir()
	keyStr := filepath.Join(dir, "test.key")
	plainStr := filepath.Join(dir, "plain.txt")
	cryptStr := filepath.Join(dir, "data.bin")
	backStr := filepath.Join(dir, "back.txt")

	plain := []byte(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 1000))
	if err := enc.CreateKeyFile(keyStr); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(plainStr, plain, 0600); err != nil {
		t.Fatal(err)
	}

	// encrypt
	if err := crypt(true, 0, keyStr, "", plainStr, cryptStr, 1); err != nil {
		t.Fatal(err)
	}
	raw, _ := ioutil.ReadFile(cryptStr)
	if len(raw) != len(plain) || bytes.Equal(raw, plain) {
		t.Fatal("not encrypted")
	}

	// decrypt
	if err := crypt(false, 0, keyStr, "", backStr, cryptStr, 1); err != nil {
		t.Fatal(err)
	}
	back, _ := ioutil.ReadFile(backStr)
	if !bytes.Equal(back, plain) {
		t.Fatal("wrong plain text")
	}

	// cat
	var buf bytes.Buffer
	if err := cat(&buf, keyStr, "", cryptStr, 1000, 77); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), plain[1000:1077]) {
		t.Fatalf("wrong range: %q", buf.Bytes())
	}
	buf.Reset()
	if err := cat(&buf, keyStr, "", cryptStr, int64(len(plain)-5), 100); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), plain[len(plain)-5:]) {
		t.Fatalf("wrong range: %q", buf.Bytes())
	}
	if err := cat(&buf, keyStr, "", cryptStr, -1, 1); err == nil {
		t.Fatal("no error")
	}

	// info
	buf.Reset()
	if err := info(&buf, 0, keyStr, "", cryptStr); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "+ last counter: ") || !strings.Contains(out, "data.bin") {
		t.Fatalf("wrong info: %s", out)
	}
	if !strings.Contains(out, "first block (encrypted): "+hex.EncodeToString(raw[:16])) {
		t.Fatalf("wrong first block: %s", out)
	}
}

func TestCrypt_webdavRoot(t *testing.T) {
	dir := t.TempDir()
	keyStr := filepath.Join(dir, "test.key")
	plainStr := filepath.Join(dir, "plain.txt")
	root := filepath.Join(dir, "root")
	cryptStr := filepath.Join(root, "sub", "a.txt")

	plain := []byte("hello webdav world")
	if err := enc.CreateKeyFile(keyStr); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(plainStr, plain, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(cryptStr), 0700); err != nil {
		t.Fatal(err)
	}

	// encrypt below the root
	if err := crypt(true, 0, keyStr, root, plainStr, cryptStr, 1); err != nil {
		t.Fatal(err)
	}

	// read with the webdav file system
	keyFile, err := enc.LoadKeyFile(keyStr)
	if err != nil {
		t.Fatal(err)
	}
	fs := webdav.NewFileSystem(root, keyFile, true, store.DebugOff)
	f, err := fs.OpenFile(context.TODO(), "/sub/a.txt", os.O_RDONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil || !bytes.Equal(b, plain) {
		t.Fatalf("b=%q, err=%v", b, err)
	}

	// cat with the same root
	var buf bytes.Buffer
	if err := cat(&buf, keyStr, root, cryptStr, 6, 6); err != nil || buf.String() != "webdav" {
		t.Fatalf("buf=%q, err=%v", buf.String(), err)
	}

	// file outside of root
	if err := cat(&buf, keyStr, filepath.Join(root, "sub", "x"), cryptStr, 0, 1); err == nil {
		t.Fatal("no error")
	}
}
