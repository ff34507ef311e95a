package webdav

import (
	enc "github.com/SchnorcherSepp/ctrfs/encoding"
	"path/filepath"
	"sync"
	"testing"
)

var (
	testKeysOnce sync.Once
	testKeys     *enc.KeyFile
)

// loadTestKeys creates one key file for all tests (pbkdf2 is slow).
func loadTestKeys(t *testing.T) *enc.KeyFile {
	testKeysOnce.Do(func() {
		p := filepath.Join(t.TempDir(), "test.key")
		if err := enc.CreateKeyFile(p); err != nil {
			t.Fatal(err)
		}
		k, err := enc.LoadKeyFile(p)
		if err != nil {
			t.Fatal(err)
		}
		testKeys = k
	})
	if testKeys == nil {
		t.Fatal("no test keys")
	}
	return testKeys
}
