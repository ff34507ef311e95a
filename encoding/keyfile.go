package enc

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"golang.org/x/crypto/pbkdf2"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// KeyFileSize is the size of a key file in bytes.
const KeyFileSize = 128

// nonceSize is the caller part of the iv (the rest is the counter).
const nonceSize = IvSize - 4

// KeyFile manages the secret keys
type KeyFile struct {
	cryptSecret []byte // for data keys
	nonceSecret []byte // for iv nonces
}

// LoadKeyFile read the 128 bytes key file and generate the secrets.
func LoadKeyFile(path string) (*KeyFile, error) {

	// read key file
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// file size == 128 bytes
	if len(b) != KeyFileSize {
		return nil, errors.New("key file must be exactly 128 bytes long")
	}

	// keys:
	//   cryptSecret the first 64 bytes,
	//   nonceSecret the last 64 bytes.
	k := new(KeyFile)
	k.cryptSecret = pbkdf2.Key(b[:64], []byte("master_secret"), 60000, 64, sha512.New)
	k.nonceSecret = pbkdf2.Key(b[64:], []byte("nonce_secret"), 60000, 64, sha512.New)
	return k, nil
}

// KeyName returns the name that selects key and iv of the file at path:
// the slash separated path relative to root ("." for root itself).
// Every caller must use it, otherwise the same file gets different keys.
// A path outside of root is ErrInvalidArgument.
func KeyName(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", err
	}

	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: '%s' is not in '%s'", ErrInvalidArgument, path, root)
	}
	return rel, nil
}

// DataKey calculates the key for a file.
// The name is the relative path of the encrypted file (@see KeyName).
// return 32 bytes (AES 256 key)
func (k *KeyFile) DataKey(name string) []byte {
	return pbkdf2.Key(k.cryptSecret, []byte(name), 10000, KeySize, sha256.New)
}

// IV calculates the iv for a file.
// The first 12 bytes are a nonce derived from the name, the last 4 bytes (counter) are 0.
// Every name has its own key, so the nonce is unique per key.
// return 16 bytes
func (k *KeyFile) IV(name string) []byte {
	nonce := pbkdf2.Key(k.nonceSecret, []byte(name), 1000, nonceSize, sha256.New)
	return append(nonce, 0, 0, 0, 0)
}

//--------------------------------------------------------------------------------------------------------------------//

// CreateKeyFile creates a new key file that contains exactly 128 random bytes.
// Existing files are NOT overwritten (os.ErrExist).
func CreateKeyFile(path string) error {
	// random key
	randKey := make([]byte, KeyFileSize)
	if _, err := io.ReadFull(rand.Reader, randKey); err != nil {
		return err
	}

	// O_EXCL: don't overwrite files
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := fh.Write(randKey); err != nil {
		_ = fh.Close()
		_ = os.Remove(path)
		return err
	}
	if err := fh.Close(); err != nil {
		return err
	}

	// read test
	_, err = LoadKeyFile(path)
	return err
}
