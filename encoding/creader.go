package enc

import (
	"errors"
	"io"
)

var _ io.ReadCloser = (*_CryptoReader)(nil)

type _CryptoReader struct {
	engine *Engine
	inner  io.ReadCloser
	offset int64
}

// CryptoReader decrypts or encrypts a given reader.
// cryptOff is the file position of the first byte of r.
func CryptoReader(r io.ReadCloser, cryptOff int64, key, iv []byte) (io.ReadCloser, error) {
	if cryptOff < 0 {
		return nil, ErrInvalidArgument
	}

	e := NewEngine()
	if err := e.Init(key, iv); err != nil {
		return nil, err
	}

	return &_CryptoReader{
		engine: e,
		inner:  r,
		offset: cryptOff,
	}, nil
}

//--------------------------------------------------------------------------------------------------------------------//

func (cr *_CryptoReader) Read(p []byte) (n int, err error) {
	// nil reader check
	if cr.inner == nil {
		return 0, errors.New("inner reader is nil")
	}

	// read
	n, err = cr.inner.Read(p)

	// crypt and update offset
	if n > 0 {
		if e := cr.engine.XORKeyStreamAt(p[:n], p[:n], cr.offset); e != nil {
			return 0, e
		}
		cr.offset += int64(n)
	}

	// return n AND error
	return n, err
}

func (cr *_CryptoReader) Close() (err error) {
	_ = cr.engine.Close()
	if cr.inner != nil {
		err = cr.inner.Close()
	}
	return
}
