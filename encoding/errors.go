package enc

import "errors"

var (
	// ErrInvalidKeyLength is returned by Init if the key is not an AES-256 key (32 bytes).
	ErrInvalidKeyLength = errors.New("invalid key length: 32 bytes required")

	// ErrInvalidIvLength is returned by Init if the iv is not exactly one AES block (16 bytes).
	ErrInvalidIvLength = errors.New("invalid iv length: 16 bytes required")

	// ErrNotInitialized is returned by every transform before Init or after Close.
	ErrNotInitialized = errors.New("crypto engine not initialized")

	// ErrClosed is returned by Init after Close. A closed engine can not be reused.
	ErrClosed = errors.New("crypto engine closed")

	// ErrInvalidArgument is returned for negative file positions.
	ErrInvalidArgument = errors.New("invalid argument: negative position")

	// ErrEndOfInput is returned if a full read can not be satisfied before the end of the stream.
	ErrEndOfInput = errors.New("end of input")

	// ErrCounterOverflow is returned if a range reaches beyond the 32 bit block counter (64 GiB).
	ErrCounterOverflow = errors.New("block counter overflow: position beyond 64 GiB")
)
