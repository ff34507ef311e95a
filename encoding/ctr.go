package enc

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// KeySize is the length of an AES-256 key.
const KeySize = 32

// IvSize is the length of the iv (one AES block).
// The first 12 bytes are the nonce, the last 4 bytes are the big endian block counter.
const IvSize = aes.BlockSize

// counterOff is the index of the first counter byte in the iv.
const counterOff = IvSize - 4

// MaxBlocks is the number of blocks the 32 bit counter can address (2^32 blocks = 64 GiB).
const MaxBlocks = 1 << 32

type engineState uint8

const (
	stateUninitialized engineState = iota
	stateReady
	stateClosed
)

// Engine is the AES-256-CTR transform engine for random access files.
//
// The keystream of a byte at the absolute file position pos is byte (pos mod 16) of
//   AES(key, iv[0:12] ++ bigEndianUint32(pos / 16))
// There is no header and no padding: ciphertext and plaintext have the same length and offsets.
//
// The nonce (iv[0:12]) MUST be unique per key. The engine can not check that.
//
// An Engine is not safe for concurrent use. It owns its iv buffer exclusively;
// use one engine per open file.
type Engine struct {
	state  engineState
	block  cipher.Block
	iv     [IvSize]byte
	stream [aes.BlockSize]byte

	// newCipher builds the block cipher (encrypt direction only). nil means aes.NewCipher.
	newCipher func(key []byte) (cipher.Block, error)
}

// NewEngine returns an uninitialized engine. Init must be called before any transform.
func NewEngine() *Engine {
	return &Engine{
		newCipher: aes.NewCipher,
	}
}

//--------------------------------------------------------------------------------------------------------------------//

// Init binds the key and the iv to the engine.
// The last 4 bytes of the iv are the counter. They are owned by the engine and set to 0,
// no matter what the caller passed in.
//
// Init can be called again to change key and iv. A closed engine returns ErrClosed.
func (e *Engine) Init(key, iv []byte) error {
	// terminal state
	if e.state == stateClosed {
		return ErrClosed
	}

	// input validation
	if len(key) != KeySize {
		return ErrInvalidKeyLength
	}
	if len(iv) != IvSize {
		return ErrInvalidIvLength
	}

	// AES config
	newCipher := e.newCipher
	if newCipher == nil {
		newCipher = aes.NewCipher
	}
	block, err := newCipher(key)
	if err != nil {
		return err
	}

	// nonce from the caller, counter starts at 0
	copy(e.iv[:], iv)
	for i := counterOff; i < IvSize; i++ {
		e.iv[i] = 0
	}

	e.block = block
	e.state = stateReady
	return nil
}

// Transform encrypts or decrypts data that starts at the absolute file position pos.
//
// Decryption (encrypting=false) works in place: the returned slice is data.
// Encryption (encrypting=true) writes to a new buffer and returns it; data is never changed.
// An empty data slice is a no-op.
func (e *Engine) Transform(data []byte, pos int64, encrypting bool) ([]byte, error) {
	if e.state != stateReady {
		return nil, ErrNotInitialized
	}
	if pos < 0 {
		return nil, ErrInvalidArgument
	}
	if len(data) == 0 {
		return data, nil
	}

	// output target
	dst := data
	if encrypting {
		dst = make([]byte, len(data))
	}

	if err := e.xorKeyStream(dst, data, pos); err != nil {
		return nil, err
	}
	return dst, nil
}

// XORKeyStreamAt XORs each byte of src with the keystream at the file position pos
// and writes the result to dst. dst and src may overlap entirely or not at all.
// It panics if dst is smaller than src.
func (e *Engine) XORKeyStreamAt(dst, src []byte, pos int64) error {
	if e.state != stateReady {
		return ErrNotInitialized
	}
	if len(dst) < len(src) {
		panic("enc: output smaller than input")
	}
	return e.xorKeyStream(dst, src, pos)
}

// xorKeyStream is shared by all transforms. The block index and the offset in the block
// are always derived from pos, so seeks never touch the cipher state.
func (e *Engine) xorKeyStream(dst, src []byte, pos int64) error {
	if pos < 0 {
		return ErrInvalidArgument
	}
	if len(src) == 0 {
		return nil
	}

	// the last byte must be addressable by the 32 bit counter
	last := uint64(pos) + uint64(len(src)) - 1
	if last/aes.BlockSize >= MaxBlocks {
		return ErrCounterOverflow
	}

	// Calculates the AES block in which the bytes start (does not have to be the beginning of the block).
	// This block number is also the counter, since we start counting 0.
	blockIndex := uint64(pos) >> 4
	off := int(pos & 0xF)

	// aes block number -> counter
	binary.BigEndian.PutUint32(e.iv[counterOff:], uint32(blockIndex))
	e.block.Encrypt(e.stream[:], e.iv[:])

	for i := range src {
		// next block only if there are bytes left
		if off == aes.BlockSize {
			e.incCounter()
			e.block.Encrypt(e.stream[:], e.iv[:])
			off = 0
		}
		dst[i] = src[i] ^ e.stream[off]
		off++
	}
	return nil
}

// incCounter adds 1 to the big endian counter in iv[12:16].
// A carry ends at byte 12; the overflow check in xorKeyStream keeps it from wrapping.
func (e *Engine) incCounter() {
	for i := IvSize - 1; i >= counterOff; i-- {
		e.iv[i]++
		if e.iv[i] != 0 {
			break
		}
	}
}

//--------------------------------------------------------------------------------------------------------------------//

// Ready reports whether the engine is initialized and not closed.
func (e *Engine) Ready() bool {
	return e.state == stateReady
}

// Counter returns the current block counter (last 4 bytes of the working iv).
func (e *Engine) Counter() uint32 {
	return binary.BigEndian.Uint32(e.iv[counterOff:])
}

// IV returns a copy of the working iv including the current counter.
func (e *Engine) IV() []byte {
	iv := make([]byte, IvSize)
	copy(iv, e.iv[:])
	return iv
}

// Close marks the engine as closed and zeroes the iv and keystream buffers.
// The block cipher is dropped. Close is idempotent.
func (e *Engine) Close() error {
	for i := range e.iv {
		e.iv[i] = 0
	}
	for i := range e.stream {
		e.stream[i] = 0
	}
	e.block = nil
	e.state = stateClosed
	return nil
}
