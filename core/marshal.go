package core

/*
	IN THIS FILE: typed read and write helpers
		- fixed width values (big endian)
		- length prefixed strings
		- text lines
*/

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"strings"
	"unicode/utf8"
)

// MaxStringLength is the longest string WritePrefixedString can write (uint16 length prefix).
const MaxStringLength = math.MaxUint16

// ErrInvalidUTF8 is returned if a string or a line is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8")

// readN reads exactly n bytes (@see ReadFull).
func (f *File) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := f.ReadFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeAll writes p or returns an error.
func (f *File) writeAll(p []byte) error {
	n, err := f.Write(p)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	return err
}

// ----------  bytes  ---------------------------------------------------------------------------------------------- //

// ReadByte @see io.ByteReader
func (f *File) ReadByte() (byte, error) {
	b, err := f.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteByte @see io.ByteWriter
func (f *File) WriteByte(c byte) error {
	return f.writeAll([]byte{c})
}

func (f *File) ReadBool() (bool, error) {
	b, err := f.ReadByte()
	return b != 0, err
}

func (f *File) WriteBool(v bool) error {
	if v {
		return f.WriteByte(1)
	}
	return f.WriteByte(0)
}

// ----------  integers  ------------------------------------------------------------------------------------------- //

func (f *File) ReadUint16() (uint16, error) {
	b, err := f.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (f *File) ReadUint32() (uint32, error) {
	b, err := f.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (f *File) ReadUint64() (uint64, error) {
	b, err := f.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (f *File) WriteUint16(v uint16) error {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return f.writeAll(b)
}

func (f *File) WriteUint32(v uint32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return f.writeAll(b)
}

func (f *File) WriteUint64(v uint64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return f.writeAll(b)
}

func (f *File) ReadInt16() (int16, error) {
	v, err := f.ReadUint16()
	return int16(v), err
}

func (f *File) ReadInt32() (int32, error) {
	v, err := f.ReadUint32()
	return int32(v), err
}

func (f *File) ReadInt64() (int64, error) {
	v, err := f.ReadUint64()
	return int64(v), err
}

func (f *File) WriteInt16(v int16) error {
	return f.WriteUint16(uint16(v))
}

func (f *File) WriteInt32(v int32) error {
	return f.WriteUint32(uint32(v))
}

func (f *File) WriteInt64(v int64) error {
	return f.WriteUint64(uint64(v))
}

// ----------  floats (IEEE 754)  ---------------------------------------------------------------------------------- //

func (f *File) ReadFloat32() (float32, error) {
	v, err := f.ReadUint32()
	return math.Float32frombits(v), err
}

func (f *File) ReadFloat64() (float64, error) {
	v, err := f.ReadUint64()
	return math.Float64frombits(v), err
}

func (f *File) WriteFloat32(v float32) error {
	return f.WriteUint32(math.Float32bits(v))
}

func (f *File) WriteFloat64(v float64) error {
	return f.WriteUint64(math.Float64bits(v))
}

// ----------  text  ----------------------------------------------------------------------------------------------- //

// ReadPrefixedString reads a string written by WritePrefixedString.
func (f *File) ReadPrefixedString() (string, error) {
	n, err := f.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := f.readN(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}

// WritePrefixedString writes the length of s (uint16, big endian) followed by the UTF-8 bytes.
func (f *File) WritePrefixedString(s string) error {
	if len(s) > MaxStringLength {
		return errors.New("string too long")
	}
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	b := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(b, uint16(len(s)))
	copy(b[2:], s)
	return f.writeAll(b)
}

// maxEmptyReads limits the reads without data and without error (@see io.ErrNoProgress).
const maxEmptyReads = 100

// ReadLine reads a UTF-8 line. The line ends with '\n' or the end of the file;
// the line break ('\n' or "\r\n") is not returned.
// At the end of the file (no bytes left) ReadLine returns "", io.EOF.
// Store errors are returned, even if they come with the last byte.
func (f *File) ReadLine() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	empty := 0
	for {
		// byte by byte: the position must stay behind the line break
		n, err := f.Read(buf)
		if err != nil && err != io.EOF {
			return "", err
		}

		if n > 0 {
			empty = 0
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}

		if err == io.EOF {
			if sb.Len() == 0 && n == 0 {
				return "", io.EOF
			}
			break // last line
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return "", io.ErrNoProgress
			}
		}
	}

	line := strings.TrimSuffix(sb.String(), "\r")
	if !utf8.ValidString(line) {
		return "", ErrInvalidUTF8
	}
	return line, nil
}

// WriteLine writes s followed by '\n'.
func (f *File) WriteLine(s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	return f.writeAll([]byte(s + "\n"))
}
