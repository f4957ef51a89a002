// internal/protocol/codec.go
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrShortPayload is returned by Reader when a field runs past the end of the payload.
	ErrShortPayload = errors.New("payload too short")
	// ErrBadCount is returned when an element count is negative or cannot fit the payload.
	ErrBadCount = errors.New("element count out of range")
)

// Writer builds big-endian payloads.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter starts a payload with the given tag bytes.
func NewWriter(tags ...byte) *Writer {
	w := &Writer{}
	w.buf.Write(tags)
	return w
}

func (w *Writer) Byte(v byte) *Writer {
	w.buf.WriteByte(v)
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Byte(1)
	}
	return w.Byte(0)
}

func (w *Writer) Int32(v int32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
	return w
}

// String writes an int32 byte length followed by the UTF-8 bytes.
func (w *Writer) String(s string) *Writer {
	w.Int32(int32(len(s)))
	w.buf.WriteString(s)
	return w
}

func (w *Writer) Raw(b []byte) *Writer {
	w.buf.Write(b)
	return w
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Reader walks a payload field by field.
type Reader struct {
	data   []byte
	offset int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Skip advances past n bytes, typically the tag bytes already routed on.
func (r *Reader) Skip(n int) error {
	if r.offset+n > len(r.data) {
		return fmt.Errorf("skip %d at offset %d: %w", n, r.offset, ErrShortPayload)
	}
	r.offset += n
	return nil
}

func (r *Reader) Byte() (byte, error) {
	if r.offset+1 > len(r.data) {
		return 0, fmt.Errorf("byte at offset %d: %w", r.offset, ErrShortPayload)
	}
	v := r.data[r.offset]
	r.offset++
	return v, nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.Byte()
	return v != 0, err
}

func (r *Reader) Int32() (int32, error) {
	if r.offset+4 > len(r.data) {
		return 0, fmt.Errorf("int32 at offset %d: %w", r.offset, ErrShortPayload)
	}
	v := int32(binary.BigEndian.Uint32(r.data[r.offset:]))
	r.offset += 4
	return v, nil
}

// String reads an int32 length and that many bytes.
func (r *Reader) String() (string, error) {
	n, err := r.Int32()
	if err != nil {
		return "", err
	}
	if n < 0 || r.offset+int(n) > len(r.data) {
		return "", fmt.Errorf("string of %d bytes at offset %d: %w", n, r.offset, ErrShortPayload)
	}
	s := string(r.data[r.offset : r.offset+int(n)])
	r.offset += int(n)
	return s, nil
}

// Remaining reports the unread byte count.
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// Count reads an int32 element count and checks that that many elements of
// at least minSize bytes fit in the rest of the payload.
func (r *Reader) Count(minSize int) (int, error) {
	n, err := r.Int32()
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > r.Remaining()/minSize {
		return 0, fmt.Errorf("%d elements of %d+ bytes with %d left: %w", n, minSize, r.Remaining(), ErrBadCount)
	}
	return int(n), nil
}
