// internal/protocol/framing.go
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// PrefixSize is the size of the big-endian length prefix that precedes every payload.
const PrefixSize = 4

var (
	// ErrDisconnect is returned by the decoder when a peer sends a zero-length frame.
	ErrDisconnect = errors.New("peer requested disconnect")
	// ErrFrameTooLarge marks a length prefix the decoder refuses to honour. It is fatal for the connection.
	ErrFrameTooLarge = errors.New("frame length out of range")
)

// Encode prefixes payload with its length.
func Encode(payload []byte) []byte {
	frame := make([]byte, PrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[PrefixSize:], payload)
	return frame
}

// Decoder accumulates raw bytes from a stream and splits them into payloads.
// It is owned by a single reader and is not safe for concurrent use.
type Decoder struct {
	// MaxPayload caps the accepted payload size. Zero means math.MaxInt32.
	MaxPayload int

	buf []byte
}

// NewDecoder returns a decoder that rejects payloads larger than maxPayload.
func NewDecoder(maxPayload int) *Decoder {
	return &Decoder{MaxPayload: maxPayload}
}

// Feed appends freshly read bytes to the pending buffer.
func (d *Decoder) Feed(chunk []byte) {
	d.buf = append(d.buf, chunk...)
}

// Buffered reports how many bytes are waiting for the rest of their frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next extracts the next complete payload. ok is false when more bytes are
// needed. A zero-length frame yields ErrDisconnect; an oversize prefix yields
// ErrFrameTooLarge and leaves the decoder unusable.
func (d *Decoder) Next() (payload []byte, ok bool, err error) {
	if len(d.buf) < PrefixSize {
		return nil, false, nil
	}
	length := binary.BigEndian.Uint32(d.buf)
	if length > math.MaxInt32 {
		return nil, false, fmt.Errorf("%w: prefix %d overflows int32", ErrFrameTooLarge, length)
	}
	limit := d.MaxPayload
	if limit <= 0 {
		limit = math.MaxInt32
	}
	if int64(length) > int64(limit) {
		return nil, false, fmt.Errorf("%w: prefix %d exceeds %d", ErrFrameTooLarge, length, limit)
	}
	if length == 0 {
		d.consume(PrefixSize)
		return nil, false, ErrDisconnect
	}
	end := PrefixSize + int(length)
	if len(d.buf) < end {
		return nil, false, nil
	}
	payload = make([]byte, length)
	copy(payload, d.buf[PrefixSize:end])
	d.consume(end)
	return payload, true, nil
}

func (d *Decoder) consume(n int) {
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
}
