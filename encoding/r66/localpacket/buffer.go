package localpacket

import (
	"encoding/binary"
)

// Buffer wraps up the various encoding details of the R66 local packet format.
//
// All integers are encoded in network byte order (big-endian).
// Unlike length-prefixed formats, R66 segments carry no inner lengths:
// the frame supplies the length of each segment, and the packet decoders
// consume exactly that many bytes.
//
// The first failing Consume call records its error in Err,
// and every later Consume call becomes a no-op returning a zero value.
type Buffer struct {
	b   []byte
	off int
	Err error
}

// NewBuffer creates and initializes a new Buffer using buf as its initial contents.
// The new Buffer takes ownership of buf, and the caller should not use buf after this call.
//
// In most cases, new(Buffer) (or just declaring a Buffer variable) is sufficient to initialize a Buffer.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{
		b: buf,
	}
}

// NewMarshalBuffer creates a new Buffer ready to start marshaling a segment into.
// It preallocates enough space for size bytes of data.
func NewMarshalBuffer(size int) *Buffer {
	return NewBuffer(make([]byte, 0, size))
}

// Bytes returns a slice of length b.Len() holding the unconsumed bytes in the Buffer.
// The slice is valid for use only until the next buffer modification
// (that is, only until the next call to an Append or Consume method).
func (b *Buffer) Bytes() []byte {
	return b.b[b.off:]
}

// Len returns the number of unconsumed bytes in the Buffer.
func (b *Buffer) Len() int {
	return len(b.b) - b.off
}

// ConsumeUint8 consumes a single byte from the Buffer.
// If Buffer does not have enough data, it will set Err to ErrNotEnoughData.
func (b *Buffer) ConsumeUint8() uint8 {
	if b.Err != nil {
		return 0
	}

	if b.Len() < 1 {
		b.Err = ErrNotEnoughData
		return 0
	}

	var v uint8
	v, b.off = b.b[b.off], b.off+1
	return v
}

// AppendUint8 appends a single byte into the Buffer.
func (b *Buffer) AppendUint8(v uint8) {
	b.b = append(b.b, v)
}

// ConsumeBool consumes a single byte from the Buffer, and returns true if that byte is non-zero.
// If Buffer does not have enough data, it will set Err to ErrNotEnoughData.
func (b *Buffer) ConsumeBool() bool {
	return b.ConsumeUint8() != 0
}

// AppendBool appends a single bool into the Buffer.
// It encodes it as a single byte, with false as 0, and true as 1.
func (b *Buffer) AppendBool(v bool) {
	if v {
		b.AppendUint8(1)
	} else {
		b.AppendUint8(0)
	}
}

// ConsumeUint32 consumes a single uint32 from the Buffer, in network byte order (big-endian).
// If Buffer does not have enough data, it will set Err to ErrNotEnoughData.
func (b *Buffer) ConsumeUint32() uint32 {
	if b.Err != nil {
		return 0
	}

	if b.Len() < 4 {
		b.Err = ErrNotEnoughData
		return 0
	}

	v := binary.BigEndian.Uint32(b.b[b.off:])
	b.off += 4
	return v
}

// AppendUint32 appends a single uint32 into the Buffer, in network byte order (big-endian).
func (b *Buffer) AppendUint32(v uint32) {
	b.b = append(b.b,
		byte(v>>24),
		byte(v>>16),
		byte(v>>8),
		byte(v>>0),
	)
}

// ConsumeInt32 consumes a single int32 from the Buffer, in network byte order (big-endian) with two’s complement.
// If Buffer does not have enough data, it will set Err to ErrNotEnoughData.
func (b *Buffer) ConsumeInt32() int32 {
	return int32(b.ConsumeUint32())
}

// AppendInt32 appends a single int32 into the Buffer, in network byte order (big-endian) with two’s complement.
func (b *Buffer) AppendInt32(v int32) {
	b.AppendUint32(uint32(v))
}

// ConsumeBytes consumes n bytes of raw binary data from the Buffer.
// The returned slice is a copy, it never aliases the Buffer.
// If Buffer does not have enough data, it will set Err to ErrNotEnoughData.
func (b *Buffer) ConsumeBytes(n int) []byte {
	if b.Err != nil {
		return nil
	}

	if n < 0 || b.Len() < n {
		b.Err = ErrNotEnoughData
		return nil
	}

	v := make([]byte, n)
	copy(v, b.b[b.off:])
	b.off += n
	return v
}

// AppendBytes appends raw binary data into the Buffer, without any length prefix.
func (b *Buffer) AppendBytes(v []byte) {
	b.b = append(b.b, v...)
}

// ConsumeString consumes n bytes from the Buffer as a string.
// If Buffer does not have enough data, it will set Err to ErrNotEnoughData.
func (b *Buffer) ConsumeString(n int) string {
	if b.Err != nil {
		return ""
	}

	if n < 0 || b.Len() < n {
		b.Err = ErrNotEnoughData
		return ""
	}

	v := string(b.b[b.off : b.off+n])
	b.off += n
	return v
}

// AppendString appends the bytes of v into the Buffer, without any length prefix.
func (b *Buffer) AppendString(v string) {
	b.b = append(b.b, v...)
}

// Skip discards the next n unconsumed bytes.
// If Buffer does not have enough data, it will set Err to ErrNotEnoughData.
func (b *Buffer) Skip(n int) {
	if b.Err != nil {
		return
	}

	if n < 0 || b.Len() < n {
		b.Err = ErrNotEnoughData
		return
	}

	b.off += n
}
