package localpacket

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Frame layout, all integers big-endian:
//
//	int32 headerLength   // 8 + 1 + len(header): both following length fields, the type byte and the header
//	int32 middleLength   // len(middle)
//	int32 endLength      // len(end)
//	byte  type
//	bytes header
//	bytes middle
//	bytes end
const (
	lengthFieldSize  = 4
	frameLengthsSize = 3 * lengthFieldSize
	frameHeaderSize  = frameLengthsSize + 1

	// headerOverhead is what the transmitted headerLength adds to the header segment.
	headerOverhead = 2*lengthFieldSize + 1
)

// EncodeFrame returns p as one complete frame.
func EncodeFrame(p Packet) ([]byte, error) {
	header, middle, end, err := p.MarshalSegments()
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s", p.Type())
	}

	buf := NewMarshalBuffer(frameHeaderSize + len(header) + len(middle) + len(end))

	buf.AppendInt32(int32(headerOverhead + len(header)))
	buf.AppendInt32(int32(len(middle)))
	buf.AppendInt32(int32(len(end)))
	buf.AppendUint8(uint8(p.Type()))
	buf.AppendBytes(header)
	buf.AppendBytes(middle)
	buf.AppendBytes(end)

	return buf.Bytes(), nil
}

// WriteFrame encodes p and writes the frame to w in a single Write call.
func WriteFrame(w io.Writer, p Packet) error {
	b, err := EncodeFrame(p)
	if err != nil {
		return err
	}

	_, err = w.Write(b)
	return err
}

// DecodeFrame decodes the first complete frame of b.
//
// When b does not yet hold a complete frame, it returns (nil, 0, nil) and consumes nothing:
// the caller should retry with more data appended.
// Otherwise it returns the packet and the number of bytes the frame occupied.
// Any returned error is fatal to the connection.
//
// The decoded packet never aliases b.
func DecodeFrame(b []byte, opts *DecodeOptions) (Packet, int, error) {
	if len(b) < lengthFieldSize {
		return nil, 0, nil
	}

	length := int64(int32(binary.BigEndian.Uint32(b)))
	if length < headerOverhead {
		return nil, 0, errors.Wrapf(ErrInvalidFrame, "header length %d", length)
	}

	max := int64(opts.maxFrameSize())
	if length+lengthFieldSize > max {
		return nil, 0, errors.Wrapf(ErrFrameTooLarge, "header length %d exceeds %d", length, max)
	}

	available := int64(len(b) - lengthFieldSize)
	if available < length {
		return nil, 0, nil
	}

	middleLength := int64(int32(binary.BigEndian.Uint32(b[lengthFieldSize:])))
	endLength := int64(int32(binary.BigEndian.Uint32(b[2*lengthFieldSize:])))
	if middleLength < 0 || endLength < 0 {
		return nil, 0, errors.Wrapf(ErrInvalidFrame, "middle length %d, end length %d", middleLength, endLength)
	}

	total := lengthFieldSize + length + middleLength + endLength
	if total > max {
		return nil, 0, errors.Wrapf(ErrFrameTooLarge, "frame of %d bytes exceeds %d", total, max)
	}

	// What remains after the three length fields must hold the type, header, middle and end.
	available = int64(len(b) - frameLengthsSize)
	if middleLength+endLength+length-2*lengthFieldSize > available {
		return nil, 0, nil
	}

	typ := PacketType(b[frameLengthsSize])
	headerLength := int(length - 2*lengthFieldSize)

	buf := NewBuffer(b[frameHeaderSize:total])
	p, err := NewPacket(typ, headerLength, int(middleLength), int(endLength), buf, opts)
	if err != nil {
		return nil, 0, err
	}

	return p, int(total), nil
}

// Decoder accumulates bytes from a stream and yields packets in arrival order.
//
// Feeding never blocks, and Next never reprocesses a frame it already returned.
type Decoder struct {
	opts    DecodeOptions
	pending []byte
}

// NewDecoder returns a Decoder using the given options.
func NewDecoder(opts DecodeOptions) *Decoder {
	return &Decoder{
		opts: opts,
	}
}

// Feed appends b to the pending bytes. The Decoder copies b.
func (d *Decoder) Feed(b []byte) {
	d.pending = append(d.pending, b...)
}

// Buffered returns the number of bytes fed but not yet decoded.
func (d *Decoder) Buffered() int {
	return len(d.pending)
}

// Next decodes the next packet.
// It returns (nil, nil) when more data is needed.
func (d *Decoder) Next() (Packet, error) {
	p, n, err := DecodeFrame(d.pending, &d.opts)
	if err != nil || p == nil {
		return nil, err
	}

	d.pending = d.pending[n:]
	return p, nil
}

// FrameReader reads packets out of an io.Reader.
type FrameReader struct {
	r       io.Reader
	dec     *Decoder
	scratch []byte
}

// NewFrameReader returns a FrameReader reading from r.
func NewFrameReader(r io.Reader, opts DecodeOptions) *FrameReader {
	return &FrameReader{
		r:       r,
		dec:     NewDecoder(opts),
		scratch: make([]byte, 32*1024),
	}
}

// ReadPacket blocks until one complete packet has been read.
//
// A stream ending in the middle of a frame returns io.ErrUnexpectedEOF,
// a stream ending on a frame boundary returns io.EOF.
func (fr *FrameReader) ReadPacket() (Packet, error) {
	for {
		p, err := fr.dec.Next()
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}

		n, err := fr.r.Read(fr.scratch)
		if n > 0 {
			fr.dec.Feed(fr.scratch[:n])
		}

		if err != nil {
			if n > 0 {
				// decode what arrived with the error first.
				continue
			}
			if err == io.EOF && fr.dec.Buffered() > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}
