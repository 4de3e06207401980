// Package localpacket implements the wire encoding of R66 local packets:
// the length-framed envelope, the catalog of packet types and their segment layouts.
package localpacket

import (
	"github.com/pkg/errors"
)

// Packet defines the behavior of an R66 local packet.
//
// A packet owns its header, middle and end segments outright.
// Marshaling produces fresh slices, decoding copies out of the frame,
// so no segment is ever shared between an inbound and an outbound packet.
type Packet interface {
	// Type returns the catalog value associated with the specific packet.
	Type() PacketType

	// MarshalSegments encodes the packet into its three payload segments.
	// Any of them may be empty.
	MarshalSegments() (header, middle, end []byte, err error)
}

// DefaultBlockSize is used when a request carries a block size below MinBlockSize
// and DecodeOptions does not say otherwise.
const DefaultBlockSize = 65536

// MinBlockSize is the smallest block size a request may carry.
const MinBlockSize = 100

// DefaultMaxFrameSize bounds the total size of one frame.
const DefaultMaxFrameSize = 16 << 20

// DecodeOptions carries the local configuration the decoders need.
// The zero value is usable.
type DecodeOptions struct {
	// DefaultBlockSize replaces any request block size below MinBlockSize.
	DefaultBlockSize int32

	// MaxFrameSize bounds the total size of one frame, length fields included.
	MaxFrameSize int

	// Separator is tried first when splitting legacy request fields.
	Separator string
}

func (o *DecodeOptions) defaultBlockSize() int32 {
	if o == nil || o.DefaultBlockSize < MinBlockSize {
		return DefaultBlockSize
	}
	return o.DefaultBlockSize
}

func (o *DecodeOptions) maxFrameSize() int {
	if o == nil || o.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return o.MaxFrameSize
}

func (o *DecodeOptions) separator() string {
	if o == nil {
		return ""
	}
	return o.Separator
}

// decodeFunc decodes the segments of one packet type out of buf.
// headerLength includes the type byte, as the frame transmits it.
type decodeFunc func(headerLength, middleLength, endLength int, buf *Buffer, opts *DecodeOptions) (Packet, error)

var decoders = map[PacketType]decodeFunc{
	PacketTypeAuthent:         decodeAuthentPacket,
	PacketTypeStartup:         decodeStartupPacket,
	PacketTypeData:            decodeDataPacket,
	PacketTypeValid:           decodeValidPacket,
	PacketTypeError:           decodeErrorPacket,
	PacketTypeConnectionError: decodeConnectionErrorPacket,
	PacketTypeRequest:         decodeRequestPacket,
	PacketTypeShutdown:        decodeShutdownPacket,
	PacketTypeTest:            decodeTestPacket,
	PacketTypeEndTransfer:     decodeEndTransferPacket,
	PacketTypeInformation:     decodeInformationPacket,
	PacketTypeEndRequest:      decodeEndRequestPacket,
	PacketTypeKeepAlive:       decodeKeepAlivePacket,
	PacketTypeBusinessRequest: decodeBusinessRequestPacket,
	PacketTypeNoOp:            decodeNoOpPacket,
	PacketTypeBlockRequest:    decodeBlockRequestPacket,
	PacketTypeJSONRequest:     decodeJSONCommandPacket,
}

// NewPacket builds the typed packet for typ out of buf.
//
// headerLength includes the type byte; middleLength and endLength are raw segment lengths.
// Violating a per-type length invariant returns an error wrapping ErrNotEnoughData.
func NewPacket(typ PacketType, headerLength, middleLength, endLength int, buf *Buffer, opts *DecodeOptions) (Packet, error) {
	decode, ok := decoders[typ]
	if !ok {
		if typ.Reserved() {
			return nil, errors.Wrapf(ErrUnimplementedPacketType, "type %d (%s)", uint8(typ), typ)
		}
		return nil, errors.Wrapf(ErrUnknownPacketType, "type %d", uint8(typ))
	}

	if headerLength < 1 || middleLength < 0 || endLength < 0 {
		return nil, errors.Wrapf(ErrInvalidFrame, "%s: lengths %d/%d/%d", typ, headerLength, middleLength, endLength)
	}

	if buf.Len() < headerLength-1+middleLength+endLength {
		return nil, malformed(typ, "buffer holds %d bytes, segments need %d", buf.Len(), headerLength-1+middleLength+endLength)
	}

	p, err := decode(headerLength, middleLength, endLength, buf, opts)
	if err != nil {
		return nil, err
	}

	if buf.Err != nil {
		return nil, errors.Wrap(buf.Err, typ.String())
	}

	return p, nil
}
