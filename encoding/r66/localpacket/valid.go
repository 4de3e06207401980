package localpacket

// ValidPacket defines the VALID packet, a generic positive answer.
//
// Header and middle are free text, end is the type of the request being answered.
type ValidPacket struct {
	Header  string
	Middle  string
	Request PacketType
}

// NewValidPacket returns a ValidPacket answering a request of type req.
func NewValidPacket(header, middle string, req PacketType) *ValidPacket {
	return &ValidPacket{
		Header:  header,
		Middle:  middle,
		Request: req,
	}
}

// Type returns the catalog value of the packet.
func (p *ValidPacket) Type() PacketType {
	return PacketTypeValid
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *ValidPacket) MarshalSegments() (header, middle, end []byte, err error) {
	return []byte(p.Header), []byte(p.Middle), []byte{byte(p.Request)}, nil
}

func decodeValidPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if endLength != 1 {
		return nil, malformed(PacketTypeValid, "end of %d bytes", endLength)
	}

	return &ValidPacket{
		Header:  buf.ConsumeString(headerLength - 1),
		Middle:  buf.ConsumeString(middleLength),
		Request: PacketType(buf.ConsumeUint8()),
	}, nil
}
