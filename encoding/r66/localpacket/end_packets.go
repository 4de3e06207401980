package localpacket

// EndTransferPacket defines the END_TRANSFER packet, closing the data phase of a transfer.
//
// Header is the type of the request being ended, middle the way byte,
// end the optional hex digest of the whole file.
type EndTransferPacket struct {
	Request  PacketType
	Way      Way
	Optional string
}

// NewEndTransferPacket returns an EndTransfer ASK.
func NewEndTransferPacket(req PacketType, optional string) *EndTransferPacket {
	return &EndTransferPacket{
		Request:  req,
		Way:      WayAsk,
		Optional: optional,
	}
}

// Type returns the catalog value of the packet.
func (p *EndTransferPacket) Type() PacketType {
	return PacketTypeEndTransfer
}

// IsToValidate reports whether p still awaits its answer.
func (p *EndTransferPacket) IsToValidate() bool {
	return p.Way == WayAsk
}

// Validate returns the answer to p. The receiver is left unchanged.
func (p *EndTransferPacket) Validate() *EndTransferPacket {
	q := *p
	q.Way = WayAnswer
	return &q
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *EndTransferPacket) MarshalSegments() (header, middle, end []byte, err error) {
	return []byte{byte(p.Request)}, []byte{byte(p.Way)}, []byte(p.Optional), nil
}

func decodeEndTransferPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if headerLength-1 != 1 {
		return nil, malformed(PacketTypeEndTransfer, "request of %d bytes", headerLength-1)
	}
	if middleLength != 1 {
		return nil, malformed(PacketTypeEndTransfer, "way of %d bytes", middleLength)
	}

	return &EndTransferPacket{
		Request:  PacketType(buf.ConsumeUint8()),
		Way:      consumeWay(buf, false),
		Optional: buf.ConsumeString(endLength),
	}, nil
}

// EndRequestPacket defines the END_REQUEST packet, the final handshake of a transfer.
//
// Header is the final ErrorCode as an int32, middle the way byte,
// end an optional diagnostic.
type EndRequestPacket struct {
	Code     ErrorCode
	Way      Way
	Optional string
}

// NewEndRequestPacket returns an EndRequest ASK.
func NewEndRequestPacket(code ErrorCode, optional string) *EndRequestPacket {
	return &EndRequestPacket{
		Code:     code,
		Way:      WayAsk,
		Optional: optional,
	}
}

// Type returns the catalog value of the packet.
func (p *EndRequestPacket) Type() PacketType {
	return PacketTypeEndRequest
}

// IsToValidate reports whether p still awaits its answer.
func (p *EndRequestPacket) IsToValidate() bool {
	return p.Way == WayAsk
}

// Validate returns the answer to p. The receiver is left unchanged.
func (p *EndRequestPacket) Validate() *EndRequestPacket {
	q := *p
	q.Way = WayAnswer
	return &q
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *EndRequestPacket) MarshalSegments() (header, middle, end []byte, err error) {
	buf := NewMarshalBuffer(4)
	buf.AppendInt32(int32(p.Code))

	return buf.Bytes(), []byte{byte(p.Way)}, []byte(p.Optional), nil
}

func decodeEndRequestPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if headerLength-1 != 4 {
		return nil, malformed(PacketTypeEndRequest, "code of %d bytes", headerLength-1)
	}
	if middleLength != 1 {
		return nil, malformed(PacketTypeEndRequest, "way of %d bytes", middleLength)
	}

	return &EndRequestPacket{
		Code:     ErrorCode(buf.ConsumeInt32()),
		Way:      consumeWay(buf, false),
		Optional: buf.ConsumeString(endLength),
	}, nil
}
