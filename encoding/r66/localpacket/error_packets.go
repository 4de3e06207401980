package localpacket

// ErrorPacket defines the ERROR packet, reporting a transfer failure.
//
// Header is a free-text message, middle carries the ErrorCode letter,
// end the ErrorAction telling the receiver what to do with the connection.
type ErrorPacket struct {
	Header string
	Middle string
	Action ErrorAction
}

// NewErrorPacket returns an ErrorPacket carrying code.
func NewErrorPacket(msg string, code ErrorCode, action ErrorAction) *ErrorPacket {
	return &ErrorPacket{
		Header: msg,
		Middle: code.Letter(),
		Action: action,
	}
}

// Type returns the catalog value of the packet.
func (p *ErrorPacket) Type() PacketType {
	return PacketTypeError
}

// Code returns the ErrorCode carried by the middle segment.
func (p *ErrorPacket) Code() ErrorCode {
	return ErrorCodeFromString(p.Middle)
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *ErrorPacket) MarshalSegments() (header, middle, end []byte, err error) {
	if !p.Action.Valid() {
		return nil, nil, nil, malformed(PacketTypeError, "action %d", int32(p.Action))
	}

	buf := NewMarshalBuffer(4)
	buf.AppendInt32(int32(p.Action))

	return []byte(p.Header), []byte(p.Middle), buf.Bytes(), nil
}

func decodeErrorPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if endLength != 4 {
		return nil, malformed(PacketTypeError, "action of %d bytes", endLength)
	}

	p := &ErrorPacket{
		Header: buf.ConsumeString(headerLength - 1),
		Middle: buf.ConsumeString(middleLength),
		Action: ErrorAction(buf.ConsumeInt32()),
	}

	if buf.Err == nil && !p.Action.Valid() {
		return nil, malformed(PacketTypeError, "action %d", int32(p.Action))
	}

	return p, nil
}

// ConnectionErrorPacket defines the CONNECT_ERROR packet, reporting a failed connection or authentication.
type ConnectionErrorPacket struct {
	Header string
	Middle string
}

// Type returns the catalog value of the packet.
func (p *ConnectionErrorPacket) Type() PacketType {
	return PacketTypeConnectionError
}

// MarshalSegments returns p as its header and middle segments.
func (p *ConnectionErrorPacket) MarshalSegments() (header, middle, end []byte, err error) {
	if p.Header == "" && p.Middle == "" {
		return nil, nil, nil, malformed(PacketTypeConnectionError, "no message")
	}

	return []byte(p.Header), []byte(p.Middle), nil, nil
}

func decodeConnectionErrorPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if headerLength-1 <= 0 && middleLength <= 0 {
		return nil, malformed(PacketTypeConnectionError, "no message")
	}

	p := &ConnectionErrorPacket{
		Header: buf.ConsumeString(headerLength - 1),
		Middle: buf.ConsumeString(middleLength),
	}
	buf.Skip(endLength)

	return p, nil
}
