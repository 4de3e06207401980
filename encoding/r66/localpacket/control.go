package localpacket

// KeepAlivePacket defines the KEEPALIVE packet. Its only segment is the way byte.
type KeepAlivePacket struct {
	Way Way
}

// Type returns the catalog value of the packet.
func (p *KeepAlivePacket) Type() PacketType {
	return PacketTypeKeepAlive
}

// IsToValidate reports whether p still awaits its answer.
func (p *KeepAlivePacket) IsToValidate() bool {
	return p.Way == WayAsk
}

// Validate returns the answer to p.
func (p *KeepAlivePacket) Validate() *KeepAlivePacket {
	return &KeepAlivePacket{
		Way: WayAnswer,
	}
}

// MarshalSegments returns p as its middle segment.
func (p *KeepAlivePacket) MarshalSegments() (header, middle, end []byte, err error) {
	return nil, []byte{byte(p.Way)}, nil, nil
}

func decodeKeepAlivePacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if middleLength != 1 {
		return nil, malformed(PacketTypeKeepAlive, "way of %d bytes", middleLength)
	}

	buf.Skip(headerLength - 1)
	p := &KeepAlivePacket{
		Way: consumeWay(buf, false),
	}
	buf.Skip(endLength)

	return p, nil
}

// NoOpPacket defines the NOOP packet, which carries nothing and expects nothing.
type NoOpPacket struct{}

// Type returns the catalog value of the packet.
func (p *NoOpPacket) Type() PacketType {
	return PacketTypeNoOp
}

// MarshalSegments returns three empty segments.
func (p *NoOpPacket) MarshalSegments() (header, middle, end []byte, err error) {
	return nil, nil, nil, nil
}

func decodeNoOpPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	buf.Skip(headerLength - 1 + middleLength + endLength)
	return &NoOpPacket{}, nil
}

// ShutdownPacket defines the SHUTDOWN packet, asking the remote server to stop.
//
// Header is the administrator key, middle the optional restart flag.
type ShutdownPacket struct {
	Key     []byte
	Restart bool
}

// Type returns the catalog value of the packet.
func (p *ShutdownPacket) Type() PacketType {
	return PacketTypeShutdown
}

// MarshalSegments returns p as its header and middle segments.
func (p *ShutdownPacket) MarshalSegments() (header, middle, end []byte, err error) {
	if len(p.Key) == 0 {
		return nil, nil, nil, malformed(PacketTypeShutdown, "empty key")
	}

	if p.Restart {
		middle = []byte{1}
	}

	return append([]byte(nil), p.Key...), middle, nil, nil
}

func decodeShutdownPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if headerLength-1 <= 0 {
		return nil, malformed(PacketTypeShutdown, "empty key")
	}

	p := &ShutdownPacket{
		Key: buf.ConsumeBytes(headerLength - 1),
	}
	if middleLength > 0 {
		p.Restart = buf.ConsumeBool()
		buf.Skip(middleLength - 1)
	}
	buf.Skip(endLength)

	return p, nil
}

// BlockRequestPacket defines the BLOCK_REQUEST packet, toggling whether the remote server accepts new requests.
//
// Header is the block flag, middle the administrator key.
type BlockRequestPacket struct {
	Block bool
	Key   []byte
}

// Type returns the catalog value of the packet.
func (p *BlockRequestPacket) Type() PacketType {
	return PacketTypeBlockRequest
}

// MarshalSegments returns p as its header and middle segments.
func (p *BlockRequestPacket) MarshalSegments() (header, middle, end []byte, err error) {
	if len(p.Key) == 0 {
		return nil, nil, nil, malformed(PacketTypeBlockRequest, "empty key")
	}

	buf := NewMarshalBuffer(1)
	buf.AppendBool(p.Block)

	return buf.Bytes(), append([]byte(nil), p.Key...), nil, nil
}

func decodeBlockRequestPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if headerLength-1 != 1 {
		return nil, malformed(PacketTypeBlockRequest, "flag of %d bytes", headerLength-1)
	}
	if middleLength <= 0 {
		return nil, malformed(PacketTypeBlockRequest, "empty key")
	}

	p := &BlockRequestPacket{
		Block: buf.ConsumeBool(),
		Key:   buf.ConsumeBytes(middleLength),
	}
	buf.Skip(endLength)

	return p, nil
}

// TestPacket defines the TEST packet, a ping-pong exchange counting its round trips.
type TestPacket struct {
	Header string
	Middle string
	Code   int32
}

// Type returns the catalog value of the packet.
func (p *TestPacket) Type() PacketType {
	return PacketTypeTest
}

// Reply returns the packet answering p, with its counter incremented.
func (p *TestPacket) Reply() *TestPacket {
	q := *p
	q.Code++
	return &q
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *TestPacket) MarshalSegments() (header, middle, end []byte, err error) {
	buf := NewMarshalBuffer(4)
	buf.AppendInt32(p.Code)

	return []byte(p.Header), []byte(p.Middle), buf.Bytes(), nil
}

func decodeTestPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if endLength != 4 {
		return nil, malformed(PacketTypeTest, "code of %d bytes", endLength)
	}

	return &TestPacket{
		Header: buf.ConsumeString(headerLength - 1),
		Middle: buf.ConsumeString(middleLength),
		Code:   buf.ConsumeInt32(),
	}, nil
}
