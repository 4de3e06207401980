package localpacket

// DefaultPartnerVersion is assumed for a partner whose Authent carries no version.
const DefaultPartnerVersion = "2.4.12"

// AuthentPacket defines the AUTHENT packet, opening a session between two hosts.
//
// Header is the host id, middle the password-derived key,
// end the local channel id, the way byte and the version string.
type AuthentPacket struct {
	HostID  string
	Key     []byte
	LocalID int32
	Way     Way
	Version string
}

// NewAuthentPacket returns an Authent ASK for the given credentials.
func NewAuthentPacket(hostID string, key []byte, localID int32, version string) *AuthentPacket {
	return &AuthentPacket{
		HostID:  hostID,
		Key:     key,
		LocalID: localID,
		Way:     WayAsk,
		Version: version,
	}
}

// Type returns the catalog value of the packet.
func (p *AuthentPacket) Type() PacketType {
	return PacketTypeAuthent
}

// IsAnswer reports whether p acknowledges an Authent ASK.
func (p *AuthentPacket) IsAnswer() bool {
	return p.Way == WayAnswer
}

// Validate returns the answer to p, carrying the local host credentials.
// The receiver is left unchanged.
func (p *AuthentPacket) Validate(hostID string, key []byte, version string) *AuthentPacket {
	return &AuthentPacket{
		HostID:  hostID,
		Key:     append([]byte(nil), key...),
		LocalID: p.LocalID,
		Way:     WayAnswer,
		Version: version,
	}
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *AuthentPacket) MarshalSegments() (header, middle, end []byte, err error) {
	if p.HostID == "" || len(p.Key) == 0 {
		return nil, nil, nil, malformed(PacketTypeAuthent, "host id and key are required")
	}

	version := p.Version
	if version == "" {
		version = DefaultPartnerVersion
	}

	buf := NewMarshalBuffer(4 + 1 + len(version))
	buf.AppendInt32(p.LocalID)
	buf.AppendUint8(uint8(p.Way))
	buf.AppendString(version)

	return []byte(p.HostID), append([]byte(nil), p.Key...), buf.Bytes(), nil
}

func decodeAuthentPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if headerLength-1 <= 0 {
		return nil, malformed(PacketTypeAuthent, "empty host id")
	}
	if middleLength <= 0 {
		return nil, malformed(PacketTypeAuthent, "empty key")
	}
	if endLength < 5 {
		return nil, malformed(PacketTypeAuthent, "end segment of %d bytes", endLength)
	}

	p := &AuthentPacket{
		HostID:  buf.ConsumeString(headerLength - 1),
		Key:     buf.ConsumeBytes(middleLength),
		LocalID: buf.ConsumeInt32(),
		Way:     consumeWay(buf, false),
		Version: buf.ConsumeString(endLength - 5),
	}

	if p.Version == "" {
		p.Version = DefaultPartnerVersion
	}

	return p, nil
}

// StartupPacket defines the STARTUP packet, binding a local channel to a network connection.
type StartupPacket struct {
	LocalID int32
	FromSSL bool
}

// Type returns the catalog value of the packet.
func (p *StartupPacket) Type() PacketType {
	return PacketTypeStartup
}

// MarshalSegments returns p as its header and middle segments.
func (p *StartupPacket) MarshalSegments() (header, middle, end []byte, err error) {
	buf := NewMarshalBuffer(4)
	buf.AppendInt32(p.LocalID)

	mid := NewMarshalBuffer(1)
	mid.AppendBool(p.FromSSL)

	return buf.Bytes(), mid.Bytes(), nil, nil
}

func decodeStartupPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if headerLength-1 != 4 || middleLength != 1 {
		return nil, malformed(PacketTypeStartup, "segments of %d/%d bytes", headerLength-1, middleLength)
	}

	p := &StartupPacket{
		LocalID: buf.ConsumeInt32(),
		FromSSL: buf.ConsumeBool(),
	}
	buf.Skip(endLength)

	return p, nil
}
