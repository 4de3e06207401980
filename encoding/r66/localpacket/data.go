package localpacket

import (
	"bytes"
)

// Summer computes the digest of a data block.
type Summer interface {
	Sum(data []byte) []byte
}

// DataPacket defines the DATA packet, carrying one chunk of a file.
//
// Header is the rank, middle the chunk, end the optional digest of the chunk.
type DataPacket struct {
	Rank int32
	Data []byte
	Key  []byte

	length int
}

// NewDataPacket returns a DataPacket for the given chunk.
// The packet length is captured now, and does not follow later changes to data.
func NewDataPacket(rank int32, data, key []byte) *DataPacket {
	return &DataPacket{
		Rank:   rank,
		Data:   data,
		Key:    key,
		length: len(data),
	}
}

// Type returns the catalog value of the packet.
func (p *DataPacket) Type() PacketType {
	return PacketTypeData
}

// Length returns the chunk length captured when the packet was built.
func (p *DataPacket) Length() int {
	return p.length
}

// IsKeyValid reports whether the digest carried by p matches the digest of its data.
// A packet without digest is always valid.
func (p *DataPacket) IsKeyValid(algo Summer) bool {
	if len(p.Key) == 0 {
		return true
	}
	return bytes.Equal(algo.Sum(p.Data), p.Key)
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *DataPacket) MarshalSegments() (header, middle, end []byte, err error) {
	if len(p.Data) == 0 {
		return nil, nil, nil, malformed(PacketTypeData, "empty chunk")
	}

	buf := NewMarshalBuffer(4)
	buf.AppendInt32(p.Rank)

	return buf.Bytes(), append([]byte(nil), p.Data...), append([]byte(nil), p.Key...), nil
}

func decodeDataPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if headerLength-1 != 4 {
		return nil, malformed(PacketTypeData, "rank of %d bytes", headerLength-1)
	}
	if middleLength <= 0 {
		return nil, malformed(PacketTypeData, "empty chunk")
	}

	rank := buf.ConsumeInt32()
	data := buf.ConsumeBytes(middleLength)

	var key []byte
	if endLength > 0 {
		key = buf.ConsumeBytes(endLength)
	}

	return NewDataPacket(rank, data, key), nil
}
