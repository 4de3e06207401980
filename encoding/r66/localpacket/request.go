package localpacket

import (
	"bytes"
)

// RequestPacket defines the REQUEST packet, negotiating one file transfer.
//
// Header and middle are produced by the packet's RequestEncoding,
// the middle always starts with the way byte, end is the free-text transfer information.
type RequestPacket struct {
	Rule         string
	Mode         TransferMode
	Filename     string
	BlockSize    int32
	Rank         int32
	SpecialID    int64
	Way          Way
	Code         ErrorCode
	OriginalSize int64
	Limit        int64
	TransferInfo string

	// Encoding selects the wire sub-format. Nil means LegacyEncoding with DefaultSeparator.
	Encoding RequestEncoding
}

// NewRequestPacket returns a Request ASK for a new transfer.
func NewRequestPacket(rule string, mode TransferMode, filename string, blockSize int32, rank int32, specialID int64, info string, originalSize int64) *RequestPacket {
	return &RequestPacket{
		Rule:         rule,
		Mode:         mode,
		Filename:     filename,
		BlockSize:    blockSize,
		Rank:         rank,
		SpecialID:    specialID,
		Way:          WayAsk,
		Code:         CodeInitOk,
		OriginalSize: originalSize,
		TransferInfo: info,
	}
}

// Type returns the catalog value of the packet.
func (p *RequestPacket) Type() PacketType {
	return PacketTypeRequest
}

// IsToValidate reports whether p still awaits its answer.
func (p *RequestPacket) IsToValidate() bool {
	return p.Way == WayAsk
}

// IsRetrieve reports whether the requester pulls the file.
func (p *RequestPacket) IsRetrieve() bool {
	return p.Mode.IsRecv()
}

func (p *RequestPacket) clone() *RequestPacket {
	q := *p
	return &q
}

// Validate returns the answer to p. The receiver is left unchanged.
func (p *RequestPacket) Validate() *RequestPacket {
	q := p.clone()
	q.Way = WayAnswer
	return q
}

// WithRank returns a copy of p starting at rank.
func (p *RequestPacket) WithRank(rank int32) *RequestPacket {
	q := p.clone()
	q.Rank = rank
	return q
}

// WithSpecialID returns a copy of p bound to the transfer id.
func (p *RequestPacket) WithSpecialID(id int64) *RequestPacket {
	q := p.clone()
	q.SpecialID = id
	return q
}

// WithEncoding returns a copy of p using enc on the wire.
func (p *RequestPacket) WithEncoding(enc RequestEncoding) *RequestPacket {
	q := p.clone()
	q.Encoding = enc
	return q
}

func (p *RequestPacket) encoding() RequestEncoding {
	if p.Encoding == nil {
		return LegacyEncoding{}
	}
	return p.Encoding
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *RequestPacket) MarshalSegments() (header, middle, end []byte, err error) {
	if p.Rule == "" || p.Mode <= ModeUnknown || !p.Mode.Valid() {
		return nil, nil, nil, malformed(PacketTypeRequest, "rule %q with mode %d", p.Rule, int32(p.Mode))
	}
	if p.Filename == "" {
		return nil, nil, nil, malformed(PacketTypeRequest, "empty filename")
	}

	header, fields, err := p.encoding().EncodeRequest(p)
	if err != nil {
		return nil, nil, nil, err
	}

	buf := NewMarshalBuffer(1 + len(fields))
	buf.AppendUint8(uint8(p.Way))
	buf.AppendBytes(fields)

	return header, buf.Bytes(), []byte(p.TransferInfo), nil
}

func decodeRequestPacket(headerLength, middleLength, endLength int, buf *Buffer, opts *DecodeOptions) (Packet, error) {
	if headerLength-1 <= 0 {
		return nil, malformed(PacketTypeRequest, "empty header")
	}
	if middleLength <= 1 {
		return nil, malformed(PacketTypeRequest, "middle of %d bytes", middleLength)
	}

	header := buf.ConsumeBytes(headerLength - 1)
	way := consumeWay(buf, false)
	fields := buf.ConsumeBytes(middleLength - 1)
	info := buf.ConsumeString(endLength)
	if buf.Err != nil {
		return nil, buf.Err
	}

	var enc RequestEncoding = LegacyEncoding{Separator: opts.separator()}
	if bytes.HasPrefix(header, []byte(JSONFieldMarker)) {
		enc = JSONEncoding{}
	}

	p, err := enc.DecodeRequest(header, fields, opts)
	if err != nil {
		return nil, err
	}

	p.Way = way
	p.TransferInfo = info

	return p, nil
}
