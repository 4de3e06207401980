package localpacket

import (
	"fmt"
)

// InformationRequest selects what an INFORMATION packet asks about.
type InformationRequest uint8

// Information requests.
const (
	AskExist = InformationRequest(iota)
	AskMLSDetail
	AskList
	AskMLSList
)

func (r InformationRequest) String() string {
	switch r {
	case AskExist:
		return "ASKEXIST"
	case AskMLSDetail:
		return "ASKMLSDETAIL"
	case AskList:
		return "ASKLIST"
	case AskMLSList:
		return "ASKMLSLIST"
	default:
		return fmt.Sprintf("INFORMATION(%d)", r)
	}
}

// InformationPacket defines the INFORMATION packet, querying files on the remote side.
//
// Header is the rule name, middle the request byte, end the file name or pattern.
type InformationPacket struct {
	Rule     string
	Request  InformationRequest
	Filename string
}

// Type returns the catalog value of the packet.
func (p *InformationPacket) Type() PacketType {
	return PacketTypeInformation
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *InformationPacket) MarshalSegments() (header, middle, end []byte, err error) {
	if p.Request > AskMLSList {
		return nil, nil, nil, malformed(PacketTypeInformation, "request %d", p.Request)
	}

	return []byte(p.Rule), []byte{byte(p.Request)}, []byte(p.Filename), nil
}

func decodeInformationPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if middleLength != 1 {
		return nil, malformed(PacketTypeInformation, "request of %d bytes", middleLength)
	}

	p := &InformationPacket{
		Rule:     buf.ConsumeString(headerLength - 1),
		Request:  InformationRequest(buf.ConsumeUint8()),
		Filename: buf.ConsumeString(endLength),
	}

	if buf.Err == nil && p.Request > AskMLSList {
		return nil, malformed(PacketTypeInformation, "request %d", p.Request)
	}

	return p, nil
}
