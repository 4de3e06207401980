package localpacket

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// BusinessRequestPacket defines the BUSINESS_REQUEST packet,
// a remote procedure call alongside any transfer.
//
// Header is the action and its arguments, middle a delay in milliseconds, end the way byte.
type BusinessRequestPacket struct {
	Action string
	Delay  int32
	Way    Way
}

// NewBusinessRequestPacket returns a BusinessRequest ASK.
func NewBusinessRequestPacket(action string, delay int32) *BusinessRequestPacket {
	return &BusinessRequestPacket{
		Action: action,
		Delay:  delay,
		Way:    WayAsk,
	}
}

// Type returns the catalog value of the packet.
func (p *BusinessRequestPacket) Type() PacketType {
	return PacketTypeBusinessRequest
}

// IsToValidate reports whether p still awaits its answer.
func (p *BusinessRequestPacket) IsToValidate() bool {
	return p.Way == WayAsk
}

// Validate returns the positive answer to p, carrying result as its action.
func (p *BusinessRequestPacket) Validate(result string) *BusinessRequestPacket {
	return &BusinessRequestPacket{
		Action: result,
		Delay:  p.Delay,
		Way:    WayAnswer,
	}
}

// Invalidate returns the negative answer to p, carrying reason as its action.
func (p *BusinessRequestPacket) Invalidate(reason string) *BusinessRequestPacket {
	return &BusinessRequestPacket{
		Action: reason,
		Delay:  p.Delay,
		Way:    WayInvalidate,
	}
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *BusinessRequestPacket) MarshalSegments() (header, middle, end []byte, err error) {
	buf := NewMarshalBuffer(4)
	buf.AppendInt32(p.Delay)

	return []byte(p.Action), buf.Bytes(), []byte{byte(p.Way)}, nil
}

func decodeBusinessRequestPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if middleLength != 4 {
		return nil, malformed(PacketTypeBusinessRequest, "delay of %d bytes", middleLength)
	}
	if endLength != 1 {
		return nil, malformed(PacketTypeBusinessRequest, "way of %d bytes", endLength)
	}

	return &BusinessRequestPacket{
		Action: buf.ConsumeString(headerLength - 1),
		Delay:  buf.ConsumeInt32(),
		Way:    consumeWay(buf, true),
	}, nil
}

// JSONCommandPacket defines the JSON_REQUEST packet, an administrative command expressed in JSON.
//
// Header is the JSON request, middle the result text, end the type of the command being answered.
type JSONCommandPacket struct {
	Request string
	Result  string
	Send    PacketType
}

// NewJSONCommandPacket returns a JSONCommandPacket whose request is v marshaled as JSON.
func NewJSONCommandPacket(v interface{}, result string, send PacketType) (*JSONCommandPacket, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "json command")
	}

	return &JSONCommandPacket{
		Request: string(b),
		Result:  result,
		Send:    send,
	}, nil
}

// Type returns the catalog value of the packet.
func (p *JSONCommandPacket) Type() PacketType {
	return PacketTypeJSONRequest
}

// UnmarshalRequest parses the JSON request into v.
func (p *JSONCommandPacket) UnmarshalRequest(v interface{}) error {
	return errors.Wrap(json.Unmarshal([]byte(p.Request), v), "json command")
}

// MarshalSegments returns p as its header, middle and end segments.
func (p *JSONCommandPacket) MarshalSegments() (header, middle, end []byte, err error) {
	return []byte(p.Request), []byte(p.Result), []byte{byte(p.Send)}, nil
}

func decodeJSONCommandPacket(headerLength, middleLength, endLength int, buf *Buffer, _ *DecodeOptions) (Packet, error) {
	if endLength != 1 {
		return nil, malformed(PacketTypeJSONRequest, "end of %d bytes", endLength)
	}

	return &JSONCommandPacket{
		Request: buf.ConsumeString(headerLength - 1),
		Result:  buf.ConsumeString(middleLength),
		Send:    PacketType(buf.ConsumeUint8()),
	}, nil
}
