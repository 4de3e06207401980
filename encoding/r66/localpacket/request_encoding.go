package localpacket

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Field separators and markers of the request sub-formats.
const (
	DefaultSeparator = ";"
	BlankSeparator   = " "
	JSONFieldMarker  = "{"
)

// RequestEncoding is one wire sub-format of the REQUEST header and middle segments.
// The way byte and the end segment are handled by RequestPacket itself.
type RequestEncoding interface {
	// EncodeRequest returns the header and the middle segment without its leading way byte.
	EncodeRequest(p *RequestPacket) (header, middle []byte, err error)

	// DecodeRequest parses the header and the middle segment without its leading way byte.
	DecodeRequest(header, middle []byte, opts *DecodeOptions) (*RequestPacket, error)
}

// LegacyEncoding is the delimited text sub-format:
// header "rule mode", middle "filename;block;rank;id;code;length".
type LegacyEncoding struct {
	// Separator joins the middle fields. Empty means DefaultSeparator.
	Separator string
}

func (e LegacyEncoding) separator() string {
	if e.Separator == "" {
		return DefaultSeparator
	}
	return e.Separator
}

// EncodeRequest implements RequestEncoding.
func (e LegacyEncoding) EncodeRequest(p *RequestPacket) (header, middle []byte, err error) {
	sep := e.separator()

	header = []byte(p.Rule + BlankSeparator + strconv.FormatInt(int64(p.Mode), 10))

	fields := []string{
		p.Filename,
		strconv.FormatInt(int64(p.BlockSize), 10),
		strconv.FormatInt(int64(p.Rank), 10),
		strconv.FormatInt(p.SpecialID, 10),
		p.Code.Letter(),
		strconv.FormatInt(p.OriginalSize, 10),
	}

	return header, []byte(strings.Join(fields, sep)), nil
}

// DecodeRequest implements RequestEncoding.
//
// The middle fields are split with the configured separator first, then ';', then ' ',
// keeping the first split yielding at least five fields.
func (e LegacyEncoding) DecodeRequest(header, middle []byte, opts *DecodeOptions) (*RequestPacket, error) {
	head := strings.Split(string(header), BlankSeparator)
	if len(head) != 2 {
		return nil, malformed(PacketTypeRequest, "header %q", header)
	}

	mode, err := strconv.ParseInt(head[1], 10, 32)
	if err != nil {
		return nil, malformed(PacketTypeRequest, "mode %q", head[1])
	}

	var fields []string
	var used string
	for _, sep := range []string{e.Separator, DefaultSeparator, BlankSeparator} {
		if sep == "" {
			continue
		}
		if fields = strings.Split(string(middle), sep); len(fields) >= 5 {
			used = sep
			break
		}
	}
	if used == "" {
		return nil, malformed(PacketTypeRequest, "middle %q", middle)
	}

	block, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return nil, malformed(PacketTypeRequest, "block size %q", fields[1])
	}
	rank, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return nil, malformed(PacketTypeRequest, "rank %q", fields[2])
	}
	id, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, malformed(PacketTypeRequest, "special id %q", fields[3])
	}
	if fields[4] == "" {
		return nil, malformed(PacketTypeRequest, "empty code")
	}

	length := int64(-1)
	if len(fields) > 5 {
		if length, err = strconv.ParseInt(fields[5], 10, 64); err != nil {
			return nil, malformed(PacketTypeRequest, "length %q", fields[5])
		}
	}

	if block < MinBlockSize {
		block = int64(opts.defaultBlockSize())
	}

	return &RequestPacket{
		Rule:         head[0],
		Mode:         TransferMode(mode),
		Filename:     fields[0],
		BlockSize:    int32(block),
		Rank:         int32(rank),
		SpecialID:    id,
		Code:         ErrorCode(fields[4][0]),
		OriginalSize: length,
		Encoding:     LegacyEncoding{Separator: used},
	}, nil
}

// JSONEncoding is the JSON sub-format used with partners from version 3.0.4 on.
type JSONEncoding struct{}

type jsonRequestHeader struct {
	Rule string `json:"rule"`
	Mode int32  `json:"mode"`
}

type jsonRequestMiddle struct {
	Filename string `json:"filename"`
	Block    int32  `json:"block"`
	Rank     int32  `json:"rank"`
	ID       int64  `json:"id"`
	Code     int    `json:"code"`
	Length   int64  `json:"length"`
	Limit    int64  `json:"limit"`
}

// EncodeRequest implements RequestEncoding.
func (JSONEncoding) EncodeRequest(p *RequestPacket) (header, middle []byte, err error) {
	header, err = json.Marshal(&jsonRequestHeader{
		Rule: p.Rule,
		Mode: int32(p.Mode),
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "request header")
	}

	middle, err = json.Marshal(&jsonRequestMiddle{
		Filename: p.Filename,
		Block:    p.BlockSize,
		Rank:     p.Rank,
		ID:       p.SpecialID,
		Code:     int(p.Code),
		Length:   p.OriginalSize,
		Limit:    p.Limit,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "request middle")
	}

	return header, middle, nil
}

// DecodeRequest implements RequestEncoding.
// A missing length decodes as -1, a missing limit as 0.
func (JSONEncoding) DecodeRequest(header, middle []byte, opts *DecodeOptions) (*RequestPacket, error) {
	var head jsonRequestHeader
	if err := json.Unmarshal(header, &head); err != nil {
		return nil, errors.Wrapf(ErrNotEnoughData, "%s: json header: %v", PacketTypeRequest, err)
	}

	mid := jsonRequestMiddle{
		Length: -1,
	}
	if err := json.Unmarshal(middle, &mid); err != nil {
		return nil, errors.Wrapf(ErrNotEnoughData, "%s: json middle: %v", PacketTypeRequest, err)
	}

	if mid.Block < MinBlockSize {
		mid.Block = opts.defaultBlockSize()
	}

	return &RequestPacket{
		Rule:         head.Rule,
		Mode:         TransferMode(head.Mode),
		Filename:     mid.Filename,
		BlockSize:    mid.Block,
		Rank:         mid.Rank,
		SpecialID:    mid.ID,
		Code:         ErrorCode(mid.Code),
		OriginalSize: mid.Length,
		Limit:        mid.Limit,
		Encoding:     JSONEncoding{},
	}, nil
}
