package localpacket

import (
	"bytes"
	"crypto/md5"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTripPackets() []Packet {
	return []Packet{
		NewAuthentPacket("hostA", []byte("key"), 1, "3.6.0"),
		&AuthentPacket{HostID: "h", Key: []byte{0}, LocalID: math.MinInt32, Way: WayAnswer, Version: "2.4.12"},
		&StartupPacket{LocalID: 42, FromSSL: true},
		&StartupPacket{LocalID: -1},
		NewDataPacket(0, []byte{0}, nil),
		NewDataPacket(math.MaxInt32, bytes.Repeat([]byte("x"), 1000), []byte("digest")),
		NewValidPacket("", "", PacketTypeShutdown),
		NewValidPacket("header", "middle", PacketTypeBlockRequest),
		NewErrorPacket("", CodeMD5Error, ErrorActionIgnore),
		NewErrorPacket("rank=3", CodeTransferError, ErrorActionForwardClose),
		&ConnectionErrorPacket{Header: "bad authent"},
		&ConnectionErrorPacket{Middle: "A"},
		&RequestPacket{
			Rule:         "rule1",
			Mode:         ModeSend,
			Filename:     "/f",
			BlockSize:    65536,
			Rank:         0,
			SpecialID:    42,
			Code:         CodeInitOk,
			OriginalSize: 1000,
			TransferInfo: "info",
			Encoding:     LegacyEncoding{Separator: DefaultSeparator},
		},
		&RequestPacket{
			Rule:         "r",
			Mode:         ModeRecvMD5Through,
			Filename:     "dir/file.bin",
			BlockSize:    math.MaxInt32,
			Rank:         7,
			SpecialID:    math.MinInt64,
			Way:          WayAnswer,
			Code:         CodeRunning,
			OriginalSize: -1,
			Encoding:     LegacyEncoding{Separator: BlankSeparator},
		},
		&RequestPacket{
			Rule:         "rule with spaces",
			Mode:         ModeSendMD5,
			Filename:     "a;b c",
			BlockSize:    MinBlockSize,
			SpecialID:    -42,
			Code:         CodeCompleteOk,
			OriginalSize: 0,
			Limit:        1 << 20,
			TransferInfo: "{\"k\":1}",
			Encoding:     JSONEncoding{},
		},
		&ShutdownPacket{Key: []byte("admin")},
		&ShutdownPacket{Key: []byte("admin"), Restart: true},
		NewEndTransferPacket(PacketTypeRequest, ""),
		NewEndTransferPacket(0, "d41d8cd98f00b204e9800998ecf8427e").Validate(),
		NewEndRequestPacket(0, ""),
		NewEndRequestPacket(CodeCompleteOk, "done").Validate(),
		&InformationPacket{Rule: "rule1", Request: AskMLSList, Filename: "*.txt"},
		&InformationPacket{Request: AskExist},
		&KeepAlivePacket{Way: WayAsk},
		&KeepAlivePacket{Way: WayAnswer},
		NewBusinessRequestPacket("echo hello", 0),
		NewBusinessRequestPacket("", -1).Invalidate("failed"),
		&NoOpPacket{},
		&BlockRequestPacket{Block: true, Key: []byte("admin")},
		&JSONCommandPacket{Request: `{"command":"status"}`, Result: "", Send: PacketTypeJSONRequest},
		&TestPacket{Header: "ping", Middle: "", Code: 100},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, p := range roundTripPackets() {
		data, err := EncodeFrame(p)
		require.NoErrorf(t, err, "encode %s", p.Type())

		got, n, err := DecodeFrame(data, nil)
		require.NoErrorf(t, err, "decode %s", p.Type())

		assert.Equal(t, len(data), n)
		assert.Equal(t, p, got)
	}
}

func TestAuthentPacket(t *testing.T) {
	p := NewAuthentPacket("hostA", []byte("key"), 1, "3.6.0")

	header, middle, end, err := p.MarshalSegments()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if want := []byte("hostA"); !bytes.Equal(header, want) {
		t.Errorf("Authent header = %X, but wanted %X", header, want)
	}

	if want := []byte("key"); !bytes.Equal(middle, want) {
		t.Errorf("Authent middle = %X, but wanted %X", middle, want)
	}

	want := []byte{
		0x00, 0x00, 0x00, 1,
		0x00,
		'3', '.', '6', '.', '0',
	}

	if !bytes.Equal(end, want) {
		t.Errorf("Authent end = %X, but wanted %X", end, want)
	}

	answer := p.Validate("hostB", []byte("other"), "3.6.0")
	assert.Equal(t, WayAsk, p.Way)
	assert.Equal(t, "hostA", p.HostID)
	assert.True(t, answer.IsAnswer())
	assert.Equal(t, "hostB", answer.HostID)
	assert.Equal(t, int32(1), answer.LocalID)
}

func TestAuthentPacketDefaultVersion(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 10,
		0x00, 0x00, 0x00, 1,
		0x00, 0x00, 0x00, 5,
		1,
		'h',
		'k',
		0x00, 0x00, 0x00, 3, 0x01,
	}

	p, _, err := DecodeFrame(data, nil)
	require.NoError(t, err)

	assert.Equal(t, &AuthentPacket{
		HostID:  "h",
		Key:     []byte("k"),
		LocalID: 3,
		Way:     WayAnswer,
		Version: DefaultPartnerVersion,
	}, p)
}

type md5Summer struct{}

func (md5Summer) Sum(data []byte) []byte {
	sum := md5.Sum(data)
	return sum[:]
}

func TestDataPacketKey(t *testing.T) {
	data := []byte("some chunk")
	sum := md5.Sum(data)

	assert.True(t, NewDataPacket(0, data, sum[:]).IsKeyValid(md5Summer{}))
	assert.True(t, NewDataPacket(0, data, nil).IsKeyValid(md5Summer{}))

	bad := append([]byte(nil), sum[:]...)
	bad[0] ^= 0xFF
	assert.False(t, NewDataPacket(0, data, bad).IsKeyValid(md5Summer{}))
}

func TestDataPacketLengthSnapshot(t *testing.T) {
	data := make([]byte, 10, 20)
	p := NewDataPacket(1, data, nil)

	p.Data = append(p.Data, 1, 2, 3)
	assert.Equal(t, 10, p.Length())
}

func TestRequestPacketLegacy(t *testing.T) {
	p := NewRequestPacket("rule1", ModeSend, "/f", 65536, 0, 42, "info", 1000)

	header, middle, end, err := p.MarshalSegments()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if want := []byte("rule1 1"); !bytes.Equal(header, want) {
		t.Errorf("Request header = %q, but wanted %q", header, want)
	}

	want := append([]byte{0x00}, "/f;65536;0;42;i;1000"...)
	if !bytes.Equal(middle, want) {
		t.Errorf("Request middle = %q, but wanted %q", middle, want)
	}

	if want := []byte("info"); !bytes.Equal(end, want) {
		t.Errorf("Request end = %q, but wanted %q", end, want)
	}
}

func TestRequestPacketJSON(t *testing.T) {
	p := NewRequestPacket("rule1", ModeRecv, "/f", 65536, 2, 42, "", 1000).WithEncoding(JSONEncoding{})

	header, middle, _, err := p.MarshalSegments()
	require.NoError(t, err)

	assert.JSONEq(t, `{"rule":"rule1","mode":2}`, string(header))
	assert.Equal(t, byte(WayAsk), middle[0])
	assert.JSONEq(t, `{"filename":"/f","block":65536,"rank":2,"id":42,"code":105,"length":1000,"limit":0}`, string(middle[1:]))
}

func TestRequestPacketEncodingsAgree(t *testing.T) {
	base := NewRequestPacket("rule1", ModeSendMD5, "/data/f.bin", 4096, 3, -7, "info", 12345)

	var decoded []*RequestPacket
	for _, enc := range []RequestEncoding{LegacyEncoding{}, LegacyEncoding{Separator: BlankSeparator}, JSONEncoding{}} {
		data, err := EncodeFrame(base.WithEncoding(enc))
		require.NoError(t, err)

		p, _, err := DecodeFrame(data, nil)
		require.NoError(t, err)

		rp := p.(*RequestPacket)
		rp.Encoding = nil
		decoded = append(decoded, rp)
	}

	for _, rp := range decoded[1:] {
		assert.Equal(t, decoded[0], rp)
	}
}

func TestRequestPacketDecodeFallbacks(t *testing.T) {
	header := []byte("rule1 1")
	middle := append([]byte{0x01}, "f 50 3 -9 X"...)

	seg := append(append([]byte(nil), header...), middle...)
	opts := &DecodeOptions{
		DefaultBlockSize: 4096,
		Separator:        "|",
	}

	p, err := NewPacket(PacketTypeRequest, len(header)+1, len(middle), 0, NewBuffer(seg), opts)
	require.NoError(t, err)

	assert.Equal(t, &RequestPacket{
		Rule:         "rule1",
		Mode:         ModeSend,
		Filename:     "f",
		BlockSize:    4096,
		Rank:         3,
		SpecialID:    -9,
		Way:          WayAnswer,
		Code:         CodeTransferOk,
		OriginalSize: -1,
		Encoding:     LegacyEncoding{Separator: BlankSeparator},
	}, p)
}

func TestRequestPacketDecodeConfiguredSeparator(t *testing.T) {
	header := []byte("rule1 2")
	middle := append([]byte{0x00}, "f|65536|0|1|i|10"...)

	seg := append(append([]byte(nil), header...), middle...)

	p, err := NewPacket(PacketTypeRequest, len(header)+1, len(middle), 0, NewBuffer(seg), &DecodeOptions{Separator: "|"})
	require.NoError(t, err)

	rp := p.(*RequestPacket)
	assert.Equal(t, ModeRecv, rp.Mode)
	assert.Equal(t, int64(10), rp.OriginalSize)
	assert.Equal(t, LegacyEncoding{Separator: "|"}, rp.Encoding)
}

func TestRequestPacketDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		header string
		middle string
	}{
		{"header without mode", "rule1", "f;1;0;1;i"},
		{"too few fields", "rule1 1", "f;1;0"},
		{"bad rank", "rule1 1", "f;65536;x;1;i"},
		{"empty code", "rule1 1", "f;65536;0;1;"},
		{"bad json", "{\"rule\":", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middle := append([]byte{0x00}, tt.middle...)
			seg := append([]byte(tt.header), middle...)

			_, err := NewPacket(PacketTypeRequest, len(tt.header)+1, len(middle), 0, NewBuffer(seg), nil)
			assert.Equal(t, ErrNotEnoughData, errors.Cause(err))
		})
	}
}

func TestRequestPacketMarshalErrors(t *testing.T) {
	_, _, _, err := NewRequestPacket("", ModeSend, "f", 65536, 0, 0, "", -1).MarshalSegments()
	assert.Error(t, err)

	_, _, _, err = NewRequestPacket("rule", ModeUnknown, "f", 65536, 0, 0, "", -1).MarshalSegments()
	assert.Error(t, err)

	_, _, _, err = NewRequestPacket("rule", ModeSend, "", 65536, 0, 0, "", -1).MarshalSegments()
	assert.Error(t, err)
}

func TestRequestPacketValidateIsACopy(t *testing.T) {
	p := NewRequestPacket("rule1", ModeSend, "/f", 65536, 0, 42, "info", 1000)

	answer := p.Validate().WithRank(5)

	assert.True(t, p.IsToValidate())
	assert.Equal(t, int32(0), p.Rank)
	assert.False(t, answer.IsToValidate())
	assert.Equal(t, int32(5), answer.Rank)
}

func TestErrorPacket(t *testing.T) {
	p := NewErrorPacket("rank=3", CodeMD5Error, ErrorActionIgnore)

	header, middle, end, err := p.MarshalSegments()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	assert.Equal(t, []byte("rank=3"), header)
	assert.Equal(t, []byte("M"), middle)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, end)
	assert.Equal(t, CodeMD5Error, p.Code())

	_, _, _, err = (&ErrorPacket{Action: 7}).MarshalSegments()
	assert.Error(t, err)
}

func TestConnectionErrorPacketEmpty(t *testing.T) {
	_, _, _, err := (&ConnectionErrorPacket{}).MarshalSegments()
	assert.Error(t, err)
}

func TestBusinessRequestPacket(t *testing.T) {
	p := NewBusinessRequestPacket("echo hi", 10)

	header, middle, end, err := p.MarshalSegments()
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	assert.Equal(t, []byte("echo hi"), header)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 10}, middle)
	assert.Equal(t, []byte{0x00}, end)

	assert.Equal(t, WayAnswer, p.Validate("hi").Way)
	assert.Equal(t, WayInvalidate, p.Invalidate("no").Way)
	assert.True(t, p.IsToValidate())
}

func TestTestPacketReply(t *testing.T) {
	p := &TestPacket{Header: "ping", Code: 1}

	assert.Equal(t, int32(2), p.Reply().Code)
	assert.Equal(t, int32(1), p.Code)
}

func TestJSONCommandPacket(t *testing.T) {
	type status struct {
		Command string `json:"command"`
		Rank    int    `json:"rank"`
	}

	p, err := NewJSONCommandPacket(status{Command: "status", Rank: 3}, "", PacketTypeJSONRequest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"status","rank":3}`, p.Request)

	var got status
	require.NoError(t, p.UnmarshalRequest(&got))
	assert.Equal(t, status{Command: "status", Rank: 3}, got)
}

func TestInformationPacketBadRequest(t *testing.T) {
	_, _, _, err := (&InformationPacket{Request: 9}).MarshalSegments()
	assert.Error(t, err)
}

func TestShutdownPacketLayout(t *testing.T) {
	header, middle, end, err := (&ShutdownPacket{Key: []byte("k"), Restart: true}).MarshalSegments()
	require.NoError(t, err)

	assert.Equal(t, []byte("k"), header)
	assert.Equal(t, []byte{0x01}, middle)
	assert.Empty(t, end)
}
