package localpacket

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	p := NewEndRequestPacket(CodeCompleteOk, "ok")

	data, err := EncodeFrame(p)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	want := []byte{
		0x00, 0x00, 0x00, 13,
		0x00, 0x00, 0x00, 1,
		0x00, 0x00, 0x00, 2,
		20,
		0x00, 0x00, 0x00, 'O',
		0x00,
		'o', 'k',
	}

	if !bytes.Equal(data, want) {
		t.Errorf("EncodeFrame() = %X, but wanted %X", data, want)
	}
}

func TestEncodeFrameEmptyHeader(t *testing.T) {
	data, err := EncodeFrame(&KeepAlivePacket{Way: WayAsk})
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	want := []byte{
		0x00, 0x00, 0x00, 9,
		0x00, 0x00, 0x00, 1,
		0x00, 0x00, 0x00, 0,
		21,
		0x00,
	}

	if !bytes.Equal(data, want) {
		t.Errorf("EncodeFrame() = %X, but wanted %X", data, want)
	}
}

func TestDecodeFrame(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 13,
		0x00, 0x00, 0x00, 3,
		0x00, 0x00, 0x00, 0,
		3,
		0x00, 0x00, 0x00, 7,
		'a', 'b', 'c',
		// start of the next frame, which must be left alone.
		0x00, 0x00,
	}

	p, n, err := DecodeFrame(data, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	dp, ok := p.(*DataPacket)
	require.Truef(t, ok, "unexpected packet type %T", p)

	assert.Equal(t, int32(7), dp.Rank)
	assert.Equal(t, []byte("abc"), dp.Data)
	assert.Nil(t, dp.Key)
	assert.Equal(t, 3, dp.Length())

	// the packet must not alias the input.
	data[17] = 'z'
	assert.Equal(t, []byte("abc"), dp.Data)
}

func TestDecodeFrameNeedMoreData(t *testing.T) {
	full, err := EncodeFrame(NewDataPacket(1, []byte("hello"), []byte("key")))
	require.NoError(t, err)

	for i := 0; i < len(full); i++ {
		p, n, err := DecodeFrame(full[:i], nil)
		assert.NoErrorf(t, err, "prefix of %d bytes", i)
		assert.Nilf(t, p, "prefix of %d bytes", i)
		assert.Zerof(t, n, "prefix of %d bytes", i)
	}
}

func TestDecodeFrameUnknownType(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 9,
		0x00, 0x00, 0x00, 0,
		0x00, 0x00, 0x00, 0,
		99,
	}

	p, n, err := DecodeFrame(data, nil)
	assert.Nil(t, p)
	assert.Zero(t, n)
	assert.Equal(t, ErrUnknownPacketType, errors.Cause(err))
}

func TestDecodeFrameReservedType(t *testing.T) {
	for _, typ := range []PacketType{
		PacketTypeStop, PacketTypeCancel, PacketTypeConfExport, PacketTypeConfImport,
		PacketTypeRequestUser, PacketTypeLog, PacketTypeLogPurge, PacketTypeBandwidth,
	} {
		data := []byte{
			0x00, 0x00, 0x00, 9,
			0x00, 0x00, 0x00, 0,
			0x00, 0x00, 0x00, 0,
			byte(typ),
		}

		_, _, err := DecodeFrame(data, nil)
		assert.Equalf(t, ErrUnimplementedPacketType, errors.Cause(err), "type %s", typ)
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "end request with short code",
			data: []byte{
				0x00, 0x00, 0x00, 12,
				0x00, 0x00, 0x00, 1,
				0x00, 0x00, 0x00, 0,
				20,
				0x00, 0x00, 'O',
				0x00,
			},
		},
		{
			name: "keepalive with unknown way",
			data: []byte{
				0x00, 0x00, 0x00, 9,
				0x00, 0x00, 0x00, 1,
				0x00, 0x00, 0x00, 0,
				21,
				5,
			},
		},
		{
			name: "authent without key",
			data: []byte{
				0x00, 0x00, 0x00, 10,
				0x00, 0x00, 0x00, 0,
				0x00, 0x00, 0x00, 5,
				1,
				'h',
				0x00, 0x00, 0x00, 1, 0x00,
			},
		},
		{
			name: "error with unknown action",
			data: []byte{
				0x00, 0x00, 0x00, 9,
				0x00, 0x00, 0x00, 0,
				0x00, 0x00, 0x00, 4,
				5,
				0x00, 0x00, 0x00, 9,
			},
		},
		{
			name: "data without chunk",
			data: []byte{
				0x00, 0x00, 0x00, 13,
				0x00, 0x00, 0x00, 0,
				0x00, 0x00, 0x00, 0,
				3,
				0x00, 0x00, 0x00, 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, err := DecodeFrame(tt.data, nil)
			assert.Nil(t, p)
			assert.Equal(t, ErrNotEnoughData, errors.Cause(err))
		})
	}
}

func TestDecodeFrameInvalidLengths(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 8,
		0x00, 0x00, 0x00, 0,
		0x00, 0x00, 0x00, 0,
	}

	_, _, err := DecodeFrame(data, nil)
	assert.Equal(t, ErrInvalidFrame, errors.Cause(err))

	data = []byte{
		0x00, 0x00, 0x00, 9,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x00, 0x00, 0x00, 0,
		23,
	}

	_, _, err = DecodeFrame(data, nil)
	assert.Equal(t, ErrInvalidFrame, errors.Cause(err))
}

func TestDecodeFrameTooLarge(t *testing.T) {
	opts := &DecodeOptions{
		MaxFrameSize: 32,
	}

	data := []byte{
		0x00, 0x00, 0x01, 0x00,
	}

	_, _, err := DecodeFrame(data, opts)
	assert.Equal(t, ErrFrameTooLarge, errors.Cause(err))

	data = []byte{
		0x00, 0x00, 0x00, 9,
		0x00, 0x00, 0x00, 64,
		0x00, 0x00, 0x00, 0,
		23,
	}

	_, _, err = DecodeFrame(data, opts)
	assert.Equal(t, ErrFrameTooLarge, errors.Cause(err))
}

func TestDecoderSplitAtEveryBoundary(t *testing.T) {
	for _, p := range roundTripPackets() {
		full, err := EncodeFrame(p)
		require.NoError(t, err)

		for i := 0; i <= len(full); i++ {
			dec := NewDecoder(DecodeOptions{})

			dec.Feed(full[:i])
			got, err := dec.Next()
			require.NoError(t, err)

			if got == nil {
				dec.Feed(full[i:])
				got, err = dec.Next()
				require.NoError(t, err)
			}

			require.NotNilf(t, got, "%s split at %d", p.Type(), i)
			assert.Equalf(t, p, got, "%s split at %d", p.Type(), i)
			assert.Zero(t, dec.Buffered())
		}
	}
}

func TestDecoderSequence(t *testing.T) {
	var stream []byte
	pkts := roundTripPackets()

	for _, p := range pkts {
		b, err := EncodeFrame(p)
		require.NoError(t, err)
		stream = append(stream, b...)
	}

	dec := NewDecoder(DecodeOptions{})
	var got []Packet

	// feed in odd-sized pieces so frames straddle the feeds.
	for len(stream) > 0 {
		n := 7
		if n > len(stream) {
			n = len(stream)
		}
		dec.Feed(stream[:n])
		stream = stream[n:]

		for {
			p, err := dec.Next()
			require.NoError(t, err)
			if p == nil {
				break
			}
			got = append(got, p)
		}
	}

	assert.Equal(t, pkts, got)
}

func TestFrameReader(t *testing.T) {
	var stream bytes.Buffer

	require.NoError(t, WriteFrame(&stream, &KeepAlivePacket{Way: WayAsk}))
	require.NoError(t, WriteFrame(&stream, NewValidPacket("h", "m", PacketTypeShutdown)))

	fr := NewFrameReader(iotest.OneByteReader(&stream), DecodeOptions{})

	p, err := fr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, &KeepAlivePacket{Way: WayAsk}, p)

	p, err = fr.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, NewValidPacket("h", "m", PacketTypeShutdown), p)

	_, err = fr.ReadPacket()
	assert.Equal(t, io.EOF, err)
}

func TestFrameReaderTruncated(t *testing.T) {
	full, err := EncodeFrame(NewDataPacket(0, []byte("chunk"), nil))
	require.NoError(t, err)

	fr := NewFrameReader(bytes.NewReader(full[:len(full)-1]), DecodeOptions{})

	_, err = fr.ReadPacket()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}
