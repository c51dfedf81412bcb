package meshclient

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func fromRadioPacket(p Packet) []byte {
	return appendBytes(nil, 2, p.marshal())
}

func fromRadioMyInfo(num uint32) []byte {
	var mi []byte
	mi = protowire.AppendTag(mi, 1, protowire.VarintType)
	mi = protowire.AppendVarint(mi, uint64(num))
	return appendBytes(nil, 3, mi)
}

func mustFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	b, err := frame(payload)
	require.NoError(t, err)
	return b
}

func TestPacketRoundTrip(t *testing.T) {
	in := Packet{
		From:     0xaaa111,
		To:       0xabc123,
		ID:       42,
		Channel:  1,
		PortNum:  portTextMessage,
		Text:     "#tst-detail",
		RxTime:   1700000000,
		RxSNR:    6.25,
		RxRSSI:   -97,
		HopLimit: 1,
		HopStart: 3,
		WantAck:  true,
	}
	fr, err := decodeFromRadio(fromRadioPacket(in))
	require.NoError(t, err)
	require.NotNil(t, fr.packet)
	assert.Equal(t, in, *fr.packet)

	hops, ok := fr.packet.Hops()
	assert.True(t, ok)
	assert.Equal(t, 2, hops)
}

func TestHopsUnknown(t *testing.T) {
	_, ok := Packet{HopLimit: 3}.Hops()
	assert.False(t, ok)
}

func TestDecodeMyInfo(t *testing.T) {
	fr, err := decodeFromRadio(fromRadioMyInfo(0xabc123))
	require.NoError(t, err)
	assert.Equal(t, uint32(0xabc123), fr.myNode)
	assert.Nil(t, fr.packet)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := decodeFromRadio([]byte{0x12, 0x7f, 0x01})
	assert.Error(t, err)
}

func TestNodeID(t *testing.T) {
	assert.Equal(t, "!abc123", NodeID(0xabc123))
	assert.Equal(t, "!ffffffff", NodeID(Broadcast))
}

func TestFrameReaderSkipsNoise(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("DEBUG | boot ok\r\n")
	buf.Write(mustFrame(t, []byte("one")))
	buf.Write([]byte{start1, 'x', start1})
	buf.Write(mustFrame(t, []byte("two"))[1:]) // start1 уже записан выше
	buf.Write([]byte{start1, start2, 0xff, 0xff}) // длина больше maxFrame
	buf.Write(mustFrame(t, nil))

	var noise bytes.Buffer
	fr := newFrameReader(&buf)
	fr.noise = func(b byte) { noise.WriteByte(b) }

	p, err := fr.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", string(p))

	p, err = fr.Next()
	require.NoError(t, err)
	assert.Equal(t, "two", string(p))

	p, err = fr.Next()
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = fr.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Contains(t, noise.String(), "boot ok")
}

func TestFrameTooLong(t *testing.T) {
	_, err := frame(make([]byte, maxFrame+1))
	assert.ErrorIs(t, err, errFrameTooLong)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ab", truncate("abc", 2))
	// "ж" — два байта, режем по границе руны
	assert.Equal(t, "a", truncate("aж", 2))
}
