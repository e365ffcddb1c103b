package binary_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/wire/binary"
)

func TestLogEntryEnvelopeHeader(t *testing.T) {
	e := &packet.LogEntry{
		SubType:     packet.EntryMessage,
		Viewer:      0,
		Pid:         1,
		Tid:         2,
		TimestampUS: 3,
		Color:       lookup.DefaultColor,
	}
	p := packet.New(level.Message, e)

	out, err := binary.Encode(p)
	require.NoError(t, err)
	require.Equal(t, []byte{0x04, 0x00}, out[0:2])

	kind, bodyLen, err := binary.DecodeEnvelope(out)
	require.NoError(t, err)
	require.Equal(t, packet.KindLogEntry, kind)
	require.Equal(t, uint32(48), bodyLen)
	require.Len(t, out, 6+48)
}

func TestTimestampConversion(t *testing.T) {
	require.Equal(t, 25569.0, binary.Timestamp(0))
	require.Equal(t, 25570.0, binary.Timestamp(86_400_000_000))
}

func TestLogHeaderRoundTrip(t *testing.T) {
	h := &packet.LogHeader{Content: "hostname=box\r\nappname=demo\r\n"}
	p := packet.New(level.Control, h)

	out, err := binary.Encode(p)
	require.NoError(t, err)

	_, bodyLen, err := binary.DecodeEnvelope(out)
	require.NoError(t, err)

	body := out[6 : 6+bodyLen]
	got, err := binary.DecodeLogHeaderContent(body)
	require.NoError(t, err)
	require.Equal(t, h.Content, got)
}

func TestChunkEncoding(t *testing.T) {
	inner := &packet.LogEntry{SubType: packet.EntryMessage, Color: lookup.DefaultColor}
	innerBytes, err := binary.Encode(packet.New(level.Message, inner))
	require.NoError(t, err)

	c := &packet.Chunk{Format: 1, Count: 1, PayloadData: innerBytes}
	out, err := binary.Encode(packet.New(level.Control, c))
	require.NoError(t, err)

	kind, bodyLen, err := binary.DecodeEnvelope(out)
	require.NoError(t, err)
	require.Equal(t, packet.KindChunk, kind)
	require.Equal(t, uint32(12+len(innerBytes)), bodyLen)
}

func TestColorDefaultSentinel(t *testing.T) {
	require.Equal(t, int32(-16777211), lookup.DefaultColor.Int32())
}
