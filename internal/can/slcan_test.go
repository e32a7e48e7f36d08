package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSLCANClassicStandard(t *testing.T) {
	_, err := ParseSLCANLine("t015800000005000000ZZ")
	require.Error(t, err, "corrupted hex must not parse")

	f, err := ParseSLCANLine("t0158000000050000000A")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x015), f.ID)
	assert.False(t, f.Extended)
	assert.Equal(t, uint8(8), f.Length)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x0A}, f.Payload())
}

func TestParseSLCANExtended(t *testing.T) {
	f, err := ParseSLCANLine("T0000ABCD21122")
	require.NoError(t, err)
	assert.Equal(t, uint32(0xABCD), f.ID)
	assert.True(t, f.Extended)
	assert.Equal(t, []byte{0x11, 0x22}, f.Payload())
}

func TestParseSLCANFDLengthCodes(t *testing.T) {
	// DLC code 9 means 12 payload bytes in an FD frame.
	f, err := ParseSLCANLine("d0109000102030405060708090A0B")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x010), f.ID)
	assert.Equal(t, uint8(12), f.Length)
	assert.Equal(t, byte(0x0B), f.Data[11])
}

func TestParseSLCANRejectsBadLength(t *testing.T) {
	_, err := ParseSLCANLine("t0159001122334455667788")
	assert.Error(t, err, "classic frames carry at most 8 bytes")

	_, err = ParseSLCANLine("t01")
	assert.Error(t, err)

	_, err = ParseSLCANLine("t0152AA")
	assert.Error(t, err, "data shorter than declared length")
}

func TestMarshalSLCANFrame(t *testing.T) {
	line, err := MarshalSLCANFrame(NewFrame(0x018, []byte{0x0D}))
	require.NoError(t, err)
	assert.Equal(t, "t01810D\r", line)

	line, err = MarshalSLCANFrame(NewFrame(0x1ABCDE, []byte{0xFF}))
	require.NoError(t, err)
	assert.Equal(t, "T001ABCDE1FF\r", line)
}

func TestMarshalSLCANFDRoundTrip(t *testing.T) {
	data := make([]byte, 24)
	for i := range data {
		data[i] = byte(i)
	}
	orig := NewFrame(0x010, data)

	line, err := MarshalSLCANFrame(orig)
	require.NoError(t, err)
	assert.Equal(t, byte('d'), line[0])

	parsed, err := ParseSLCANLine(line[:len(line)-1])
	require.NoError(t, err)
	assert.Equal(t, orig, parsed)
}

func TestMarshalSLCANRejectsNonFDLength(t *testing.T) {
	f := Frame{ID: 0x010, Length: 13}
	_, err := MarshalSLCANFrame(f)
	assert.Error(t, err)
}
