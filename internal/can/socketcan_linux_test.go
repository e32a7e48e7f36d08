//go:build linux

package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKernelFrameClassic(t *testing.T) {
	buf := make([]byte, classicFrameSize)
	// id 0x015, little-endian, standard frame
	buf[0] = 0x15
	buf[4] = 8
	copy(buf[8:], []byte{0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x0A})

	f, err := parseKernelFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x015), f.ID)
	assert.False(t, f.Extended)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x0A}, f.Payload())
}

func TestParseKernelFrameFD(t *testing.T) {
	buf := make([]byte, fdFrameSize)
	buf[0] = 0x10
	buf[4] = 24
	for i := 0; i < 24; i++ {
		buf[8+i] = byte(i)
	}

	f, err := parseKernelFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x010), f.ID)
	assert.Equal(t, uint8(24), f.Length)
	assert.Equal(t, byte(23), f.Data[23])
}

func TestParseKernelFrameExtended(t *testing.T) {
	buf := make([]byte, classicFrameSize)
	// EFF flag set, id 0x1ABCDE
	buf[0] = 0xDE
	buf[1] = 0xBC
	buf[2] = 0x1A
	buf[3] = 0x80
	buf[4] = 0

	f, err := parseKernelFrame(buf)
	require.NoError(t, err)
	assert.True(t, f.Extended)
	assert.Equal(t, uint32(0x1ABCDE), f.ID)
}

func TestParseKernelFrameShortRead(t *testing.T) {
	_, err := parseKernelFrame(make([]byte, 7))
	assert.Error(t, err)
}
