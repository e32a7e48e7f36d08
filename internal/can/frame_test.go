package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrame(t *testing.T) {
	f := NewFrame(0x015, []byte{1, 2, 3})
	assert.Equal(t, uint32(0x015), f.ID)
	assert.False(t, f.Extended)
	assert.Equal(t, uint8(3), f.Length)
	assert.Equal(t, []byte{1, 2, 3}, f.Payload())

	ext := NewFrame(0x1ABCDE, nil)
	assert.True(t, ext.Extended)
	assert.Empty(t, ext.Payload())
}

func TestFrameValidate(t *testing.T) {
	assert.NoError(t, NewFrame(0x7FF, nil).Validate())
	assert.Error(t, Frame{ID: 0x800}.Validate())
	assert.NoError(t, Frame{ID: 0x800, Extended: true}.Validate())
	assert.Error(t, Frame{ID: 0x2000_0000, Extended: true}.Validate())
	assert.Error(t, Frame{Length: 65}.Validate())
}

func TestValidFDLength(t *testing.T) {
	for _, n := range []uint8{0, 1, 8, 12, 16, 20, 24, 32, 48, 64} {
		assert.True(t, ValidFDLength(n), "length %d", n)
	}
	for _, n := range []uint8{9, 10, 11, 13, 25, 63, 65} {
		assert.False(t, ValidFDLength(n), "length %d", n)
	}
}

func TestLoopbackDeliversAndDrops(t *testing.T) {
	l := NewLoopback(2)
	require.NoError(t, l.Send(NewFrame(0x010, []byte{1})))
	require.NoError(t, l.Send(NewFrame(0x011, []byte{2})))

	// Third frame overflows the buffer and is reported as a driver fault.
	err := l.Send(NewFrame(0x012, []byte{3}))
	require.Error(t, err)
	select {
	case <-l.Errors():
	default:
		t.Fatal("expected a driver fault for the dropped frame")
	}

	f := <-l.Frames()
	assert.Equal(t, uint32(0x010), f.ID)

	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Send(NewFrame(0x010, nil)), ErrClosed)
}
