package pump_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco-dashboard/internal/catalog"
	"eco-dashboard/internal/codec"
	"eco-dashboard/internal/pump"
	"eco-dashboard/internal/store"
	"eco-dashboard/internal/telemetry"
)

func TestPublisherEncodesCurrentSlotValue(t *testing.T) {
	cat := catalog.Default()
	st := store.New(cat)
	pub := pump.NewPublisher(cat, st)

	st.Write(0x015, &telemetry.RelMotorPack{MtrVolt: 5, MtrCurr: 10})

	buf := make([]byte, 8)
	n, err := pub.Encode(0x015, buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00, 0x0A}, buf)
}

func TestPublisherFrame(t *testing.T) {
	cat := catalog.Default()
	st := store.New(cat)
	pub := pump.NewPublisher(cat, st)

	st.Write(0x032, &telemetry.H2AlarmArmPack{Armed: 1})

	f, err := pub.Frame(0x032)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x032), f.ID)
	assert.False(t, f.Extended)
	assert.Equal(t, uint8(1), f.Length)
	assert.Equal(t, []byte{0x01}, f.Payload())
}

func TestPublisherDefaultValue(t *testing.T) {
	cat := catalog.Default()
	pub := pump.NewPublisher(cat, store.New(cat))

	// An untouched slot publishes its all-zero default.
	f, err := pub.Frame(0x050)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, f.Payload())
}

func TestPublisherUnknownIdentifier(t *testing.T) {
	cat := catalog.Default()
	pub := pump.NewPublisher(cat, store.New(cat))

	_, err := pub.Frame(0x999)
	assert.Error(t, err)
}

func TestPublisherBufferTooSmall(t *testing.T) {
	cat := catalog.Default()
	pub := pump.NewPublisher(cat, store.New(cat))

	_, err := pub.Encode(0x010, make([]byte, 4))
	assert.ErrorIs(t, err, codec.ErrBufferTooSmall)
}
