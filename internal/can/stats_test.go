package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIPOutput = `3: can0: <NOARP,UP,LOWER_UP,ECHO> mtu 16 qdisc pfifo_fast state UP mode DEFAULT group default qlen 10
    link/can  promiscuity 0 allmulti 0 minmtu 0 maxmtu 0
    can state ERROR-ACTIVE (berr-counter tx 4 rx 2) restart-ms 100
          bitrate 1000000 sample-point 0.750
          tq 125 prop-seg 6 phase-seg1 7 phase-seg2 2 sjw 1 brp 1
    RX: bytes  packets  errors  dropped overrun mcast
    123456     789      3       1       2       0
    TX: bytes  packets  errors  dropped carrier collsns
    654321     987      5       4       0       0
    re-started 2 bus-error 7 arbitration-lost 1 error-warning 3 error-passive 1 bus-off 2`

func TestParseIPLinkOutput(t *testing.T) {
	stats, err := ParseIPLinkOutput(sampleIPOutput)
	require.NoError(t, err)

	assert.Equal(t, "UP", stats.State)
	assert.Equal(t, 1000000, stats.Bitrate)
	assert.Equal(t, "ERROR-ACTIVE", stats.BusState)
	assert.Equal(t, 4, stats.TXErrorCounter)
	assert.Equal(t, 2, stats.RXErrorCounter)
	assert.Equal(t, 100, stats.RestartMS)

	assert.Equal(t, uint64(123456), stats.RXBytes)
	assert.Equal(t, uint64(789), stats.RXPackets)
	assert.Equal(t, uint64(3), stats.RXErrors)
	assert.Equal(t, uint64(1), stats.RXDropped)
	assert.Equal(t, uint64(2), stats.RXOverrun)
	assert.Equal(t, uint64(654321), stats.TXBytes)
	assert.Equal(t, uint64(987), stats.TXPackets)

	assert.Equal(t, uint64(2), stats.BusOffRestarts)
	assert.Equal(t, uint64(7), stats.BusErrors)
	assert.Equal(t, uint64(1), stats.ArbitrationLost)
	assert.Equal(t, uint64(3), stats.ErrorWarning)
	assert.Equal(t, uint64(1), stats.ErrorPassive)
	assert.Equal(t, uint64(2), stats.BusOff)
}

func TestParseIPLinkOutputDownInterface(t *testing.T) {
	out := `4: can1: <NOARP,ECHO> mtu 16 qdisc noop state DOWN mode DEFAULT group default qlen 10
    link/can  promiscuity 0`
	stats, err := ParseIPLinkOutput(out)
	require.NoError(t, err)
	assert.Equal(t, "DOWN", stats.State)
	assert.Zero(t, stats.Bitrate)
}
