package pump_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco-dashboard/internal/can"
	"eco-dashboard/internal/catalog"
	"eco-dashboard/internal/pump"
	"eco-dashboard/internal/router"
	"eco-dashboard/internal/store"
	"eco-dashboard/internal/telemetry"
)

type fixture struct {
	bus    *can.Loopback
	store  *store.Store
	router *router.Router
	pump   *pump.Pump
}

func newFixture(t *testing.T, depth int) *fixture {
	t.Helper()
	cat := catalog.Default()
	st := store.New(cat)
	rt := router.New(cat, st, zerolog.Nop())
	bus := can.NewLoopback(depth)
	return &fixture{
		bus:    bus,
		store:  st,
		router: rt,
		pump:   pump.New(bus, rt, depth, zerolog.Nop()),
	}
}

// waitFrames polls until the pump has processed n frames.
func (f *fixture) waitFrames(t *testing.T, n uint64) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for f.pump.Metrics().Frames < n {
		select {
		case <-deadline:
			t.Fatalf("pump processed %d of %d frames before timeout", f.pump.Metrics().Frames, n)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestBurstDrainedInOneWake(t *testing.T) {
	f := newFixture(t, 8)

	// Queue a burst while the pump is not running, the equivalent of frames
	// arriving while the consumer is busy elsewhere.
	require.NoError(t, f.bus.Send(can.NewFrame(0x010, []byte{
		0, 0, 0, 0x0F, 0, 0, 0, 42, 0, 0, 0, 7, 0, 0, 0, 8, 0, 0, 0, 9, 0, 0, 0, 10,
	})))
	require.NoError(t, f.bus.Send(can.NewFrame(0x020, []byte{0, 0, 0, 55, 0, 0, 0, 200})))
	require.NoError(t, f.bus.Send(can.NewFrame(0x999, []byte{0xDE, 0xAD})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.pump.Run(ctx)
		close(done)
	}()

	f.waitFrames(t, 3)

	fet, ok := store.Snapshot[telemetry.FetPack](f.store, 0x010)
	require.True(t, ok)
	assert.Equal(t, uint32(0x0F), fet.FetConfig)
	assert.Equal(t, uint32(42), fet.InputVolt)

	fcc, ok := store.Snapshot[telemetry.FccCorePack](f.store, 0x020)
	require.True(t, ok)
	assert.Equal(t, int32(55), fcc.FcTemp)
	assert.Equal(t, uint32(200), fcc.FcPress)

	c := f.router.Counters()
	assert.Equal(t, uint64(2), c.Updated)
	assert.Equal(t, uint64(1), c.Unmatched)

	// The whole burst went through a single wake: the first frame blocked,
	// the other two were drained without suspending.
	assert.GreaterOrEqual(t, f.pump.Metrics().MaxDrain, 2)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop on cancellation")
	}
}

func TestDriverFaultDoesNotStopPump(t *testing.T) {
	f := newFixture(t, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.pump.Run(ctx)

	// Overflow the receive buffer so the driver reports dropped frames,
	// then confirm routing continues afterwards.
	for i := 0; i < 32; i++ {
		f.bus.Send(can.NewFrame(0x015, []byte{0, 0, 0, 1, 0, 0, 0, 1}))
	}
	f.waitFrames(t, 1)

	// The buffer may still be draining; retry until the frame fits.
	deadline := time.After(2 * time.Second)
	for f.bus.Send(can.NewFrame(0x018, []byte{0x02})) != nil {
		select {
		case <-deadline:
			t.Fatal("receive buffer never drained")
		case <-time.After(time.Millisecond):
		}
	}
	for {
		rec, _ := store.Snapshot[telemetry.RelStatePack](f.store, 0x018)
		if rec.Mode() == telemetry.RelayCharge {
			break
		}
		select {
		case <-deadline:
			t.Fatal("pump stopped processing after driver faults")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestLatencyMetricNeverNegative(t *testing.T) {
	f := newFixture(t, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.pump.Run(ctx)

	f.bus.Send(can.NewFrame(0x032, []byte{0x01}))
	f.bus.Send(can.NewFrame(0x032, []byte{0x00}))
	f.waitFrames(t, 2)

	assert.GreaterOrEqual(t, f.pump.Metrics().LastInterval, time.Duration(0))
}

func TestRunStopsWhenBusCloses(t *testing.T) {
	f := newFixture(t, 4)

	done := make(chan error, 1)
	go func() { done <- f.pump.Run(context.Background()) }()

	f.bus.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pump did not stop when the bus closed")
	}
}
