// Package pump drives the receive and transmit paths between a bus driver
// and the telemetry layer.
package pump

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"eco-dashboard/internal/can"
	"eco-dashboard/internal/router"
)

// Metrics are the pump's observability counters. They have no effect on
// routing correctness.
type Metrics struct {
	Frames       uint64        `json:"frames"`
	DriverFaults uint64        `json:"driver_faults"`
	LastInterval time.Duration `json:"last_interval_ns"`
	MaxDrain     int           `json:"max_drain"`
}

// Pump is the long-lived ingress task. Each cycle blocks for the first
// available frame, then drains whatever else the driver has already
// buffered, bounded by the receive buffer depth, before blocking again.
// The bounded drain keeps worst-case staleness to one wake cycle under
// bursty traffic without letting a saturated bus starve other tasks.
type Pump struct {
	bus    can.Bus
	router *router.Router
	depth  int
	log    zerolog.Logger

	frames       atomic.Uint64
	driverFaults atomic.Uint64
	lastInterval atomic.Int64
	maxDrain     atomic.Int64

	lastRx time.Time
}

// New creates a pump. depth must match the driver's receive buffer capacity;
// it bounds the drain phase.
func New(bus can.Bus, rt *router.Router, depth int, log zerolog.Logger) *Pump {
	if depth < 1 {
		depth = 1
	}
	return &Pump{
		bus:    bus,
		router: rt,
		depth:  depth,
		log:    log.With().Str("component", "pump").Logger(),
	}
}

// Run processes frames until the context is cancelled or the driver's
// channels close. Waiting for the first frame of a cycle is the only
// suspension point; absence of bus traffic is a valid steady state, so
// there is no timeout.
func (p *Pump) Run(ctx context.Context) error {
	frames := p.bus.Frames()
	errs := p.bus.Errors()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.driverFaults.Add(1)
			p.log.Error().Err(err).Msg("bus driver fault")
		case f, ok := <-frames:
			if !ok {
				p.log.Info().Msg("frame channel closed, stopping")
				return nil
			}
			p.handle(f)
			p.drain(frames)
		}
	}
}

// drain routes frames that are already buffered without suspending between
// them. The loop is capped at the receive buffer depth so it terminates
// even under sustained bus saturation.
func (p *Pump) drain(frames <-chan can.Frame) {
	drained := 0
	for drained < p.depth {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			p.handle(f)
			drained++
		default:
			if int64(drained) > p.maxDrain.Load() {
				p.maxDrain.Store(int64(drained))
			}
			return
		}
	}
	if int64(drained) > p.maxDrain.Load() {
		p.maxDrain.Store(int64(drained))
	}
}

func (p *Pump) handle(f can.Frame) {
	now := time.Now()
	if !p.lastRx.IsZero() {
		// time.Now is monotonic, but clamp anyway so a clock anomaly can
		// never surface as a negative interval.
		delta := now.Sub(p.lastRx)
		if delta < 0 {
			delta = 0
		}
		p.lastInterval.Store(int64(delta))
	}
	p.lastRx = now

	p.frames.Add(1)
	p.router.Route(f)
}

// Metrics returns a snapshot of the pump's counters.
func (p *Pump) Metrics() Metrics {
	return Metrics{
		Frames:       p.frames.Load(),
		DriverFaults: p.driverFaults.Load(),
		LastInterval: time.Duration(p.lastInterval.Load()),
		MaxDrain:     int(p.maxDrain.Load()),
	}
}
