// canmon is a candump-style monitor: it prints every frame seen on the bus
// together with its decoded record or routing outcome. Useful for checking
// what the other boards are actually transmitting.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"eco-dashboard/internal/can"
	"eco-dashboard/internal/catalog"
	"eco-dashboard/internal/codec"
	"eco-dashboard/internal/router"
)

func main() {
	driver := flag.String("driver", "socketcan", "bus driver: socketcan or slcan")
	iface := flag.String("interface", "can0", "SocketCAN interface name")
	port := flag.String("port", "", "serial port for the slcan driver")
	baud := flag.Int("baud", 115200, "serial baud rate for the slcan driver")
	depth := flag.Int("depth", 64, "receive buffer depth")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	var (
		bus can.Bus
		err error
	)
	switch *driver {
	case "socketcan":
		bus, err = can.OpenSocketCAN(*iface, *depth)
	case "slcan":
		bus, err = can.OpenSLCAN(*port, can.SLCANOptions{BaudRate: *baud, Depth: *depth})
	default:
		logger.Fatal().Str("driver", *driver).Msg("unknown driver")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open bus")
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	cat := catalog.Default()
	frames := bus.Frames()
	errs := bus.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error().Err(err).Msg("driver fault")
		case f, ok := <-frames:
			if !ok {
				return
			}
			printFrame(logger, cat, f)
		}
	}
}

func printFrame(logger zerolog.Logger, cat *catalog.Catalog, f can.Frame) {
	d, ok := cat.Lookup(f.ID)
	if !ok {
		logger.Info().Str("frame", f.String()).Str("outcome", router.Unmatched.String()).Msg("rx")
		return
	}
	rec := d.New()
	if err := codec.Decode(f.Payload(), rec); err != nil {
		logger.Warn().Str("frame", f.String()).Str("packet", d.Name).Err(err).Msg("rx")
		return
	}
	logger.Info().Str("frame", f.String()).Str("packet", d.Name).Interface("record", rec).Msg("rx")
}
