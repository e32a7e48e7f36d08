// The dashboard daemon: receives vehicle telemetry from the CAN bus,
// maintains the shared state store for display and alarm consumers, and
// periodically publishes local state back onto the bus.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"eco-dashboard/internal/api"
	"eco-dashboard/internal/can"
	"eco-dashboard/internal/catalog"
	"eco-dashboard/internal/config"
	"eco-dashboard/internal/pump"
	"eco-dashboard/internal/router"
	"eco-dashboard/internal/store"
)

func main() {
	configPath := flag.String("config", "dashboard.toml", "path to TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	logger.Info().Str("driver", cfg.Driver).Msg("starting dashboard telemetry")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus, stats, err := openBus(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open bus driver")
	}
	defer bus.Close()

	cat := catalog.Default()
	st := store.New(cat)
	rt := router.New(cat, st, logger)
	pmp := pump.New(bus, rt, cfg.RXBufferDepth, logger)
	pub := pump.NewPublisher(cat, st)

	go func() {
		if err := pmp.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("ingress pump stopped")
		}
	}()

	publishIDs, _ := cfg.PublishIDs()
	if len(publishIDs) > 0 && cfg.Publish.IntervalMS > 0 {
		go publishLoop(ctx, bus, pub, publishIDs, time.Duration(cfg.Publish.IntervalMS)*time.Millisecond, logger)
	}

	var srv *api.Server
	if cfg.API.Enabled {
		srv = api.NewServer(cfg.API.Addr, cat, st, rt, pmp, stats, logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error().Err(err).Msg("diagnostics API stopped")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	cancel()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}

	m := pmp.Metrics()
	c := rt.Counters()
	logger.Info().
		Uint64("frames", m.Frames).
		Uint64("updated", c.Updated).
		Uint64("rejected", c.Rejected).
		Uint64("unmatched", c.Unmatched).
		Msg("final statistics")
}

// openBus builds the configured bus driver. The stats source is non-nil
// only for SocketCAN, where the kernel exposes interface counters.
func openBus(ctx context.Context, cfg config.Config, logger zerolog.Logger) (can.Bus, api.StatsSource, error) {
	switch cfg.Driver {
	case "socketcan":
		sc, err := can.OpenSocketCAN(cfg.SocketCAN.Interface, cfg.RXBufferDepth)
		if err != nil {
			return nil, nil, err
		}
		if filters, _ := cfg.SocketCANFilters(); len(filters) > 0 {
			if err := sc.SetFilter(filters); err != nil {
				logger.Warn().Err(err).Msg("failed to set CAN filters")
			} else {
				logger.Info().Int("count", len(filters)).Msg("applied CAN identifier filters")
			}
		}
		var stats api.StatsSource
		if cfg.SocketCAN.StatsInterval > 0 {
			collector := can.NewStatsCollector(cfg.SocketCAN.Interface,
				time.Duration(cfg.SocketCAN.StatsInterval)*time.Second, logger)
			go collector.Run(ctx)
			stats = collector
		}
		return sc, stats, nil

	case "slcan":
		sl, err := can.OpenSLCAN(cfg.SLCAN.Port, can.SLCANOptions{
			BaudRate:    cfg.SLCAN.BaudRate,
			BitrateCode: cfg.SLCAN.BitrateCode,
			Depth:       cfg.RXBufferDepth,
		})
		return sl, nil, err

	case "loopback":
		return can.NewLoopback(cfg.RXBufferDepth), nil, nil
	}
	return nil, nil, nil // unreachable, config validates the driver name
}

// publishLoop transmits the configured slots at a fixed cadence.
func publishLoop(ctx context.Context, bus can.Bus, pub *pump.Publisher, ids []uint32, interval time.Duration, logger zerolog.Logger) {
	plog := logger.With().Str("component", "publisher").Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range ids {
				f, err := pub.Frame(id)
				if err != nil {
					plog.Warn().Err(err).Uint32("id", id).Msg("failed to build outbound frame")
					continue
				}
				if err := bus.Send(f); err != nil {
					plog.Warn().Err(err).Uint32("id", id).Msg("failed to send frame")
				}
			}
		}
	}
}
