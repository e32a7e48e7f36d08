package can

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// InterfaceStats is a snapshot of a SocketCAN interface's state as reported
// by `ip -details -statistics link show`.
type InterfaceStats struct {
	Interface string    `json:"interface"`
	Timestamp time.Time `json:"timestamp"`

	State          string `json:"state"`            // UP, DOWN
	Bitrate        int    `json:"bitrate"`          // bps
	BusState       string `json:"bus_state"`        // ERROR-ACTIVE, ERROR-PASSIVE, BUS-OFF
	RXErrorCounter int    `json:"rx_error_counter"` // controller berr-counter rx
	TXErrorCounter int    `json:"tx_error_counter"` // controller berr-counter tx
	RestartMS      int    `json:"restart_ms"`

	RXPackets uint64 `json:"rx_packets"`
	RXBytes   uint64 `json:"rx_bytes"`
	RXErrors  uint64 `json:"rx_errors"`
	RXDropped uint64 `json:"rx_dropped"`
	RXOverrun uint64 `json:"rx_overrun"`
	TXPackets uint64 `json:"tx_packets"`
	TXBytes   uint64 `json:"tx_bytes"`
	TXErrors  uint64 `json:"tx_errors"`
	TXDropped uint64 `json:"tx_dropped"`

	BusOffRestarts  uint64 `json:"bus_off_restarts"`
	BusErrors       uint64 `json:"bus_errors"`
	ArbitrationLost uint64 `json:"arbitration_lost"`
	ErrorWarning    uint64 `json:"error_warning"`
	ErrorPassive    uint64 `json:"error_passive"`
	BusOff          uint64 `json:"bus_off"`
}

var (
	reFlags       = regexp.MustCompile(`<([^>]+)>`)
	reBitrate     = regexp.MustCompile(`bitrate (\d+)`)
	reBusState    = regexp.MustCompile(`state ([A-Z-]+)`)
	reBerrCounter = regexp.MustCompile(`berr-counter tx (\d+) rx (\d+)`)
	reRestartMS   = regexp.MustCompile(`restart-ms (\d+)`)
	reRestarted   = regexp.MustCompile(`re-started (\d+)`)
	reBusError    = regexp.MustCompile(`bus-error (\d+)`)
	reArbLost     = regexp.MustCompile(`arbitration-lost (\d+)`)
	reErrWarning  = regexp.MustCompile(`error-warning (\d+)`)
	reErrPassive  = regexp.MustCompile(`error-passive (\d+)`)
	reBusOff      = regexp.MustCompile(`bus-off (\d+)`)
)

// StatsCollector periodically samples interface statistics for diagnostics.
// The latest sample is kept for the API; bus-state degradation is logged.
type StatsCollector struct {
	ifname   string
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	latest *InterfaceStats
}

// NewStatsCollector creates a collector for the named interface.
func NewStatsCollector(ifname string, interval time.Duration, log zerolog.Logger) *StatsCollector {
	return &StatsCollector{
		ifname:   ifname,
		interval: interval,
		log:      log.With().Str("component", "canstats").Logger(),
	}
}

// Latest returns the most recent sample, if one has been collected.
func (sc *StatsCollector) Latest() (InterfaceStats, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.latest == nil {
		return InterfaceStats{}, false
	}
	return *sc.latest, true
}

// Run samples statistics until the context is cancelled. The first sample is
// taken immediately.
func (sc *StatsCollector) Run(ctx context.Context) {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	sc.collect(ctx)
	for {
		select {
		case <-ticker.C:
			sc.collect(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (sc *StatsCollector) collect(ctx context.Context) {
	out, err := exec.CommandContext(ctx, "ip", "-details", "-statistics", "link", "show", sc.ifname).CombinedOutput()
	if err != nil {
		sc.log.Warn().Err(err).Str("interface", sc.ifname).Msg("failed to collect interface statistics")
		return
	}

	stats, err := ParseIPLinkOutput(string(out))
	if err != nil {
		sc.log.Warn().Err(err).Msg("failed to parse interface statistics")
		return
	}
	stats.Interface = sc.ifname
	stats.Timestamp = time.Now()

	if stats.BusState != "" && stats.BusState != "ERROR-ACTIVE" {
		sc.log.Warn().
			Str("bus_state", stats.BusState).
			Int("rx_err", stats.RXErrorCounter).
			Int("tx_err", stats.TXErrorCounter).
			Msg("CAN controller degraded")
	}

	sc.mu.Lock()
	sc.latest = &stats
	sc.mu.Unlock()
}

// ParseIPLinkOutput parses the text output of
// `ip -details -statistics link show <dev>`.
func ParseIPLinkOutput(output string) (InterfaceStats, error) {
	var stats InterfaceStats
	lines := strings.Split(output, "\n")
	if len(lines) == 0 {
		return stats, fmt.Errorf("empty ip output")
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)

		if i == 0 {
			// "3: can0: <NOARP,UP,LOWER_UP,ECHO> mtu 16 qdisc pfifo_fast state UP ..."
			if m := reFlags.FindStringSubmatch(line); len(m) > 1 {
				if strings.Contains(m[1], "UP") {
					stats.State = "UP"
				} else {
					stats.State = "DOWN"
				}
			}
			continue
		}

		if strings.Contains(line, "bitrate") {
			if m := reBitrate.FindStringSubmatch(line); len(m) > 1 {
				stats.Bitrate, _ = strconv.Atoi(m[1])
			}
		}

		if strings.Contains(line, "can state") {
			if m := reBusState.FindStringSubmatch(line); len(m) > 1 {
				stats.BusState = m[1]
			}
			if m := reBerrCounter.FindStringSubmatch(line); len(m) > 2 {
				stats.TXErrorCounter, _ = strconv.Atoi(m[1])
				stats.RXErrorCounter, _ = strconv.Atoi(m[2])
			}
			if m := reRestartMS.FindStringSubmatch(line); len(m) > 1 {
				stats.RestartMS, _ = strconv.Atoi(m[1])
			}
		}

		if strings.HasPrefix(line, "RX:") && i+1 < len(lines) {
			parseLinkCounters(lines[i+1], &stats.RXBytes, &stats.RXPackets, &stats.RXErrors, &stats.RXDropped, &stats.RXOverrun)
		}
		if strings.HasPrefix(line, "TX:") && i+1 < len(lines) {
			var unused uint64
			parseLinkCounters(lines[i+1], &stats.TXBytes, &stats.TXPackets, &stats.TXErrors, &stats.TXDropped, &unused)
		}

		if m := reRestarted.FindStringSubmatch(line); len(m) > 1 {
			stats.BusOffRestarts, _ = strconv.ParseUint(m[1], 10, 64)
		}
		if m := reBusError.FindStringSubmatch(line); len(m) > 1 {
			stats.BusErrors, _ = strconv.ParseUint(m[1], 10, 64)
		}
		if m := reArbLost.FindStringSubmatch(line); len(m) > 1 {
			stats.ArbitrationLost, _ = strconv.ParseUint(m[1], 10, 64)
		}
		if m := reErrWarning.FindStringSubmatch(line); len(m) > 1 {
			stats.ErrorWarning, _ = strconv.ParseUint(m[1], 10, 64)
		}
		if m := reErrPassive.FindStringSubmatch(line); len(m) > 1 {
			stats.ErrorPassive, _ = strconv.ParseUint(m[1], 10, 64)
		}
		if m := reBusOff.FindStringSubmatch(line); len(m) > 1 {
			stats.BusOff, _ = strconv.ParseUint(m[1], 10, 64)
		}
	}

	return stats, nil
}

// parseLinkCounters reads the numeric row following an RX:/TX: header,
// e.g. "123456 789 0 0 0 0".
func parseLinkCounters(line string, bytes, packets, errs, dropped, overrun *uint64) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return
	}
	*bytes, _ = strconv.ParseUint(fields[0], 10, 64)
	*packets, _ = strconv.ParseUint(fields[1], 10, 64)
	*errs, _ = strconv.ParseUint(fields[2], 10, 64)
	*dropped, _ = strconv.ParseUint(fields[3], 10, 64)
	*overrun, _ = strconv.ParseUint(fields[4], 10, 64)
}
