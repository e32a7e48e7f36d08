// Package config loads the dashboard's TOML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	// Driver selects the bus driver: "socketcan", "slcan" or "loopback".
	Driver string `toml:"driver"`

	// RXBufferDepth is the receive channel capacity and the ingress pump's
	// drain bound per wake.
	RXBufferDepth int `toml:"rx_buffer_depth"`

	LogLevel string `toml:"log_level"`

	SocketCAN SocketCANConfig `toml:"socketcan"`
	SLCAN     SLCANConfig     `toml:"slcan"`
	API       APIConfig       `toml:"api"`
	Publish   PublishConfig   `toml:"publish"`
}

// SocketCANConfig configures the Linux SocketCAN driver.
type SocketCANConfig struct {
	Interface     string   `toml:"interface"`
	Filters       []string `toml:"filters"`        // hex identifiers, e.g. "0x010"
	StatsInterval int      `toml:"stats_interval"` // seconds, 0 disables
}

// SLCANConfig configures the serial slcan adapter driver.
type SLCANConfig struct {
	Port        string `toml:"port"`
	BaudRate    int    `toml:"baud_rate"`
	BitrateCode string `toml:"bitrate_code"` // slcan S command argument, "" to skip
}

// APIConfig configures the diagnostics HTTP server.
type APIConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// PublishConfig configures periodic egress of local state.
type PublishConfig struct {
	IntervalMS int      `toml:"interval_ms"`
	IDs        []string `toml:"ids"` // hex identifiers to publish
}

// Load reads the TOML file at path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.validate()
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Driver:        "socketcan",
		RXBufferDepth: 64,
		LogLevel:      "info",
		SocketCAN: SocketCANConfig{
			Interface:     "can0",
			StatsInterval: 10,
		},
		SLCAN: SLCANConfig{
			BaudRate: 115200,
		},
		API: APIConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Publish: PublishConfig{
			IntervalMS: 1000,
		},
	}
}

func (c *Config) validate() error {
	switch c.Driver {
	case "socketcan", "slcan", "loopback":
	default:
		return fmt.Errorf("config: unknown driver %q", c.Driver)
	}
	if c.RXBufferDepth < 1 {
		return fmt.Errorf("config: rx_buffer_depth must be at least 1, got %d", c.RXBufferDepth)
	}
	if c.Driver == "slcan" && c.SLCAN.Port == "" {
		return fmt.Errorf("config: slcan driver requires a port")
	}
	if c.API.Enabled && c.API.Addr == "" {
		return fmt.Errorf("config: api.addr must be set when the API is enabled")
	}
	if _, err := c.SocketCANFilters(); err != nil {
		return err
	}
	if _, err := c.PublishIDs(); err != nil {
		return err
	}
	return nil
}

// SocketCANFilters returns the configured kernel filters as identifiers.
func (c *Config) SocketCANFilters() ([]uint32, error) {
	return parseIDs(c.SocketCAN.Filters)
}

// PublishIDs returns the identifiers to publish periodically.
func (c *Config) PublishIDs() ([]uint32, error) {
	return parseIDs(c.Publish.IDs)
}

func parseIDs(raw []string) ([]uint32, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uint32, 0, len(raw))
	for _, s := range raw {
		trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseUint(trimmed, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("config: invalid identifier %q: %w", s, err)
		}
		ids = append(ids, uint32(id))
	}
	return ids, nil
}
