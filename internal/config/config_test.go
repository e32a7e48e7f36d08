package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "socketcan", cfg.Driver)
	assert.Equal(t, 64, cfg.RXBufferDepth)
	assert.Equal(t, "can0", cfg.SocketCAN.Interface)
	assert.True(t, cfg.API.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
driver = "slcan"
rx_buffer_depth = 128
log_level = "debug"

[slcan]
port = "/dev/ttyACM0"
baud_rate = 921600
bitrate_code = "8"

[api]
enabled = false

[publish]
interval_ms = 250
ids = ["0x032", "0x00F"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "slcan", cfg.Driver)
	assert.Equal(t, 128, cfg.RXBufferDepth)
	assert.Equal(t, "/dev/ttyACM0", cfg.SLCAN.Port)
	assert.Equal(t, 921600, cfg.SLCAN.BaudRate)
	assert.False(t, cfg.API.Enabled)

	ids, err := cfg.PublishIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x032, 0x00F}, ids)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `driver = "carrier-pigeon"`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestLoadRejectsSLCANWithoutPort(t *testing.T) {
	path := writeConfig(t, `driver = "slcan"`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadFilterID(t *testing.T) {
	path := writeConfig(t, `
[socketcan]
filters = ["0x0ZZ"]
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestSocketCANFilters(t *testing.T) {
	path := writeConfig(t, `
[socketcan]
filters = ["0x010", "018", " 0x020 "]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	filters, err := cfg.SocketCANFilters()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x010, 0x018, 0x020}, filters)
}
