package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWatch(t *testing.T) {
	path := writeConfig(t, `
adapter: nanopi
bus: "0"
address: 0x4B
interval: 30s
station_id: greenhouse
mqtt:
  broker: localhost
  client_id: luxmeter-1
`)
	cfg, err := LoadWatch(path)
	require.NoError(t, err)
	assert.Equal(t, "nanopi", cfg.Adapter)
	assert.Equal(t, "0", cfg.Bus)
	assert.Equal(t, uint8(0x4B), cfg.Address)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, "greenhouse", cfg.StationID)
	assert.Equal(t, "localhost", cfg.MQTT.Broker)
	assert.Equal(t, DefaultMQTTPort, cfg.MQTT.Port)
	assert.Equal(t, DefaultTopicPrefix, cfg.MQTT.TopicPrefix)
	assert.True(t, cfg.MQTT.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadWatchErrors(t *testing.T) {
	_, err := LoadWatch(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadWatch(writeConfig(t, "interval: [1, 2"))
	assert.Error(t, err)
}

func TestWatchValidate(t *testing.T) {
	assert.NoError(t, DefaultWatch().Validate())

	cfg := DefaultWatch()
	cfg.Adapter = "ftdi"
	cfg.Address = 0x23
	cfg.Interval = time.Millisecond
	cfg.MQTT.Broker = "localhost"
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), `unknown adapter "ftdi"`)
	assert.Contains(t, err.Error(), "0x23")
	assert.Contains(t, err.Error(), "interval")
	assert.Contains(t, err.Error(), "station_id")
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "latest-unknown-none", VersionString())
}
