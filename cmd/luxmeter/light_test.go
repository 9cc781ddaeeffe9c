package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/luxmeter/cmd/luxmeter/console"
	"github.com/mklimuk/luxmeter/config"
	"github.com/mklimuk/luxmeter/environment"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	console.SetOutput(&out, &out)
	t.Cleanup(func() { console.SetOutput(os.Stdout, os.Stderr) })
	return &out
}

func runApp(args ...string) error {
	app := &cli.App{
		Name:           "luxmeter",
		Flags:          []cli.Flag{&cli.BoolFlag{Name: "verbose"}},
		Commands:       []*cli.Command{&lightCmd},
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return app.Run(append([]string{"luxmeter"}, args...))
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in       string
		expected byte
		err      bool
	}{
		{"", 0x4A, false},
		{"l", 0x4A, false},
		{"H", 0x4B, false},
		{"0x4b", 0x4B, false},
		{"75", 0x4B, false},
		{"0x1ff", 0, true},
		{"bogus", 0, true},
	}
	for _, test := range tests {
		addr, err := parseAddress(test.in)
		if test.err {
			assert.Error(t, err, test.in)
			continue
		}
		require.NoError(t, err, test.in)
		assert.Equal(t, test.expected, addr, test.in)
	}
}

func TestOpenSensorMock(t *testing.T) {
	ctx := context.Background()
	s, err := openSensor(ctx, busOpts{adapter: adapterMock, addr: 0x4A, config: 0x03})
	require.NoError(t, err)
	require.True(t, s.IsConfigured())
	lux, err := s.GetLux(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 77.76, lux, 1e-9)
	assert.NoError(t, s.Close(ctx))

	_, err = openSensor(ctx, busOpts{adapter: "ftdi"})
	assert.EqualError(t, err, `unknown adapter "ftdi"`)
}

func TestSimulatedBusResetAndConfig(t *testing.T) {
	ctx := context.Background()
	bus := newSimulatedBus(0x4A)
	s := environment.NewMAX44009(ctx, bus, environment.WithMAX44009Configuration(0x8B))
	require.NoError(t, s.Reset(ctx))
	cfg, err := s.ReadConfiguration(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(0x8B), cfg)

	desc := describeConfiguration(s.Address(), cfg, false)
	assert.Equal(t, "0x4a", desc.Address)
	assert.True(t, desc.Continuous)
	assert.False(t, desc.Manual)
	assert.True(t, desc.CurrentDiv)
	assert.Equal(t, "100ms", desc.Integration)

	missing := environment.NewMAX44009(ctx, bus, environment.WithMAX44009Address(0x4B))
	assert.False(t, missing.IsConfigured())
}

func TestWithSensorReleasesAfterCancel(t *testing.T) {
	out := captureOutput(t)
	ctx, cancel := context.WithCancel(context.Background())
	var sensor *environment.MAX44009
	err := withSensor(ctx, busOpts{adapter: adapterMock, addr: 0x4A, config: 0x03}, func(s *environment.MAX44009) error {
		sensor = s
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "could not release sensor")
	_, err = sensor.GetLux(context.Background())
	assert.ErrorIs(t, err, environment.ErrClosed)
}

func TestLightReadCommand(t *testing.T) {
	out := captureOutput(t)
	require.NoError(t, runApp("light", "read", "--adapter", "mock"))
	assert.Contains(t, out.String(), "77.76 lux (low)")
}

func TestLightRawCommand(t *testing.T) {
	out := captureOutput(t)
	require.NoError(t, runApp("light", "raw", "--adapter", "mock"))
	assert.Contains(t, out.String(), "raw: 0x0536 exponent: 5 mantissa: 54 lux: 77.760")
}

func TestLightConfigCommand(t *testing.T) {
	out := captureOutput(t)
	require.NoError(t, runApp("light", "config", "--adapter", "mock"))
	assert.Contains(t, out.String(), "configuration: \"0x03\"")
	assert.Contains(t, out.String(), "integration: 100ms")
}

func TestLightResetCommand(t *testing.T) {
	out := captureOutput(t)
	require.NoError(t, runApp("light", "reset", "--adapter", "mock", "--yes"))
	assert.Contains(t, out.String(), "sensor at 0x4a reset")

	err := runApp("light", "reset", "--adapter", "mock", "--yes", "--config", "300")
	assert.Error(t, err)
}

func TestLightReadMissingSensor(t *testing.T) {
	captureOutput(t)
	err := runApp("light", "read", "--adapter", "mock", "--addr", "0x23")
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.ExitCode())
}

func watchConfigForArgs(t *testing.T, args ...string) (config.Watch, error) {
	t.Helper()
	var cfg config.Watch
	var cfgErr error
	cmd := lightWatchCmd
	cmd.Action = func(c *cli.Context) error {
		cfg, cfgErr = watchConfigFromCli(c)
		return nil
	}
	app := &cli.App{Name: "luxmeter", Commands: []*cli.Command{&cmd}}
	require.NoError(t, app.Run(append([]string{"luxmeter", "watch"}, args...)))
	return cfg, cfgErr
}

func TestWatchConfigFromCli(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
adapter: mock
interval: 10s
station_id: greenhouse
mqtt:
  broker: localhost
`), 0o600))

	cfg, err := watchConfigForArgs(t, "--config", path, "--interval", "2s", "--addr", "h")
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Adapter)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, byte(0x4B), cfg.Address)
	assert.Equal(t, "greenhouse", cfg.StationID)
	assert.Equal(t, "localhost", cfg.MQTT.Broker)
	assert.Equal(t, "luxmeter", cfg.MQTT.ClientID)

	_, err = watchConfigForArgs(t, "--adapter", "mock", "--mqtt", "localhost")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg, err = watchConfigForArgs(t, "--adapter", "mock")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.False(t, cfg.MQTT.Enabled())
}
