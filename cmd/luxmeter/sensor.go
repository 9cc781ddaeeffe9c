package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/luxmeter"
	"github.com/mklimuk/luxmeter/adapter"
	"github.com/mklimuk/luxmeter/cmd/luxmeter/console"
	"github.com/mklimuk/luxmeter/environment"
	"github.com/mklimuk/luxmeter/i2c"
	"github.com/mklimuk/luxmeter/luxctx"
)

const (
	adapterGeneric = "generic"
	adapterNanoPi  = "nanopi"
	adapterMCP2221 = "mcp2221"
	adapterMock    = "mock"
)

const closeTimeout = 2 * time.Second

func busFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Value:   adapterGeneric,
			Usage:   "i2c adapter: generic, nanopi, mcp2221 or mock",
			EnvVars: []string{"LUXMETER_ADAPTER"},
		},
		&cli.StringFlag{
			Name:    "bus",
			Aliases: []string{"b"},
			Usage:   "bus name or number (generic, nanopi) or device index (mcp2221)",
			EnvVars: []string{"LUXMETER_BUS"},
		},
		&cli.StringFlag{
			Name:    "addr",
			Value:   "l",
			Usage:   "sensor address: l (0x4a), h (0x4b) or a number",
			EnvVars: []string{"LUXMETER_ADDRESS"},
		},
		&cli.BoolFlag{
			Name:  "trace",
			Usage: "log every register transaction",
		},
	}
}

type busOpts struct {
	adapter string
	bus     string
	addr    byte
	config  byte
}

func busOptsFromCli(c *cli.Context) (busOpts, error) {
	addr, err := parseAddress(c.String("addr"))
	if err != nil {
		return busOpts{}, err
	}
	return busOpts{
		adapter: c.String("adapter"),
		bus:     c.String("bus"),
		addr:    addr,
		config:  environment.MAX44009DefaultConfiguration,
	}, nil
}

func commandContext(c *cli.Context) context.Context {
	ctx := console.SetVerbose(c.Context, c.Bool("verbose"))
	return luxctx.SetTrace(ctx, c.Bool("trace"))
}

func parseAddress(value string) (byte, error) {
	switch strings.ToLower(value) {
	case "", "l", "low":
		return environment.MAX44009AddrLow, nil
	case "h", "high":
		return environment.MAX44009AddrHigh, nil
	}
	addr, err := strconv.ParseUint(value, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", value, err)
	}
	return byte(addr), nil
}

// openSensor builds a driver on the selected adapter. The driver owns the
// adapter and releases it on Close.
func openSensor(ctx context.Context, opts busOpts) (*environment.MAX44009, error) {
	driverOpts := []environment.MAX44009Opt{
		environment.WithMAX44009Address(opts.addr),
		environment.WithMAX44009Configuration(opts.config),
	}
	switch opts.adapter {
	case adapterGeneric:
		if n, err := strconv.Atoi(opts.bus); err == nil {
			return i2c.OpenMAX44009(ctx, n, opts.addr, driverOpts...)
		}
		bus, err := i2c.NewGenericBus(opts.bus)
		if err != nil {
			return nil, err
		}
		s := environment.NewMAX44009(ctx, bus, driverOpts...)
		s.OnClose(bus.Close)
		return s, nil
	case adapterNanoPi:
		busNumber := -1
		if opts.bus != "" {
			n, err := strconv.Atoi(opts.bus)
			if err != nil {
				return nil, fmt.Errorf("invalid bus number %q: %w", opts.bus, err)
			}
			busNumber = n
		}
		npi := nanopi.NewNeoAdaptor()
		err := npi.I2cBusAdaptor.Connect()
		if err != nil {
			return nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		s := environment.NewMAX44009(ctx, i2c.NewGobotBus(npi, busNumber), driverOpts...)
		s.OnClose(npi.I2cBusAdaptor.Finalize)
		return s, nil
	case adapterMCP2221:
		var mcpOpts []adapter.MCP2221Opt
		if opts.bus != "" {
			index, err := strconv.Atoi(opts.bus)
			if err != nil {
				return nil, fmt.Errorf("invalid device index %q: %w", opts.bus, err)
			}
			mcpOpts = append(mcpOpts, adapter.WithDeviceIndex(index))
		}
		a := adapter.NewMCP2221(mcpOpts...)
		err := a.Init(ctx)
		if err != nil {
			return nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		return environment.NewMAX44009(ctx, luxmeter.AsAddressedBus(a), driverOpts...), nil
	case adapterMock:
		return environment.NewMAX44009(ctx, newSimulatedBus(environment.MAX44009AddrLow, environment.MAX44009AddrHigh), driverOpts...), nil
	}
	return nil, fmt.Errorf("unknown adapter %q", opts.adapter)
}

// withSensor opens the sensor, fails when it did not answer the probe and
// closes it once fn returns.
func withSensor(ctx context.Context, opts busOpts, fn func(s *environment.MAX44009) error) error {
	s, err := openSensor(ctx, opts)
	if err != nil {
		return console.Exit(1, "could not open sensor: %s", console.Red(err))
	}
	defer func() {
		// ctx is usually cancelled by the time watch returns
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			console.Warnf("could not release sensor: %s", err)
		}
	}()
	if !s.IsConfigured() {
		return console.Exit(1, "%s no MAX44009 found at %#x on %s adapter", console.PictoGhost, opts.addr, opts.adapter)
	}
	return fn(s)
}
