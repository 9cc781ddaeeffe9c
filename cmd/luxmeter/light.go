package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/luxmeter/cmd/luxmeter/console"
	"github.com/mklimuk/luxmeter/environment"
	"github.com/mklimuk/luxmeter/monitor"
)

var lightCmd = cli.Command{
	Name:  "light",
	Usage: "MAX44009 ambient light sensor",
	Subcommands: []*cli.Command{
		&lightReadCmd,
		&lightRawCmd,
		&lightResetCmd,
		&lightConfigCmd,
		&lightThresholdCmd,
		&lightWatchCmd,
	},
}

var lightReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "read illuminance in lux",
	Flags:   busFlags(),
	Action: func(c *cli.Context) error {
		opts, err := busOptsFromCli(c)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		ctx := commandContext(c)
		return withSensor(ctx, opts, func(s *environment.MAX44009) error {
			lux, err := s.GetLux(ctx)
			if err != nil {
				return console.Exit(1, "error getting light sensor read: %s", console.Red(err))
			}
			r := monitor.Reading{Lux: lux, Timestamp: time.Now()}
			console.PInfof(console.PictoBulb, "%s lux (%s)", console.White(fmt.Sprintf("%.2f", r.Lux)), console.Category(r.Category()))
			return nil
		})
	},
}

var lightRawCmd = cli.Command{
	Name:  "raw",
	Usage: "read the raw exponent and mantissa",
	Flags: busFlags(),
	Action: func(c *cli.Context) error {
		opts, err := busOptsFromCli(c)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		ctx := commandContext(c)
		return withSensor(ctx, opts, func(s *environment.MAX44009) error {
			raw, err := s.GetLuxValue(ctx)
			if err != nil {
				return console.Exit(1, "error getting raw light value: %s", console.Red(err))
			}
			console.Printf("raw: %s exponent: %s mantissa: %s lux: %s\n",
				console.White(fmt.Sprintf("%#04x", uint16(raw))),
				console.White(raw.Exponent()),
				console.White(raw.Mantissa()),
				console.White(fmt.Sprintf("%.3f", environment.ConvertToLux(raw))))
			return nil
		})
	},
}

var lightResetCmd = cli.Command{
	Name:  "reset",
	Usage: "disable interrupts, write the configuration and open the threshold window",
	Flags: append(busFlags(),
		&cli.UintFlag{
			Name:  "config",
			Value: uint(environment.MAX44009DefaultConfiguration),
			Usage: "configuration register value",
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "do not ask for confirmation",
		},
	),
	Action: func(c *cli.Context) error {
		opts, err := busOptsFromCli(c)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		if c.Uint("config") > 0xFF {
			return console.Exit(1, "configuration %#x does not fit in a register", c.Uint("config"))
		}
		opts.config = byte(c.Uint("config"))
		if !c.Bool("yes") {
			ok, err := console.Confirm(fmt.Sprintf("reset sensor at %#x with configuration %#02x?", opts.addr, opts.config))
			if err != nil {
				return console.Exit(1, "prompt error: %s", err)
			}
			if !ok {
				console.PInfof(console.PictoStop, "reset cancelled")
				return nil
			}
		}
		ctx := commandContext(c)
		return withSensor(ctx, opts, func(s *environment.MAX44009) error {
			err := s.Reset(ctx)
			if err != nil {
				return console.Exit(1, "reset failed: %s", console.Red(err))
			}
			console.PInfof(console.PictoWrench, "sensor at %#x reset", opts.addr)
			return nil
		})
	},
}

type sensorConfiguration struct {
	Address       string `yaml:"address"`
	Configuration string `yaml:"configuration"`
	Continuous    bool   `yaml:"continuous"`
	Manual        bool   `yaml:"manual"`
	CurrentDiv    bool   `yaml:"current_division"`
	Integration   string `yaml:"integration"`
	Interrupt     bool   `yaml:"interrupt"`
}

var integrationTimes = map[byte]string{
	environment.MAX44009Integration800ms: "800ms",
	environment.MAX44009Integration400ms: "400ms",
	environment.MAX44009Integration200ms: "200ms",
	environment.MAX44009Integration100ms: "100ms",
	environment.MAX44009Integration50ms:  "50ms",
	environment.MAX44009Integration25ms:  "25ms",
	environment.MAX44009Integration12ms:  "12.5ms",
	environment.MAX44009Integration6ms:   "6.25ms",
}

func describeConfiguration(addr, cfg byte, interrupt bool) sensorConfiguration {
	return sensorConfiguration{
		Address:       fmt.Sprintf("%#x", addr),
		Configuration: fmt.Sprintf("%#02x", cfg),
		Continuous:    cfg&environment.MAX44009ConfigContinuous != 0,
		Manual:        cfg&environment.MAX44009ConfigManual != 0,
		CurrentDiv:    cfg&environment.MAX44009ConfigCDR != 0,
		Integration:   integrationTimes[cfg&0x07],
		Interrupt:     interrupt,
	}
}

var lightConfigCmd = cli.Command{
	Name:  "config",
	Usage: "show the configuration and interrupt status registers",
	Flags: busFlags(),
	Action: func(c *cli.Context) error {
		opts, err := busOptsFromCli(c)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		ctx := commandContext(c)
		return withSensor(ctx, opts, func(s *environment.MAX44009) error {
			cfg, err := s.ReadConfiguration(ctx)
			if err != nil {
				return console.Exit(1, "could not read configuration: %s", console.Red(err))
			}
			interrupt, err := s.ReadInterruptStatus(ctx)
			if err != nil {
				return console.Exit(1, "could not read interrupt status: %s", console.Red(err))
			}
			return encodeYAML(describeConfiguration(s.Address(), cfg, interrupt))
		})
	},
}

var lightThresholdCmd = cli.Command{
	Name:  "threshold",
	Usage: "set the interrupt threshold window",
	Flags: append(busFlags(),
		&cli.UintFlag{Name: "upper", Value: 0xFF, Usage: "upper threshold high byte"},
		&cli.UintFlag{Name: "lower", Value: 0x00, Usage: "lower threshold high byte"},
		&cli.UintFlag{Name: "timer", Value: 0xFF, Usage: "threshold timer in 100ms units"},
		&cli.BoolFlag{Name: "enable", Usage: "enable the threshold interrupt"},
	),
	Action: func(c *cli.Context) error {
		opts, err := busOptsFromCli(c)
		if err != nil {
			return console.Exit(1, "%s", err)
		}
		for _, name := range []string{"upper", "lower", "timer"} {
			if c.Uint(name) > 0xFF {
				return console.Exit(1, "%s value %#x does not fit in a register", name, c.Uint(name))
			}
		}
		ctx := commandContext(c)
		return withSensor(ctx, opts, func(s *environment.MAX44009) error {
			err := s.SetThresholds(ctx, byte(c.Uint("upper")), byte(c.Uint("lower")), byte(c.Uint("timer")))
			if err != nil {
				return console.Exit(1, "could not set thresholds: %s", console.Red(err))
			}
			err = s.EnableInterrupt(ctx, c.Bool("enable"))
			if err != nil {
				return console.Exit(1, "could not set interrupt: %s", console.Red(err))
			}
			console.PInfof(console.PictoWrench, "thresholds set (interrupt enabled: %t)", c.Bool("enable"))
			return nil
		})
	},
}

func encodeYAML(v any) error {
	enc := yaml.NewEncoder(console.Writer())
	defer func() { _ = enc.Close() }()
	err := enc.Encode(v)
	if err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}

func printReading(_ context.Context, r monitor.Reading) error {
	console.PInfof(console.PictoSun, "%s %s lux (%s)",
		r.Timestamp.Format(time.TimeOnly),
		console.White(fmt.Sprintf("%.2f", r.Lux)),
		console.Category(r.Category()))
	return nil
}
