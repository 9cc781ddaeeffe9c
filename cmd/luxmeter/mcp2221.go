package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/luxmeter/adapter"
	"github.com/mklimuk/luxmeter/cmd/luxmeter/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 USB to I2C bridge",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221SpeedCmd,
	},
}

var mcp2221Flags = []cli.Flag{
	&cli.IntFlag{
		Name:  "index",
		Value: -1,
		Usage: "device index when several bridges are connected",
	},
}

func newBridge(c *cli.Context) *adapter.MCP2221 {
	if index := c.Int("index"); index >= 0 {
		return adapter.NewMCP2221(adapter.WithDeviceIndex(index))
	}
	return adapter.NewMCP2221()
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the bridge I2C engine status",
	Flags: mcp2221Flags,
	Action: func(c *cli.Context) error {
		status, err := newBridge(c).Status(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current transfer and free the bus",
	Flags: mcp2221Flags,
	Action: func(c *cli.Context) error {
		status, err := newBridge(c).ReleaseBus(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeYAML(status)
	},
}

var mcp2221SpeedCmd = cli.Command{
	Name:      "speed",
	Usage:     "set the I2C clock in Hz",
	ArgsUsage: "<hz>",
	Flags:     mcp2221Flags,
	Action: func(c *cli.Context) error {
		hz, err := strconv.Atoi(c.Args().First())
		if err != nil {
			return console.Exit(1, "invalid speed %q", c.Args().First())
		}
		err = newBridge(c).SetSpeed(commandContext(c), hz)
		if err != nil {
			return console.Exit(1, "could not set speed: %s", console.Red(err))
		}
		console.Infof("i2c speed set to %d Hz", hz)
		return nil
	},
}
