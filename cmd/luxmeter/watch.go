package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/luxmeter/cmd/luxmeter/console"
	"github.com/mklimuk/luxmeter/config"
	"github.com/mklimuk/luxmeter/environment"
	"github.com/mklimuk/luxmeter/monitor"
	"github.com/mklimuk/luxmeter/telemetry"
)

var lightWatchCmd = cli.Command{
	Name:  "watch",
	Usage: "read the sensor periodically and optionally publish readings over MQTT",
	Flags: append(busFlags(),
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "watch configuration file (yaml)",
			EnvVars: []string{"LUXMETER_CONFIG"},
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Value:   config.DefaultInterval,
			Usage:   "time between readings",
		},
		&cli.StringFlag{
			Name:    "station",
			Usage:   "station id used in the mqtt topic and payload",
			EnvVars: []string{"LUXMETER_STATION"},
		},
		&cli.StringFlag{
			Name:    "mqtt",
			Usage:   "mqtt broker host; readings are only printed when empty",
			EnvVars: []string{"LUXMETER_MQTT_BROKER"},
		},
		&cli.IntFlag{
			Name:  "mqtt-port",
			Value: config.DefaultMQTTPort,
		},
		&cli.StringFlag{
			Name:  "mqtt-client-id",
			Value: "luxmeter",
		},
		&cli.StringFlag{
			Name:  "mqtt-prefix",
			Value: config.DefaultTopicPrefix,
		},
	),
	Action: func(c *cli.Context) error {
		cfg, err := watchConfigFromCli(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		ctx, stop := signal.NotifyContext(commandContext(c), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := busOpts{
			adapter: cfg.Adapter,
			bus:     cfg.Bus,
			addr:    cfg.Address,
			config:  environment.MAX44009DefaultConfiguration,
		}
		return withSensor(ctx, opts, func(s *environment.MAX44009) error {
			sink := monitor.Sink(printReading)
			if cfg.MQTT.Enabled() {
				pub := telemetry.NewPublisher(telemetry.Config{
					Broker:      cfg.MQTT.Broker,
					Port:        cfg.MQTT.Port,
					ClientID:    cfg.MQTT.ClientID,
					TopicPrefix: cfg.MQTT.TopicPrefix,
					StationID:   cfg.StationID,
				}, slog.Default())
				err := pub.Connect(ctx)
				if err != nil {
					return console.Exit(1, "could not connect to mqtt broker: %s", console.Red(err))
				}
				defer pub.Disconnect()
				console.PInfof(console.PictoSatellite, "publishing to %s", console.White(pub.Topic()))
				sink = monitor.Sinks(sink, pub.Sink())
			}
			monitor.NewRecorder(s, sink, cfg.Interval).Start(ctx)
			return nil
		})
	},
}

// watchConfigFromCli loads the optional config file and applies explicitly
// set flags on top of it.
func watchConfigFromCli(c *cli.Context) (config.Watch, error) {
	cfg := config.DefaultWatch()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.LoadWatch(path)
		if err != nil {
			return cfg, err
		}
	}
	if c.IsSet("adapter") || cfg.Adapter == "" {
		cfg.Adapter = c.String("adapter")
	}
	if c.IsSet("bus") {
		cfg.Bus = c.String("bus")
	}
	if c.IsSet("addr") {
		addr, err := parseAddress(c.String("addr"))
		if err != nil {
			return cfg, err
		}
		cfg.Address = addr
	}
	if c.IsSet("interval") {
		cfg.Interval = c.Duration("interval")
	}
	if c.IsSet("station") {
		cfg.StationID = c.String("station")
	}
	if c.IsSet("mqtt") {
		cfg.MQTT.Broker = c.String("mqtt")
	}
	if c.IsSet("mqtt-port") {
		cfg.MQTT.Port = c.Int("mqtt-port")
	}
	if c.IsSet("mqtt-client-id") || cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = c.String("mqtt-client-id")
	}
	if c.IsSet("mqtt-prefix") {
		cfg.MQTT.TopicPrefix = c.String("mqtt-prefix")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("watch configuration: %w", err)
	}
	return cfg, nil
}
