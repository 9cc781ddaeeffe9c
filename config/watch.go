package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultInterval    = time.Minute
	DefaultMQTTPort    = 1883
	DefaultTopicPrefix = "stations"
	minInterval        = 100 * time.Millisecond
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Watch configures the light watch loop and its optional MQTT output.
type Watch struct {
	Adapter   string        `yaml:"adapter"`
	Bus       string        `yaml:"bus"`
	Address   uint8         `yaml:"address"`
	Interval  time.Duration `yaml:"interval"`
	StationID string        `yaml:"station_id"`
	MQTT      MQTT          `yaml:"mqtt"`
}

type MQTT struct {
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

func (m MQTT) Enabled() bool {
	return m.Broker != ""
}

func DefaultWatch() Watch {
	return Watch{
		Adapter:  "generic",
		Address:  0x4A,
		Interval: DefaultInterval,
		MQTT: MQTT{
			Port:        DefaultMQTTPort,
			TopicPrefix: DefaultTopicPrefix,
		},
	}
}

// LoadWatch reads a yaml file on top of DefaultWatch.
func LoadWatch(path string) (Watch, error) {
	cfg := DefaultWatch()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func (w Watch) Validate() error {
	var errs []error
	switch w.Adapter {
	case "generic", "nanopi", "mcp2221", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown adapter %q", w.Adapter))
	}
	if w.Address != 0x4A && w.Address != 0x4B {
		errs = append(errs, fmt.Errorf("address %#x is not a MAX44009 address", w.Address))
	}
	if w.Interval < minInterval {
		errs = append(errs, fmt.Errorf("interval %s is shorter than %s", w.Interval, minInterval))
	}
	if w.MQTT.Enabled() {
		if w.StationID == "" {
			errs = append(errs, errors.New("station_id is required to publish readings"))
		}
		if w.MQTT.Port <= 0 || w.MQTT.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid mqtt port %d", w.MQTT.Port))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
