package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mklimuk/luxmeter/monitor"
)

const (
	DefaultPort        = 1883
	DefaultTopicPrefix = "stations"
	publishQoS         = 1
	publishTimeout     = 5 * time.Second
)

var ErrNotConnected = errors.New("mqtt client not connected")
var ErrStopped = errors.New("mqtt client stopped")

type Config struct {
	Broker      string
	Port        int
	ClientID    string
	TopicPrefix string
	StationID   string
}

// Payload is the JSON document published for every reading.
type Payload struct {
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
	Lux       float64   `json:"lux"`
	Category  string    `json:"category"`
}

func NewPayload(stationID string, r monitor.Reading) Payload {
	return Payload{
		StationID: stationID,
		Timestamp: r.Timestamp,
		Lux:       r.Lux,
		Category:  r.Category(),
	}
}

// Publisher sends light readings to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	cfg    Config
	log    *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	return newPublisher(mqtt.NewClient(opts), cfg, logger)
}

func newPublisher(client mqtt.Client, cfg Config, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		cfg:    cfg,
		log:    logger,
		stopCh: make(chan struct{}),
	}
}

// Topic returns <prefix>/<station>/lux.
func (p *Publisher) Topic() string {
	return fmt.Sprintf("%s/%s/lux", p.cfg.TopicPrefix, p.cfg.StationID)
}

// Connect waits for the initial connection to the broker. The client keeps
// retrying in the background until ctx is done or Disconnect is called.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}
	if p.client.IsConnected() {
		return nil
	}
	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return ErrStopped
		default:
		}
	}
}

// Publish sends one reading with QoS 1.
func (p *Publisher) Publish(ctx context.Context, r monitor.Reading) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	data, err := json.Marshal(NewPayload(p.cfg.StationID, r))
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	topic := p.Topic()
	token := p.client.Publish(topic, publishQoS, false, data)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("publish timeout for topic %s", topic)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish reading: %w", err)
	}
	p.log.Debug("published reading", "topic", topic, "lux", r.Lux)
	return nil
}

// Sink adapts the publisher to the recorder.
func (p *Publisher) Sink() monitor.Sink {
	return p.Publish
}

// Disconnect stops the client. It is safe to call more than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.client.Disconnect(250)
		p.log.Info("mqtt disconnected")
	})
}
