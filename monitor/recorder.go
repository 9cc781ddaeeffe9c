package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mklimuk/luxmeter/environment"
)

// Sink receives every successful reading.
type Sink func(ctx context.Context, r Reading) error

// Sinks fans a reading out to all sinks and joins their errors.
func Sinks(sinks ...Sink) Sink {
	return func(ctx context.Context, r Reading) error {
		var err error
		for _, s := range sinks {
			err = errors.Join(err, s(ctx, r))
		}
		return err
	}
}

type RecorderOpt func(*Recorder)

func WithRecorderLogger(logger *slog.Logger) RecorderOpt {
	return func(r *Recorder) {
		r.log = logger
	}
}

func withClock(now func() time.Time) RecorderOpt {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder polls a light sensor periodically.
type Recorder struct {
	sensor   environment.LightSensor
	sink     Sink
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewRecorder(sensor environment.LightSensor, sink Sink, interval time.Duration, opts ...RecorderOpt) *Recorder {
	r := &Recorder{
		sensor:   sensor,
		sink:     sink,
		interval: interval,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start reads the sensor immediately and then on every tick until ctx is done.
// Failed reads are logged and skipped.
func (r *Recorder) Start(ctx context.Context) {
	r.log.Info("starting light recorder", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RecordOnce(ctx)
	for {
		select {
		case <-ticker.C:
			r.RecordOnce(ctx)
		case <-ctx.Done():
			r.log.Info("stopping light recorder")
			return
		}
	}
}

// RecordOnce performs a single read and hands the result to the sink.
func (r *Recorder) RecordOnce(ctx context.Context) bool {
	lux, err := r.sensor.GetLux(ctx)
	if err != nil {
		r.log.Error("failed to read sensor", "error", err)
		return false
	}
	reading, err := NewReading(lux, r.now())
	if err != nil {
		r.log.Error("invalid reading", "lux", lux, "error", err)
		return false
	}
	if r.sink != nil {
		if err := r.sink(ctx, reading); err != nil {
			r.log.Error("failed to deliver reading", "error", err)
			return false
		}
	}
	r.log.Debug("recorded light reading", "lux", reading.Lux, "category", reading.Category())
	return true
}
