package environment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/mklimuk/luxmeter"
	"github.com/mklimuk/luxmeter/luxctx"
)

// MAX44009 bus addresses selected by the A0 pin.
const (
	MAX44009AddrLow  = 0x4A
	MAX44009AddrHigh = 0x4B
)

// Register map
const (
	max44009RegIntStatus byte = 0x00
	max44009RegIntEnable byte = 0x01
	max44009RegConfig    byte = 0x02
	max44009RegLuxHigh   byte = 0x03
	max44009RegLuxLow    byte = 0x04
	max44009RegThrHigh   byte = 0x05
	max44009RegThrLow    byte = 0x06
	max44009RegThrTimer  byte = 0x07
)

const (
	max44009IntDisabled  byte = 0x00
	max44009IntEnabled   byte = 0x01
	max44009ExpOverrange byte = 0x0F
	// lux per mantissa LSB at exponent 0
	max44009LuxResolution = 0.045
)

// Configuration register bits
const (
	MAX44009ConfigContinuous byte = 0b10000000
	MAX44009ConfigManual     byte = 0b01000000
	MAX44009ConfigCDR        byte = 0b00001000

	MAX44009Integration800ms byte = 0b000
	MAX44009Integration400ms byte = 0b001
	MAX44009Integration200ms byte = 0b010
	MAX44009Integration100ms byte = 0b011
	MAX44009Integration50ms  byte = 0b100
	MAX44009Integration25ms  byte = 0b101
	MAX44009Integration12ms  byte = 0b110
	MAX44009Integration6ms   byte = 0b111

	// default mode, automatic range, 100ms integration
	MAX44009DefaultConfiguration = MAX44009Integration100ms
)

var ErrInvalidResource = errors.New("max44009: invalid resource (no data from device)")
var ErrNotConfigured = errors.New("max44009: device not configured")
var ErrClosed = errors.New("max44009: device closed")

// RawLux is the sensor reading repacked as exponent<<8 | mantissa.
type RawLux uint16

func PackRawLux(exponent, mantissa byte) RawLux {
	return RawLux(exponent)<<8 | RawLux(mantissa)
}

func (r RawLux) Exponent() byte {
	return byte(r >> 8)
}

func (r RawLux) Mantissa() byte {
	return byte(r)
}

type MAX44009Opts struct {
	Address       byte
	Configuration byte
	Logger        *slog.Logger
}

type MAX44009Opt func(*MAX44009Opts)

func WithMAX44009Address(address byte) MAX44009Opt {
	return func(o *MAX44009Opts) {
		o.Address = address
	}
}

// WithMAX44009Configuration sets the configuration register value written by Reset.
func WithMAX44009Configuration(cfg byte) MAX44009Opt {
	return func(o *MAX44009Opts) {
		o.Configuration = cfg
	}
}

func WithMAX44009Logger(logger *slog.Logger) MAX44009Opt {
	return func(o *MAX44009Opts) {
		o.Logger = logger
	}
}

// MAX44009 represents Analog Devices (Maxim) MAX44009 ambient light sensor.
// See: https://www.analog.com/media/en/technical-documentation/data-sheets/MAX44009.pdf
//
// Typical usage:
//
//	s := NewMAX44009(ctx, luxmeter.AsAddressedBus(bus))
//	if !s.IsConfigured() { ... }
//	lux, err := s.GetLux(ctx)
//
// The device is probed once at construction. A device that did not respond is
// left unconfigured and every bus operation fails with ErrNotConfigured.
type MAX44009 struct {
	mx         sync.Mutex
	transport  luxmeter.AddressedBus
	config     MAX44009Opts
	log        *slog.Logger
	configured bool
	closed     bool
	onClose    func() error
}

func NewMAX44009(ctx context.Context, transport luxmeter.AddressedBus, opts ...MAX44009Opt) *MAX44009 {
	config := MAX44009Opts{
		Address:       MAX44009AddrLow,
		Configuration: MAX44009DefaultConfiguration,
	}
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &MAX44009{
		transport: transport,
		config:    config,
		log:       logger.With("device", "max44009", "addr", fmt.Sprintf("%#x", config.Address)),
	}
	err := transport.Probe(ctx, config.Address)
	if err != nil {
		s.log.Warn("i2c device failed to initialise", "error", err)
		return s
	}
	s.configured = true
	return s
}

// OnClose registers fn to be called by Close after the transport is released.
// It is used by constructors that own the underlying bus.
func (s *MAX44009) OnClose(fn func() error) {
	s.onClose = fn
}

// IsConfigured reports whether the device answered the probe at construction.
func (s *MAX44009) IsConfigured() bool {
	return s.configured
}

func (s *MAX44009) Address() byte {
	return s.config.Address
}

// Reset disables interrupts, writes the configuration register and opens the
// threshold window completely. The first failing write aborts the sequence.
func (s *MAX44009) Reset(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	steps := []struct {
		name  string
		reg   byte
		value byte
	}{
		{"interrupt enable", max44009RegIntEnable, max44009IntDisabled},
		{"configuration", max44009RegConfig, s.config.Configuration},
		{"upper threshold", max44009RegThrHigh, 0xFF},
		{"lower threshold", max44009RegThrLow, 0x00},
		{"threshold timer", max44009RegThrTimer, 0xFF},
	}
	for _, step := range steps {
		err := s.writeReg(ctx, step.reg, step.value)
		if err != nil {
			return fmt.Errorf("max44009: could not reset %s register: %w", step.name, err)
		}
	}
	return nil
}

// GetLuxValue reads both lux registers and repacks them as exponent<<8 | mantissa.
func (s *MAX44009) GetLuxValue(ctx context.Context) (RawLux, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.usable(); err != nil {
		return 0, err
	}
	high, err := s.readReg(ctx, max44009RegLuxHigh)
	if err != nil {
		return 0, fmt.Errorf("%w: lux high byte: %w", ErrInvalidResource, err)
	}
	low, err := s.readReg(ctx, max44009RegLuxLow)
	if err != nil {
		return 0, fmt.Errorf("%w: lux low byte: %w", ErrInvalidResource, err)
	}
	return decodeLuxRegisters(high, low), nil
}

// GetLux returns the current illuminance in lux.
func (s *MAX44009) GetLux(ctx context.Context) (float64, error) {
	raw, err := s.GetLuxValue(ctx)
	if err != nil {
		return 0, err
	}
	return ConvertToLux(raw), nil
}

// GetVisibleRaw is GetLuxValue under the light sensor interface naming.
func (s *MAX44009) GetVisibleRaw(ctx context.Context) (RawLux, error) {
	return s.GetLuxValue(ctx)
}

// GetVisibleLux is GetLux under the light sensor interface naming.
func (s *MAX44009) GetVisibleLux(ctx context.Context) (float64, error) {
	return s.GetLux(ctx)
}

// ReadConfiguration returns the content of the configuration register.
func (s *MAX44009) ReadConfiguration(ctx context.Context) (byte, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.usable(); err != nil {
		return 0, err
	}
	cfg, err := s.readReg(ctx, max44009RegConfig)
	if err != nil {
		return 0, fmt.Errorf("%w: configuration: %w", ErrInvalidResource, err)
	}
	return cfg, nil
}

// ReadInterruptStatus reports whether the threshold interrupt has been asserted.
// Reading the status register clears it on the device.
func (s *MAX44009) ReadInterruptStatus(ctx context.Context) (bool, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.usable(); err != nil {
		return false, err
	}
	status, err := s.readReg(ctx, max44009RegIntStatus)
	if err != nil {
		return false, fmt.Errorf("%w: interrupt status: %w", ErrInvalidResource, err)
	}
	return status&0x01 != 0, nil
}

func (s *MAX44009) EnableInterrupt(ctx context.Context, enabled bool) error {
	value := max44009IntDisabled
	if enabled {
		value = max44009IntEnabled
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	err := s.writeReg(ctx, max44009RegIntEnable, value)
	if err != nil {
		return fmt.Errorf("max44009: could not write interrupt enable register: %w", err)
	}
	return nil
}

// SetThresholds writes the threshold window (high bytes in the lux register
// format: exponent on bits 7:4, mantissa high nibble on bits 3:0) and the
// timer in 100ms units.
func (s *MAX44009) SetThresholds(ctx context.Context, upper, lower, timer byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.writeReg(ctx, max44009RegThrHigh, upper); err != nil {
		return fmt.Errorf("max44009: could not write upper threshold: %w", err)
	}
	if err := s.writeReg(ctx, max44009RegThrLow, lower); err != nil {
		return fmt.Errorf("max44009: could not write lower threshold: %w", err)
	}
	if err := s.writeReg(ctx, max44009RegThrTimer, timer); err != nil {
		return fmt.Errorf("max44009: could not write threshold timer: %w", err)
	}
	return nil
}

// Close releases the transport and runs the OnClose hook. A failed release
// leaves the driver open so Close can be retried. Once it succeeds further
// calls are no-ops and every other operation returns ErrClosed.
func (s *MAX44009) Close(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.closed {
		return nil
	}
	err := s.transport.Release(ctx)
	if err != nil {
		return fmt.Errorf("max44009: could not release transport: %w", err)
	}
	s.closed = true
	if s.onClose != nil {
		return s.onClose()
	}
	return nil
}

// usable must be called with mx held.
func (s *MAX44009) usable() error {
	if !s.configured {
		return ErrNotConfigured
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MAX44009) readReg(ctx context.Context, reg byte) (byte, error) {
	val, err := s.transport.ReadReg(ctx, s.config.Address, reg)
	if luxctx.IsTrace(ctx) {
		s.log.Debug("register read", "reg", fmt.Sprintf("%#02x", reg), "value", fmt.Sprintf("%#02x", val), "error", err)
	}
	return val, err
}

func (s *MAX44009) writeReg(ctx context.Context, reg, value byte) error {
	err := s.transport.WriteReg(ctx, s.config.Address, reg, value)
	if luxctx.IsTrace(ctx) {
		s.log.Debug("register write", "reg", fmt.Sprintf("%#02x", reg), "value", fmt.Sprintf("%#02x", value), "error", err)
	}
	return err
}

// decodeLuxRegisters repacks the lux high byte (exponent on bits 7:4, mantissa
// bits 7:4 on bits 3:0) and low byte (mantissa bits 3:0 on bits 3:0).
func decodeLuxRegisters(high, low byte) RawLux {
	exponent := (high >> 4) & 0x0F
	mantissa := (high&0x0F)<<4 | low&0x0F
	return PackRawLux(exponent, mantissa)
}

// ConvertToLux applies the datasheet formula lux = 2^exponent * mantissa * 0.045.
// The overrange exponent 0x0F is treated as 0x0E.
func ConvertToLux(raw RawLux) float64 {
	exponent := raw.Exponent()
	if exponent == max44009ExpOverrange {
		exponent &= 0x0E
	}
	mantissa := raw.Mantissa()
	return max44009LuxResolution * math.Ldexp(float64(mantissa), int(exponent))
}
