package i2c

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/mklimuk/luxmeter"
)

var (
	_ luxmeter.I2CBus       = &GenericBus{}
	_ luxmeter.AddressedBus = &GenericBus{}
)

// GenericBus is a host I2C bus (e.g. /dev/i2c-1) driven through periph.io.
// Register reads use a single transaction with a repeated start.
type GenericBus struct {
	bus i2c.BusCloser
}

// NewGenericBus opens the bus by name, alias or number; an empty name selects
// the first bus found on the host.
func NewGenericBus(dev string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus %q: %w", dev, err)
	}
	return newGenericBus(bus), nil
}

// OpenBus opens the host bus with the given number.
func OpenBus(busNumber int) (*GenericBus, error) {
	return NewGenericBus(strconv.Itoa(busNumber))
}

func newGenericBus(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{bus: bus}
}

// SetSpeed changes the bus clock when the host driver supports it.
func (b *GenericBus) SetSpeed(f physic.Frequency) error {
	return b.bus.SetSpeed(f)
}

func (b *GenericBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) Probe(ctx context.Context, address byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.bus.Tx(uint16(address), nil, []byte{0x00})
	if err != nil {
		return fmt.Errorf("no response from %#x: %w", address, err)
	}
	return nil
}

func (b *GenericBus) ReadReg(ctx context.Context, address, reg byte) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	buf := []byte{0x00}
	err := b.bus.Tx(uint16(address), []byte{reg}, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x on %#x: %w", reg, address, err)
	}
	return buf[0], nil
}

func (b *GenericBus) WriteReg(ctx context.Context, address, reg, value byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.bus.Tx(uint16(address), []byte{reg, value}, nil)
	if err != nil {
		return fmt.Errorf("could not write register %#x on %#x: %w", reg, address, err)
	}
	return nil
}

// Release is a no-op: the kernel driver releases the bus after every transaction.
func (b *GenericBus) Release(ctx context.Context) error {
	return nil
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
