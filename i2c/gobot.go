package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/luxmeter"
)

var _ luxmeter.AddressedBus = &GobotBus{}

// GobotBus drives a bus exposed by a gobot platform adaptor (NanoPi, Raspberry
// Pi, ...). Connections are opened lazily per device address and kept until
// Release.
type GobotBus struct {
	mx        sync.Mutex
	connector i2c.Connector
	busNumber int
	conns     map[byte]i2c.Connection
}

// NewGobotBus binds to busNumber on the connector; a negative busNumber
// selects the adaptor's default bus.
func NewGobotBus(connector i2c.Connector, busNumber int) *GobotBus {
	if busNumber < 0 {
		busNumber = connector.DefaultI2cBus()
	}
	return &GobotBus{
		connector: connector,
		busNumber: busNumber,
		conns:     make(map[byte]i2c.Connection),
	}
}

// BusNumber returns the bus connections are opened on.
func (b *GobotBus) BusNumber() int {
	return b.busNumber
}

func (b *GobotBus) connection(address byte) (i2c.Connection, error) {
	if conn, ok := b.conns[address]; ok {
		return conn, nil
	}
	conn, err := b.connector.GetI2cConnection(int(address), b.busNumber)
	if err != nil {
		return nil, fmt.Errorf("could not get connection to %#x on bus %d: %w", address, b.busNumber, err)
	}
	b.conns[address] = conn
	return conn, nil
}

func (b *GobotBus) Probe(ctx context.Context, address byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	_, err = conn.ReadByte()
	if err != nil {
		return fmt.Errorf("no response from %#x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) ReadReg(ctx context.Context, address, reg byte) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	conn, err := b.connection(address)
	if err != nil {
		return 0, err
	}
	val, err := conn.ReadByteData(reg)
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x on %#x: %w", reg, address, err)
	}
	return val, nil
}

func (b *GobotBus) WriteReg(ctx context.Context, address, reg, value byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	conn, err := b.connection(address)
	if err != nil {
		return err
	}
	err = conn.WriteByteData(reg, value)
	if err != nil {
		return fmt.Errorf("could not write register %#x on %#x: %w", reg, address, err)
	}
	return nil
}

// Release closes every open device connection.
func (b *GobotBus) Release(ctx context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for addr, conn := range b.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close connection to %#x: %w", addr, err))
		}
		delete(b.conns, addr)
	}
	return errors.Join(errs...)
}
