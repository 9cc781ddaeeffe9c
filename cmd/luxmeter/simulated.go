package main

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mklimuk/luxmeter"
)

var _ luxmeter.AddressedBus = &simulatedBus{}

// simulatedBus is an in-memory MAX44009 register file used by the mock
// adapter. It reports 77.76 lux until written otherwise.
type simulatedBus struct {
	mx        sync.Mutex
	addresses []byte
	registers [8]byte
}

func newSimulatedBus(addresses ...byte) *simulatedBus {
	return &simulatedBus{
		addresses: addresses,
		registers: [8]byte{0x00, 0x00, 0x03, 0x53, 0x06, 0xFF, 0x00, 0xFF},
	}
}

func (b *simulatedBus) check(ctx context.Context, address, reg byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !slices.Contains(b.addresses, address) {
		return fmt.Errorf("no response from %#x", address)
	}
	if int(reg) >= len(b.registers) {
		return fmt.Errorf("register %#x out of range", reg)
	}
	return nil
}

func (b *simulatedBus) Probe(ctx context.Context, address byte) error {
	return b.check(ctx, address, 0)
}

func (b *simulatedBus) ReadReg(ctx context.Context, address, reg byte) (byte, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if err := b.check(ctx, address, reg); err != nil {
		return 0, err
	}
	val := b.registers[reg]
	// interrupt status clears on read
	if reg == 0x00 {
		b.registers[reg] = 0
	}
	return val, nil
}

func (b *simulatedBus) WriteReg(ctx context.Context, address, reg, value byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	if err := b.check(ctx, address, reg); err != nil {
		return err
	}
	b.registers[reg] = value
	return nil
}

func (b *simulatedBus) Release(ctx context.Context) error {
	return ctx.Err()
}
