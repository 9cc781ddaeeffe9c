package luxmeter

import (
	"context"
	"fmt"
	"sync"
)

var _ AddressedBus = &RegisterBus{}

// RegisterBus builds addressed register transactions on top of a raw I2CBus.
// A register read is a pointer write followed by a one byte read; the mutex
// keeps the two transfers together for every user sharing this RegisterBus.
type RegisterBus struct {
	mx  sync.Mutex
	bus I2CBus
}

func NewRegisterBus(bus I2CBus) *RegisterBus {
	return &RegisterBus{bus: bus}
}

func (r *RegisterBus) Probe(ctx context.Context, address byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	// one byte read: bridges acknowledge a write request before the address phase
	err := r.bus.ReadFromAddr(ctx, address, []byte{0x00})
	if err != nil {
		return fmt.Errorf("no response from %#x: %w", address, err)
	}
	return nil
}

func (r *RegisterBus) ReadReg(ctx context.Context, address, reg byte) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	err := r.bus.WriteToAddr(ctx, address, []byte{reg})
	if err != nil {
		return 0, fmt.Errorf("could not set register pointer %#x on %#x: %w", reg, address, err)
	}
	buf := []byte{0x00}
	err = r.bus.ReadFromAddr(ctx, address, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read register %#x on %#x: %w", reg, address, err)
	}
	return buf[0], nil
}

func (r *RegisterBus) WriteReg(ctx context.Context, address, reg, value byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	err := r.bus.WriteToAddr(ctx, address, []byte{reg, value})
	if err != nil {
		return fmt.Errorf("could not write register %#x on %#x: %w", reg, address, err)
	}
	return nil
}

func (r *RegisterBus) Release(ctx context.Context) error {
	return r.bus.Release(ctx)
}
