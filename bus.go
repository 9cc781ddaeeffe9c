package luxmeter

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is a raw transport: every call is a separate transfer and the
// caller is responsible for pairing register pointer writes with reads.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// AddressedBus performs register transactions in which the device address is
// asserted as part of each transfer. Nothing about the target device is kept
// on the bus between calls, so other devices may use it in between.
type AddressedBus interface {
	// Probe checks that a device acknowledges the address.
	Probe(ctx context.Context, address byte) error
	// ReadReg selects reg on the device and reads one byte back.
	ReadReg(ctx context.Context, address, reg byte) (byte, error)
	// WriteReg writes value into reg on the device.
	WriteReg(ctx context.Context, address, reg, value byte) error
	Release(ctx context.Context) error
}

// AsAddressedBus returns bus itself when it implements AddressedBus natively,
// otherwise it wraps it in a RegisterBus.
func AsAddressedBus(bus I2CBus) AddressedBus {
	if ab, ok := bus.(AddressedBus); ok {
		return ab
	}
	return NewRegisterBus(bus)
}
