package i2c

import (
	"context"

	"github.com/mklimuk/luxmeter/environment"
)

// OpenMAX44009 opens host bus busNumber and probes a MAX44009 at addr. The
// returned driver owns the bus and closes it on Close. A missing device is not
// an error here; check IsConfigured.
func OpenMAX44009(ctx context.Context, busNumber int, addr byte, opts ...environment.MAX44009Opt) (*environment.MAX44009, error) {
	bus, err := OpenBus(busNumber)
	if err != nil {
		return nil, err
	}
	return newOwnedMAX44009(ctx, bus, addr, opts...), nil
}

func newOwnedMAX44009(ctx context.Context, bus *GenericBus, addr byte, opts ...environment.MAX44009Opt) *environment.MAX44009 {
	opts = append([]environment.MAX44009Opt{environment.WithMAX44009Address(addr)}, opts...)
	s := environment.NewMAX44009(ctx, bus, opts...)
	s.OnClose(bus.Close)
	return s
}
