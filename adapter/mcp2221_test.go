package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/luxmeter"
	"github.com/mklimuk/luxmeter/environment"
	"github.com/mklimuk/luxmeter/luxctx"
)

// fakeBridge answers HID reports the way the MCP2221 firmware does for the
// commands used by the I2C transport. Register content is served on read.
type fakeBridge struct {
	requests [][]byte
	pending  []byte
	readData []byte
	busy     bool
	nack     bool
	noData   bool
	opens    int
	closes   int
}

func (f *fakeBridge) opener() (hidDevice, error) {
	f.opens++
	return f, nil
}

func (f *fakeBridge) Write(b []byte) (int, error) {
	req := make([]byte, len(b))
	copy(req, b)
	f.requests = append(f.requests, req)
	f.pending = make([]byte, reportSize)
	f.pending[0] = req[0]
	switch req[0] {
	case cmdI2CWriteData, cmdI2CReadDataReq:
		if f.busy {
			f.pending[1] = 0x01
		}
	case cmdI2CReadData:
		switch {
		case f.nack:
			f.pending[1] = 0x41
		case f.noData:
			f.pending[3] = 127
		default:
			f.pending[3] = byte(len(f.readData))
			copy(f.pending[4:], f.readData)
		}
	case cmdStatusSetParams:
		f.pending[3] = req[3]
		f.pending[14] = 0x1A
		f.pending[16] = 0x94
	}
	return len(b), nil
}

func (f *fakeBridge) Read(b []byte) (int, error) {
	return copy(b, f.pending), nil
}

func (f *fakeBridge) Close() error {
	f.closes++
	return nil
}

func newTestBridge(f *fakeBridge) *MCP2221 {
	return NewMCP2221(withOpener(f.opener), WithResponseWait(0))
}

func TestMCP2221_WriteToAddr(t *testing.T) {
	f := &fakeBridge{}
	d := newTestBridge(f)

	err := d.WriteToAddr(context.Background(), 0x4A, []byte{0x02, 0x03})
	require.NoError(t, err)
	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, cmdI2CWriteData, req[0])
	assert.Equal(t, []byte{0x02, 0x00}, req[1:3])
	assert.Equal(t, byte(0x94), req[3])
	assert.Equal(t, []byte{0x02, 0x03}, req[4:6])
	assert.Equal(t, f.opens, f.closes)
}

func TestMCP2221_ReadFromAddr(t *testing.T) {
	f := &fakeBridge{readData: []byte{0x53}}
	d := newTestBridge(f)
	ctx := luxctx.SetVerbose(context.Background(), true)

	buf := []byte{0x00}
	require.NoError(t, d.ReadFromAddr(ctx, 0x4A, buf))
	assert.Equal(t, byte(0x53), buf[0])
	require.Len(t, f.requests, 2)
	assert.Equal(t, cmdI2CReadDataReq, f.requests[0][0])
	assert.Equal(t, byte(0x95), f.requests[0][3])
	assert.Equal(t, cmdI2CReadData, f.requests[1][0])
}

func TestMCP2221_ReadFromAddrSizeMismatch(t *testing.T) {
	f := &fakeBridge{readData: []byte{0x53, 0x06}}
	d := newTestBridge(f)

	err := d.ReadFromAddr(context.Background(), 0x4A, []byte{0x00})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid data size byte; expected 1, got 2")
}

func TestMCP2221_Busy(t *testing.T) {
	f := &fakeBridge{busy: true}
	d := newTestBridge(f)

	err := d.WriteToAddr(context.Background(), 0x4A, []byte{0x03})
	assert.ErrorIs(t, err, luxmeter.ErrBusBusy)
	err = d.ReadFromAddr(context.Background(), 0x4A, []byte{0x00})
	assert.ErrorIs(t, err, luxmeter.ErrBusBusy)
}

func TestMCP2221_RegisterBusRoundTrip(t *testing.T) {
	f := &fakeBridge{readData: []byte{0x06}}
	bus := luxmeter.AsAddressedBus(newTestBridge(f))

	val, err := bus.ReadReg(context.Background(), 0x4A, 0x04)
	require.NoError(t, err)
	assert.Equal(t, byte(0x06), val)
	require.Len(t, f.requests, 3)
	assert.Equal(t, []byte{0x04}, f.requests[0][4:5])
}

func TestMCP2221_StatusAndRelease(t *testing.T) {
	f := &fakeBridge{}
	d := newTestBridge(f)
	ctx := context.Background()

	status, err := d.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0x1A, status.I2CSpeedDivider)
	assert.Equal(t, "9400", status.CurrentAddress)

	require.NoError(t, d.Init(ctx))
	assert.Equal(t, statusCancelTransfer, f.requests[1][2])
}

func TestMCP2221_SetSpeed(t *testing.T) {
	f := &fakeBridge{}
	d := newTestBridge(f)
	ctx := context.Background()

	require.NoError(t, d.SetSpeed(ctx, 100_000))
	assert.Equal(t, statusSetSpeed, f.requests[0][3])
	assert.Equal(t, byte(117), f.requests[0][4])

	err := d.SetSpeed(ctx, 1_000_000)
	assert.Error(t, err)
	assert.Len(t, f.requests, 1)
}

func TestMCP2221_OpenError(t *testing.T) {
	d := NewMCP2221(withOpener(func() (hidDevice, error) {
		return nil, ErrDeviceNotFound
	}))

	err := d.WriteToAddr(context.Background(), 0x4A, nil)
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}

func TestMCP2221_CancelledContext(t *testing.T) {
	f := &fakeBridge{}
	d := newTestBridge(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Status(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.opens)
}

func TestMCP2221_MissingSensorLeavesDriverUnconfigured(t *testing.T) {
	tests := []struct {
		name   string
		bridge *fakeBridge
	}{
		{"engine reports nack", &fakeBridge{nack: true}},
		{"no data returned", &fakeBridge{noData: true}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bus := luxmeter.AsAddressedBus(newTestBridge(test.bridge))
			s := environment.NewMAX44009(context.Background(), bus)
			assert.False(t, s.IsConfigured())
			require.Len(t, test.bridge.requests, 2)
			assert.Equal(t, cmdI2CReadDataReq, test.bridge.requests[0][0])
		})
	}
}

func TestMCP2221_SensorFound(t *testing.T) {
	f := &fakeBridge{readData: []byte{0x00}}
	s := environment.NewMAX44009(context.Background(), luxmeter.AsAddressedBus(newTestBridge(f)))
	assert.True(t, s.IsConfigured())
}

func TestMCP2221_CloseAfterCancel(t *testing.T) {
	f := &fakeBridge{readData: []byte{0x00}}
	ctx, cancel := context.WithCancel(context.Background())
	s := environment.NewMAX44009(ctx, luxmeter.AsAddressedBus(newTestBridge(f)))
	require.True(t, s.IsConfigured())
	sent := len(f.requests)
	cancel()

	err := s.Close(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.requests, sent)

	require.NoError(t, s.Close(context.WithoutCancel(ctx)))
	require.Len(t, f.requests, sent+1)
	assert.Equal(t, statusCancelTransfer, f.requests[sent][2])
}
