package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/luxmeter"
	"github.com/mklimuk/luxmeter/luxctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportSize = 64

// HID commands (MCP2221 datasheet, section 3.1)
const (
	cmdStatusSetParams byte = 0x10
	cmdI2CReadData     byte = 0x40
	cmdI2CWriteData    byte = 0x90
	cmdI2CReadDataReq  byte = 0x91
)

const (
	statusCancelTransfer byte = 0x10
	statusSetSpeed       byte = 0x20
	clockFrequency            = 12_000_000
)

var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")

var _ luxmeter.I2CBus = &MCP2221{}

type hidDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// opener opens the HID interface of the bridge.
type opener func() (hidDevice, error)

// MCP2221 is a Microchip MCP2221(A) USB to I2C bridge. Every request opens
// the HID device, sends one 64 byte report and reads one 64 byte response.
type MCP2221 struct {
	mx           sync.Mutex
	open         opener
	request      []byte
	response     []byte
	responseWait time.Duration
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type MCP2221Opt func(*MCP2221)

// WithDeviceIndex selects one bridge when several are plugged in.
func WithDeviceIndex(index int) MCP2221Opt {
	return func(d *MCP2221) {
		d.open = hidOpener(index)
	}
}

func WithResponseWait(wait time.Duration) MCP2221Opt {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func withOpener(open opener) MCP2221Opt {
	return func(d *MCP2221) {
		d.open = open
	}
}

func NewMCP2221(opts ...MCP2221Opt) *MCP2221 {
	d := &MCP2221{
		open:         hidOpener(-1),
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func hidOpener(index int) opener {
	return func() (hidDevice, error) {
		devs := hid.Enumerate(VendorID, ProductID)
		if len(devs) == 0 {
			return nil, ErrDeviceNotFound
		}
		i := index
		if i < 0 {
			if len(devs) > 1 {
				return nil, fmt.Errorf("ambiguous device identification: %d bridges found", len(devs))
			}
			i = 0
		}
		if i >= len(devs) {
			return nil, fmt.Errorf("no device with id %d", i)
		}
		dev, err := devs[i].Open()
		if err != nil {
			return nil, fmt.Errorf("error opening device: %w", err)
		}
		return dev, nil
	}
}

// Init checks that the bridge is present and cancels any transfer left over
// by a previous process.
func (d *MCP2221) Init(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	if err != nil {
		return fmt.Errorf("could not initialize adapter: %w", err)
	}
	return nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CWriteData
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		slog.Debug("adapter busy", "address", address)
		return luxmeter.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdI2CReadDataReq
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		return luxmeter.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdI2CReadData
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == 0x41 {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	if d.response[3] == 127 || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:])
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// SetSpeed sets the I2C clock; the bridge supports 47 kHz to 400 kHz.
func (d *MCP2221) SetSpeed(ctx context.Context, hz int) error {
	if hz < 47_000 || hz > 400_000 {
		return fmt.Errorf("unsupported i2c speed %d Hz", hz)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[3] = statusSetSpeed
	d.request[4] = byte(clockFrequency/hz - 3)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("set speed request failed: %w", err)
	}
	// byte 3 echoes 0x20 when the new speed was accepted
	if d.response[3] != statusSetSpeed {
		return fmt.Errorf("%w: speed not accepted (transfer in progress)", ErrCommandFailed)
	}
	return nil
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}

func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

// ReleaseBus cancels the current transfer and frees the bus.
func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatusSetParams
	d.request[2] = statusCancelTransfer
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) send(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dev, err := d.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Debug("could not close hid device", "error", err)
		}
	}()
	verbose := luxctx.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending message to adapter", "request", hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	timer := time.NewTimer(d.responseWait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		slog.Debug("read message from adapter", "response", hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
