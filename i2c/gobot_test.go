package i2c

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gobot.io/x/gobot/v2/drivers/i2c"
)

type fakeConnection struct {
	i2c.Connection
	regs   map[byte]byte
	err    error
	closed bool
}

func (c *fakeConnection) ReadByte() (byte, error) {
	return 0, c.err
}

func (c *fakeConnection) ReadByteData(reg uint8) (uint8, error) {
	return c.regs[reg], c.err
}

func (c *fakeConnection) WriteByteData(reg uint8, val uint8) error {
	if c.err != nil {
		return c.err
	}
	c.regs[reg] = val
	return nil
}

func (c *fakeConnection) Close() error {
	c.closed = true
	return nil
}

type fakeConnector struct {
	i2c.Connector
	conns   map[int]*fakeConnection
	opened  []int
	busUsed int
}

func (f *fakeConnector) GetI2cConnection(address int, busNum int) (i2c.Connection, error) {
	f.opened = append(f.opened, address)
	f.busUsed = busNum
	conn, ok := f.conns[address]
	if !ok {
		return nil, errors.New("no such device")
	}
	return conn, nil
}

func (f *fakeConnector) DefaultI2cBus() int {
	return 0
}

func TestGobotBus_RegisterTransactions(t *testing.T) {
	conn := &fakeConnection{regs: map[byte]byte{0x03: 0x53}}
	connector := &fakeConnector{conns: map[int]*fakeConnection{0x4A: conn}}
	bus := NewGobotBus(connector, 2)
	ctx := context.Background()

	require.NoError(t, bus.Probe(ctx, 0x4A))
	val, err := bus.ReadReg(ctx, 0x4A, 0x03)
	require.NoError(t, err)
	assert.Equal(t, byte(0x53), val)
	require.NoError(t, bus.WriteReg(ctx, 0x4A, 0x02, 0x03))
	assert.Equal(t, byte(0x03), conn.regs[0x02])

	// one connection per address
	assert.Equal(t, []int{0x4A}, connector.opened)
	assert.Equal(t, 2, connector.busUsed)

	require.NoError(t, bus.Release(ctx))
	assert.True(t, conn.closed)
}

func TestGobotBus_DefaultBus(t *testing.T) {
	bus := NewGobotBus(&fakeConnector{}, -1)
	assert.Equal(t, 0, bus.BusNumber())
}

func TestGobotBus_Errors(t *testing.T) {
	conn := &fakeConnection{regs: map[byte]byte{}, err: errors.New("remote i/o error")}
	connector := &fakeConnector{conns: map[int]*fakeConnection{0x4A: conn}}
	bus := NewGobotBus(connector, 0)
	ctx := context.Background()

	err := bus.Probe(ctx, 0x4B)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not get connection to 0x4b on bus 0")

	_, err = bus.ReadReg(ctx, 0x4A, 0x03)
	assert.ErrorIs(t, err, conn.err)
	assert.ErrorIs(t, bus.WriteReg(ctx, 0x4A, 0x02, 0x03), conn.err)
}
