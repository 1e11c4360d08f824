package memdev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDev() *Device {
	const size = 10

	dev := New(size)
	for i := 0; i < size; i++ {
		dev.Poke(i, byte(i))
	}
	return dev
}

func TestReadByte(t *testing.T) {
	assertT := assert.New(t)

	dev := newDev()

	b, ok := dev.ReadByte(0)
	assertT.True(ok)
	assertT.EqualValues(0, b)

	b, ok = dev.ReadByte(9)
	assertT.True(ok)
	assertT.EqualValues(9, b)

	_, ok = dev.ReadByte(-1)
	assertT.False(ok)

	_, ok = dev.ReadByte(10)
	assertT.False(ok)
}

func TestReadBuf(t *testing.T) {
	assertT := assert.New(t)

	dev := newDev()

	buf := make([]byte, 3)
	assertT.True(dev.ReadBuf(2, buf))
	assertT.Equal([]byte{2, 3, 4}, buf)

	assertT.False(dev.ReadBuf(8, buf))
	assertT.False(dev.ReadBuf(-1, buf))
}

func TestWriteByte(t *testing.T) {
	requireT := require.New(t)

	dev := newDev()

	requireT.True(dev.WriteByte(0, 0xAA))
	b, ok := dev.ReadByte(0)
	requireT.True(ok)
	requireT.EqualValues(0xAA, b)
	requireT.Equal(1, dev.WriteCount(0))

	requireT.False(dev.WriteByte(10, 0xAA))
	requireT.False(dev.WriteByte(-1, 0xAA))
}

func TestWriteBuf(t *testing.T) {
	requireT := require.New(t)

	dev := newDev()

	requireT.True(dev.WriteBuf(3, []byte{0x10, 0x11, 0x12}))
	buf := make([]byte, 3)
	requireT.True(dev.ReadBuf(3, buf))
	requireT.Equal([]byte{0x10, 0x11, 0x12}, buf)
	requireT.Equal(1, dev.WriteCount(3))
	requireT.Equal(1, dev.WriteCount(4))
	requireT.Equal(1, dev.WriteCount(5))

	requireT.False(dev.WriteBuf(9, []byte{0x01, 0x02}))
}

func TestFailAfter(t *testing.T) {
	requireT := require.New(t)

	dev := newDev()
	dev.FailAfter(2)

	requireT.True(dev.WriteByte(0, 0x01))
	requireT.True(dev.WriteByte(1, 0x02))
	requireT.False(dev.WriteByte(2, 0x03))

	b, ok := dev.ReadByte(2)
	requireT.True(ok)
	requireT.EqualValues(2, b)
}

func TestFailAfterRejectsWholeBufferWrite(t *testing.T) {
	requireT := require.New(t)

	dev := newDev()
	dev.FailAfter(2)

	requireT.False(dev.WriteBuf(0, []byte{0x01, 0x02, 0x03}))

	buf := make([]byte, 3)
	requireT.True(dev.ReadBuf(0, buf))
	requireT.Equal([]byte{0x00, 0x01, 0x02}, buf)
}

func TestSnapshot(t *testing.T) {
	requireT := require.New(t)

	dev := newDev()
	snap := dev.Snapshot()
	requireT.Len(snap, 10)
	requireT.EqualValues(5, snap[5])

	dev.Poke(5, 0xFF)
	requireT.EqualValues(5, snap[5])
}
