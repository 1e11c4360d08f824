// Package filedev backs an nvm.Device with a real file on the host
// filesystem, for running SlotNVM against a persisted EEPROM image
// rather than an in-memory simulation.
package filedev

import (
	"os"

	"github.com/pkg/errors"

	"github.com/fmueller/slotnvm/nvm"
)

var _ nvm.Device = &Device{}

// Device uses an open file handle as the backing NVM.
type Device struct {
	file *os.File
	size int
	err  error
}

// New returns a new filedev backed by file. The file's current size
// becomes the device's addressable size; it is not truncated or
// extended.
func New(file *os.File) (*Device, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Device{
		file: file,
		size: int(info.Size()),
	}, nil
}

// Size returns the byte size of the device.
func (d *Device) Size() int {
	return d.size
}

// ReadByte reads the byte at addr.
func (d *Device) ReadByte(addr int) (byte, bool) {
	var buf [1]byte
	if !d.ReadBuf(addr, buf[:]) {
		return 0, false
	}
	return buf[0], true
}

// ReadBuf reads len(buf) bytes starting at addr.
func (d *Device) ReadBuf(addr int, buf []byte) bool {
	if !nvm.InRange(d, addr, len(buf)) {
		d.err = errors.Errorf("read out of range: addr=%d len=%d size=%d", addr, len(buf), d.size)
		return false
	}
	if len(buf) == 0 {
		return true
	}
	if _, err := d.file.ReadAt(buf, int64(addr)); err != nil {
		d.err = errors.WithStack(err)
		return false
	}
	return true
}

// WriteByte writes b at addr.
func (d *Device) WriteByte(addr int, b byte) bool {
	return d.WriteBuf(addr, []byte{b})
}

// WriteBuf writes buf starting at addr.
func (d *Device) WriteBuf(addr int, buf []byte) bool {
	if !nvm.InRange(d, addr, len(buf)) {
		d.err = errors.Errorf("write out of range: addr=%d len=%d size=%d", addr, len(buf), d.size)
		return false
	}
	if len(buf) == 0 {
		return true
	}
	if _, err := d.file.WriteAt(buf, int64(addr)); err != nil {
		d.err = errors.WithStack(err)
		return false
	}
	return true
}

// Sync flushes pending writes to stable storage.
func (d *Device) Sync() error {
	return errors.WithStack(d.file.Sync())
}

// Err returns the error behind the most recent failed operation, if any.
// It is not part of the nvm.Device contract (which reports failure as a
// boolean only) but is useful for diagnostics when running off a real
// file instead of memdev.
func (d *Device) Err() error {
	return d.err
}
