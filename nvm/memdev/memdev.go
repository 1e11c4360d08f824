// Package memdev simulates an NVM device entirely in RAM. It is the
// reference nvm.Device used by SlotNVM's own test suite, extended with
// the instrumentation the test suite needs to reason about wear leveling
// and power-loss placement: per-address write counters and the ability
// to fail deterministically after a fixed number of byte writes.
package memdev

import "github.com/fmueller/slotnvm/nvm"

var _ nvm.Device = &Device{}

// Device simulates an nvm.Device in memory.
type Device struct {
	data        []byte
	writeCounts []int

	// failAfter, when >= 0, is the number of remaining byte writes the
	// device will still honour before every subsequent write reports
	// failure, regardless of address. A value < 0 disables the limit.
	failAfter int
}

// New returns a new memdev of the given size, fully zeroed (every cluster
// reads back as free).
func New(size int) *Device {
	return &Device{
		data:        make([]byte, size),
		writeCounts: make([]int, size),
		failAfter:   -1,
	}
}

// Size returns the byte size of the device.
func (d *Device) Size() int {
	return len(d.data)
}

// ReadByte reads the byte at addr.
func (d *Device) ReadByte(addr int) (byte, bool) {
	if addr < 0 || addr >= len(d.data) {
		return 0, false
	}
	return d.data[addr], true
}

// ReadBuf reads len(buf) bytes starting at addr.
func (d *Device) ReadBuf(addr int, buf []byte) bool {
	if !nvm.InRange(d, addr, len(buf)) {
		return false
	}
	copy(buf, d.data[addr:addr+len(buf)])
	return true
}

// WriteByte writes b at addr.
func (d *Device) WriteByte(addr int, b byte) bool {
	if addr < 0 || addr >= len(d.data) {
		return false
	}
	if !d.takeWriteBudget(1) {
		return false
	}
	d.data[addr] = b
	d.writeCounts[addr]++
	return true
}

// WriteBuf writes buf starting at addr.
func (d *Device) WriteBuf(addr int, buf []byte) bool {
	if !nvm.InRange(d, addr, len(buf)) {
		return false
	}
	if !d.takeWriteBudget(len(buf)) {
		return false
	}
	copy(d.data[addr:addr+len(buf)], buf)
	for i := range buf {
		d.writeCounts[addr+i]++
	}
	return true
}

// takeWriteBudget consumes n bytes of the remaining write budget. It
// reports whether the whole write is allowed to proceed: a write that
// would cross the budget boundary is rejected in full, modelling power
// loss landing strictly before that byte reaches the device.
func (d *Device) takeWriteBudget(n int) bool {
	if d.failAfter < 0 {
		return true
	}
	if n > d.failAfter {
		d.failAfter = 0
		return false
	}
	d.failAfter -= n
	return true
}

// FailAfter arms the device to honour exactly n more bytes of writes
// (across WriteByte/WriteBuf calls) before every later write fails. It
// models a power loss occurring at an exact byte boundary, for
// deterministic crash-consistency tests. Pass a negative n to disarm.
func (d *Device) FailAfter(n int) {
	d.failAfter = n
}

// WriteCount returns the number of successful byte writes committed to
// addr since the device was created, for wear-leveling assertions.
func (d *Device) WriteCount(addr int) int {
	if addr < 0 || addr >= len(d.writeCounts) {
		return 0
	}
	return d.writeCounts[addr]
}

// Snapshot returns a copy of the raw device contents, for test fixtures
// that need to pre-seed or inspect specific bytes directly.
func (d *Device) Snapshot() []byte {
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}

// Poke writes a byte directly, bypassing the write budget and counters.
// Used by tests to seed a medium into a specific (possibly torn) state.
func (d *Device) Poke(addr int, b byte) {
	d.data[addr] = b
}
