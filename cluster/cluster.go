// Package cluster implements the on-media layout of a single SlotNVM
// cluster: encoding and decoding of its header, payload and end marker,
// and the byte-level invalidation/validation ordering that keeps a
// cluster write crash-consistent.
//
// Byte layout (offsets from the start of the cluster):
//
//	0       slot_no   0x00/0xFF free; 0x01..0xFA owning slot; 0xFB..0xFE reserved
//	1       flags     bits 7-6 age, bit 5 START, bit 4 LAST, bits 3-0 reserved (zero)
//	2       link      next cluster index, or own slot_no when LAST
//	3       length    START: payload_total-1; else: payload bytes in this cluster
//	4..C-3  payload   (CRC mode)
//	C-2     crc8      CRC-8 over the header and the payload bytes this
//	                  cluster carries (CRC mode only; else payload); unused
//	                  payload bytes are not covered
//	C-1     end_marker 0xA1 (CRC mode) / 0xA0 (no-CRC mode)
package cluster

import "github.com/pkg/errors"

// CRCFunc is the injected CRC-8 step function: given the running CRC and
// the next byte, it returns the updated CRC. A nil CRCFunc disables CRC
// coverage entirely and frees up one extra payload byte per cluster.
type CRCFunc func(crc, b byte) byte

// Byte offsets fixed regardless of cluster size.
const (
	OffsetSlotNo  = 0
	OffsetFlags   = 1
	OffsetLink    = 2
	OffsetLength  = 3
	OffsetPayload = 4
)

// Flag bits within the flags byte (offset 1).
const (
	FlagAgeShift = 6
	FlagAgeMask  = 0xC0
	FlagStart    = 0x20
	FlagLast     = 0x10
	FlagReserved = 0x0F
)

// Reserved/free slot_no sentinels.
const (
	SlotFree0   = 0x00
	SlotFreeFF  = 0xFF
	MaxSlotNo   = 0xFA
	FirstSlotNo = 0x01
)

// End marker values. An incompatible on-media format change must pick
// new values here.
const (
	EndMarkerNoCRC = 0xA0
	EndMarkerCRC   = 0xA1
)

// Config describes the fixed, construction-time layout parameters of a
// cluster: its size and whether (and how) it carries a CRC-8.
type Config struct {
	// Size is C, the cluster size in bytes, 7..256.
	Size int
	// CRC is the injected CRC-8 step function. Nil disables CRC mode.
	CRC CRCFunc
}

// Validate checks that the configuration satisfies the bounds the format
// requires.
func (c Config) Validate() error {
	if c.Size < 7 || c.Size > 256 {
		return errors.Errorf("cluster size must be between 7 and 256 bytes, got %d", c.Size)
	}
	return nil
}

// CRCEnabled reports whether this configuration stores a CRC-8 per
// cluster.
func (c Config) CRCEnabled() bool {
	return c.CRC != nil
}

// UserDataSize returns U, the payload capacity of a single cluster.
func (c Config) UserDataSize() int {
	if c.CRCEnabled() {
		return c.Size - 6
	}
	return c.Size - 5
}

// EndMarker returns the end-marker byte value for this configuration.
func (c Config) EndMarker() byte {
	if c.CRCEnabled() {
		return EndMarkerCRC
	}
	return EndMarkerNoCRC
}

// OffsetCRC returns the offset of the CRC byte (CRC mode) or the extra
// payload byte (no-CRC mode): C-2.
func (c Config) OffsetCRC() int {
	return c.Size - 2
}

// PayloadEnd returns the offset one past the last payload byte: in
// no-CRC mode the byte at OffsetCRC is payload too, so PayloadEnd is
// OffsetCRC+1; in CRC mode it's OffsetCRC.
func (c Config) PayloadEnd() int {
	if c.CRCEnabled() {
		return c.OffsetCRC()
	}
	return c.OffsetCRC() + 1
}

// OffsetEndMarker returns the offset of the end-marker byte: C-1.
func (c Config) OffsetEndMarker() int {
	return c.Size - 1
}

// MaxChainClusters returns the maximum number of clusters a single
// generation can legally span, ceil(256/U). Used to bound chain walks
// against a damaged, cyclic medium.
func (c Config) MaxChainClusters() int {
	u := c.UserDataSize()
	return (256 + u - 1) / u
}
