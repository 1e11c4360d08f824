package cluster

import "github.com/pkg/errors"

// Header is the decoded form of a cluster's first four bytes.
type Header struct {
	SlotNo byte
	Age    uint8 // 0..3
	Start  bool
	Last   bool
	Link   byte
	Length byte // raw stored value; see the package doc for START vs non-START meaning
}

// flags packs Age/Start/Last into the on-media flags byte. Reserved bits
// 3-0 are always written as zero.
func (h Header) flags() byte {
	f := (h.Age & 0x03) << FlagAgeShift
	if h.Start {
		f |= FlagStart
	}
	if h.Last {
		f |= FlagLast
	}
	return f
}

// DecodeFlags unpacks the age/start/last fields from a raw flags byte.
// Reserved bits are ignored on read, matching the original implementation
// (which never validates them; a corrupt reserved bit is caught by CRC
// instead, when CRC is enabled).
func DecodeFlags(b byte) (age uint8, start, last bool) {
	age = (b & FlagAgeMask) >> FlagAgeShift
	start = b&FlagStart != 0
	last = b&FlagLast != 0
	return age, start, last
}

// EncodeHeader writes the four header bytes (offsets 0..3) into buf.
// buf must be at least 4 bytes long.
func EncodeHeader(buf []byte, h Header) {
	buf[OffsetSlotNo] = h.SlotNo
	buf[OffsetFlags] = h.flags()
	buf[OffsetLink] = h.Link
	buf[OffsetLength] = h.Length
}

// DecodeHeader reads the four header bytes (offsets 0..3) from buf.
// buf must be at least 4 bytes long.
func DecodeHeader(buf []byte) Header {
	age, start, last := DecodeFlags(buf[OffsetFlags])
	return Header{
		SlotNo: buf[OffsetSlotNo],
		Age:    age,
		Start:  start,
		Last:   last,
		Link:   buf[OffsetLink],
		Length: buf[OffsetLength],
	}
}

// ComputeCRC computes the CRC-8 over the header (bytes 0..3) and exactly
// payloadLen payload bytes of buf — the bytes this cluster actually
// carries, not its full payload capacity. A cluster holding fewer bytes
// than it has room for (the last cluster of a chain, typically) leaves
// the remainder of its payload area as whatever was there before, so the
// CRC must not cover it. Panics if CRC is disabled; callers must check
// CRCEnabled first.
func (c Config) ComputeCRC(buf []byte, payloadLen int) byte {
	var crc byte
	end := OffsetPayload + payloadLen
	for i := 0; i < end; i++ {
		crc = c.CRC(crc, buf[i])
	}
	return crc
}

// crcLen returns the number of payload bytes a decoded header implies are
// covered by the CRC: for a START cluster, the lesser of the declared
// total length and the per-cluster capacity; for any other cluster, the
// declared per-cluster length directly.
func (c Config) crcLen(h Header) int {
	if h.Start {
		l := int(h.Length) + 1
		if u := c.UserDataSize(); l > u {
			l = u
		}
		return l
	}
	return int(h.Length)
}

// ErrInvalid is returned (wrapped with specific context) when a cluster
// buffer fails end-marker or CRC validation during decode.
var ErrInvalid = errors.New("invalid cluster")

// Decode validates and parses a full cluster buffer (exactly c.Size
// bytes, as read from the device) into its header and payload slice. It
// enforces the end-marker check and, in CRC mode, the CRC-8 check and the
// non-START length bound described in the recovery scan's pass 1.
//
// The returned payload slice aliases buf; callers that retain it across a
// subsequent reuse of buf must copy it first.
func (c Config) Decode(buf []byte) (Header, []byte, error) {
	if len(buf) != c.Size {
		return Header{}, nil, errors.Errorf("cluster buffer has wrong size: got %d, want %d", len(buf), c.Size)
	}

	if buf[c.OffsetEndMarker()] != c.EndMarker() {
		return Header{}, nil, errors.WithStack(ErrInvalid)
	}

	h := DecodeHeader(buf)

	if c.CRCEnabled() {
		if !h.Start && int(h.Length) > c.UserDataSize() {
			return Header{}, nil, errors.WithStack(ErrInvalid)
		}
		if c.ComputeCRC(buf, c.crcLen(h)) != buf[c.OffsetCRC()] {
			return Header{}, nil, errors.WithStack(ErrInvalid)
		}
	}

	payload := buf[OffsetPayload:c.PayloadEnd()]
	return h, payload, nil
}

// EncodeBody fills buf[0:C-1] (everything except the end marker) with a
// cluster's header, payload and, in CRC mode, its CRC-8 — computed over
// exactly len(payload) bytes, matching crcLen's reconstruction of that
// same count on the decode side. buf must be exactly c.Size bytes; the
// end marker at buf[C-1] is left untouched — committing it against the
// device is a separate, deliberate step, per the validation ordering
// contract: the marker must be the last byte written, and any
// pre-existing valid marker must be invalidated first.
func (c Config) EncodeBody(buf []byte, h Header, payload []byte) {
	EncodeHeader(buf, h)
	copy(buf[OffsetPayload:OffsetPayload+len(payload)], payload)
	if c.CRCEnabled() {
		buf[c.OffsetCRC()] = c.ComputeCRC(buf, len(payload))
	}
}
