// Package typedslot adds a generics-based convenience layer over a
// slotnvm.Store for fixed-layout values, the way the original's two
// writeSlot/readSlot template overloads did for a single C++ POD type:
// encode to bytes, write; read bytes, decode. Here encode/decode is
// encoding/binary over a fixed-size struct instead of a raw memory cast,
// since Go has no defined in-memory struct layout to cast against.
package typedslot

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/fmueller/slotnvm"
)

// Write encodes value with encoding/binary (fixed-size types only — no
// strings, slices, or maps, matching binary.Write's own restriction) and
// stores it under slot.
func Write[T any](store *slotnvm.Store, slot uint8, value T) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, value); err != nil {
		return errors.Wrap(err, "encode value")
	}
	return store.WriteSlot(slot, buf.Bytes())
}

// Read decodes slot's stored bytes into a T with encoding/binary. It
// fails if the slot's stored size doesn't match T's encoded size, the
// same way the original's typed readSlot overload refused to decode into
// a buffer of the wrong size rather than truncating or zero-padding.
func Read[T any](store *slotnvm.Store, slot uint8) (T, error) {
	var zero T

	size := binary.Size(zero)
	if size < 0 {
		return zero, errors.Errorf("typedslot: type has no fixed binary size")
	}

	buf := make([]byte, size)
	n, err := store.ReadSlot(slot, buf)
	if err != nil {
		return zero, err
	}
	if n != size {
		return zero, errors.Errorf("typedslot: slot holds %d bytes, type needs %d", n, size)
	}

	var value T
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &value); err != nil {
		return zero, errors.Wrap(err, "decode value")
	}
	return value, nil
}
