package slotnvm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors returned by Store's public operations. Wrap errors from
// the underlying device are never sentinels — they're built fresh with
// errors.Errorf/errors.WithStack and carry the failing address/cluster.
var (
	// ErrNotInitialized is returned by WriteSlot, ReadSlot, EraseSlot and
	// Free when called before a successful Begin.
	ErrNotInitialized = errors.New("slotnvm: store not initialized, call Begin first")
	// ErrAlreadyInitialized is returned by Begin when called a second
	// time on the same Store.
	ErrAlreadyInitialized = errors.New("slotnvm: store already initialized")
	// ErrSlotEmpty is returned by ReadSlot and EraseSlot when the given
	// slot number currently holds no data.
	ErrSlotEmpty = errors.New("slotnvm: slot is empty")
	// ErrNoFreeSpace is returned by WriteSlot when the medium (after
	// accounting for provision and, on overwrite, the space the slot's
	// old generation frees up) cannot fit the new data.
	ErrNoFreeSpace = errors.New("slotnvm: not enough free space")
)

// BufferTooSmallError is returned by ReadSlot when the caller's buffer is
// smaller than the slot's stored data. Needed holds the buffer size that
// would have succeeded, mirroring the size-probe mode (pass a nil buffer
// to learn Needed without attempting a read).
type BufferTooSmallError struct {
	Needed int
}

// Error implements error.
func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("slotnvm: buffer too small, need %d bytes", e.Needed)
}
