package slotnvm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fmueller/slotnvm/nvm/memdev"
)

// TestScanIsIdempotent exercises the idempotence property directly: two
// successive Begin calls against the same frozen medium must produce the
// same in-RAM index, and running Begin against a medium written by a
// completed sequence must never mutate any cluster on it.
func TestScanIsIdempotent(t *testing.T) {
	requireT := require.New(t)

	dev := memdev.New(64)
	store1, err := Open(dev, testConfig())
	requireT.NoError(err)

	requireT.NoError(store1.WriteSlot(1, []byte{0x01, 0x02, 0x03}))
	requireT.NoError(store1.WriteSlot(2, []byte{0xAA}))
	requireT.NoError(store1.WriteSlot(1, []byte{0x04, 0x05}))
	requireT.NoError(store1.EraseSlot(2))

	before := dev.Snapshot()

	store2, err := New(dev, testConfig())
	requireT.NoError(err)
	requireT.NoError(store2.Begin())

	after := dev.Snapshot()
	requireT.True(bytes.Equal(before, after), "a second scan of an already-clean medium must not write any cluster")

	requireT.True(store1.idx.Equal(store2.idx), "two scans of the same frozen medium must produce the same index")
}
