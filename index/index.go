// Package index holds the in-RAM mirror of the medium: which physical
// clusters are currently in use and which slot numbers currently
// resolve. It is populated wholesale by a recovery scan and mutated
// incrementally by every successful write/erase thereafter; it retains
// no other per-slot or per-cluster state.
package index

import "github.com/fmueller/slotnvm/bitset"

// Index is the two-bitset in-RAM cache described by the spec: which
// physical clusters are occupied, and which slot numbers currently
// resolve to data.
type Index struct {
	usedCluster bitset.Set
	slotAvail   bitset.Set
	firstSlot   uint8
	lastSlot    uint8
}

// New returns an empty Index sized for nClusters physical clusters and
// slot numbers in [firstSlot, lastSlot].
func New(nClusters int, firstSlot, lastSlot uint8) *Index {
	return &Index{
		usedCluster: bitset.New(nClusters),
		slotAvail:   bitset.New(int(lastSlot-firstSlot) + 1),
		firstSlot:   firstSlot,
		lastSlot:    lastSlot,
	}
}

// NClusters returns the number of physical clusters the index tracks.
func (idx *Index) NClusters() int {
	return idx.usedCluster.Len()
}

// IsClusterUsed reports whether cluster is currently occupied by a valid
// cluster.
func (idx *Index) IsClusterUsed(cluster int) bool {
	return idx.usedCluster.Test(cluster)
}

// SetClusterUsed marks cluster as occupied.
func (idx *Index) SetClusterUsed(cluster int) {
	idx.usedCluster.Set(cluster)
}

// ClearClusterUsed marks cluster as free.
func (idx *Index) ClearClusterUsed(cluster int) {
	idx.usedCluster.Clear(cluster)
}

// UsedClusterCount returns the number of clusters currently marked used.
func (idx *Index) UsedClusterCount() int {
	return idx.usedCluster.Count()
}

// slotBit maps a slot number onto its bit index, or -1 if out of range.
func (idx *Index) slotBit(slot uint8) int {
	if slot < idx.firstSlot || slot > idx.lastSlot {
		return -1
	}
	return int(slot - idx.firstSlot)
}

// IsSlotAvailable reports whether slot currently resolves to data. Out of
// range slot numbers always report false.
func (idx *Index) IsSlotAvailable(slot uint8) bool {
	bit := idx.slotBit(slot)
	if bit < 0 {
		return false
	}
	return idx.slotAvail.Test(bit)
}

// SetSlotAvailable marks slot as resolving to data. A no-op for slot
// numbers outside [firstSlot, lastSlot].
func (idx *Index) SetSlotAvailable(slot uint8) {
	if bit := idx.slotBit(slot); bit >= 0 {
		idx.slotAvail.Set(bit)
	}
}

// ClearSlotAvailable marks slot as no longer resolving to data. A no-op
// for slot numbers outside [firstSlot, lastSlot].
func (idx *Index) ClearSlotAvailable(slot uint8) {
	if bit := idx.slotBit(slot); bit >= 0 {
		idx.slotAvail.Clear(bit)
	}
}

// FirstSlot and LastSlot report the configured slot number range.
func (idx *Index) FirstSlot() uint8 { return idx.firstSlot }
func (idx *Index) LastSlot() uint8  { return idx.lastSlot }

// Equal reports whether two indexes describe the same medium state. Used
// by idempotence tests: two successive scans of a frozen medium must
// produce equal indexes.
func (idx *Index) Equal(other *Index) bool {
	if idx.firstSlot != other.firstSlot || idx.lastSlot != other.lastSlot {
		return false
	}
	return idx.usedCluster.Equal(other.usedCluster) && idx.slotAvail.Equal(other.slotAvail)
}
