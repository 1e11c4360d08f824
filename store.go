// Package slotnvm implements a crash-consistent, byte-addressable
// persistence layer over a small number of fixed-size slots, built on
// top of a raw read/write device such as an EEPROM. Data for a slot is
// spread over a chain of clusters; a full medium scan at startup
// (Begin) recovers the latest complete generation of every slot and
// discards anything an interrupted write left behind.
package slotnvm

import (
	"github.com/pkg/errors"

	"github.com/fmueller/slotnvm/cluster"
	"github.com/fmueller/slotnvm/index"
	"github.com/fmueller/slotnvm/nvm"
	"github.com/fmueller/slotnvm/placement"
	"github.com/fmueller/slotnvm/recovery"
)

// Store is a SlotNVM instance bound to a single device and Config. A
// Store is not safe for concurrent use by multiple goroutines; callers
// needing that must serialize around it themselves.
type Store struct {
	dev  nvm.Device
	r    resolved
	idx  *index.Index
	open bool
}

// New validates cfg against dev's size and returns a Store ready for
// Begin. It performs no device I/O.
func New(dev nvm.Device, cfg Config) (*Store, error) {
	r, err := resolve(cfg, dev.Size())
	if err != nil {
		return nil, err
	}
	return &Store{dev: dev, r: r}, nil
}

// Open is a convenience wrapper combining New and Begin, the way most
// callers will want to use a Store: validate, scan, go.
func Open(dev nvm.Device, cfg Config) (*Store, error) {
	s, err := New(dev, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Begin(); err != nil {
		return nil, err
	}
	return s, nil
}

// Begin runs the full-medium recovery scan and makes the Store ready for
// use. It must be called exactly once before any other method; a second
// call returns ErrAlreadyInitialized. Otherwise it fails only on an
// underlying device read/write failure.
func (s *Store) Begin() error {
	if s.open {
		return ErrAlreadyInitialized
	}

	scanner := recovery.NewScanner(s.dev, s.r.cc, s.r.firstSlot, s.r.lastSlot, s.r.nClusters)
	idx, err := scanner.Scan()
	if err != nil {
		return err
	}

	s.idx = idx
	s.open = true
	return nil
}

// IsValid reports whether Begin has completed successfully.
func (s *Store) IsValid() bool {
	return s.open
}

// IsSlotAvailable reports whether slot currently holds data.
func (s *Store) IsSlotAvailable(slot uint8) bool {
	if !s.open {
		return false
	}
	return s.idx.IsSlotAvailable(slot)
}

// Size returns the total user-data capacity of the medium, in bytes,
// ignoring provision.
func (s *Store) Size() int {
	return s.r.nClusters * s.r.cc.UserDataSize()
}

// UsableSize returns the user-data capacity available for new data after
// setting aside Provision bytes.
func (s *Store) UsableSize() int {
	return s.Size() - s.r.provision
}

// Free returns the number of bytes currently available for a new write,
// after accounting for provision.
func (s *Store) Free() (int, error) {
	if !s.open {
		return 0, ErrNotInitialized
	}
	return s.freeBytes(), nil
}

func (s *Store) freeBytes() int {
	free := s.Size() - s.idx.UsedClusterCount()*s.r.cc.UserDataSize()
	if free < s.r.provision {
		return 0
	}
	return free - s.r.provision
}

// WriteSlot stores data under slot, replacing any data already there.
// Data already in place is replaced only if the write succeeds:
// every new cluster is written and committed before any cluster of the
// slot's previous generation is touched.
func (s *Store) WriteSlot(slot uint8, data []byte) error {
	if !s.open {
		return ErrNotInitialized
	}
	if slot < s.r.firstSlot || slot > s.r.lastSlot {
		return errors.Errorf("slotnvm: slot %d out of range [%d,%d]", slot, s.r.firstSlot, s.r.lastSlot)
	}
	if len(data) < 1 || len(data) > 256 {
		return errors.Errorf("slotnvm: data length must be between 1 and 256 bytes, got %d", len(data))
	}

	oldStart, overwrite, err := s.findStartCluster(slot)
	if err != nil {
		return err
	}

	free := s.freeBytes()
	u := s.r.cc.UserDataSize()
	var newAge uint8

	if overwrite {
		header := make([]byte, 4)
		addr := oldStart * s.r.cc.Size
		if !s.dev.ReadBuf(addr, header) {
			return errors.Errorf("slotnvm: failed to read header of cluster %d", oldStart)
		}
		oldHeader := cluster.DecodeHeader(header)
		newAge = (oldHeader.Age + 1) & 0x03

		oldLen := int(oldHeader.Length) + 1
		extraFree := ((oldLen + u - 1) / u) * u
		if extraFree > s.r.provision {
			free += s.r.provision
		} else {
			free += extraFree
		}
	}

	if free < len(data) {
		return ErrNoFreeSpace
	}

	cntCluster := (len(data)-1)/u + 1
	newClusters, err := s.allocateClusters(slot, newAge, cntCluster)
	if err != nil {
		return err
	}

	// Write in reverse order, last cluster first: each cluster's link
	// field must already point at a committed cluster before that
	// cluster itself becomes visible, and the very last cluster written
	// is the START cluster — the one that makes the whole new
	// generation reachable.
	for i := cntCluster - 1; i >= 0; i-- {
		cl := newClusters[i]
		addr := cl * s.r.cc.Size

		marker, ok := s.dev.ReadByte(addr + s.r.cc.OffsetEndMarker())
		if !ok {
			return errors.Errorf("slotnvm: failed to read end marker of cluster %d", cl)
		}
		if marker == s.r.cc.EndMarker() {
			// The end marker becomes valid last, so it must be
			// invalidated first, before any other byte of a
			// leftover cluster is touched.
			if !s.dev.WriteByte(addr+s.r.cc.OffsetEndMarker(), 0x00) {
				return errors.Errorf("slotnvm: failed to invalidate cluster %d", cl)
			}
		}

		offset := i * u
		toCopy := len(data) - offset
		if toCopy > u {
			toCopy = u
		}

		link := slot
		if i != cntCluster-1 {
			link = byte(newClusters[i+1])
		}
		length := byte(toCopy)
		if i == 0 {
			length = byte(len(data) - 1)
		}

		h := cluster.Header{
			SlotNo: slot,
			Age:    newAge,
			Start:  i == 0,
			Last:   i == cntCluster-1,
			Link:   link,
			Length: length,
		}

		headerBuf := make([]byte, 4)
		cluster.EncodeHeader(headerBuf, h)
		if !s.dev.WriteBuf(addr, headerBuf) {
			return errors.Errorf("slotnvm: failed to write header of cluster %d", cl)
		}

		payload := data[offset : offset+toCopy]
		if !s.dev.WriteBuf(addr+cluster.OffsetPayload, payload) {
			return errors.Errorf("slotnvm: failed to write payload of cluster %d", cl)
		}

		if s.r.cc.CRCEnabled() {
			full := make([]byte, s.r.cc.Size)
			copy(full, headerBuf)
			copy(full[cluster.OffsetPayload:], payload)
			crc := s.r.cc.ComputeCRC(full, len(payload))
			if !s.dev.WriteByte(addr+s.r.cc.OffsetCRC(), crc) {
				return errors.Errorf("slotnvm: failed to write CRC of cluster %d", cl)
			}
		}

		if !s.dev.WriteByte(addr+s.r.cc.OffsetEndMarker(), s.r.cc.EndMarker()) {
			return errors.Errorf("slotnvm: failed to commit cluster %d", cl)
		}

		s.idx.SetClusterUsed(cl)
	}

	if overwrite {
		// The new generation is already committed and reachable; any
		// failure tearing down the old one only wastes space until the
		// next recovery scan, so it isn't reported as a write failure.
		_ = s.clearClusters(oldStart)
	} else {
		s.idx.SetSlotAvailable(slot)
	}

	return nil
}

// ReadSlot copies slot's data into buf and returns the number of bytes
// copied. If buf is too small, nothing is read and a *BufferTooSmallError
// reports the size that would have succeeded; passing a nil buf is the
// documented way to probe a slot's size without reading its data.
func (s *Store) ReadSlot(slot uint8, buf []byte) (int, error) {
	if !s.open {
		return 0, ErrNotInitialized
	}

	curCluster, found, err := s.findStartCluster(slot)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrSlotEmpty
	}

	header := make([]byte, 4)
	addr := curCluster * s.r.cc.Size
	if !s.dev.ReadBuf(addr, header) {
		return 0, errors.Errorf("slotnvm: failed to read header of cluster %d", curCluster)
	}
	h := cluster.DecodeHeader(header)
	total := int(h.Length) + 1

	if total > len(buf) {
		return 0, &BufferTooSmallError{Needed: total}
	}

	u := s.r.cc.UserDataSize()
	remaining := total
	dst := buf
	isLast := h.Last

	for {
		curCopy := remaining
		if curCopy > u {
			curCopy = u
		}
		if !s.dev.ReadBuf(addr+cluster.OffsetPayload, dst[:curCopy]) {
			return 0, errors.Errorf("slotnvm: failed to read payload of cluster %d", curCluster)
		}
		dst = dst[curCopy:]
		remaining -= curCopy

		if isLast || remaining <= 0 {
			break
		}

		next, ok := s.dev.ReadByte(addr + cluster.OffsetLink)
		if !ok {
			return 0, errors.Errorf("slotnvm: failed to read link of cluster %d", curCluster)
		}
		curCluster = int(next)
		addr = curCluster * s.r.cc.Size

		flagsByte, ok := s.dev.ReadByte(addr + cluster.OffsetFlags)
		if !ok {
			return 0, errors.Errorf("slotnvm: failed to read flags of cluster %d", curCluster)
		}
		_, _, isLast = decodedFlags(flagsByte)
	}

	return total, nil
}

// EraseSlot discards slot's data. Erasing a slot that holds no data
// returns ErrSlotEmpty.
func (s *Store) EraseSlot(slot uint8) error {
	if !s.open {
		return ErrNotInitialized
	}

	firstCluster, found, err := s.findStartCluster(slot)
	if err != nil {
		return err
	}
	if !found {
		return ErrSlotEmpty
	}

	if err := s.clearClusters(firstCluster); err != nil {
		return err
	}
	s.idx.ClearSlotAvailable(slot)
	return nil
}

// findStartCluster scans every used cluster for slot's START cluster.
// found is false, with no error, when the slot simply holds no data.
func (s *Store) findStartCluster(slot uint8) (cl int, found bool, err error) {
	for c := 0; c < s.r.nClusters; c++ {
		if !s.idx.IsClusterUsed(c) {
			continue
		}
		addr := c * s.r.cc.Size

		sn, ok := s.dev.ReadByte(addr)
		if !ok {
			return 0, false, errors.Errorf("slotnvm: failed to read slot number of cluster %d", c)
		}
		if sn != slot {
			continue
		}

		flagsByte, ok := s.dev.ReadByte(addr + cluster.OffsetFlags)
		if !ok {
			return 0, false, errors.Errorf("slotnvm: failed to read flags of cluster %d", c)
		}
		if _, start, _ := decodedFlags(flagsByte); start {
			return c, true, nil
		}
	}
	return 0, false, nil
}

// allocateClusters picks cnt distinct free clusters for a new generation
// of slot/age, starting from a placement-chosen probe point and then
// scanning forward, wrapping, the way the original implementation
// threads a single cursor across consecutive allocations within one
// write.
func (s *Store) allocateClusters(slot, age uint8, cnt int) ([]int, error) {
	var cur int
	if sa, ok := s.r.placement.(placement.SlotAware); ok {
		cur = sa.Start(slot, age, s.r.nClusters)
	} else {
		cur = s.r.placement.Next(s.r.nClusters)
	}

	out := make([]int, cnt)
	for i := 0; i < cnt; i++ {
		next, ok := s.nextFreeCluster(cur)
		if !ok {
			return nil, ErrNoFreeSpace
		}
		out[i] = next
		cur = next
	}
	return out, nil
}

// nextFreeCluster scans forward from cur+1, wrapping at nClusters, for a
// cluster not currently marked used. It checks every cluster exactly
// once, so a fully occupied medium is detected without looping forever.
func (s *Store) nextFreeCluster(cur int) (int, bool) {
	c := cur
	for i := 0; i < s.r.nClusters; i++ {
		c++
		if c >= s.r.nClusters {
			c = 0
		}
		if !s.idx.IsClusterUsed(c) {
			return c, true
		}
	}
	return 0, false
}

// clearClusters invalidates a chain starting at firstCluster by writing
// its slot-number byte to zero first — the single write that makes the
// whole cluster unreadable as valid data regardless of what happens to
// the rest of its bytes afterward — then walks the chain invalidating
// the rest, bounded against a damaged, cyclic medium.
func (s *Store) clearClusters(firstCluster int) error {
	if err := s.clearCluster(firstCluster); err != nil {
		return err
	}

	maxDepth := s.r.cc.MaxChainClusters()
	cur := firstCluster
	for depth := 0; depth < maxDepth; depth++ {
		addr := cur * s.r.cc.Size
		flagsByte, ok := s.dev.ReadByte(addr + cluster.OffsetFlags)
		if !ok {
			// The first cluster is already invalid; that's enough.
			return nil
		}
		_, _, last := decodedFlags(flagsByte)
		if last {
			return nil
		}

		next, ok := s.dev.ReadByte(addr + cluster.OffsetLink)
		if !ok {
			return nil
		}
		if err := s.clearCluster(int(next)); err != nil {
			return nil
		}
		cur = int(next)
	}
	return nil
}

func (s *Store) clearCluster(cl int) error {
	addr := cl * s.r.cc.Size
	if !s.dev.WriteByte(addr, 0x00) {
		return errors.Errorf("slotnvm: failed to invalidate cluster %d", cl)
	}
	s.idx.ClearClusterUsed(cl)
	return nil
}

// decodedFlags reads age/start/last out of a raw flags byte without
// needing a full header decode, for the hot paths (ReadSlot, findStartCluster,
// clearClusters) that only ever need one or two of those fields.
func decodedFlags(b byte) (age uint8, start, last bool) {
	age = (b & cluster.FlagAgeMask) >> cluster.FlagAgeShift
	start = b&cluster.FlagStart != 0
	last = b&cluster.FlagLast != 0
	return age, start, last
}
