// Package recovery implements the full-medium scan that runs once at
// startup: validating every candidate cluster, grouping clusters by
// slot, picking the winning generation per slot, and invalidating
// stragglers left behind by an interrupted write.
package recovery

import (
	"github.com/pkg/errors"

	"github.com/fmueller/slotnvm/bitset"
	"github.com/fmueller/slotnvm/cluster"
	"github.com/fmueller/slotnvm/index"
	"github.com/fmueller/slotnvm/nvm"
)

// Scanner runs the two-pass recovery algorithm against a device.
type Scanner struct {
	dev       nvm.Device
	cc        cluster.Config
	firstSlot uint8
	lastSlot  uint8
	nClusters int
}

// NewScanner returns a Scanner for the given device, cluster layout and
// slot/cluster range.
func NewScanner(dev nvm.Device, cc cluster.Config, firstSlot, lastSlot uint8, nClusters int) *Scanner {
	return &Scanner{
		dev:       dev,
		cc:        cc,
		firstSlot: firstSlot,
		lastSlot:  lastSlot,
		nClusters: nClusters,
	}
}

// Scan performs the full two-pass recovery and returns the resulting
// in-RAM index. It fails only on an underlying device read/write
// failure; a medium that is merely inconsistent (torn writes, stale
// generations, cycles) is cleaned up rather than reported as an error.
func (s *Scanner) Scan() (*index.Index, error) {
	idx := index.New(s.nClusters, s.firstSlot, s.lastSlot)

	if err := s.pass1(idx); err != nil {
		return nil, err
	}
	if err := s.pass2(idx); err != nil {
		return nil, err
	}

	return idx, nil
}

// pass1 validates every cluster independently: slot number range,
// end marker, and (in CRC mode) the CRC-8 and the non-START length
// bound. Surviving clusters are marked used and their slot numbers are
// marked as available candidates, to be adjudicated in pass 2.
func (s *Scanner) pass1(idx *index.Index) error {
	buf := make([]byte, s.cc.Size)

	for cl := 0; cl < s.nClusters; cl++ {
		addr := cl * s.cc.Size

		slotNo, ok := s.dev.ReadByte(addr)
		if !ok {
			return errors.Errorf("failed to read slot number of cluster %d", cl)
		}
		if slotNo < s.firstSlot || slotNo > s.lastSlot {
			continue
		}

		if !s.dev.ReadBuf(addr, buf) {
			return errors.Errorf("failed to read cluster %d", cl)
		}
		if _, _, err := s.cc.Decode(buf); err != nil {
			continue
		}

		idx.SetClusterUsed(cl)
		idx.SetSlotAvailable(slotNo)
	}

	return nil
}

// pass2 adjudicates, for every slot pass 1 marked as a candidate, which
// generation (if any) survives, and invalidates every cluster belonging
// to that slot that isn't part of the surviving chain.
func (s *Scanner) pass2(idx *index.Index) error {
	for slot := s.firstSlot; ; slot++ {
		if idx.IsSlotAvailable(slot) {
			if err := s.resolveSlot(idx, slot); err != nil {
				return err
			}
		}
		if slot == s.lastSlot {
			break
		}
	}
	return nil
}

func (s *Scanner) resolveSlot(idx *index.Index, slot uint8) error {
	memberOf := bitset.New(s.nClusters)
	var firstCluster [4]int
	for i := range firstCluster {
		firstCluster[i] = -1
	}
	var mask uint8

	for cl := 0; cl < s.nClusters; cl++ {
		if !idx.IsClusterUsed(cl) {
			continue
		}
		addr := cl * s.cc.Size

		sn, ok := s.dev.ReadByte(addr)
		if !ok {
			return errors.Errorf("failed to read slot number of cluster %d", cl)
		}
		if sn != slot {
			continue
		}
		memberOf.Set(cl)

		flagsByte, ok := s.dev.ReadByte(addr + cluster.OffsetFlags)
		if !ok {
			return errors.Errorf("failed to read flags of cluster %d", cl)
		}
		age, start, _ := cluster.DecodeFlags(flagsByte)
		if start {
			firstCluster[age] = cl
			mask |= 1 << age
		}
	}

	var winningChain bitset.Set
	foundValid := false

	for mask != 0 {
		age, isErr := candidateAge(mask)
		if !isErr && firstCluster[age] >= 0 {
			chain, ok, err := s.walkChain(memberOf, firstCluster[age], age)
			if err != nil {
				return err
			}
			if ok {
				winningChain = chain
				foundValid = true
				break
			}
		}
		mask &^= 1 << age
	}

	for cl := 0; cl < s.nClusters; cl++ {
		if !memberOf.Test(cl) {
			continue
		}
		if foundValid && winningChain.Test(cl) {
			continue
		}
		if !s.dev.WriteByte(cl*s.cc.Size+cluster.OffsetSlotNo, 0x00) {
			return errors.Errorf("failed to invalidate cluster %d", cl)
		}
		idx.ClearClusterUsed(cl)
	}

	if !foundValid {
		idx.ClearSlotAvailable(slot)
	}

	return nil
}

// walkChain follows the chain of clusters starting at startCluster,
// which must be a START cluster of the given age, validating membership,
// age consistency, and the declared-length/accumulated-capacity bound
// from §4.3. It returns the set of clusters making up the chain and
// whether the walk succeeded.
func (s *Scanner) walkChain(memberOf bitset.Set, startCluster int, age uint8) (bitset.Set, bool, error) {
	u := s.cc.UserDataSize()
	chain := bitset.New(s.nClusters)
	chain.Set(startCluster)

	headerBuf := make([]byte, 4)
	if !s.dev.ReadBuf(startCluster*s.cc.Size, headerBuf) {
		return chain, false, errors.Errorf("failed to read header of cluster %d", startCluster)
	}
	h := cluster.DecodeHeader(headerBuf)

	declaredLen := int(h.Length)
	doNotExceed := declaredLen + 1 + u
	accumulated := u

	cur := startCluster
	isLast := h.Last

	for depth := 0; !isLast; depth++ {
		if depth >= maxChainWalkDepth {
			return chain, false, nil
		}

		next, ok := s.dev.ReadByte(cur*s.cc.Size + cluster.OffsetLink)
		if !ok {
			return chain, false, errors.Errorf("failed to read link of cluster %d", cur)
		}
		nextCluster := int(next)
		if nextCluster < 0 || nextCluster >= s.nClusters || !memberOf.Test(nextCluster) {
			return chain, false, nil
		}
		chain.Set(nextCluster)

		if !s.dev.ReadBuf(nextCluster*s.cc.Size, headerBuf) {
			return chain, false, errors.Errorf("failed to read header of cluster %d", nextCluster)
		}
		nh := cluster.DecodeHeader(headerBuf)
		if nh.Age != age || nh.Start {
			return chain, false, nil
		}

		accumulated += u
		if accumulated >= doNotExceed {
			// Either more clusters than the declared length requires, or
			// the chain has looped back on itself; both are rejected the
			// same way.
			return chain, false, nil
		}

		cur = nextCluster
		isLast = nh.Last
	}

	if accumulated < declaredLen+1 {
		return chain, false, nil
	}

	return chain, true, nil
}
