// Package placement supplies the starting point the write engine probes
// from when looking for a free cluster. SlotNVM's on-media format has no
// notion of placement at all — any free cluster works — so which one a
// given write lands on is purely a wear-leveling policy, kept out of the
// write engine itself and behind the Source interface here.
package placement

import (
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// Source returns a starting probe index for a cluster allocation. The
// write engine scans forward from the cluster after Next(n), wrapping at
// n, until it finds a free cluster; a Source is not required to itself
// check availability.
type Source interface {
	// Next returns a value in [0, n). n is the total cluster count.
	Next(n int) int
}

// SlotAware is an optional interface a Source can implement to pick its
// probe start from the slot and generation age being written, rather
// than from hidden state. The write engine checks for it before falling
// back to Next.
type SlotAware interface {
	// Start returns a value in [0, n) derived from slot and age.
	Start(slot, age uint8, n int) int
}

// Sequential always starts the probe at cluster 0, reproducing the
// original implementation's placement behavior: no wear leveling, the
// first free cluster after cluster 0 wins (cluster 0 itself is checked
// last). Useful as a baseline and in tests that assert on
// exact cluster placement.
type Sequential struct{}

// Next always returns 0.
func (Sequential) Next(int) int {
	return 0
}

// MathRand starts each probe at a pseudo-random cluster, spreading writes
// (and therefore erase wear) evenly across the medium over many writes.
// It is not safe for concurrent use by multiple goroutines, matching
// math/rand.Rand itself; callers sharing a Store across goroutines must
// serialize around it the same way they already must for the rest of the
// store.
type MathRand struct {
	rnd *rand.Rand
}

// NewMathRand returns a MathRand seeded deterministically from seed. Two
// MathRand values constructed with the same seed produce the same
// sequence of probe starts, which the wear-leveling test relies on for
// reproducibility.
func NewMathRand(seed int64) *MathRand {
	return &MathRand{rnd: rand.New(rand.NewSource(seed))}
}

// Next returns a uniformly distributed value in [0, n).
func (m *MathRand) Next(n int) int {
	if n <= 0 {
		return 0
	}
	return m.rnd.Intn(n)
}

// HashSeed derives a deterministic probe start from a slot number and
// generation age, so that successive generations of the same slot tend to
// land on different clusters without needing any mutable placement
// state. It is stateless and safe for concurrent use.
type HashSeed struct{}

// Next is not meaningful without a key; use Start instead. It exists only
// to satisfy Source for callers that don't need the per-write key and are
// fine with an always-zero probe start.
func (HashSeed) Next(int) int {
	return 0
}

// Start returns a deterministic probe start in [0, n) derived from slot
// and age via xxhash, for callers that want per-write placement without
// keeping any mutable state across writes.
func (HashSeed) Start(slot, age uint8, n int) int {
	if n <= 0 {
		return 0
	}
	var buf [2]byte
	buf[0] = slot
	buf[1] = age
	h := xxhash.Sum64(buf[:])
	return int(h % uint64(n))
}
