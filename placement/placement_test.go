package placement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequentialAlwaysZero(t *testing.T) {
	requireT := require.New(t)

	var s Sequential
	requireT.Equal(0, s.Next(64))
	requireT.Equal(0, s.Next(1))
}

func TestMathRandInRange(t *testing.T) {
	requireT := require.New(t)

	m := NewMathRand(42)
	for i := 0; i < 1000; i++ {
		v := m.Next(16)
		requireT.GreaterOrEqual(v, 0)
		requireT.Less(v, 16)
	}
}

func TestMathRandDeterministic(t *testing.T) {
	requireT := require.New(t)

	a := NewMathRand(7)
	b := NewMathRand(7)
	for i := 0; i < 50; i++ {
		requireT.Equal(a.Next(32), b.Next(32))
	}
}

func TestMathRandZeroClusters(t *testing.T) {
	requireT := require.New(t)

	m := NewMathRand(1)
	requireT.Equal(0, m.Next(0))
}

func TestHashSeedStartInRange(t *testing.T) {
	requireT := require.New(t)

	var hs HashSeed
	for slot := uint8(1); slot < 20; slot++ {
		for age := uint8(0); age < 4; age++ {
			v := hs.Start(slot, age, 37)
			requireT.GreaterOrEqual(v, 0)
			requireT.Less(v, 37)
		}
	}
}

func TestHashSeedStartDeterministic(t *testing.T) {
	requireT := require.New(t)

	var hs HashSeed
	requireT.Equal(hs.Start(5, 2, 64), hs.Start(5, 2, 64))
}

func TestHashSeedStartVariesWithAge(t *testing.T) {
	requireT := require.New(t)

	var hs HashSeed
	seen := map[int]bool{}
	for age := uint8(0); age < 4; age++ {
		seen[hs.Start(5, age, 1024)] = true
	}
	requireT.Greater(len(seen), 1)
}

func TestHashSeedZeroClusters(t *testing.T) {
	requireT := require.New(t)

	var hs HashSeed
	requireT.Equal(0, hs.Start(1, 0, 0))
}
