package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetClearTest(t *testing.T) {
	requireT := require.New(t)

	s := New(20)
	requireT.False(s.Test(5))

	s.Set(5)
	requireT.True(s.Test(5))
	requireT.False(s.Test(4))
	requireT.False(s.Test(6))

	s.Clear(5)
	requireT.False(s.Test(5))
}

func TestCount(t *testing.T) {
	requireT := require.New(t)

	s := New(16)
	requireT.Equal(0, s.Count())

	s.Set(0)
	s.Set(7)
	s.Set(15)
	requireT.Equal(3, s.Count())

	s.Clear(7)
	requireT.Equal(2, s.Count())
}

func TestCloneIsIndependent(t *testing.T) {
	requireT := require.New(t)

	s := New(8)
	s.Set(1)

	c := s.Clone()
	c.Set(2)

	requireT.False(s.Test(2))
	requireT.True(c.Test(1))
	requireT.True(c.Test(2))
}

func TestEqual(t *testing.T) {
	requireT := require.New(t)

	a := New(10)
	b := New(10)
	requireT.True(a.Equal(b))

	a.Set(3)
	requireT.False(a.Equal(b))

	b.Set(3)
	requireT.True(a.Equal(b))
}
