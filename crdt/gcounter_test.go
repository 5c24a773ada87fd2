package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Polqt/cauchy/types"
)

func TestGCounterConvergenceScenario(t *testing.T) {
	n0 := NewGCounter(3)
	n1 := NewGCounter(3)
	n2 := NewGCounter(3)

	for i := 0; i < 100; i++ {
		n0.Increment(0)
	}
	for i := 0; i < 50; i++ {
		n1.Increment(1)
	}
	for i := 0; i < 75; i++ {
		n2.Increment(2)
	}

	n0.Merge(n1)
	n0.Merge(n2)
	n1.Merge(n0)
	n2.Merge(n1)

	require.Equal(t, uint64(225), n0.Value())
	require.Equal(t, uint64(225), n1.Value())
	require.Equal(t, uint64(225), n2.Value())
	require.True(t, n0.Equals(n1))
	require.True(t, n1.Equals(n2))

	require.Equal(t, uint64(100), n0.Get(0))
	require.Equal(t, uint64(50), n0.Get(1))
	require.Equal(t, uint64(75), n0.Get(2))
}

func TestGCounterOutOfRangeIsNoFault(t *testing.T) {
	g := NewGCounter(2)
	g.Increment(5)
	g.Add(5, 10)
	require.Equal(t, uint64(0), g.Get(5))
	require.Equal(t, uint64(0), g.Value())
}

func TestGCounterMergeLaws(t *testing.T) {
	a := NewGCounter(3)
	a.Add(0, 5)
	b := NewGCounter(3)
	b.Add(1, 3)
	c := NewGCounter(3)
	c.Add(2, 7)

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)
	require.True(t, ab.Equals(ba), "commutative")

	abc1 := a.Clone()
	abc1.Merge(b)
	abc1.Merge(c)
	abc2 := a.Clone()
	bc := b.Clone()
	bc.Merge(c)
	abc2.Merge(bc)
	require.True(t, abc1.Equals(abc2), "associative")

	aa := a.Clone()
	aa.Merge(a)
	require.True(t, aa.Equals(a), "idempotent")
}

func TestGCounterSerializeRoundTrip(t *testing.T) {
	g := NewGCounter(4)
	g.Add(0, 10)
	g.Add(3, 20)

	buf := g.Serialize()
	require.Len(t, buf, g.SerializedSize())

	out, res := DeserializeGCounter(buf)
	require.Equal(t, types.OK, res)
	require.True(t, g.Equals(out))
}

func TestGCounterDeserializeRejectsOversized(t *testing.T) {
	buf := make([]byte, 4)
	buf[0], buf[1], buf[2], buf[3] = 0xFF, 0xFF, 0xFF, 0xFF
	_, res := DeserializeGCounter(buf)
	require.Equal(t, types.ErrInvalid, res)
}

func TestGCounterCompareLattice(t *testing.T) {
	a := NewGCounter(2)
	a.Add(0, 3)
	b := a.Clone()
	b.Add(1, 1)
	require.Equal(t, types.HappensBefore, a.Compare(b))
	require.Equal(t, types.HappensAfter, b.Compare(a))
	require.Equal(t, types.Equal, a.Compare(a.Clone()))
}
