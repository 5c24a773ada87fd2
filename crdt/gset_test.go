package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Polqt/cauchy/pool"
	"github.com/Polqt/cauchy/types"
)

func TestGSetAddIsIdempotent(t *testing.T) {
	s := NewGSet()
	require.Equal(t, types.OK, s.Add([]byte("x")))
	require.Equal(t, types.OK, s.Add([]byte("x")))
	require.Equal(t, 1, s.Count())
	require.True(t, s.Contains([]byte("x")))
}

func TestGSetWithBackingPool(t *testing.T) {
	p, err := pool.New(pool.Config{BlockSize: 16, InitialBlocks: 4, Alignment: 16})
	require.NoError(t, err)

	s := NewGSetWithPool(p)
	s.Add([]byte("short"))
	require.True(t, s.Contains([]byte("short")))
	require.Equal(t, uint64(4), p.Stats().Allocated) // pre-allocated slab, no overflow growth
}

func TestGSetMergeUnionsElements(t *testing.T) {
	a := NewGSet()
	a.Add([]byte("x"))
	a.Add([]byte("y"))
	b := NewGSet()
	b.Add([]byte("y"))
	b.Add([]byte("z"))

	a.Merge(b)
	require.Equal(t, 3, a.Count())
	require.True(t, a.Contains([]byte("z")))
}

func TestGSetSubsetAndEquals(t *testing.T) {
	a := NewGSet()
	a.Add([]byte("x"))
	b := NewGSet()
	b.Add([]byte("x"))
	b.Add([]byte("y"))

	require.True(t, a.Subset(b))
	require.False(t, b.Subset(a))
	require.False(t, a.Equals(b))

	b.Add([]byte("x"))
	a.Add([]byte("y"))
	require.True(t, a.Equals(b))
}

func TestGSetMergeLaws(t *testing.T) {
	a := NewGSet()
	a.Add([]byte("1"))
	b := NewGSet()
	b.Add([]byte("2"))
	c := NewGSet()
	c.Add([]byte("3"))

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)
	require.True(t, ab.Equals(ba))

	abc1 := a.Clone()
	abc1.Merge(b)
	abc1.Merge(c)
	bc := b.Clone()
	bc.Merge(c)
	abc2 := a.Clone()
	abc2.Merge(bc)
	require.True(t, abc1.Equals(abc2))

	aa := a.Clone()
	aa.Merge(a)
	require.True(t, aa.Equals(a))
}

func TestGSetSerializeRoundTrip(t *testing.T) {
	s := NewGSet()
	s.Add([]byte("alpha"))
	s.Add([]byte("beta"))
	s.Add([]byte("gamma"))

	buf := s.Serialize()
	out, res := DeserializeGSet(buf)
	require.Equal(t, types.OK, res)
	require.True(t, s.Equals(out))
}

func TestGSetIterateVisitsEveryElementOnce(t *testing.T) {
	s := NewGSet()
	elems := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	for _, e := range elems {
		s.Add(e)
	}
	seen := map[string]int{}
	s.Iterate(func(p []byte) bool {
		seen[string(p)]++
		return true
	})
	require.Len(t, seen, 3)
	for _, n := range seen {
		require.Equal(t, 1, n)
	}
}
