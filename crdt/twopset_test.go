package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Polqt/cauchy/types"
)

func TestTwoPSetPermanenceScenario(t *testing.T) {
	s := NewTwoPSet()
	require.Equal(t, types.OK, s.Add([]byte("x")))
	require.Equal(t, types.OK, s.Remove([]byte("x")))
	require.Equal(t, types.OK, s.Add([]byte("x"))) // no-op: tombstone wins

	require.False(t, s.Contains([]byte("x")))
	require.Equal(t, 0, s.Count())
}

func TestTwoPSetRemoveWithoutAddIsNotFound(t *testing.T) {
	s := NewTwoPSet()
	require.Equal(t, types.ErrNotFound, s.Remove([]byte("never-added")))
}

func TestTwoPSetMergeUnionsBothHalves(t *testing.T) {
	a := NewTwoPSet()
	a.Add([]byte("x"))
	a.Add([]byte("y"))
	a.Remove([]byte("y"))

	b := NewTwoPSet()
	b.Add([]byte("z"))

	a.Merge(b)
	require.True(t, a.Contains([]byte("x")))
	require.True(t, a.Contains([]byte("z")))
	require.False(t, a.Contains([]byte("y")))
	require.Equal(t, 2, a.Count())
}

func TestTwoPSetMergeLaws(t *testing.T) {
	a := NewTwoPSet()
	a.Add([]byte("1"))
	b := NewTwoPSet()
	b.Add([]byte("2"))
	b.Remove([]byte("2"))

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)
	require.True(t, ab.Equals(ba))

	aa := a.Clone()
	aa.Merge(a)
	require.True(t, aa.Equals(a))
}

func TestTwoPSetSerializeRoundTrip(t *testing.T) {
	s := NewTwoPSet()
	s.Add([]byte("keep"))
	s.Add([]byte("gone"))
	s.Remove([]byte("gone"))

	buf := s.Serialize()
	out, res := DeserializeTwoPSet(buf)
	require.Equal(t, types.OK, res)
	require.True(t, s.Equals(out))
	require.True(t, out.Contains([]byte("keep")))
	require.False(t, out.Contains([]byte("gone")))
}
