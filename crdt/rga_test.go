package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Polqt/cauchy/types"
)

func TestRGAInsertAtHeadAndAppend(t *testing.T) {
	r := NewRGA(1)
	u1, res := r.InsertAfter(types.UID{}, []byte("a"))
	require.Equal(t, types.OK, res)
	u2, res := r.InsertAfter(u1, []byte("b"))
	require.Equal(t, types.OK, res)
	_, res = r.InsertAfter(u2, []byte("c"))
	require.Equal(t, types.OK, res)

	var out []string
	r.Iterate(func(p []byte) bool { out = append(out, string(p)); return true })
	require.Equal(t, []string{"a", "b", "c"}, out)
}

func TestRGAInsertAfterUnknownAnchorIsNotFound(t *testing.T) {
	r := NewRGA(1)
	_, res := r.InsertAfter(types.NewUID(99, 1), []byte("x"))
	require.Equal(t, types.ErrNotFound, res)
}

func TestRGAConcurrentSiblingsOrderByUIDDescending(t *testing.T) {
	// Two replicas both insert a sibling after the same anchor; the
	// higher UID must land first on both sides after merge, regardless
	// of merge direction. Both UIDs carry timestamp 2, so the higher node
	// id (replica 2) wins the left position.
	base := NewRGA(1)
	root, _ := base.InsertAfter(types.UID{}, []byte("root"))

	r1 := base.Clone()
	r1.node = 1
	r2 := base.Clone()
	r2.node = 2

	r1.InsertAfter(root, []byte("from-1"))
	r2.InsertAfter(root, []byte("from-2"))

	m1 := r1.Clone()
	m1.Merge(r2)
	m2 := r2.Clone()
	m2.Merge(r1)

	var o1, o2 []string
	m1.Iterate(func(p []byte) bool { o1 = append(o1, string(p)); return true })
	m2.Iterate(func(p []byte) bool { o2 = append(o2, string(p)); return true })
	require.Equal(t, o1, o2)
	require.Len(t, o1, 3)
	require.Equal(t, []string{"root", "from-2", "from-1"}, o1)
}

func TestRGAMergeKeepsSubtreeAheadOfOlderSibling(t *testing.T) {
	// One replica grows a chain (x, then c after x) under the anchor
	// while the other concurrently inserts an older sibling y under the
	// same anchor. y must land after x's whole subtree, not inside it,
	// and both merge directions must agree.
	base := NewRGA(1)
	root, _ := base.InsertAfter(types.UID{}, []byte("root"))

	r1 := base.Clone()
	r1.node = 2
	r2 := base.Clone()
	r2.node = 1

	x, _ := r1.InsertAfter(root, []byte("x"))
	r1.InsertAfter(x, []byte("c"))
	r2.InsertAfter(root, []byte("y")) // same timestamp as x, lower node id

	m1 := r1.Clone()
	m1.Merge(r2)
	m2 := r2.Clone()
	m2.Merge(r1)

	var o1, o2 []string
	m1.Iterate(func(p []byte) bool { o1 = append(o1, string(p)); return true })
	m2.Iterate(func(p []byte) bool { o2 = append(o2, string(p)); return true })
	require.Equal(t, []string{"root", "x", "c", "y"}, o1)
	require.Equal(t, o1, o2)
}

func TestRGADeleteTombstonesButKeepsAnchor(t *testing.T) {
	r := NewRGA(1)
	u1, _ := r.InsertAfter(types.UID{}, []byte("a"))
	u2, _ := r.InsertAfter(u1, []byte("b"))

	require.Equal(t, types.OK, r.Delete(u1))
	require.False(t, r.Contains(u1))

	// u2's anchor (u1) still resolves even though u1 is tombstoned, so
	// a further insert after u2 still works.
	_, res := r.InsertAfter(u2, []byte("c"))
	require.Equal(t, types.OK, res)

	var out []string
	r.Iterate(func(p []byte) bool { out = append(out, string(p)); return true })
	require.Equal(t, []string{"b", "c"}, out)
}

func TestRGADeleteUnknownUIDIsNotFound(t *testing.T) {
	r := NewRGA(1)
	require.Equal(t, types.ErrNotFound, r.Delete(types.NewUID(1, 1)))
}

func TestRGAMergeLaws(t *testing.T) {
	a := NewRGA(1)
	a.InsertAfter(types.UID{}, []byte("x"))
	b := NewRGA(2)
	b.InsertAfter(types.UID{}, []byte("y"))

	ab := a.Clone()
	ab.Merge(b)
	ba := b.Clone()
	ba.Merge(a)
	require.True(t, ab.Equals(ba))

	aa := a.Clone()
	aa.Merge(a)
	require.True(t, aa.Equals(a))
}

func TestRGASerializeRoundTrip(t *testing.T) {
	r := NewRGA(1)
	u1, _ := r.InsertAfter(types.UID{}, []byte("a"))
	u2, _ := r.InsertAfter(u1, []byte("b"))
	r.Delete(u2)
	r.InsertAfter(u1, []byte("c"))

	buf := r.Serialize()
	out, res := DeserializeRGA(buf, 1)
	require.Equal(t, types.OK, res)
	require.True(t, r.Equals(out))
}
