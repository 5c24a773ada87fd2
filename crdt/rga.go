package crdt

import (
	"encoding/binary"

	"github.com/Polqt/cauchy/types"
)

// rgaNode is one arena slot. Links between nodes are arena indices
// rather than pointers, which keeps the type flat for serialization
// and makes Merge's re-integration walk a cheap index lookup rather
// than a pointer-chasing search.
type rgaNode struct {
	uid     types.UID
	payload []byte
	deleted bool
	anchor  int // arena index of the node this was inserted after, -1 for head
	next    int // arena index of the next node in total order, -1 for none
}

// RGA is a replicated growable array: a totally ordered sequence where
// concurrent insertions under the same anchor are broken by UID
// descending (a newer writer's insertion lands to the left of an
// older one under the same anchor), so every replica converges to the
// same total order regardless of delivery order.
type RGA struct {
	arena []rgaNode
	index map[types.UID]int
	head  int // arena index of the first live-or-tombstoned node, -1 if empty
	node  types.NodeID
	clock types.Timestamp // per-RGA tag counter, independent of any Context
}

// NewRGA creates an empty sequence whose UIDs are minted from node.
func NewRGA(node types.NodeID) *RGA {
	return &RGA{index: make(map[types.UID]int), head: -1, node: node}
}

// Len returns the number of live (non-deleted) elements.
func (r *RGA) Len() int {
	n := 0
	r.Iterate(func([]byte) bool { n++; return true })
	return n
}

// nextUID mints a fresh UID for a local insertion.
func (r *RGA) nextUID() types.UID {
	r.clock++
	return types.NewUID(r.node, r.clock)
}

// insertSorted links newIdx into total order just past its anchor,
// skipping every successor whose UID is greater than the new node's.
// A node's UID always exceeds every UID its issuer had observed when
// it was minted (local inserts bump a clock that Merge and
// DeserializeRGA keep caught up to the highest timestamp seen), so a
// skipped successor is either a newer concurrent sibling or part of
// such a sibling's subtree, and the first smaller UID marks exactly
// where this node belongs. Concurrent siblings therefore land in UID-
// descending order on every replica regardless of delivery order.
func (r *RGA) insertSorted(anchorIdx, newIdx int) {
	newNode := &r.arena[newIdx]
	prev := anchorIdx
	curr := r.head
	if anchorIdx != -1 {
		curr = r.arena[anchorIdx].next
	}
	for curr != -1 && r.arena[curr].uid.Compare(newNode.uid) > 0 {
		prev = curr
		curr = r.arena[curr].next
	}
	newNode.next = curr
	if prev == -1 {
		r.head = newIdx
	} else {
		r.arena[prev].next = newIdx
	}
}

// InsertAfter inserts payload immediately (in total order) after the
// element named by anchor, or at the head of the sequence when anchor
// is the zero UID. It returns the new element's UID, which the caller
// can pass as a future anchor.
func (r *RGA) InsertAfter(anchor types.UID, payload []byte) (types.UID, types.Result) {
	anchorIdx := -1
	if anchor != (types.UID{}) {
		idx, ok := r.index[anchor]
		if !ok {
			return types.UID{}, types.ErrNotFound
		}
		anchorIdx = idx
	}
	return r.insertWithUID(anchorIdx, r.nextUID(), append([]byte(nil), payload...)), types.OK
}

func (r *RGA) insertWithUID(anchorIdx int, uid types.UID, payload []byte) types.UID {
	r.arena = append(r.arena, rgaNode{uid: uid, payload: payload, anchor: anchorIdx, next: -1})
	newIdx := len(r.arena) - 1
	r.index[uid] = newIdx
	r.insertSorted(anchorIdx, newIdx)
	return uid
}

// Delete tombstones the element named by uid, retaining it in the
// arena (its payload is dropped, but its position is kept) so that any
// other node anchored to it keeps a valid anchor index and the
// deletion survives re-merging with a replica that has not seen it
// yet.
func (r *RGA) Delete(uid types.UID) types.Result {
	idx, ok := r.index[uid]
	if !ok {
		return types.ErrNotFound
	}
	if r.arena[idx].deleted {
		return types.OK
	}
	r.arena[idx].deleted = true
	r.arena[idx].payload = nil
	return types.OK
}

// Contains reports whether uid names a live (non-deleted) element.
func (r *RGA) Contains(uid types.UID) bool {
	idx, ok := r.index[uid]
	return ok && !r.arena[idx].deleted
}

// Iterate calls fn once per live element's payload, in the sequence's
// total order, stopping early if fn returns false.
func (r *RGA) Iterate(fn func(payload []byte) bool) {
	for idx := r.head; idx != -1; idx = r.arena[idx].next {
		if r.arena[idx].deleted {
			continue
		}
		if !fn(r.arena[idx].payload) {
			return
		}
	}
}

// Merge re-integrates every node of src that r has not yet observed
// (by UID), inserting each according to its recorded anchor, and
// tombstones any node r already holds that src has deleted. Processing
// order matters: a child cannot be inserted before its anchor exists,
// so src's nodes are merged in arena order, which is always anchor-
// before-child since InsertAfter can only ever reference an already-
// existing UID.
func (r *RGA) Merge(src *RGA) {
	for i := range src.arena {
		n := &src.arena[i]
		if existingIdx, ok := r.index[n.uid]; ok {
			if n.deleted && !r.arena[existingIdx].deleted {
				r.arena[existingIdx].deleted = true
				r.arena[existingIdx].payload = nil
			}
			continue
		}

		anchorIdx := -1
		if n.anchor != -1 {
			srcAnchorUID := src.arena[n.anchor].uid
			idx, ok := r.index[srcAnchorUID]
			if !ok {
				// Anchor not yet integrated: only possible for a
				// malformed src, since arena order is always
				// anchor-before-child. Skip rather than panic.
				continue
			}
			anchorIdx = idx
		}
		payload := append([]byte(nil), n.payload...)
		if n.deleted {
			payload = nil
		}
		newUID := r.insertWithUID(anchorIdx, n.uid, payload)
		if n.deleted {
			r.arena[r.index[newUID]].deleted = true
		}
	}
	if src.clock > r.clock {
		r.clock = src.clock
	}
}

// Equals reports whether r and o yield the same live sequence in the
// same order.
func (r *RGA) Equals(o *RGA) bool {
	var a, b [][]byte
	r.Iterate(func(p []byte) bool { a = append(a, p); return true })
	o.Iterate(func(p []byte) bool { b = append(b, p); return true })
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if string(a[i]) != string(b[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of r.
func (r *RGA) Clone() *RGA {
	out := NewRGA(r.node)
	out.Merge(r)
	return out
}

// Serialize writes a deterministic wire form: u32 node count, then per
// node in arena order (anchor-before-child, so Deserialize can
// reconstruct indices as it goes) u64 uid-node, u64 uid-timestamp, u8
// deleted flag, u8 has-anchor flag, then (only if that flag is set) the
// anchor's u64 uid-node and u64 uid-timestamp, u32 payload length,
// payload bytes.
func (r *RGA) Serialize() []byte {
	size := 4
	for i := range r.arena {
		n := &r.arena[i]
		size += 8 + 8 + 1 + 1
		if n.anchor != -1 {
			size += 16
		}
		size += 4 + len(n.payload)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(r.arena)))
	off := 4
	for i := range r.arena {
		n := &r.arena[i]
		binary.LittleEndian.PutUint64(buf[off:off+8], n.uid.Node)
		off += 8
		binary.LittleEndian.PutUint64(buf[off:off+8], n.uid.Timestamp)
		off += 8
		if n.deleted {
			buf[off] = 1
		}
		off++
		if n.anchor != -1 {
			buf[off] = 1
			off++
			anchorUID := r.arena[n.anchor].uid
			binary.LittleEndian.PutUint64(buf[off:off+8], anchorUID.Node)
			off += 8
			binary.LittleEndian.PutUint64(buf[off:off+8], anchorUID.Timestamp)
			off += 8
		} else {
			buf[off] = 0
			off++
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(n.payload)))
		off += 4
		copy(buf[off:], n.payload)
		off += len(n.payload)
	}
	return buf
}

// DeserializeRGA parses buf into a new RGA tagged as owned by node.
// Nodes must appear anchor-before-child in buf, the same invariant
// Serialize's output satisfies.
func DeserializeRGA(buf []byte, node types.NodeID) (*RGA, types.Result) {
	if len(buf) < 4 {
		return nil, types.ErrInvalid
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	r := NewRGA(node)
	off := 4
	for i := uint32(0); i < count; i++ {
		if len(buf)-off < 18 {
			return nil, types.ErrInvalid
		}
		uidNode := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		uidTS := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		deleted := buf[off] != 0
		off++
		hasAnchor := buf[off] != 0
		off++

		anchorIdx := -1
		if hasAnchor {
			if len(buf)-off < 16 {
				return nil, types.ErrInvalid
			}
			aNode := binary.LittleEndian.Uint64(buf[off : off+8])
			off += 8
			aTS := binary.LittleEndian.Uint64(buf[off : off+8])
			off += 8
			idx, ok := r.index[types.NewUID(aNode, aTS)]
			if !ok {
				return nil, types.ErrInvalid
			}
			anchorIdx = idx
		}
		if len(buf)-off < 4 {
			return nil, types.ErrInvalid
		}
		n := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		if uint64(len(buf)-off) < uint64(n) {
			return nil, types.ErrInvalid
		}
		payload := append([]byte(nil), buf[off:off+int(n)]...)
		off += int(n)

		uid := types.NewUID(uidNode, uidTS)
		r.insertWithUID(anchorIdx, uid, payload)
		if deleted {
			r.arena[r.index[uid]].deleted = true
			r.arena[r.index[uid]].payload = nil
		}
		if uidTS > r.clock {
			r.clock = uidTS
		}
	}
	return r, types.OK
}
