package crdt

import (
	"encoding/binary"

	"github.com/Polqt/cauchy/pool"
	"github.com/Polqt/cauchy/types"
	"github.com/Polqt/cauchy/vclock"
)

// orsetEntry is one (payload, tag) contribution to an OR-Set. Two
// entries with the same tag are always identical, since a tag is
// minted exactly once by Add.
type orsetEntry struct {
	hash    uint64
	size    int
	payload []byte
	block   *pool.Block
	tag     types.UID
	removed bool
	next    *orsetEntry
}

// ORSet is an observed-remove set: Add always mints a fresh tag, so a
// concurrent Add and Remove of the same payload converge to "present"
// (add-wins), because the new tag was never observed by the remove.
type ORSet struct {
	buckets   []*orsetEntry
	active    int
	node      types.NodeID
	timestamp types.Timestamp // per-set tag counter, not shared with a Context
	pool      *pool.Pool
}

// NewORSet creates an empty OR-Set whose tags are minted from node.
func NewORSet(node types.NodeID) *ORSet {
	return &ORSet{buckets: make([]*orsetEntry, defaultBuckets), node: node}
}

// NewORSetWithPool creates an OR-Set that borrows payload buffers from
// p for both Add and Merge, returning a tombstone's buffer to p once
// GcBelow reclaims it.
func NewORSetWithPool(node types.NodeID, p *pool.Pool) *ORSet {
	return &ORSet{buckets: make([]*orsetEntry, defaultBuckets), node: node, pool: p}
}

func (s *ORSet) bucketIndex(hash uint64) int {
	return int(hash % uint64(len(s.buckets)))
}

// Add unconditionally creates a fresh entry with a new tag and links
// it into its bucket; it never reuses an existing entry's tag, which
// is exactly what gives concurrent add/remove its add-wins semantics.
func (s *ORSet) Add(payload []byte) types.Result {
	s.timestamp++
	hash := fnv1a64(payload)
	e := &orsetEntry{hash: hash, size: len(payload), tag: types.NewUID(s.node, s.timestamp)}
	if s.pool != nil && len(payload) <= int(s.pool.BlockSize()) {
		b := s.pool.Alloc()
		copy(b.Data(), payload)
		e.payload = b.Data()
		e.block = b
	} else {
		e.payload = append([]byte(nil), payload...)
	}
	idx := s.bucketIndex(hash)
	e.next = s.buckets[idx]
	s.buckets[idx] = e
	s.active++
	return types.OK
}

// Remove tombstones every currently visible (non-removed) entry for
// payload. Tags the caller has not observed (because a concurrent
// replica added them after this remove was issued and before merge)
// are untouched, since Remove only ever walks entries already present
// in this instance.
func (s *ORSet) Remove(payload []byte) types.Result {
	hash := fnv1a64(payload)
	found := false
	for e := s.buckets[s.bucketIndex(hash)]; e != nil; e = e.next {
		if e.hash == hash && !e.removed && e.size == len(payload) && string(e.payload[:e.size]) == string(payload) {
			e.removed = true
			s.active--
			found = true
		}
	}
	if !found {
		return types.ErrNotFound
	}
	return types.OK
}

// Contains reports whether any non-removed entry holds payload.
func (s *ORSet) Contains(payload []byte) bool {
	hash := fnv1a64(payload)
	for e := s.buckets[s.bucketIndex(hash)]; e != nil; e = e.next {
		if e.hash == hash && !e.removed && e.size == len(payload) && string(e.payload[:e.size]) == string(payload) {
			return true
		}
	}
	return false
}

// Count returns the number of distinct payloads with at least one
// live (non-removed) entry.
func (s *ORSet) Count() int {
	seen := make(map[string]bool, s.active)
	n := 0
	s.Iterate(func(payload []byte) bool {
		key := string(payload)
		if !seen[key] {
			seen[key] = true
			n++
		}
		return true
	})
	return n
}

// Iterate calls fn once per live entry's payload, skipping tombstones.
// A payload with multiple surviving tags (concurrent adds) is yielded
// once per surviving tag.
func (s *ORSet) Iterate(fn func(payload []byte) bool) {
	for _, head := range s.buckets {
		for e := head; e != nil; e = e.next {
			if e.removed {
				continue
			}
			if !fn(e.payload[:e.size]) {
				return
			}
		}
	}
}

func (s *ORSet) findTag(hash uint64, tag types.UID) *orsetEntry {
	for e := s.buckets[s.bucketIndex(hash)]; e != nil; e = e.next {
		if e.hash == hash && e.tag.Equals(tag) {
			return e
		}
	}
	return nil
}

// Merge folds src's entries into s by tag identity: an unseen tag is
// cloned in wholesale (preserving its removed flag), a seen tag that
// is removed in src but not yet in s gets marked removed in s too.
// Tags are never un-removed, and unobserved tags (a concurrent Add s
// has not seen yet) are never touched — together these give add-wins
// convergence.
func (s *ORSet) Merge(src *ORSet) {
	for _, head := range src.buckets {
		for e := head; e != nil; e = e.next {
			dst := s.findTag(e.hash, e.tag)
			if dst == nil {
				clone := &orsetEntry{hash: e.hash, size: e.size, tag: e.tag, removed: e.removed}
				if s.pool != nil && e.size <= int(s.pool.BlockSize()) {
					b := s.pool.Alloc()
					copy(b.Data(), e.payload[:e.size])
					clone.payload = b.Data()
					clone.block = b
				} else {
					clone.payload = append([]byte(nil), e.payload[:e.size]...)
				}
				idx := s.bucketIndex(e.hash)
				clone.next = s.buckets[idx]
				s.buckets[idx] = clone
				if !clone.removed {
					s.active++
				}
				continue
			}
			if e.removed && !dst.removed {
				dst.removed = true
				s.active--
			}
		}
	}
}

// GcBelow physically removes every entry whose tag is causally stable
// below floor. Collection refuses to trust a bare caller claim of
// anti-entropy quiescence: the caller must supply an explicit stable
// vector-clock lower bound it has actually merged from every replica.
// Only tombstoned entries with a timestamp covered by floor's
// corresponding node entry are reclaimed; live entries are never
// collected regardless of floor.
func (s *ORSet) GcBelow(floor *vclock.VClock) int {
	if floor == nil {
		return 0
	}
	reclaimed := 0
	for i, head := range s.buckets {
		var prev *orsetEntry
		curr := head
		for curr != nil {
			next := curr.next
			if curr.removed && curr.tag.Timestamp <= floor.Get(curr.tag.Node) {
				if prev != nil {
					prev.next = next
				} else {
					s.buckets[i] = next
				}
				if curr.block != nil && s.pool != nil {
					s.pool.Free(curr.block)
				}
				reclaimed++
			} else {
				prev = curr
			}
			curr = next
		}
	}
	return reclaimed
}

// Equals reports whether s and o hold entries with the same
// (hash, tag, removed) triples.
func (s *ORSet) Equals(o *ORSet) bool {
	if s.active != o.active {
		return false
	}
	match := true
	walk := func(from *ORSet, against *ORSet) {
		for _, head := range from.buckets {
			for e := head; e != nil; e = e.next {
				other := against.findTag(e.hash, e.tag)
				if other == nil || other.removed != e.removed {
					match = false
					return
				}
			}
		}
	}
	walk(s, o)
	if match {
		walk(o, s)
	}
	return match
}

// Clone returns a deep copy of s, sharing s's backing pool (if any).
func (s *ORSet) Clone() *ORSet {
	out := &ORSet{buckets: make([]*orsetEntry, len(s.buckets)), node: s.node, pool: s.pool}
	out.Merge(s)
	out.timestamp = s.timestamp
	return out
}

// Serialize writes a deterministic wire form: u32 entry count, then
// per entry (sorted by tag, which is globally unique) u64 tag-node,
// u64 tag-timestamp, u8 removed flag, u32 payload length, payload
// bytes.
func (s *ORSet) Serialize() []byte {
	entries := s.sortedEntries()
	size := 4
	for _, e := range entries {
		size += 8 + 8 + 1 + 4 + e.size
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	off := 4
	for _, e := range entries {
		binary.LittleEndian.PutUint64(buf[off:off+8], e.tag.Node)
		off += 8
		binary.LittleEndian.PutUint64(buf[off:off+8], e.tag.Timestamp)
		off += 8
		if e.removed {
			buf[off] = 1
		}
		off++
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(e.size))
		off += 4
		copy(buf[off:], e.payload[:e.size])
		off += e.size
	}
	return buf
}

func (s *ORSet) sortedEntries() []*orsetEntry {
	out := make([]*orsetEntry, 0, s.active)
	for _, head := range s.buckets {
		for e := head; e != nil; e = e.next {
			out = append(out, e)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].tag.Compare(out[j].tag) > 0; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// DeserializeORSet parses buf into a new OR-Set tagged as owned by
// node (tags already embedded in buf keep their original owner; node
// only seeds this instance's own future Add calls).
func DeserializeORSet(buf []byte, node types.NodeID) (*ORSet, types.Result) {
	if len(buf) < 4 {
		return nil, types.ErrInvalid
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	s := NewORSet(node)
	off := 4
	for i := uint32(0); i < count; i++ {
		if len(buf)-off < 21 {
			return nil, types.ErrInvalid
		}
		tagNode := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		tagTS := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		removed := buf[off] != 0
		off++
		n := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		if uint64(len(buf)-off) < uint64(n) {
			return nil, types.ErrInvalid
		}
		payload := append([]byte(nil), buf[off:off+int(n)]...)
		off += int(n)

		hash := fnv1a64(payload)
		e := &orsetEntry{hash: hash, size: len(payload), payload: payload, tag: types.NewUID(tagNode, tagTS), removed: removed}
		idx := s.bucketIndex(hash)
		e.next = s.buckets[idx]
		s.buckets[idx] = e
		if !removed {
			s.active++
		}
		if tagTS > s.timestamp {
			s.timestamp = tagTS
		}
	}
	return s, types.OK
}
