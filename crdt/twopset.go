package crdt

import (
	"encoding/binary"

	"github.com/Polqt/cauchy/types"
)

// TwoPSet is a two-phase set: a pair of G-Sets (added, removed) where
// an element is present iff added but not removed, and a tombstoned
// element can never be re-added. Go identifiers cannot start with a
// digit, hence TwoPSet for "2P-Set".
type TwoPSet struct {
	added   *GSet
	removed *GSet
}

// NewTwoPSet creates an empty 2P-Set.
func NewTwoPSet() *TwoPSet {
	return &TwoPSet{added: NewGSet(), removed: NewGSet()}
}

// Add inserts payload unless it has already been tombstoned by a prior
// Remove, in which case it is a permanent no-op — the tombstone-wins
// rule that makes "re-adding after removal" an intentional non-goal.
func (s *TwoPSet) Add(payload []byte) types.Result {
	if s.removed.Contains(payload) {
		return types.OK
	}
	return s.added.Add(payload)
}

// Remove tombstones payload. It requires a prior Add: removing
// something never added returns NotFound.
func (s *TwoPSet) Remove(payload []byte) types.Result {
	if !s.added.Contains(payload) {
		return types.ErrNotFound
	}
	return s.removed.Add(payload)
}

// Contains reports whether payload is present: added and not removed.
func (s *TwoPSet) Contains(payload []byte) bool {
	return s.added.Contains(payload) && !s.removed.Contains(payload)
}

// Count returns the number of currently present elements.
func (s *TwoPSet) Count() int {
	n := 0
	s.added.Iterate(func(payload []byte) bool {
		if !s.removed.Contains(payload) {
			n++
		}
		return true
	})
	return n
}

// Iterate calls fn once per present element in unspecified order.
func (s *TwoPSet) Iterate(fn func(payload []byte) bool) {
	s.added.Iterate(func(payload []byte) bool {
		if s.removed.Contains(payload) {
			return true
		}
		return fn(payload)
	})
}

// Merge unions both the added and removed halves with src's, which is
// commutative, associative and idempotent since G-Set union is.
func (s *TwoPSet) Merge(src *TwoPSet) {
	s.added.Merge(src.added)
	s.removed.Merge(src.removed)
}

// Equals reports whether s and o have identical added and removed
// halves.
func (s *TwoPSet) Equals(o *TwoPSet) bool {
	return s.added.Equals(o.added) && s.removed.Equals(o.removed)
}

// Clone returns a deep copy of s.
func (s *TwoPSet) Clone() *TwoPSet {
	return &TwoPSet{added: s.added.Clone(), removed: s.removed.Clone()}
}

// Serialize writes a little-endian u32 length of the added half's
// encoding, that encoding, then the removed half's encoding, which
// runs to the end of the buffer; the prefix is what lets Deserialize
// split the two apart.
func (s *TwoPSet) Serialize() []byte {
	added := s.added.Serialize()
	removed := s.removed.Serialize()
	buf := make([]byte, 4+len(added)+len(removed))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(added)))
	copy(buf[4:], added)
	copy(buf[4+len(added):], removed)
	return buf
}

// DeserializeTwoPSet parses buf into a new TwoPSet.
func DeserializeTwoPSet(buf []byte) (*TwoPSet, types.Result) {
	if len(buf) < 4 {
		return nil, types.ErrInvalid
	}
	addedLen := binary.LittleEndian.Uint32(buf[0:4])
	if uint64(len(buf)-4) < uint64(addedLen) {
		return nil, types.ErrInvalid
	}
	added, res := DeserializeGSet(buf[4 : 4+addedLen])
	if res != types.OK {
		return nil, res
	}
	removed, res := DeserializeGSet(buf[4+addedLen:])
	if res != types.OK {
		return nil, res
	}
	return &TwoPSet{added: added, removed: removed}, types.OK
}
