package crdt

import (
	"encoding/binary"

	"github.com/Polqt/cauchy/pool"
	"github.com/Polqt/cauchy/types"
)

const (
	// fnvOffset64 and fnvPrime64 are FNV-1a's defined constants.
	fnvOffset64 = 0xcbf29ce484222325
	fnvPrime64  = 0x100000001b3

	// defaultBuckets is the fixed bucket count every hash-bucketed
	// set in this package starts (and stays) with.
	defaultBuckets = 16
)

// fnv1a64 hashes payload with FNV-1a, the hash every hash-bucketed CRDT
// in this package keys its elements by.
func fnv1a64(payload []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, b := range payload {
		h ^= uint64(b)
		h *= fnvPrime64
	}
	return h
}

// gsetElem is one entry in a G-Set's hash-bucket chain. The element's
// payload lives in a buffer borrowed from the set's block pool when it
// fits in one block, falling back to a plain heap slice otherwise —
// the pool exists to avoid a heap allocation per small element on the
// common add/merge path, not to host the chain links themselves (those
// are ordinary Go pointers; a byte-addressed arena buys nothing here
// since the GC already tracks them precisely).
type gsetElem struct {
	hash    uint64
	size    int
	payload []byte
	block   *pool.Block // non-nil when payload aliases a pooled buffer
	next    *gsetElem
}

// GSet is a grow-only set: Add is idempotent and elements are never
// removed. Elements are identified by their byte content (via an
// FNV-1a hash for bucketing plus an exact byte comparison on hash
// collision).
type GSet struct {
	buckets []*gsetElem
	count   int
	pool    *pool.Pool
}

// NewGSet creates an empty G-Set with the default bucket count and no
// backing block pool (every element heap-allocates its payload).
func NewGSet() *GSet {
	return &GSet{buckets: make([]*gsetElem, defaultBuckets)}
}

// NewGSetWithPool creates an empty G-Set that borrows payload buffers
// from p for elements whose size fits within one of p's blocks.
func NewGSetWithPool(p *pool.Pool) *GSet {
	return &GSet{buckets: make([]*gsetElem, defaultBuckets), pool: p}
}

func (s *GSet) bucketIndex(hash uint64) int {
	return int(hash % uint64(len(s.buckets)))
}

func (s *GSet) find(hash uint64, payload []byte) *gsetElem {
	for e := s.buckets[s.bucketIndex(hash)]; e != nil; e = e.next {
		if e.hash == hash && e.size == len(payload) && string(e.payload[:e.size]) == string(payload) {
			return e
		}
	}
	return nil
}

func (s *GSet) newElem(hash uint64, payload []byte) *gsetElem {
	e := &gsetElem{hash: hash, size: len(payload)}
	if s.pool != nil && len(payload) <= int(s.pool.BlockSize()) {
		b := s.pool.Alloc()
		copy(b.Data(), payload)
		e.payload = b.Data()
		e.block = b
	} else {
		e.payload = append([]byte(nil), payload...)
	}
	return e
}

// Add inserts payload if not already present. Re-adding an existing
// element is a no-op, the idempotence the join-semilattice proof
// depends on.
func (s *GSet) Add(payload []byte) types.Result {
	hash := fnv1a64(payload)
	if s.find(hash, payload) != nil {
		return types.OK
	}
	e := s.newElem(hash, payload)
	idx := s.bucketIndex(hash)
	e.next = s.buckets[idx]
	s.buckets[idx] = e
	s.count++
	return types.OK
}

// Contains reports whether payload is a member.
func (s *GSet) Contains(payload []byte) bool {
	return s.find(fnv1a64(payload), payload) != nil
}

// Count returns the number of distinct elements.
func (s *GSet) Count() int { return s.count }

// Iterate calls fn once per element in unspecified order, stopping
// early if fn returns false.
func (s *GSet) Iterate(fn func(payload []byte) bool) {
	for _, head := range s.buckets {
		for e := head; e != nil; e = e.next {
			if !fn(e.payload[:e.size]) {
				return
			}
		}
	}
}

// Subset reports whether every element of s is also in o.
func (s *GSet) Subset(o *GSet) bool {
	subset := true
	s.Iterate(func(payload []byte) bool {
		if !o.Contains(payload) {
			subset = false
			return false
		}
		return true
	})
	return subset
}

// Equals reports whether s and o hold the same elements (mutual
// subset).
func (s *GSet) Equals(o *GSet) bool {
	return s.count == o.count && s.Subset(o) && o.Subset(s)
}

// Merge folds every element of src into s through Add, so the result
// is commutative, associative and idempotent by construction.
func (s *GSet) Merge(src *GSet) {
	src.Iterate(func(payload []byte) bool {
		s.Add(payload)
		return true
	})
}

// Clone returns a deep copy of s, sharing s's block pool (if any).
func (s *GSet) Clone() *GSet {
	out := &GSet{buckets: make([]*gsetElem, len(s.buckets)), pool: s.pool}
	s.Iterate(func(payload []byte) bool {
		out.Add(payload)
		return true
	})
	return out
}

// Serialize writes a deterministic wire form: a little-endian u32
// element count, then for each element (sorted by payload bytes, to
// make the encoding order-independent of bucket layout) a
// little-endian u32 length followed by the raw payload bytes.
func (s *GSet) Serialize() []byte {
	elems := s.sortedPayloads()
	size := 4
	for _, p := range elems {
		size += 4 + len(p)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(elems)))
	off := 4
	for _, p := range elems {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(p)))
		off += 4
		copy(buf[off:], p)
		off += len(p)
	}
	return buf
}

func (s *GSet) sortedPayloads() [][]byte {
	out := make([][]byte, 0, s.count)
	s.Iterate(func(payload []byte) bool {
		out = append(out, append([]byte(nil), payload...))
		return true
	})
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && string(out[j-1]) > string(out[j]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// DeserializeGSet parses buf into a new G-Set with no backing pool.
func DeserializeGSet(buf []byte) (*GSet, types.Result) {
	if len(buf) < 4 {
		return nil, types.ErrInvalid
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	s := NewGSet()
	off := 4
	for i := uint32(0); i < count; i++ {
		if len(buf)-off < 4 {
			return nil, types.ErrInvalid
		}
		n := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		if uint64(len(buf)-off) < uint64(n) {
			return nil, types.ErrInvalid
		}
		s.Add(buf[off : off+int(n)])
		off += int(n)
	}
	return s, types.OK
}
