package crdt

import (
	"encoding/binary"
	"sort"

	"github.com/Polqt/cauchy/types"
)

// LWWMap maps byte-string keys to LWW-Register values. A Remove
// stores a zero-length-value tombstone register rather than deleting
// the map entry, so a later write with a higher (timestamp, node) can
// still resurrect the key through the same LWW accept rule every
// register in this package uses.
type LWWMap struct {
	entries map[string]*LWWRegister
}

// NewLWWMap creates an empty map.
func NewLWWMap() *LWWMap {
	return &LWWMap{entries: make(map[string]*LWWRegister)}
}

func (m *LWWMap) registerFor(key []byte) *LWWRegister {
	k := string(key)
	r, ok := m.entries[k]
	if !ok {
		r = NewLWWRegister()
		m.entries[k] = r
	}
	return r
}

// Put writes value under key if (ts, node) outranks that key's current
// writer, per LWWRegister.Set's accept rule.
func (m *LWWMap) Put(key, value []byte, ts types.Timestamp, node types.NodeID) types.Result {
	return m.registerFor(key).Set(value, ts, node)
}

// Get returns key's current value and whether it is present (a
// tombstoned or never-written key reports ok=false).
func (m *LWWMap) Get(key []byte) ([]byte, bool) {
	r, ok := m.entries[string(key)]
	if !ok {
		return nil, false
	}
	return r.Get()
}

// Contains reports whether key currently holds a live (non-tombstoned)
// value.
func (m *LWWMap) Contains(key []byte) bool {
	_, ok := m.Get(key)
	return ok
}

// Remove tombstones key by writing a zero-length value at (ts, node),
// subject to the same LWW accept rule as Put — an older remove loses
// to a newer concurrent write, the same tombstone-as-just-another-write
// semantics LWWRegister.Merge already gives every per-key register.
func (m *LWWMap) Remove(key []byte, ts types.Timestamp, node types.NodeID) types.Result {
	return m.registerFor(key).Set(nil, ts, node)
}

// Len returns the number of keys ever written (including tombstoned
// ones), mirroring how the underlying register map is sized.
func (m *LWWMap) Len() int { return len(m.entries) }

// Iterate calls fn once per live (non-tombstoned) key/value pair in
// unspecified order.
func (m *LWWMap) Iterate(fn func(key, value []byte) bool) {
	for k, r := range m.entries {
		v, ok := r.Get()
		if !ok {
			continue
		}
		if !fn([]byte(k), v) {
			return
		}
	}
}

// Merge applies src's per-key register state into m via
// LWWRegister.Merge, key by key; a key absent in m is created fresh.
func (m *LWWMap) Merge(src *LWWMap) {
	for k, r := range src.entries {
		m.registerFor([]byte(k)).Merge(r)
	}
}

// Equals reports whether m and o hold identical registers (tombstones
// included) for the same set of keys.
func (m *LWWMap) Equals(o *LWWMap) bool {
	if len(m.entries) != len(o.entries) {
		return false
	}
	for k, r := range m.entries {
		or, ok := o.entries[k]
		if !ok || !r.Equals(or) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of m.
func (m *LWWMap) Clone() *LWWMap {
	out := &LWWMap{entries: make(map[string]*LWWRegister, len(m.entries))}
	for k, r := range m.entries {
		out.entries[k] = r.Clone()
	}
	return out
}

// Serialize writes a deterministic wire form: u32 entry count, then
// per entry (sorted by key) u32 key length, key bytes, followed by the
// key's register encoding.
func (m *LWWMap) Serialize() []byte {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	size := 4
	for _, k := range keys {
		size += 4 + len(k) + m.entries[k].SerializedSize()
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(keys)))
	off := 4
	for _, k := range keys {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(k)))
		off += 4
		copy(buf[off:], k)
		off += len(k)
		reg := m.entries[k].Serialize()
		copy(buf[off:], reg)
		off += len(reg)
	}
	return buf
}

// DeserializeLWWMap parses buf into a new LWWMap.
func DeserializeLWWMap(buf []byte) (*LWWMap, types.Result) {
	if len(buf) < 4 {
		return nil, types.ErrInvalid
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	m := NewLWWMap()
	off := 4
	for i := uint32(0); i < count; i++ {
		if len(buf)-off < 4 {
			return nil, types.ErrInvalid
		}
		klen := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		if uint64(len(buf)-off) < uint64(klen) {
			return nil, types.ErrInvalid
		}
		key := string(buf[off : off+int(klen)])
		off += int(klen)

		reg, res := DeserializeLWWRegister(buf[off:])
		if res != types.OK {
			return nil, res
		}
		m.entries[key] = reg
		off += reg.SerializedSize()
	}
	return m, types.OK
}
