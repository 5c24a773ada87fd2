package crdt

import (
	"bytes"
	"encoding/binary"

	"github.com/Polqt/cauchy/types"
)

// MaxLWWValueSize is the largest value an LWWRegister will hold.
const MaxLWWValueSize = 256

// LWWRegister is a last-writer-wins register: Set only takes effect
// if its (timestamp, node) pair outranks the register's current
// writer, with node id breaking timestamp ties so every replica
// resolves concurrent writes to the same winner.
type LWWRegister struct {
	value     []byte
	timestamp types.Timestamp
	node      types.NodeID
}

// NewLWWRegister creates an empty register.
func NewLWWRegister() *LWWRegister {
	return &LWWRegister{}
}

// Set writes value if (timestamp, node) outranks the register's
// current writer (timestamp strictly greater, or equal timestamp with
// a strictly greater node id); otherwise it is a silent no-op. ErrFull
// is returned if value exceeds MaxLWWValueSize.
func (r *LWWRegister) Set(value []byte, timestamp types.Timestamp, node types.NodeID) types.Result {
	if len(value) > MaxLWWValueSize {
		return types.ErrFull
	}
	if timestamp > r.timestamp || (timestamp == r.timestamp && node > r.node) {
		r.value = append([]byte(nil), value...)
		r.timestamp = timestamp
		r.node = node
	}
	return types.OK
}

// Get returns the current value, or (nil, false) if the register holds
// no value: it has never been set, or its winning write stored a
// zero-length value (as an LWWMap tombstone does).
func (r *LWWRegister) Get() ([]byte, bool) {
	if len(r.value) == 0 {
		return nil, false
	}
	return r.value, true
}

// Timestamp returns the current writer's timestamp.
func (r *LWWRegister) Timestamp() types.Timestamp { return r.timestamp }

// NodeID returns the current writer's node id.
func (r *LWWRegister) NodeID() types.NodeID { return r.node }

// HasValue reports whether the register currently holds a non-empty
// value.
func (r *LWWRegister) HasValue() bool { return len(r.value) > 0 }

// Merge applies src's (value, timestamp, node) as a Set if it
// outranks r's current writer, and otherwise leaves r untouched, so
// the same accept rule governs local writes and replication.
func (r *LWWRegister) Merge(src *LWWRegister) {
	if src.timestamp > r.timestamp || (src.timestamp == r.timestamp && src.node > r.node) {
		r.value = append([]byte(nil), src.value...)
		r.timestamp = src.timestamp
		r.node = src.node
	}
}

// Equals reports whether r and o hold the same writer and value.
func (r *LWWRegister) Equals(o *LWWRegister) bool {
	return r.timestamp == o.timestamp && r.node == o.node && bytes.Equal(r.value, o.value)
}

// Clone returns a deep copy of r.
func (r *LWWRegister) Clone() *LWWRegister {
	return &LWWRegister{
		value:     append([]byte(nil), r.value...),
		timestamp: r.timestamp,
		node:      r.node,
	}
}

// SerializedSize returns the exact byte length Serialize will produce.
func (r *LWWRegister) SerializedSize() int { return 8 + 8 + 8 + len(r.value) }

// Serialize writes r's wire form: little-endian u64 timestamp, u64
// node id, u64 value length, then the value bytes.
func (r *LWWRegister) Serialize() []byte {
	buf := make([]byte, r.SerializedSize())
	binary.LittleEndian.PutUint64(buf[0:8], r.timestamp)
	binary.LittleEndian.PutUint64(buf[8:16], r.node)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(r.value)))
	copy(buf[24:], r.value)
	return buf
}

// DeserializeLWWRegister parses buf into a new LWWRegister.
func DeserializeLWWRegister(buf []byte) (*LWWRegister, types.Result) {
	if len(buf) < 24 {
		return nil, types.ErrInvalid
	}
	timestamp := binary.LittleEndian.Uint64(buf[0:8])
	node := binary.LittleEndian.Uint64(buf[8:16])
	size := binary.LittleEndian.Uint64(buf[16:24])
	if size > MaxLWWValueSize {
		return nil, types.ErrInvalid
	}
	if uint64(len(buf)-24) < size {
		return nil, types.ErrInvalid
	}
	value := append([]byte(nil), buf[24:24+size]...)
	return &LWWRegister{value: value, timestamp: timestamp, node: node}, types.OK
}

// SetUint64 is a convenience wrapper that encodes value as 8
// little-endian bytes before calling Set.
func (r *LWWRegister) SetUint64(value uint64, ts types.Timestamp, node types.NodeID) types.Result {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	return r.Set(buf, ts, node)
}

// GetUint64 decodes the current value as a little-endian uint64,
// returning 0 if unset or not exactly 8 bytes.
func (r *LWWRegister) GetUint64() uint64 {
	v, ok := r.Get()
	if !ok || len(v) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

// SetString is a convenience wrapper storing value as its raw bytes.
func (r *LWWRegister) SetString(value string, ts types.Timestamp, node types.NodeID) types.Result {
	return r.Set([]byte(value), ts, node)
}

// GetString decodes the current value as a string, returning "" if
// unset.
func (r *LWWRegister) GetString() string {
	v, ok := r.Get()
	if !ok {
		return ""
	}
	return string(v)
}
