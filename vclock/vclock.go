// Package vclock implements vector clocks: fixed-width causal
// timestamps used to detect happens-before, happens-after, equal and
// concurrent relationships between events across nodes. A VClock is
// single-writer and must be externally synchronized by its caller
// like every other type in this module outside pool and hazard.
package vclock

import (
	"encoding/binary"

	"github.com/Polqt/cauchy/types"
)

// VClock is a fixed-capacity vector clock: entries[i] is the logical
// clock value last observed for node i. numNodes tracks how many
// leading entries are active, so two clocks of different cluster-size
// history can still compare and merge correctly.
type VClock struct {
	entries  [types.MaxNodes]uint64
	numNodes uint32
}

// New creates a zeroed vector clock tracking numNodes entries (clamped
// to types.MaxNodes).
func New(numNodes uint32) *VClock {
	if numNodes > types.MaxNodes {
		numNodes = types.MaxNodes
	}
	return &VClock{numNodes: numNodes}
}

// Clone returns a deep copy of vc.
func (vc *VClock) Clone() *VClock {
	out := &VClock{numNodes: vc.numNodes}
	out.entries = vc.entries
	return out
}

// Copy overwrites dst in place with src's contents.
func (dst *VClock) Copy(src *VClock) {
	dst.entries = src.entries
	dst.numNodes = src.numNodes
}

// Increment bumps the entry for node by one logical tick (a local
// event). Out-of-range node ids are silently ignored, never faulted.
func (vc *VClock) Increment(node types.NodeID) {
	if node >= uint64(vc.numNodes) {
		return
	}
	vc.entries[node]++
}

// Get returns the logical clock value for node, or 0 if out of range.
func (vc *VClock) Get(node types.NodeID) uint64 {
	if node >= uint64(vc.numNodes) {
		return 0
	}
	return vc.entries[node]
}

// Set assigns the logical clock value for node directly. Out-of-range
// node ids are silently ignored.
func (vc *VClock) Set(node types.NodeID, value uint64) {
	if node >= uint64(vc.numNodes) {
		return
	}
	vc.entries[node] = value
}

// Merge folds src into dst by taking the element-wise maximum of every
// entry, growing dst's active node count if src tracks more nodes.
func (dst *VClock) Merge(src *VClock) {
	maxNodes := dst.numNodes
	if src.numNodes > maxNodes {
		maxNodes = src.numNodes
	}
	for i := uint32(0); i < maxNodes; i++ {
		if i < src.numNodes && src.entries[i] > dst.entries[i] {
			dst.entries[i] = src.entries[i]
		}
	}
	if src.numNodes > dst.numNodes {
		dst.numNodes = src.numNodes
	}
}

// Compare returns the causal relationship of a to b: HappensBefore if
// every entry of a is <= the corresponding entry of b with at least
// one strictly less, HappensAfter symmetrically, Equal if all entries
// match, and Concurrent otherwise.
func Compare(a, b *VClock) types.Causality {
	aLess, aGreater := false, false
	maxNodes := a.numNodes
	if b.numNodes > maxNodes {
		maxNodes = b.numNodes
	}
	for i := uint32(0); i < maxNodes; i++ {
		var av, bv uint64
		if i < a.numNodes {
			av = a.entries[i]
		}
		if i < b.numNodes {
			bv = b.entries[i]
		}
		if av < bv {
			aLess = true
		}
		if av > bv {
			aGreater = true
		}
	}
	switch {
	case !aLess && !aGreater:
		return types.Equal
	case aLess && !aGreater:
		return types.HappensBefore
	case !aLess && aGreater:
		return types.HappensAfter
	default:
		return types.Concurrent
	}
}

// HappensBefore reports whether a causally precedes b.
func HappensBefore(a, b *VClock) bool { return Compare(a, b) == types.HappensBefore }

// Concurrent reports whether a and b are causally concurrent.
func Concurrent(a, b *VClock) bool { return Compare(a, b) == types.Concurrent }

// Equals reports whether a and b hold identical active entries.
func Equals(a, b *VClock) bool {
	if a.numNodes != b.numNodes {
		return false
	}
	for i := uint32(0); i < a.numNodes; i++ {
		if a.entries[i] != b.entries[i] {
			return false
		}
	}
	return true
}

// IsEmpty reports whether every active entry is zero.
func (vc *VClock) IsEmpty() bool {
	for i := uint32(0); i < vc.numNodes; i++ {
		if vc.entries[i] != 0 {
			return false
		}
	}
	return true
}

// Sum returns the sum of all active entries.
func (vc *VClock) Sum() uint64 {
	var sum uint64
	for i := uint32(0); i < vc.numNodes; i++ {
		sum += vc.entries[i]
	}
	return sum
}

// Min writes into dst the element-wise minimum of dst and src.
func (dst *VClock) Min(src *VClock) {
	for i := uint32(0); i < dst.numNodes; i++ {
		var sv uint64
		if i < src.numNodes {
			sv = src.entries[i]
		}
		if sv < dst.entries[i] {
			dst.entries[i] = sv
		}
	}
}

// Prune zeroes every entry in vc that is <= the corresponding entry in
// floor, returning the count of entries zeroed. This is the
// garbage-collection primitive a caller uses once it has established
// floor is a causally-stable lower bound across the cluster.
func (vc *VClock) Prune(floor *VClock) int {
	removed := 0
	for i := uint32(0); i < vc.numNodes; i++ {
		var fv uint64
		if i < floor.numNodes {
			fv = floor.entries[i]
		}
		if vc.entries[i] != 0 && vc.entries[i] <= fv {
			vc.entries[i] = 0
			removed++
		}
	}
	return removed
}

// NumNodes returns the active node count.
func (vc *VClock) NumNodes() uint32 { return vc.numNodes }

// SerializedSize returns the exact byte length Serialize will produce.
func (vc *VClock) SerializedSize() int {
	return 4 + int(vc.numNodes)*8
}

// Serialize writes vc's wire form: a little-endian u32 active-node
// count followed by that many little-endian u64 entries.
func (vc *VClock) Serialize() []byte {
	buf := make([]byte, vc.SerializedSize())
	binary.LittleEndian.PutUint32(buf[0:4], vc.numNodes)
	for i := uint32(0); i < vc.numNodes; i++ {
		binary.LittleEndian.PutUint64(buf[4+i*8:4+i*8+8], vc.entries[i])
	}
	return buf
}

// Deserialize parses buf into vc, rejecting a node count above
// types.MaxNodes or a buffer shorter than the declared payload.
func Deserialize(buf []byte) (*VClock, types.Result) {
	if len(buf) < 4 {
		return nil, types.ErrInvalid
	}
	numNodes := binary.LittleEndian.Uint32(buf[0:4])
	if numNodes > types.MaxNodes {
		return nil, types.ErrInvalid
	}
	need := 4 + int(numNodes)*8
	if len(buf) < need {
		return nil, types.ErrInvalid
	}
	vc := New(numNodes)
	for i := uint32(0); i < numNodes; i++ {
		vc.entries[i] = binary.LittleEndian.Uint64(buf[4+i*8 : 4+i*8+8])
	}
	return vc, types.OK
}
