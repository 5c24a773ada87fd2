// Package crdt implements the eight convergent replicated data types
// this module provides, one file per type. Every type here is
// single-writer: callers must externally synchronize concurrent
// access to one instance, the same contract vclock carries.
// Replication happens by shipping a serialized state and folding it in
// through Merge, which is commutative, associative and idempotent for
// every type.
package crdt

import (
	"encoding/binary"

	"github.com/Polqt/cauchy/types"
)

// GCounter is a grow-only counter: one monotonic count per
// contributing node, with Value as their sum.
type GCounter struct {
	counts   [types.MaxNodes]uint64
	numNodes uint32
}

// NewGCounter creates a zeroed counter tracking numNodes entries
// (clamped to types.MaxNodes).
func NewGCounter(numNodes uint32) *GCounter {
	if numNodes > types.MaxNodes {
		numNodes = types.MaxNodes
	}
	return &GCounter{numNodes: numNodes}
}

// Increment bumps node's entry by one. Out-of-range node ids are a
// silent no-op.
func (g *GCounter) Increment(node types.NodeID) {
	if node >= uint64(g.numNodes) {
		return
	}
	g.counts[node]++
}

// Add bumps node's entry by delta. Out-of-range node ids are a silent
// no-op.
func (g *GCounter) Add(node types.NodeID, delta uint64) {
	if node >= uint64(g.numNodes) {
		return
	}
	g.counts[node] += delta
}

// Value returns the sum of every node's contribution.
func (g *GCounter) Value() uint64 {
	var sum uint64
	for i := uint32(0); i < g.numNodes; i++ {
		sum += g.counts[i]
	}
	return sum
}

// Get returns a single node's contribution, or 0 if out of range.
func (g *GCounter) Get(node types.NodeID) uint64 {
	if node >= uint64(g.numNodes) {
		return 0
	}
	return g.counts[node]
}

// Merge folds src into g by taking the element-wise maximum of every
// entry, growing g's node count if src tracks more nodes. This is
// idempotent, commutative and associative, the convergence property
// every G-Counter-derived type in this package leans on.
func (g *GCounter) Merge(src *GCounter) {
	maxNodes := g.numNodes
	if src.numNodes > maxNodes {
		maxNodes = src.numNodes
	}
	for i := uint32(0); i < maxNodes; i++ {
		if i < src.numNodes && src.counts[i] > g.counts[i] {
			g.counts[i] = src.counts[i]
		}
	}
	if src.numNodes > g.numNodes {
		g.numNodes = src.numNodes
	}
}

// Equals reports whether g and o hold identical active entries.
func (g *GCounter) Equals(o *GCounter) bool {
	if g.numNodes != o.numNodes {
		return false
	}
	for i := uint32(0); i < g.numNodes; i++ {
		if g.counts[i] != o.counts[i] {
			return false
		}
	}
	return true
}

// Compare returns the causal relationship between g and o by treating
// their entry vectors as a vector clock: HappensBefore/After if one
// dominates the other entrywise, Equal if identical, Concurrent
// otherwise.
func (g *GCounter) Compare(o *GCounter) types.Causality {
	aLess, aGreater := false, false
	maxNodes := g.numNodes
	if o.numNodes > maxNodes {
		maxNodes = o.numNodes
	}
	for i := uint32(0); i < maxNodes; i++ {
		var av, bv uint64
		if i < g.numNodes {
			av = g.counts[i]
		}
		if i < o.numNodes {
			bv = o.counts[i]
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

// Clone returns a deep copy of g.
func (g *GCounter) Clone() *GCounter {
	out := &GCounter{numNodes: g.numNodes}
	out.counts = g.counts
	return out
}

// NumNodes returns the active node count.
func (g *GCounter) NumNodes() uint32 { return g.numNodes }

// SerializedSize returns the exact byte length Serialize will produce.
func (g *GCounter) SerializedSize() int { return 4 + int(g.numNodes)*8 }

// Serialize writes g's wire form: a little-endian u32 node count
// followed by that many little-endian u64 counts.
func (g *GCounter) Serialize() []byte {
	buf := make([]byte, g.SerializedSize())
	binary.LittleEndian.PutUint32(buf[0:4], g.numNodes)
	for i := uint32(0); i < g.numNodes; i++ {
		binary.LittleEndian.PutUint64(buf[4+i*8:4+i*8+8], g.counts[i])
	}
	return buf
}

// DeserializeGCounter parses buf into a new GCounter, rejecting a node
// count above types.MaxNodes or a buffer shorter than the declared
// payload.
func DeserializeGCounter(buf []byte) (*GCounter, types.Result) {
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
	g := NewGCounter(numNodes)
	for i := uint32(0); i < numNodes; i++ {
		g.counts[i] = binary.LittleEndian.Uint64(buf[4+i*8 : 4+i*8+8])
	}
	return g, types.OK
}
