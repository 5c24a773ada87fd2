package crdt

import "github.com/Polqt/cauchy/types"

// PNCounter supports both increment and decrement while remaining
// convergent, by pairing two G-Counters (positive and negative
// contributions) and reporting their signed difference.
type PNCounter struct {
	positive *GCounter
	negative *GCounter
}

// NewPNCounter creates a zeroed PN-Counter tracking numNodes entries.
func NewPNCounter(numNodes uint32) *PNCounter {
	return &PNCounter{
		positive: NewGCounter(numNodes),
		negative: NewGCounter(numNodes),
	}
}

// Increment bumps node's positive contribution by one.
func (pn *PNCounter) Increment(node types.NodeID) { pn.positive.Increment(node) }

// Decrement bumps node's negative contribution by one.
func (pn *PNCounter) Decrement(node types.NodeID) { pn.negative.Increment(node) }

// Add routes delta to the positive or negative half by sign.
func (pn *PNCounter) Add(node types.NodeID, delta int64) {
	if delta >= 0 {
		pn.positive.Add(node, uint64(delta))
	} else {
		pn.negative.Add(node, uint64(-delta))
	}
}

// Value returns positive total minus negative total.
func (pn *PNCounter) Value() int64 {
	return int64(pn.positive.Value()) - int64(pn.negative.Value())
}

// Positive returns the positive half's total.
func (pn *PNCounter) Positive() uint64 { return pn.positive.Value() }

// Negative returns the negative half's total.
func (pn *PNCounter) Negative() uint64 { return pn.negative.Value() }

// Merge folds src into pn by merging each half independently.
func (pn *PNCounter) Merge(src *PNCounter) {
	pn.positive.Merge(src.positive)
	pn.negative.Merge(src.negative)
}

// Equals reports whether both halves are identical.
func (pn *PNCounter) Equals(o *PNCounter) bool {
	return pn.positive.Equals(o.positive) && pn.negative.Equals(o.negative)
}

// Clone returns a deep copy of pn.
func (pn *PNCounter) Clone() *PNCounter {
	return &PNCounter{positive: pn.positive.Clone(), negative: pn.negative.Clone()}
}

// SerializedSize returns the exact byte length Serialize will produce.
func (pn *PNCounter) SerializedSize() int {
	return pn.positive.SerializedSize() + pn.negative.SerializedSize()
}

// Serialize writes pn's wire form: the positive half's G-Counter
// encoding immediately followed by the negative half's.
func (pn *PNCounter) Serialize() []byte {
	buf := make([]byte, pn.SerializedSize())
	copy(buf, pn.positive.Serialize())
	copy(buf[pn.positive.SerializedSize():], pn.negative.Serialize())
	return buf
}

// DeserializePNCounter parses buf into a new PNCounter.
func DeserializePNCounter(buf []byte) (*PNCounter, types.Result) {
	positive, res := DeserializeGCounter(buf)
	if res != types.OK {
		return nil, res
	}
	negative, res := DeserializeGCounter(buf[positive.SerializedSize():])
	if res != types.OK {
		return nil, res
	}
	return &PNCounter{positive: positive, negative: negative}, types.OK
}
