// Package types holds the fixed-width value types shared across the
// cauchy module: node identifiers, timestamps, element UIDs, the
// tagged result-code error model and the CRDT kind enum.
package types

import "fmt"

// NodeID identifies a node uniquely across a cluster.
type NodeID = uint64

// Timestamp is a logical clock value used for ordering.
type Timestamp = uint64

// MaxNodes bounds the active cluster members a single VClock or
// GCounter instance will track.
const MaxNodes = 64

// Result is the tagged-variant outcome of a fallible operation. Every
// code is a cheap, heap-free value, and callers that want to treat it
// as an error can rely on Result implementing the error interface.
type Result int

const (
	OK            Result = 0
	ErrNoMem      Result = -1
	ErrInvalid    Result = -2
	ErrNotFound   Result = -3
	ErrExists     Result = -4
	ErrFull       Result = -5
	ErrEmpty      Result = -6
	ErrTimeout    Result = -7
	ErrConcurrent Result = -8
	ErrCausal     Result = -9
	ErrNetwork    Result = -10
	ErrInternal   Result = -11
)

func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case ErrNoMem:
		return "out of memory"
	case ErrInvalid:
		return "invalid argument"
	case ErrNotFound:
		return "not found"
	case ErrExists:
		return "already exists"
	case ErrFull:
		return "full"
	case ErrEmpty:
		return "empty"
	case ErrTimeout:
		return "timeout"
	case ErrConcurrent:
		return "concurrent modification"
	case ErrCausal:
		return "causal dependency not satisfied"
	case ErrNetwork:
		return "network error"
	case ErrInternal:
		return "internal error"
	default:
		return fmt.Sprintf("unknown result (%d)", int(r))
	}
}

// Error implements the error interface so a Result can be returned
// anywhere Go code expects one, without forcing every hot-path
// operation to allocate a wrapped error value when it isn't needed.
func (r Result) Error() string { return r.String() }

// Ok reports whether r represents success.
func (r Result) Ok() bool { return r == OK }

// Causality describes the relationship between two causally-ordered
// events (typically two vector clock or G-Counter states).
type Causality int

const (
	HappensBefore Causality = -1
	Concurrent    Causality = 0
	HappensAfter  Causality = 1
	Equal         Causality = 2
)

func (c Causality) String() string {
	switch c {
	case HappensBefore:
		return "happens-before"
	case Concurrent:
		return "concurrent"
	case HappensAfter:
		return "happens-after"
	case Equal:
		return "equal"
	default:
		return "invalid"
	}
}

// CRDTType tags a serialized payload with the concrete CRDT it came
// from, so a caller-owned transport can dispatch deserialization
// without out-of-band knowledge of the schema.
type CRDTType int

const (
	GCounterType CRDTType = iota
	PNCounterType
	LWWRegisterType
	GSetType
	TwoPSetType
	ORSetType
	LWWMapType
	RGAType
	crdtTypeCount
)

func (t CRDTType) String() string {
	switch t {
	case GCounterType:
		return "g-counter"
	case PNCounterType:
		return "pn-counter"
	case LWWRegisterType:
		return "lww-register"
	case GSetType:
		return "g-set"
	case TwoPSetType:
		return "2p-set"
	case ORSetType:
		return "or-set"
	case LWWMapType:
		return "lww-map"
	case RGAType:
		return "rga"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the known CRDT kinds.
func (t CRDTType) Valid() bool { return t >= GCounterType && t < crdtTypeCount }

// UID uniquely names an element contributed by a node, ordered first
// by Timestamp and then by NodeID so that concurrent contributions
// from distinct nodes still total-order deterministically everywhere.
type UID struct {
	Node      NodeID
	Timestamp Timestamp
}

// NewUID builds a UID from a node identifier and a logical timestamp.
func NewUID(node NodeID, ts Timestamp) UID {
	return UID{Node: node, Timestamp: ts}
}

// Compare returns -1, 0 or 1 as u sorts before, equal to, or after o.
func (u UID) Compare(o UID) int {
	if u.Timestamp != o.Timestamp {
		if u.Timestamp < o.Timestamp {
			return -1
		}
		return 1
	}
	if u.Node != o.Node {
		if u.Node < o.Node {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether u sorts strictly before o.
func (u UID) Less(o UID) bool { return u.Compare(o) < 0 }

// Equals reports whether u and o name the same element.
func (u UID) Equals(o UID) bool { return u.Node == o.Node && u.Timestamp == o.Timestamp }

func (u UID) String() string { return fmt.Sprintf("%d@%d", u.Timestamp, u.Node) }
