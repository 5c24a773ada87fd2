package crdt

import (
	"github.com/Polqt/cauchy/types"
)

// Envelope is a byte payload tagged with the CRDT kind it came from,
// so a transport (external to this module) can ship any of the eight
// types over one wire format without out-of-band schema knowledge.
type Envelope struct {
	Type    types.CRDTType
	Payload []byte
}

// Serialize writes e's wire form: a single byte holding Type, followed
// by Payload verbatim.
func (e Envelope) Serialize() []byte {
	buf := make([]byte, 1+len(e.Payload))
	buf[0] = byte(e.Type)
	copy(buf[1:], e.Payload)
	return buf
}

// DeserializeEnvelope parses buf into an Envelope.
func DeserializeEnvelope(buf []byte) (Envelope, types.Result) {
	if len(buf) < 1 {
		return Envelope{}, types.ErrInvalid
	}
	t := types.CRDTType(buf[0])
	if !t.Valid() {
		return Envelope{}, types.ErrInvalid
	}
	return Envelope{Type: t, Payload: append([]byte(nil), buf[1:]...)}, types.OK
}

// EncodeGCounter wraps g's serialized form in a typed Envelope.
func EncodeGCounter(g *GCounter) Envelope { return Envelope{Type: types.GCounterType, Payload: g.Serialize()} }

// EncodePNCounter wraps pn's serialized form in a typed Envelope.
func EncodePNCounter(pn *PNCounter) Envelope {
	return Envelope{Type: types.PNCounterType, Payload: pn.Serialize()}
}

// EncodeLWWRegister wraps r's serialized form in a typed Envelope.
func EncodeLWWRegister(r *LWWRegister) Envelope {
	return Envelope{Type: types.LWWRegisterType, Payload: r.Serialize()}
}

// EncodeGSet wraps s's serialized form in a typed Envelope.
func EncodeGSet(s *GSet) Envelope { return Envelope{Type: types.GSetType, Payload: s.Serialize()} }

// EncodeTwoPSet wraps s's serialized form in a typed Envelope.
func EncodeTwoPSet(s *TwoPSet) Envelope {
	return Envelope{Type: types.TwoPSetType, Payload: s.Serialize()}
}

// EncodeORSet wraps s's serialized form in a typed Envelope.
func EncodeORSet(s *ORSet) Envelope { return Envelope{Type: types.ORSetType, Payload: s.Serialize()} }

// EncodeLWWMap wraps m's serialized form in a typed Envelope.
func EncodeLWWMap(m *LWWMap) Envelope { return Envelope{Type: types.LWWMapType, Payload: m.Serialize()} }

// EncodeRGA wraps r's serialized form in a typed Envelope.
func EncodeRGA(r *RGA) Envelope { return Envelope{Type: types.RGAType, Payload: r.Serialize()} }

// Decode dispatches on e.Type to the matching Deserialize function.
// ORSet and RGA require an owning node id for any future local
// mutation on the decoded value (already-embedded tags/UIDs keep their
// original owner regardless of node); callers that only read a
// decoded OR-Set/RGA may pass 0.
func Decode(e Envelope, node types.NodeID) (any, types.Result) {
	switch e.Type {
	case types.GCounterType:
		return DeserializeGCounter(e.Payload)
	case types.PNCounterType:
		return DeserializePNCounter(e.Payload)
	case types.LWWRegisterType:
		return DeserializeLWWRegister(e.Payload)
	case types.GSetType:
		return DeserializeGSet(e.Payload)
	case types.TwoPSetType:
		return DeserializeTwoPSet(e.Payload)
	case types.ORSetType:
		return DeserializeORSet(e.Payload, node)
	case types.LWWMapType:
		return DeserializeLWWMap(e.Payload)
	case types.RGAType:
		return DeserializeRGA(e.Payload, node)
	default:
		return nil, types.ErrInvalid
	}
}

// SerializedSize returns the exact byte length Serialize will produce.
func (e Envelope) SerializedSize() int { return 1 + len(e.Payload) }
