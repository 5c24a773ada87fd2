//go:build amd64

package platform

// CacheLineSize is the L1 data cache line size on x86_64.
const CacheLineSize = 64

// HasDWCAS reports whether the target has a native double-width CAS
// instruction (CMPXCHG16B on amd64). The Go implementation of
// atomicx.TaggedPointer does not actually need this — it boxes through
// a regular pointer CAS — but the flag is kept as a capability probe
// for callers and tests that want to assert it.
const HasDWCAS = true
