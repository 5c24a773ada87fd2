//go:build arm64

package platform

// CacheLineSize is the L1 data cache line size on arm64.
const CacheLineSize = 64

// HasDWCAS reports whether the target has a native double-width CAS
// sequence (LDAXP/STLXP on arm64). See the amd64 file for why the Go
// TaggedPointer implementation does not depend on this.
const HasDWCAS = true
