//go:build !amd64 && !arm64

package platform

// CacheLineSize is the conservative fallback for architectures without
// a specific probe.
const CacheLineSize = 32

// HasDWCAS is false on targets without a known native double-width CAS.
const HasDWCAS = false
