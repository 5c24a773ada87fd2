// Package platform centralizes the small set of build-target facts the
// rest of cauchy needs: cache line size, native word size and whether
// the target has a native double-width CAS. The per-GOARCH values live
// in build-tagged sibling files.
package platform

// WordSize is the native machine word size in bytes. Every target this
// module builds for (amd64, arm64) is 64-bit.
const WordSize = 8
