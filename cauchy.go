// Package cauchy is the module root: process-wide Init/Shutdown and
// the per-node Context that owns one vector clock, one block pool and
// one hazard domain. It is the only package that wires pool, hazard
// and vclock together; every package beneath it is usable standalone.
package cauchy

import (
	"fmt"
	"sync/atomic"

	"github.com/Polqt/cauchy/hazard"
	"github.com/Polqt/cauchy/pool"
	"github.com/Polqt/cauchy/types"
	"github.com/Polqt/cauchy/vclock"
)

// VersionMajor, VersionMinor and VersionPatch identify this module's
// release.
const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// Version returns the module version as "major.minor.patch".
func Version() string {
	return fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
}

// VersionInfo returns the version as three integers.
func VersionInfo() (major, minor, patch int) { return VersionMajor, VersionMinor, VersionPatch }

var initialized atomic.Bool

// Init flips the process-wide init flag. There is no real
// initialization to perform: no global state exists beyond the flag
// itself. Idempotent.
func Init() types.Result {
	initialized.Store(true)
	return types.OK
}

// Shutdown flips the init flag back off. Idempotent.
func Shutdown() {
	initialized.Store(false)
}

// Initialized reports whether Init has been called without a matching
// Shutdown.
func Initialized() bool { return initialized.Load() }

// DefaultPoolConfig returns pool.DefaultConfig(), a general-purpose
// configuration a caller can pass to NewContext.
func DefaultPoolConfig() pool.Config { return pool.DefaultConfig() }

// Context owns the three pieces of per-node state several CRDTs build
// on: a vector clock for causal bookkeeping, a block pool for
// allocation-heavy CRDTs (G-Set, OR-Set), and a hazard domain for any
// caller that builds lock-free structures on top of pool-allocated
// nodes.
type Context struct {
	NodeID types.NodeID
	Clock  *vclock.VClock
	Pool   *pool.Pool
	Hazard *hazard.Domain

	opCount atomic.Uint64
}

// NewContext allocates a Context for nodeID, tracking up to
// types.MaxNodes peers in its vector clock and backing its block pool
// with cfg. Pool creation is the only fallible step and runs first, so
// a failure never leaves partially-acquired resources behind.
func NewContext(nodeID types.NodeID, cfg pool.Config) (*Context, error) {
	p, err := pool.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Context{
		NodeID: nodeID,
		Clock:  vclock.New(types.MaxNodes),
		Pool:   p,
		Hazard: hazard.NewDomain(),
	}, nil
}

// Close releases ctx's hazard domain (draining its retired lists) and
// destroys its block pool. Safe to call on a nil Context or to call
// more than once.
func (ctx *Context) Close() {
	if ctx == nil {
		return
	}
	if ctx.Hazard != nil {
		ctx.Hazard.Close()
		ctx.Hazard = nil
	}
	if ctx.Pool != nil {
		ctx.Pool.Destroy()
		ctx.Pool = nil
	}
}

// GenUID increments ctx's own clock entry, bumps the operation
// counter, and returns a UID naming this event — the (node, timestamp)
// pair an OR-Set add or RGA insert can use as an element tag.
func (ctx *Context) GenUID() types.UID {
	ctx.Clock.Increment(ctx.NodeID)
	ctx.opCount.Add(1)
	return types.NewUID(ctx.NodeID, ctx.Clock.Get(ctx.NodeID))
}

// Tick increments ctx's own clock entry without minting a UID, for a
// purely local event that needs causal bookkeeping but no identifier.
func (ctx *Context) Tick() {
	ctx.Clock.Increment(ctx.NodeID)
}

// MergeClock folds remote into ctx's clock, then bumps ctx's own entry
// once more: receiving a message is itself a local event that must be
// causally ordered after everything remote had observed.
func (ctx *Context) MergeClock(remote *vclock.VClock) {
	ctx.Clock.Merge(remote)
	ctx.Clock.Increment(ctx.NodeID)
}

// Timestamp returns ctx's own current clock entry.
func (ctx *Context) Timestamp() types.Timestamp { return ctx.Clock.Get(ctx.NodeID) }

// OpCount returns the number of UIDs ctx has minted via GenUID.
func (ctx *Context) OpCount() uint64 { return ctx.opCount.Load() }
