// Package pool implements the lock-free, cache-aligned fixed-block
// allocator the rest of cauchy builds on: a Treiber stack of free
// blocks with a pre-allocated initial slab and fallback heap growth.
package pool

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/Polqt/cauchy/internal/atomicx"
	"github.com/Polqt/cauchy/internal/platform"
)

// Config sizes a Pool. There is deliberately no functional-options
// wrapper: a plain struct literal is passed by the caller, and this
// library has no environment variables or config files to layer on
// top of it.
type Config struct {
	BlockSize     uintptr
	InitialBlocks uintptr
	MaxBlocks     uintptr // 0 = unlimited (advisory only, see Pool docs)
	Alignment     uintptr
}

// DefaultConfig returns a general-purpose configuration: one cache
// line per block, a 1024-block initial slab, unbounded growth.
func DefaultConfig() Config {
	return Config{
		BlockSize:     64,
		InitialBlocks: 1024,
		MaxBlocks:     0,
		Alignment:     uintptr(platform.CacheLineSize),
	}
}

// Stats is a point-in-time snapshot of pool usage counters. Allocated
// counts every block the pool has created (initial slab plus overflow
// growth), Freed counts the blocks currently sitting on the free list,
// and InUse is their difference: the blocks held by callers.
type Stats struct {
	Allocated   uint64
	Freed       uint64
	InUse       uint64
	PeakUse     uint64
	TotalAllocs uint64
	Contention  uint64
}

// Block is a free-list node returned by Alloc and accepted back by
// Free. It is exported so callers (crdt bucket/node allocation) can
// hold a handle to a pooled buffer without reaching for unsafe.Pointer.
type Block struct {
	next *Block
	buf  []byte
}

// Data returns the block's usable payload.
func (b *Block) Data() []byte { return b.buf }

// Pool is a lock-free fixed-block allocator. Alloc/Free are safe for
// concurrent use from any number of goroutines; Pool itself carries no
// mutex. Unlike vclock/crdt, whose callers must externally
// synchronize, pool is one of the two packages — with hazard — that
// is internally thread-safe, since callers hand blocks across
// goroutine boundaries without coordination.
type Pool struct {
	free atomicx.TaggedPointer[Block]
	_    cpu.CacheLinePad // free is CASed by every allocator/freer; keep it off the stat counters' line

	blockSize uintptr
	alignment uintptr
	maxBlocks uintptr

	allocated   atomic.Uint64
	freed       atomic.Uint64
	peakUse     atomic.Uint64
	totalAllocs atomic.Uint64
	contention  atomic.Uint64
}

// New creates a pool per cfg, pre-allocating cfg.InitialBlocks blocks
// threaded onto the free list.
func New(cfg Config) (*Pool, error) {
	alignment := cfg.Alignment
	if alignment == 0 {
		alignment = uintptr(platform.CacheLineSize)
	}
	blockSize := roundUp(cfg.BlockSize, alignment)
	if blockSize < unsafeMinBlock {
		blockSize = unsafeMinBlock
	}

	p := &Pool{
		blockSize: blockSize,
		alignment: alignment,
		maxBlocks: cfg.MaxBlocks,
	}

	for i := uintptr(0); i < cfg.InitialBlocks; i++ {
		b := &Block{buf: make([]byte, blockSize)}
		p.pushFree(b)
		p.allocated.Add(1)
	}
	return p, nil
}

const unsafeMinBlock = 8

// roundUp rounds size up to the next multiple of align.
func roundUp(size, align uintptr) uintptr {
	if align == 0 {
		return size
	}
	rem := size % align
	if rem == 0 {
		return size
	}
	return size + (align - rem)
}

func (p *Pool) pushFree(b *Block) {
	for {
		head, tag := p.free.Load()
		b.next = head
		if p.free.CompareAndSwap(head, tag, b) {
			p.freed.Add(1)
			return
		}
		p.contention.Add(1)
	}
}

func (p *Pool) popFree() *Block {
	for {
		head, tag := p.free.Load()
		if head == nil {
			return nil
		}
		if p.free.CompareAndSwap(head, tag, head.next) {
			p.freed.Add(^uint64(0))
			return head
		}
		p.contention.Add(1)
	}
}

// Alloc returns a block from the free list, falling back to a fresh
// heap-allocated block on free-list exhaustion. The MaxBlocks cap is
// advisory only; overflow growth is counted in Allocated but never
// refused.
func (p *Pool) Alloc() *Block {
	p.totalAllocs.Add(1)
	b := p.popFree()
	if b == nil {
		b = &Block{buf: make([]byte, p.blockSize)}
		p.allocated.Add(1)
	}
	p.bumpInUse()
	return b
}

// Free returns a block to the pool.
func (p *Pool) Free(b *Block) {
	if b == nil {
		return
	}
	p.pushFree(b)
	p.bumpInUse()
}

func (p *Pool) bumpInUse() {
	inUse := p.allocated.Load() - p.freed.Load()
	for {
		peak := p.peakUse.Load()
		if inUse <= peak {
			return
		}
		if p.peakUse.CompareAndSwap(peak, inUse) {
			return
		}
	}
}

// Destroy drains the free list, unlinking every pooled block so the
// collector can reclaim them. Blocks still held by callers remain
// valid; the pool itself must not be used for further Alloc calls
// after Destroy. Safe on nil and to call more than once.
func (p *Pool) Destroy() {
	if p == nil {
		return
	}
	for {
		b := p.popFree()
		if b == nil {
			return
		}
		b.next = nil
		b.buf = nil
	}
}

// Stats returns a point-in-time snapshot of pool usage counters.
func (p *Pool) Stats() Stats {
	allocated := p.allocated.Load()
	freed := p.freed.Load()
	return Stats{
		Allocated:   allocated,
		Freed:       freed,
		InUse:       allocated - freed,
		PeakUse:     p.peakUse.Load(),
		TotalAllocs: p.totalAllocs.Load(),
		Contention:  p.contention.Load(),
	}
}

// BlockSize returns the (alignment-rounded) block size blocks carry.
func (p *Pool) BlockSize() uintptr { return p.blockSize }
