// Package hazard implements hazard-pointer based safe memory
// reclamation: a domain of per-goroutine records, each publishing up
// to K protected addresses, plus a per-record retired list that is
// reclaimed once a threshold is crossed or on demand.
//
// Go has no thread-local storage to key a goroutine's record off, so
// callers that want a stable per-goroutine record acquire one
// explicitly via Domain.Handle and reuse it for that goroutine's
// lifetime.
package hazard

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// K is the number of hazard slots a single record publishes per
// goroutine.
const K = 4

// MaxHandles sizes the retire threshold. It is not a hard cap on live
// records — the record list simply grows — it only sizes the reclaim
// trigger.
const MaxHandles = 128

// RetireFunc is invoked once a retired pointer is provably no longer
// hazardous.
type RetireFunc func(ptr unsafe.Pointer, ctx unsafe.Pointer)

type retiredNode struct {
	ptr  unsafe.Pointer
	fn   RetireFunc
	ctx  unsafe.Pointer
	next *retiredNode
}

type record struct {
	hazards [K]atomic.Pointer[byte]
	active  atomic.Bool
	next    *record

	retiredList  *retiredNode
	retiredCount int
	_            cpu.CacheLinePad
}

// Domain is a hazard-pointer reclamation domain. All exported methods
// are safe for concurrent use by any number of goroutines.
type Domain struct {
	head        atomic.Pointer[record]
	recordCount atomic.Uint32
}

// NewDomain creates an empty hazard-pointer domain.
func NewDomain() *Domain {
	return &Domain{}
}

// Handle is a goroutine's claim on one hazard record. Acquire one per
// goroutine that will call Protect/Clear/Retire and keep it for that
// goroutine's lifetime; sharing a Handle across goroutines defeats its
// purpose (two goroutines would stomp each other's published hazards).
type Handle struct {
	domain *Domain
	rec    *record
}

// Handle acquires (or allocates) a free record in the domain for the
// calling goroutine. The returned Handle must not be used
// concurrently from more than one goroutine at a time.
func (d *Domain) Handle() *Handle {
	rec := d.head.Load()
	for rec != nil {
		if rec.active.CompareAndSwap(false, true) {
			return &Handle{domain: d, rec: rec}
		}
		rec = rec.next
	}

	rec = &record{}
	rec.active.Store(true)
	for {
		head := d.head.Load()
		rec.next = head
		if d.head.CompareAndSwap(head, rec) {
			break
		}
	}
	d.recordCount.Add(1)
	return &Handle{domain: d, rec: rec}
}

// Release marks the handle's record free for reuse by another
// goroutine. It does not reclaim or drop the handle's retired list —
// that happens via Reclaim or Close.
func (h *Handle) Release() {
	h.rec.active.Store(false)
}

// Protect announces intent to access the address currently stored at
// pptr, publishing it into hazard slot index, and returns the
// stabilized pointer: it keeps re-reading pptr until the published
// value and the live value agree, the canonical hazard-pointer
// protect loop.
func (h *Handle) Protect(index int, pptr *atomic.Pointer[byte]) unsafe.Pointer {
	if index < 0 || index >= K {
		return nil
	}
	for {
		ptr := pptr.Load()
		h.rec.hazards[index].Store(ptr)
		// FenceSeqCst point: the reload below is what establishes
		// correctness under Go's memory model; see internal/atomicx.
		reloaded := pptr.Load()
		if unsafe.Pointer(ptr) == unsafe.Pointer(reloaded) {
			return unsafe.Pointer(ptr)
		}
	}
}

// Clear releases hazard slot index, so the pointer it held is no
// longer protected.
func (h *Handle) Clear(index int) {
	if index < 0 || index >= K {
		return
	}
	h.rec.hazards[index].Store(nil)
}

func (d *Domain) isHazardous(ptr unsafe.Pointer) bool {
	rec := d.head.Load()
	for rec != nil {
		if rec.active.Load() {
			for i := 0; i < K; i++ {
				if unsafe.Pointer(rec.hazards[i].Load()) == ptr {
					return true
				}
			}
		}
		rec = rec.next
	}
	return false
}

// Retire defers fn(ptr, ctx) until no handle's hazard slot protects
// ptr. It appends to the calling handle's own retired list (there is
// no shared retired pool to contend on) and triggers Reclaim once that
// list crosses MaxHandles*K*2 entries.
func (h *Handle) Retire(ptr unsafe.Pointer, fn RetireFunc, ctx unsafe.Pointer) {
	if ptr == nil {
		return
	}
	h.rec.retiredList = &retiredNode{ptr: ptr, fn: fn, ctx: ctx, next: h.rec.retiredList}
	h.rec.retiredCount++
	if h.rec.retiredCount >= MaxHandles*K*2 {
		h.Reclaim()
	}
}

// Reclaim scans the calling handle's retired list and invokes fn for
// every entry no longer protected by any active handle's hazard
// slots, removing it from the list. It returns the number reclaimed.
func (h *Handle) Reclaim() int {
	reclaimed := 0
	var prev *retiredNode
	curr := h.rec.retiredList
	for curr != nil {
		next := curr.next
		if !h.domain.isHazardous(curr.ptr) {
			if curr.fn != nil {
				curr.fn(curr.ptr, curr.ctx)
			}
			if prev != nil {
				prev.next = next
			} else {
				h.rec.retiredList = next
			}
			h.rec.retiredCount--
			reclaimed++
		} else {
			prev = curr
		}
		curr = next
	}
	return reclaimed
}

// Close drains every record's retired list unconditionally, invoking
// every retire callback regardless of hazard status. The caller must
// guarantee no concurrent access once the domain itself is being torn
// down.
func (d *Domain) Close() {
	rec := d.head.Load()
	for rec != nil {
		curr := rec.retiredList
		for curr != nil {
			if curr.fn != nil {
				curr.fn(curr.ptr, curr.ctx)
			}
			curr = curr.next
		}
		rec.retiredList = nil
		rec.retiredCount = 0
		rec = rec.next
	}
}
