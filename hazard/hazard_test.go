package hazard

import (
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestProtectStabilizesAgainstConcurrentSwap(t *testing.T) {
	d := NewDomain()
	h := d.Handle()
	defer h.Release()

	a := byte('a')
	b := byte('b')
	var loc atomic.Pointer[byte]
	loc.Store(&a)

	got := h.Protect(0, &loc)
	require.Equal(t, unsafe.Pointer(&a), got)

	loc.Store(&b)
	got2 := h.Protect(0, &loc)
	require.Equal(t, unsafe.Pointer(&b), got2)
}

func TestRetireSkipsHazardousPointer(t *testing.T) {
	d := NewDomain()
	writer := d.Handle()
	reader := d.Handle()
	defer writer.Release()
	defer reader.Release()

	victim := byte('x')
	var loc atomic.Pointer[byte]
	loc.Store(&victim)

	reader.Protect(0, &loc) // reader publishes a hazard on victim

	var reclaimed unsafe.Pointer
	writer.Retire(unsafe.Pointer(&victim), func(ptr, ctx unsafe.Pointer) {
		reclaimed = ptr
	}, nil)

	n := writer.Reclaim()
	require.Equal(t, 0, n)
	require.Nil(t, reclaimed)

	reader.Clear(0)
	n = writer.Reclaim()
	require.Equal(t, 1, n)
	require.Equal(t, unsafe.Pointer(&victim), reclaimed)
}

func TestReclaimThresholdTriggersAutomatically(t *testing.T) {
	d := NewDomain()
	h := d.Handle()
	defer h.Release()

	callbacks := 0
	for i := 0; i < MaxHandles*K*2; i++ {
		v := byte(i)
		h.Retire(unsafe.Pointer(&v), func(ptr, ctx unsafe.Pointer) {
			callbacks++
		}, nil)
	}
	require.Equal(t, MaxHandles*K*2, callbacks)
}

func TestCloseDrainsAllRetiredRegardlessOfHazards(t *testing.T) {
	d := NewDomain()
	writer := d.Handle()
	reader := d.Handle()

	victim := byte('y')
	var loc atomic.Pointer[byte]
	loc.Store(&victim)
	reader.Protect(0, &loc)

	invoked := false
	writer.Retire(unsafe.Pointer(&victim), func(ptr, ctx unsafe.Pointer) {
		invoked = true
	}, nil)

	d.Close()
	require.True(t, invoked)
}

func TestHandleReuseAfterRelease(t *testing.T) {
	d := NewDomain()
	h1 := d.Handle()
	h1.Release()
	h2 := d.Handle()
	require.Same(t, h1.rec, h2.rec)
}
