package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolAllocFreeRoundTrip(t *testing.T) {
	p, err := New(Config{BlockSize: 64, InitialBlocks: 4, Alignment: 64})
	require.NoError(t, err)

	b := p.Alloc()
	require.NotNil(t, b)
	require.Len(t, b.Data(), 64)
	p.Free(b)

	stats := p.Stats()
	require.Equal(t, uint64(4), stats.Allocated)
	require.Equal(t, uint64(0), stats.InUse)
}

func TestPoolGrowsBeyondInitialBlocks(t *testing.T) {
	p, err := New(Config{BlockSize: 32, InitialBlocks: 1, Alignment: 32})
	require.NoError(t, err)

	a := p.Alloc()
	b := p.Alloc() // exhausts the free list, falls back to a fresh block
	require.NotNil(t, a)
	require.NotNil(t, b)

	stats := p.Stats()
	require.Equal(t, uint64(2), stats.Allocated)
	require.Equal(t, uint64(2), stats.InUse)
}

func TestPoolConservationUnderConcurrency(t *testing.T) {
	p, err := New(Config{BlockSize: 16, InitialBlocks: 64, Alignment: 16})
	require.NoError(t, err)

	const goroutines = 32
	const iterations = 500

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				b := p.Alloc()
				p.Free(b)
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	require.Equal(t, stats.Allocated, stats.Freed+stats.InUse)
	require.Equal(t, uint64(0), stats.InUse)
}

func TestPoolDestroyDrainsFreeList(t *testing.T) {
	p, err := New(Config{BlockSize: 32, InitialBlocks: 8, Alignment: 32})
	require.NoError(t, err)

	held := p.Alloc() // a block in caller hands survives Destroy
	p.Destroy()
	require.NotNil(t, held.Data())

	p.Destroy() // idempotent
	var nilPool *Pool
	nilPool.Destroy() // nil-safe
}

func TestPoolBlockSizeRoundedUpToAlignment(t *testing.T) {
	p, err := New(Config{BlockSize: 10, InitialBlocks: 1, Alignment: 64})
	require.NoError(t, err)
	require.Equal(t, uintptr(64), p.BlockSize())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, uintptr(64), cfg.BlockSize)
	require.Equal(t, uintptr(1024), cfg.InitialBlocks)
	require.Equal(t, uintptr(0), cfg.MaxBlocks)
}
