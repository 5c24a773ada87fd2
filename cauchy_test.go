package cauchy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Polqt/cauchy/pool"
	"github.com/Polqt/cauchy/types"
)

func TestInitShutdownIsIdempotent(t *testing.T) {
	require.False(t, Initialized())
	require.Equal(t, types.OK, Init())
	require.True(t, Initialized())
	require.Equal(t, types.OK, Init())
	require.True(t, Initialized())

	Shutdown()
	require.False(t, Initialized())
	Shutdown()
	require.False(t, Initialized())
}

func TestVersion(t *testing.T) {
	require.Equal(t, "0.1.0", Version())
	major, minor, patch := VersionInfo()
	require.Equal(t, 0, major)
	require.Equal(t, 1, minor)
	require.Equal(t, 0, patch)
}

func TestNewContextGenUIDAndTick(t *testing.T) {
	ctx, err := NewContext(7, pool.Config{BlockSize: 32, InitialBlocks: 4, Alignment: 32})
	require.NoError(t, err)
	defer ctx.Close()

	uid1 := ctx.GenUID()
	require.Equal(t, types.NodeID(7), uid1.Node)
	require.Equal(t, types.Timestamp(1), uid1.Timestamp)

	uid2 := ctx.GenUID()
	require.True(t, uid1.Less(uid2))
	require.Equal(t, uint64(2), ctx.OpCount())

	ctx.Tick()
	require.Equal(t, types.Timestamp(3), ctx.Timestamp())
}

func TestMergeClockBumpsOwnEntryAfterMerge(t *testing.T) {
	ctx, err := NewContext(0, pool.DefaultConfig())
	require.NoError(t, err)
	defer ctx.Close()

	remote := ctx.Clock.Clone()
	remote.Set(1, 5)

	ctx.MergeClock(remote)
	require.Equal(t, uint64(5), ctx.Clock.Get(1))
	require.Equal(t, types.Timestamp(1), ctx.Timestamp())
}

func TestContextCloseIsIdempotentAndNilSafe(t *testing.T) {
	var nilCtx *Context
	nilCtx.Close() // must not panic

	ctx, err := NewContext(1, pool.DefaultConfig())
	require.NoError(t, err)
	ctx.Close()
	require.Nil(t, ctx.Hazard)
	require.Nil(t, ctx.Pool)
	ctx.Close()
}
