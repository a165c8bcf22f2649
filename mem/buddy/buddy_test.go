package buddy

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/mem/verify"
	"github.com/joshuapare/memkit/pkg/types"
)

const testBase types.Address = 0x1000

func newTestAllocator(t testing.TB, size types.Size, opts ...Option) *Allocator {
	t.Helper()
	a, err := New(testBase, size, opts...)
	require.NoError(t, err)
	requireInvariants(t, a)
	return a
}

// requireInvariants runs the snapshot checks and the tree checks.
func requireInvariants(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, verify.Buddy(a, a.MinBlockSize()))
	require.NoError(t, a.Check())
}

func Test_NextPowerOfTwo(t *testing.T) {
	tests := []struct {
		in, want uint64
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{70, 128},
		{128, 128},
		{129, 256},
		{1 << 40, 1 << 40},
		{1<<40 + 1, 1 << 41},
		{1 << 63, 1 << 63},
		{1<<63 + 1, 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NextPowerOfTwo(tt.in), "NextPowerOfTwo(%d)", tt.in)
	}
}

func Test_New_Geometry(t *testing.T) {
	a := newTestAllocator(t, 1024)
	require.Equal(t, 10, a.MaxLevel())
	require.Equal(t, types.Size(1024), a.RootSize())
	require.Equal(t, DefaultMinBlockSize, a.MinBlockSize())
	require.Equal(t, []types.Block{{Start: testBase, Size: 1024, Free: true, Level: 0}}, a.Blocks())

	a = newTestAllocator(t, 4096, WithMinBlockSize(64))
	require.Equal(t, 6, a.MaxLevel())
	require.Equal(t, types.Size(4096), a.RootSize())

	// Region not a power-of-two multiple: the root is the largest one that fits.
	a = newTestAllocator(t, 1000)
	require.Equal(t, 9, a.MaxLevel())
	require.Equal(t, types.Size(512), a.RootSize())
	require.Equal(t, types.Size(1000), a.Region().Size)
}

func Test_New_Rejects(t *testing.T) {
	_, err := New(0, 1024)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(testBase, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(testBase, 64, WithMinBlockSize(64))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

// Test_Alloc_RoundsAndSplits allocates 70, 35 and 80 bytes from 1024.
func Test_Alloc_RoundsAndSplits(t *testing.T) {
	a := newTestAllocator(t, 1024)

	p1, err := a.Alloc(70)
	require.NoError(t, err)
	p2, err := a.Alloc(35)
	require.NoError(t, err)
	p3, err := a.Alloc(80)
	require.NoError(t, err)

	require.Equal(t, testBase, p1)
	require.Equal(t, testBase+128, p2)
	require.Equal(t, testBase+256, p3)
	require.Equal(t, types.Size(185), a.Allocated())

	require.Equal(t, []types.Block{
		{Start: testBase, Size: 128, Level: 3, Requested: 70},
		{Start: testBase + 128, Size: 64, Level: 4, Requested: 35},
		{Start: testBase + 192, Size: 64, Free: true, Level: 4},
		{Start: testBase + 256, Size: 128, Level: 3, Requested: 80},
		{Start: testBase + 384, Size: 128, Free: true, Level: 3},
		{Start: testBase + 512, Size: 512, Free: true, Level: 1},
	}, a.Blocks())

	stats := a.Stats()
	require.Equal(t, 5, stats.Splits)
	require.Equal(t, uint64(185), stats.BytesRequested)
	require.Equal(t, uint64(320), stats.BytesReserved)

	u := a.Usage()
	require.Equal(t, types.Size(320), u.AllocatedBytes)
	require.Equal(t, types.Size(185), u.RequestedBytes)
	require.InDelta(t, 135.0/320.0, u.InternalFragmentation, 1e-9)
	requireInvariants(t, a)
}

// Test_Free_CascadingMerge frees everything and expects a single free root.
func Test_Free_CascadingMerge(t *testing.T) {
	a := newTestAllocator(t, 1024)

	p1, err := a.Alloc(70)
	require.NoError(t, err)
	p2, err := a.Alloc(35)
	require.NoError(t, err)
	p3, err := a.Alloc(80)
	require.NoError(t, err)

	require.NoError(t, a.Free(p2, 35))
	requireInvariants(t, a)
	require.NoError(t, a.Free(p1, 70))
	requireInvariants(t, a)

	// [0,256) has merged; [256,512) still holds p3.
	require.Equal(t, types.Block{Start: testBase, Size: 256, Free: true, Level: 2}, a.Blocks()[0])

	require.NoError(t, a.Free(p3, 80))
	requireInvariants(t, a)

	require.Equal(t, []types.Block{{Start: testBase, Size: 1024, Free: true, Level: 0}}, a.Blocks())
	require.Zero(t, a.Allocated())
	require.Equal(t, 5, a.Stats().Merges)
}

func Test_Alloc_InvalidRequestsDoNotMutate(t *testing.T) {
	a := newTestAllocator(t, 1024)
	_, err := a.Alloc(100)
	require.NoError(t, err)
	before := a.Blocks()

	for _, n := range []types.Size{0, 1024, 1025} {
		_, err = a.Alloc(n)
		require.ErrorIs(t, err, ErrInvalidArgument, "Alloc(%d)", n)
	}
	require.Equal(t, before, a.Blocks())
	require.Equal(t, types.Size(100), a.Allocated())
	require.Equal(t, 3, a.Stats().AllocFailures)
}

func Test_Alloc_NoFitDoesNotSplit(t *testing.T) {
	a := newTestAllocator(t, 1024)
	_, err := a.Alloc(600) // takes the whole root
	require.NoError(t, err)

	_, err = a.Alloc(1)
	require.ErrorIs(t, err, ErrNoFit)
	require.Equal(t, 0, a.Stats().Splits)

	b := newTestAllocator(t, 1024)
	_, err = b.Alloc(300)
	require.NoError(t, err)
	_, err = b.Alloc(300)
	require.NoError(t, err)
	before := b.Blocks()
	splits := b.Stats().Splits

	_, err = b.Alloc(300)
	require.ErrorIs(t, err, ErrNoFit)
	require.Equal(t, before, b.Blocks())
	require.Equal(t, splits, b.Stats().Splits)
	requireInvariants(t, b)
}

func Test_Alloc_TruncatedRoot(t *testing.T) {
	a := newTestAllocator(t, 1000)

	_, err := a.Alloc(600)
	require.ErrorIs(t, err, ErrNoFit, "600 rounds to 1024, beyond the 512 root")

	p, err := a.Alloc(500)
	require.NoError(t, err)
	require.Equal(t, testBase, p)
	requireInvariants(t, a)
}

func Test_Alloc_BeyondRootAtTopOfAddressSpace(t *testing.T) {
	a := newTestAllocator(t, 1<<63+10)
	require.Equal(t, types.Size(1<<63), a.RootSize())
	require.Equal(t, 63, a.MaxLevel())
	before := a.Blocks()

	_, err := a.Alloc(1<<63 + 1)
	require.ErrorIs(t, err, ErrNoFit)
	require.Equal(t, before, a.Blocks())
	require.Zero(t, a.Allocated())
	require.Zero(t, a.Stats().Splits)
	requireInvariants(t, a)

	p, err := a.Alloc(1 << 63)
	require.NoError(t, err)
	require.Equal(t, testBase, p)
	require.Equal(t, types.Size(1<<63), a.Allocated())
	requireInvariants(t, a)
}

func Test_MinBlockSize(t *testing.T) {
	a := newTestAllocator(t, 4096, WithMinBlockSize(64))

	_, err := a.Alloc(10)
	require.ErrorIs(t, err, ErrInvalidArgument, "below minimum block")

	p1, err := a.Alloc(64)
	require.NoError(t, err)
	p2, err := a.Alloc(65)
	require.NoError(t, err)
	p3, err := a.Alloc(200)
	require.NoError(t, err)

	blocks := a.Blocks()
	require.Equal(t, types.Block{Start: p1, Size: 64, Level: 6, Requested: 64}, blocks[0])
	require.Equal(t, p2, testBase+128)
	require.Equal(t, p3, testBase+256)
	requireInvariants(t, a)
}

func Test_Free_Rejections(t *testing.T) {
	a := newTestAllocator(t, 1024)
	p, err := a.Alloc(70)
	require.NoError(t, err)
	before := a.Blocks()

	err = a.Free(p+1, 70)
	require.ErrorIs(t, err, ErrNotFound)

	err = a.Free(p, 128)
	require.ErrorIs(t, err, ErrNotFound, "rounded size is not the request")
	require.Contains(t, err.Error(), "was 70 bytes, not 128")

	err = a.Free(testBase+512, 512)
	require.ErrorIs(t, err, ErrNotFound, "free block")

	require.Equal(t, before, a.Blocks())
	require.Equal(t, types.Size(70), a.Allocated())

	require.NoError(t, a.Free(p, 70))
	require.ErrorIs(t, a.Free(p, 70), ErrNotFound, "double free")
	require.Equal(t, 4, a.Stats().FreeFailures)
}

func Test_ResetAndClose(t *testing.T) {
	a := newTestAllocator(t, 1024)
	_, err := a.Alloc(10)
	require.NoError(t, err)

	require.NoError(t, a.Reset())
	require.Equal(t, []types.Block{{Start: testBase, Size: 1024, Free: true, Level: 0}}, a.Blocks())
	requireInvariants(t, a)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_, err = a.Alloc(10)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, a.Free(testBase, 10), ErrClosed)
	require.ErrorIs(t, a.Reset(), ErrClosed)
	require.Empty(t, a.Blocks())
}

func Test_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := newTestAllocator(t, 256, WithLogger(log))

	p, err := a.Alloc(64)
	require.NoError(t, err)
	require.NoError(t, a.Free(p, 64))

	out := buf.String()
	require.Contains(t, out, "buddy: split")
	require.Contains(t, out, "buddy: alloc")
	require.Contains(t, out, "buddy: merge")
	require.Contains(t, out, "level=2")
}
