package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/pkg/types"
)

// bump is a trivial allocator that never reuses space.
type bump struct {
	next  types.Address
	limit types.Address
	live  map[types.Address]types.Size
}

func newBump() *bump {
	return &bump{next: 0x1000, limit: 0x1000 + 1<<20, live: map[types.Address]types.Size{}}
}

func (b *bump) alloc(n types.Size) (types.Address, error) {
	if b.next+types.Address(n) > b.limit {
		return 0, types.ErrNoFit
	}
	addr := b.next
	b.next += types.Address(n)
	b.live[addr] = n
	return addr, nil
}

func (b *bump) free(addr types.Address, n types.Size) error {
	if b.live[addr] != n {
		return types.ErrNotFound
	}
	delete(b.live, addr)
	return nil
}

func TestChurn_TracksLive(t *testing.T) {
	b := newBump()

	held := Churn(t, ChurnOptions{Ops: 1000, MinSize: 8, MaxSize: 64, MaxLive: 32, Seed: 1}, b.alloc, b.free)

	require.Len(t, b.live, len(held))
	require.LessOrEqual(t, len(held), 32)
	for _, l := range held {
		require.Equal(t, l.Size, b.live[l.Addr])
		require.GreaterOrEqual(t, l.Size, types.Size(8))
		require.LessOrEqual(t, l.Size, types.Size(64))
	}
}

func TestChurn_Deterministic(t *testing.T) {
	run := func() []Live {
		b := newBump()
		return Churn(t, ChurnOptions{Ops: 500, MaxSize: 100, Seed: 42}, b.alloc, b.free)
	}
	require.Equal(t, run(), run())
}
