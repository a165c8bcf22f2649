package buddy

import (
	"log/slog"
	"math/bits"
	"slices"

	"github.com/joshuapare/memkit/pkg/types"
)

// ListAllocator is a buddy allocator that keeps one sorted free list per
// order instead of a tree. Order k holds blocks of minBlock << k bytes.
type ListAllocator struct {
	geometry

	free  [][]types.Address // free[k] sorted ascending
	live  map[types.Address]liveBlock
	total types.Size

	closed bool
	stats  Stats
	log    *slog.Logger
}

type liveBlock struct {
	order     int
	requested types.Size
}

// NewList creates a segregated-list buddy allocator over [base, base+size).
func NewList(base types.Address, size types.Size, opts ...Option) (*ListAllocator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	g, err := newGeometry(base, size, cfg.minBlock)
	if err != nil {
		return nil, err
	}

	l := &ListAllocator{
		geometry: g,
		free:     make([][]types.Address, g.maxLevel+1),
		live:     make(map[types.Address]liveBlock),
		log:      cfg.logger,
	}
	l.free[g.maxLevel] = []types.Address{base}
	l.log.Debug("buddy list: initialized", "base", base, "rootSize", uint64(g.rootSize))
	return l, nil
}

// Alloc reserves a block of the smallest fitting order, preferring the
// lowest address, and returns its start.
func (l *ListAllocator) Alloc(requested types.Size) (types.Address, error) {
	if l.closed {
		return types.NullAddress, ErrClosed
	}
	l.stats.AllocCalls++

	if err := l.checkRequest(requested); err != nil {
		l.stats.AllocFailures++
		return types.NullAddress, err
	}

	need := l.order(l.blockSize(requested))
	k := need
	for k <= l.maxLevel && len(l.free[k]) == 0 {
		k++
	}
	if k > l.maxLevel {
		l.stats.AllocFailures++
		return types.NullAddress, types.Errorf(types.ErrKindNoFit,
			"buddy list: no free block of order %d for a %d-byte request", need, uint64(requested))
	}

	addr := l.free[k][0]
	l.free[k] = l.free[k][1:]
	for ; k > need; k-- {
		upper := addr + types.Address(l.minBlock<<(k-1))
		l.push(k-1, upper)
		l.stats.Splits++
	}

	l.live[addr] = liveBlock{order: need, requested: requested}
	l.total += requested
	l.stats.BytesRequested += uint64(requested)
	l.stats.BytesReserved += uint64(l.minBlock << need)
	l.log.Debug("buddy list: alloc", "addr", addr, "requested", uint64(requested), "order", need)
	return addr, nil
}

// Free releases the allocation at addr and merges it with free buddies.
func (l *ListAllocator) Free(addr types.Address, requested types.Size) error {
	if l.closed {
		return ErrClosed
	}
	l.stats.FreeCalls++

	b, ok := l.live[addr]
	if !ok {
		l.stats.FreeFailures++
		return types.Errorf(types.ErrKindNotFound, "buddy list: no allocation at %s", addr)
	}
	if b.requested != requested {
		l.stats.FreeFailures++
		return types.Errorf(types.ErrKindNotFound,
			"buddy list: allocation at %s was %d bytes, not %d", addr, uint64(b.requested), uint64(requested))
	}
	delete(l.live, addr)
	l.total -= requested

	k := b.order
	for k < l.maxLevel {
		buddy := l.buddyOf(addr, k)
		i, found := slices.BinarySearch(l.free[k], buddy)
		if !found {
			break
		}
		l.free[k] = slices.Delete(l.free[k], i, i+1)
		addr = min(addr, buddy)
		k++
		l.stats.Merges++
	}
	l.push(k, addr)
	l.log.Debug("buddy list: free", "addr", addr, "order", k)
	return nil
}

// Reset discards every allocation.
func (l *ListAllocator) Reset() error {
	if l.closed {
		return ErrClosed
	}
	for k := range l.free {
		l.free[k] = l.free[k][:0]
	}
	l.free[l.maxLevel] = append(l.free[l.maxLevel], l.region.Base)
	clear(l.live)
	l.total = 0
	return nil
}

// Close releases the lists. Every later call except Close fails with
// ErrClosed.
func (l *ListAllocator) Close() error {
	if l.closed {
		return nil
	}
	l.free = nil
	l.live = nil
	l.total = 0
	l.closed = true
	return nil
}

// Region returns the managed address range.
func (l *ListAllocator) Region() types.Region { return l.region }

// Allocated returns the sum of requested sizes of live allocations.
func (l *ListAllocator) Allocated() types.Size { return l.total }

// MinBlockSize returns the smallest block size.
func (l *ListAllocator) MinBlockSize() types.Size { return l.minBlock }

// Stats returns a copy of the allocator counters.
func (l *ListAllocator) Stats() Stats { return l.stats }

// FreeCount returns the number of free blocks of order k.
func (l *ListAllocator) FreeCount(k int) int {
	if k < 0 || k >= len(l.free) {
		return 0
	}
	return len(l.free[k])
}

// Blocks returns every free and allocated block in address order. Level is
// the equivalent tree depth, maxLevel - order.
func (l *ListAllocator) Blocks() []types.Block {
	var out []types.Block
	for k, list := range l.free {
		for _, addr := range list {
			out = append(out, types.Block{
				Start: addr,
				Size:  l.minBlock << k,
				Free:  true,
				Level: l.maxLevel - k,
			})
		}
	}
	for addr, b := range l.live {
		out = append(out, types.Block{
			Start:     addr,
			Size:      l.minBlock << b.order,
			Level:     l.maxLevel - b.order,
			Requested: b.requested,
		})
	}
	slices.SortFunc(out, func(x, y types.Block) int {
		switch {
		case x.Start < y.Start:
			return -1
		case x.Start > y.Start:
			return 1
		}
		return 0
	})
	return out
}

// Usage returns occupancy and fragmentation metrics.
func (l *ListAllocator) Usage() types.Usage {
	return types.Summarize(l.region, l.Blocks())
}

// order returns log2(size / minBlock) for a block size.
func (l *ListAllocator) order(size types.Size) int {
	return bits.Len64(uint64(size/l.minBlock)) - 1
}

// buddyOf returns the buddy of the order-k block at addr. The block index
// within its order differs from its buddy's in the lowest bit only; with a
// power-of-two minimum block this is (addr - base) XOR blockSize.
func (l *ListAllocator) buddyOf(addr types.Address, k int) types.Address {
	size := uint64(l.minBlock << k)
	idx := uint64(addr-l.region.Base) / size
	return l.region.Base + types.Address((idx^1)*size)
}

// push inserts addr into free[k], keeping it sorted.
func (l *ListAllocator) push(k int, addr types.Address) {
	i, _ := slices.BinarySearch(l.free[k], addr)
	l.free[k] = slices.Insert(l.free[k], i, addr)
}

var _ types.Inspector = (*ListAllocator)(nil)
