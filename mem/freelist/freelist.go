package freelist

import (
	"log/slog"

	"github.com/joshuapare/memkit/pkg/types"
)

// Allocator is an explicit free-list allocator. The block list tiles the
// region at all times; see the package documentation.
type Allocator struct {
	region types.Region

	// Block arena. nodes[head] is the lowest-addressed block.
	nodes []node
	spare []int32 // recycled arena slots
	head  int32

	// cursor is the last allocated block, where NextFit resumes from.
	cursor int32

	allocated types.Size
	closed    bool

	stats Stats
	log   *slog.Logger
}

// New creates an allocator managing [base, base+size) as one free block.
func New(base types.Address, size types.Size, opts ...Option) (*Allocator, error) {
	region, err := types.NewRegion(base, size)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Allocator{
		region: region,
		nodes:  make([]node, 0, cfg.nodeHint),
		head:   nilNode,
		cursor: nilNode,
		log:    cfg.logger,
	}
	a.head = a.newNode(base, size, true, nilNode)

	a.log.Debug("freelist: initialized", "base", base, "size", uint64(size))
	return a, nil
}

// Alloc carves size bytes from a free block chosen by strategy and returns
// the block's start address.
func (a *Allocator) Alloc(size types.Size, strategy types.Strategy) (types.Address, error) {
	if a.closed {
		return types.NullAddress, ErrClosed
	}
	a.stats.AllocCalls++

	if size == 0 {
		a.stats.AllocFailures++
		return types.NullAddress, types.Errorf(types.ErrKindInvalidArgument,
			"freelist: zero-size allocation")
	}

	var prev, idx int32
	switch strategy {
	case types.FirstFit:
		prev, idx = a.findFirst(size)
	case types.BestFit:
		prev, idx = a.findBest(size)
	case types.WorstFit:
		prev, idx = a.findWorst(size)
	case types.NextFit:
		prev, idx = a.findNext(size)
	default:
		a.stats.AllocFailures++
		return types.NullAddress, types.Errorf(types.ErrKindInvalidArgument,
			"freelist: unknown strategy %d", int(strategy))
	}

	if idx == nilNode {
		a.stats.AllocFailures++
		a.log.Debug("freelist: no fit", "strategy", strategy.String(), "size", uint64(size))
		return types.NullAddress, types.Errorf(types.ErrKindNoFit,
			"freelist: no free block of %d bytes (%s fit)", uint64(size), strategy)
	}

	addr := a.carve(prev, idx, a.nodes[idx].start, size)
	a.log.Debug("freelist: alloc",
		"strategy", strategy.String(),
		"addr", addr,
		"size", uint64(size),
	)
	return addr, nil
}

// AllocAt allocates exactly [addr, addr+size). The range must lie inside the
// region and inside a single free block.
func (a *Allocator) AllocAt(addr types.Address, size types.Size) (types.Address, error) {
	if a.closed {
		return types.NullAddress, ErrClosed
	}
	a.stats.AllocCalls++

	if size == 0 || addr == types.NullAddress {
		a.stats.AllocFailures++
		return types.NullAddress, types.Errorf(types.ErrKindInvalidArgument,
			"freelist: alloc at %s with size %d", addr, uint64(size))
	}
	if !a.region.Contains(addr, size) {
		a.stats.AllocFailures++
		return types.NullAddress, types.Errorf(types.ErrKindOutOfRange,
			"freelist: range %s+%d outside region %s", addr, uint64(size), a.region)
	}

	end := addr + types.Address(size)
	prev := nilNode
	for idx := a.head; idx != nilNode; prev, idx = idx, a.nodes[idx].next {
		n := &a.nodes[idx]
		if n.start > addr {
			break
		}
		if !n.free || end > n.end() {
			continue
		}
		got := a.carve(prev, idx, addr, size)
		a.log.Debug("freelist: alloc at", "addr", got, "size", uint64(size))
		return got, nil
	}

	a.stats.AllocFailures++
	return types.NullAddress, types.Errorf(types.ErrKindOutOfRange,
		"freelist: no free block contains %s+%d", addr, uint64(size))
}

// Free returns the allocated block [addr, addr+size) and coalesces it with
// any free neighbours. The pair must match an allocated block exactly.
func (a *Allocator) Free(addr types.Address, size types.Size) error {
	if a.closed {
		return ErrClosed
	}
	a.stats.FreeCalls++

	if addr == types.NullAddress || size == 0 {
		a.stats.FreeFailures++
		return types.Errorf(types.ErrKindInvalidArgument,
			"freelist: free of %s with size %d", addr, uint64(size))
	}
	if !a.region.Contains(addr, size) {
		a.stats.FreeFailures++
		return types.Errorf(types.ErrKindOutOfRange,
			"freelist: free of %s+%d outside region %s", addr, uint64(size), a.region)
	}

	prev, idx := a.lookup(addr)
	if idx == nilNode {
		a.stats.FreeFailures++
		return types.Errorf(types.ErrKindNotFound, "freelist: no block starts at %s", addr)
	}
	n := &a.nodes[idx]
	if n.free {
		a.stats.FreeFailures++
		return types.Errorf(types.ErrKindNotFound, "freelist: block at %s is already free", addr)
	}
	if n.size != size {
		a.stats.FreeFailures++
		return types.Errorf(types.ErrKindNotFound,
			"freelist: block at %s holds %d bytes, not %d", addr, uint64(n.size), uint64(size))
	}

	n.free = true
	a.allocated -= size
	a.stats.BytesFreed += uint64(size)
	a.log.Debug("freelist: free", "addr", addr, "size", uint64(size))

	a.coalesce(prev, idx)
	return nil
}

// Reset discards every allocation and returns to a single free block.
func (a *Allocator) Reset() error {
	if a.closed {
		return ErrClosed
	}
	a.nodes = a.nodes[:0]
	a.spare = a.spare[:0]
	a.cursor = nilNode
	a.allocated = 0
	a.head = a.newNode(a.region.Base, a.region.Size, true, nilNode)
	a.log.Debug("freelist: reset")
	return nil
}

// Close releases all bookkeeping. Every later call except Close fails with
// ErrClosed.
func (a *Allocator) Close() error {
	if a.closed {
		return nil
	}
	a.nodes = nil
	a.spare = nil
	a.head = nilNode
	a.cursor = nilNode
	a.allocated = 0
	a.closed = true
	return nil
}

// ============================================================================
// Internal helpers
// ============================================================================

// newNode takes a slot from the spare stack or grows the arena.
func (a *Allocator) newNode(start types.Address, size types.Size, free bool, next int32) int32 {
	n := node{start: start, size: size, free: free, next: next}
	if k := len(a.spare); k > 0 {
		idx := a.spare[k-1]
		a.spare = a.spare[:k-1]
		a.nodes[idx] = n
		a.stats.NodesRecycled++
		return idx
	}
	a.nodes = append(a.nodes, n)
	return int32(len(a.nodes) - 1)
}

// release returns idx to the spare stack. A cursor on idx moves to survivor.
func (a *Allocator) release(idx, survivor int32) {
	a.nodes[idx] = node{next: nilNode}
	a.spare = append(a.spare, idx)
	if a.cursor == idx {
		a.cursor = survivor
	}
}

// link makes n follow prev, or become the head when prev is nilNode.
func (a *Allocator) link(prev, n int32) {
	if prev == nilNode {
		a.head = n
		return
	}
	a.nodes[prev].next = n
}

// lookup finds the block starting at addr and its predecessor.
func (a *Allocator) lookup(addr types.Address) (prev, idx int32) {
	prev = nilNode
	for idx = a.head; idx != nilNode; prev, idx = idx, a.nodes[idx].next {
		start := a.nodes[idx].start
		if start == addr {
			return prev, idx
		}
		if start > addr {
			break
		}
	}
	return nilNode, nilNode
}

// predecessor returns the node linking to idx, or nilNode for the head.
func (a *Allocator) predecessor(idx int32) int32 {
	prev := nilNode
	for cur := a.head; cur != nilNode && cur != idx; cur = a.nodes[cur].next {
		prev = cur
	}
	return prev
}

// carve allocates [start, start+size) out of the free block idx, whose
// predecessor is prev. The caller guarantees the range lies inside the block.
//
// Four cases:
//   - whole block: flip it to allocated
//   - flush with the block start: new allocated node in front, block shrinks
//   - flush with the block end: block shrinks, new allocated node after it
//   - interior: block keeps the leading part, then allocated, then trailing free
func (a *Allocator) carve(prev, idx int32, start types.Address, size types.Size) types.Address {
	blk := a.nodes[idx]
	end := start + types.Address(size)

	var used int32
	switch {
	case start == blk.start && size == blk.size:
		a.nodes[idx].free = false
		used = idx

	case start == blk.start:
		used = a.newNode(start, size, false, idx)
		a.link(prev, used)
		a.nodes[idx].start = end
		a.nodes[idx].size -= size
		a.stats.SplitCount++

	case end == blk.end():
		used = a.newNode(start, size, false, blk.next)
		a.nodes[idx].size -= size
		a.nodes[idx].next = used
		a.stats.SplitCount++

	default:
		tail := a.newNode(end, types.Size(blk.end()-end), true, blk.next)
		used = a.newNode(start, size, false, tail)
		a.nodes[idx].size = types.Size(start - blk.start)
		a.nodes[idx].next = used
		a.stats.SplitCount += 2
	}

	a.cursor = used
	a.allocated += size
	a.stats.BytesAllocated += uint64(size)
	return start
}

// coalesce merges the freshly freed block idx with free, contiguous
// neighbours: successors first, then predecessors.
func (a *Allocator) coalesce(prev, idx int32) {
	for {
		next := a.nodes[idx].next
		if next == nilNode || !a.nodes[next].free || a.nodes[idx].end() != a.nodes[next].start {
			break
		}
		a.nodes[idx].size += a.nodes[next].size
		a.nodes[idx].next = a.nodes[next].next
		a.release(next, idx)
		a.stats.CoalesceForward++
		a.log.Debug("freelist: coalesce forward",
			"addr", a.nodes[idx].start, "size", uint64(a.nodes[idx].size))
	}

	for prev != nilNode && a.nodes[prev].free && a.nodes[prev].end() == a.nodes[idx].start {
		a.nodes[prev].size += a.nodes[idx].size
		a.nodes[prev].next = a.nodes[idx].next
		a.release(idx, prev)
		a.stats.CoalesceBackward++
		a.log.Debug("freelist: coalesce backward",
			"addr", a.nodes[prev].start, "size", uint64(a.nodes[prev].size))
		idx = prev
		prev = a.predecessor(idx)
	}
}
