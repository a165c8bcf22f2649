package buddy

import (
	"log/slog"

	"github.com/joshuapare/memkit/pkg/types"
)

// Allocator is a tree buddy allocator. See the package documentation.
type Allocator struct {
	geometry

	// Tree arena. nodes[root] covers [base, base+rootSize).
	nodes []node
	spare []int32
	root  int32

	byAddr    map[types.Address]int32 // allocated leaves by start address
	allocated types.Size
	closed    bool

	stats Stats
	log   *slog.Logger
}

// New creates a tree buddy allocator over [base, base+size).
func New(base types.Address, size types.Size, opts ...Option) (*Allocator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	g, err := newGeometry(base, size, cfg.minBlock)
	if err != nil {
		return nil, err
	}

	a := &Allocator{
		geometry: g,
		nodes:    make([]node, 0, 2*g.maxLevel+1),
		byAddr:   make(map[types.Address]int32),
		log:      cfg.logger,
	}
	a.root = a.newNode(base, g.rootSize, 0, nilNode)

	a.log.Debug("buddy: initialized",
		"base", base,
		"rootSize", uint64(g.rootSize),
		"maxLevel", g.maxLevel,
		"minBlock", uint64(g.minBlock),
	)
	return a, nil
}

// Alloc reserves the lowest-addressed free block that holds requested bytes
// and returns its start address.
func (a *Allocator) Alloc(requested types.Size) (types.Address, error) {
	if a.closed {
		return types.NullAddress, ErrClosed
	}
	a.stats.AllocCalls++

	if err := a.checkRequest(requested); err != nil {
		a.stats.AllocFailures++
		return types.NullAddress, err
	}

	actual := a.blockSize(requested)
	idx := a.find(a.root, actual)
	if idx == nilNode {
		a.stats.AllocFailures++
		a.log.Debug("buddy: no fit", "requested", uint64(requested), "block", uint64(actual))
		return types.NullAddress, types.Errorf(types.ErrKindNoFit,
			"buddy: no free block of %d bytes for a %d-byte request", uint64(actual), uint64(requested))
	}

	n := &a.nodes[idx]
	n.free = false
	n.requested = requested
	a.byAddr[n.start] = idx
	a.allocated += requested
	a.stats.BytesRequested += uint64(requested)
	a.stats.BytesReserved += uint64(actual)

	a.log.Debug("buddy: alloc",
		"addr", n.start,
		"requested", uint64(requested),
		"block", uint64(actual),
		"level", n.level,
	)
	return n.start, nil
}

// Free releases the allocation at addr, which must have been made with the
// same requested size, and merges free buddies upwards.
func (a *Allocator) Free(addr types.Address, requested types.Size) error {
	if a.closed {
		return ErrClosed
	}
	a.stats.FreeCalls++

	idx, ok := a.byAddr[addr]
	if !ok {
		a.stats.FreeFailures++
		return types.Errorf(types.ErrKindNotFound, "buddy: no allocation at %s", addr)
	}
	n := &a.nodes[idx]
	if n.requested != requested {
		a.stats.FreeFailures++
		return types.Errorf(types.ErrKindNotFound,
			"buddy: allocation at %s was %d bytes, not %d", addr, uint64(n.requested), uint64(requested))
	}

	delete(a.byAddr, addr)
	n.free = true
	n.requested = 0
	a.allocated -= requested
	a.log.Debug("buddy: free", "addr", addr, "requested", uint64(requested), "block", uint64(n.size))

	a.merge(idx)
	return nil
}

// Reset discards every allocation and returns to a single free root.
func (a *Allocator) Reset() error {
	if a.closed {
		return ErrClosed
	}
	a.nodes = a.nodes[:0]
	a.spare = a.spare[:0]
	clear(a.byAddr)
	a.allocated = 0
	a.root = a.newNode(a.region.Base, a.rootSize, 0, nilNode)
	a.log.Debug("buddy: reset")
	return nil
}

// Close releases the tree. Every later call except Close fails with
// ErrClosed.
func (a *Allocator) Close() error {
	if a.closed {
		return nil
	}
	a.nodes = nil
	a.spare = nil
	a.byAddr = nil
	a.root = nilNode
	a.allocated = 0
	a.closed = true
	return nil
}

// ============================================================================
// Internal helpers
// ============================================================================

func (a *Allocator) newNode(start types.Address, size types.Size, level int, parent int32) int32 {
	n := node{
		start:  start,
		size:   size,
		level:  level,
		free:   true,
		parent: parent,
		left:   nilNode,
		right:  nilNode,
	}
	if k := len(a.spare); k > 0 {
		idx := a.spare[k-1]
		a.spare = a.spare[:k-1]
		a.nodes[idx] = n
		return idx
	}
	a.nodes = append(a.nodes, n)
	return int32(len(a.nodes) - 1)
}

func (a *Allocator) release(idx int32) {
	a.nodes[idx] = node{parent: nilNode, left: nilNode, right: nilNode}
	a.spare = append(a.spare, idx)
}

// find returns a free leaf of exactly actual bytes under idx, splitting
// larger free leaves on the way down. Children are tried left first.
//
// A leaf is only split when it is free and larger than actual, and its left
// half then always yields a match, so a search that fails has not split
// anything.
func (a *Allocator) find(idx int32, actual types.Size) int32 {
	if idx == nilNode || a.nodes[idx].size < actual {
		return nilNode
	}
	if a.nodes[idx].leaf() {
		if !a.nodes[idx].free {
			return nilNode
		}
		if a.nodes[idx].size == actual {
			return idx
		}
		a.split(idx)
	}
	if got := a.find(a.nodes[idx].left, actual); got != nilNode {
		return got
	}
	return a.find(a.nodes[idx].right, actual)
}

// split turns the free leaf idx into a parent of two free halves.
func (a *Allocator) split(idx int32) {
	p := a.nodes[idx]
	half := p.size / 2
	left := a.newNode(p.start, half, p.level+1, idx)
	right := a.newNode(p.start+types.Address(half), half, p.level+1, idx)

	n := &a.nodes[idx]
	n.left, n.right = left, right
	n.free = false
	a.stats.Splits++
	a.log.Debug("buddy: split", "addr", p.start, "size", uint64(p.size), "level", p.level)
}

// merge folds idx and its buddy into their parent while both are free
// leaves, repeating upwards.
func (a *Allocator) merge(idx int32) {
	for {
		parent := a.nodes[idx].parent
		if parent == nilNode {
			return
		}
		p := &a.nodes[parent]
		sibling := p.left
		if sibling == idx {
			sibling = p.right
		}
		if s := &a.nodes[sibling]; !s.leaf() || !s.free {
			return
		}

		left, right := p.left, p.right
		p.left, p.right = nilNode, nilNode
		p.free = true
		a.release(left)
		a.release(right)
		a.stats.Merges++
		a.log.Debug("buddy: merge",
			"addr", a.nodes[parent].start,
			"size", uint64(a.nodes[parent].size),
			"level", a.nodes[parent].level,
		)
		idx = parent
	}
}
