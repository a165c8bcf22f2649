package freelist

import "github.com/joshuapare/memkit/pkg/types"

// Region returns the managed address range.
func (a *Allocator) Region() types.Region { return a.region }

// Allocated returns the sum of allocated block sizes.
func (a *Allocator) Allocated() types.Size { return a.allocated }

// Available returns the number of free bytes in the region.
func (a *Allocator) Available() types.Size {
	if a.closed {
		return 0
	}
	return a.region.Size - a.allocated
}

// Stats returns a copy of the allocator counters.
func (a *Allocator) Stats() Stats { return a.stats }

// Len returns the number of blocks in the list.
func (a *Allocator) Len() int {
	n := 0
	for idx := a.head; idx != nilNode; idx = a.nodes[idx].next {
		n++
	}
	return n
}

// Blocks returns a snapshot of every block in address order.
func (a *Allocator) Blocks() []types.Block {
	out := make([]types.Block, 0, len(a.nodes)-len(a.spare))
	for idx := a.head; idx != nilNode; idx = a.nodes[idx].next {
		n := &a.nodes[idx]
		b := types.Block{Start: n.start, Size: n.size, Free: n.free, Level: -1}
		if !n.free {
			b.Requested = n.size
		}
		out = append(out, b)
	}
	return out
}

// FreeBlocks returns a snapshot of the free blocks in address order.
func (a *Allocator) FreeBlocks() []types.Block {
	var out []types.Block
	for idx := a.head; idx != nilNode; idx = a.nodes[idx].next {
		n := &a.nodes[idx]
		if n.free {
			out = append(out, types.Block{Start: n.start, Size: n.size, Free: true, Level: -1})
		}
	}
	return out
}

// LargestFree returns the size of the largest free block.
func (a *Allocator) LargestFree() types.Size {
	var largest types.Size
	for idx := a.head; idx != nilNode; idx = a.nodes[idx].next {
		if n := &a.nodes[idx]; n.free && n.size > largest {
			largest = n.size
		}
	}
	return largest
}

// Usage returns occupancy and fragmentation metrics.
func (a *Allocator) Usage() types.Usage {
	return types.Summarize(a.region, a.Blocks())
}

var _ types.Inspector = (*Allocator)(nil)
