// Package freelist implements an explicit free-list allocator over a
// simulated address range.
//
// # Overview
//
// The allocator keeps one address-ordered, singly linked list of blocks that
// tiles the managed Region exactly: every byte belongs to exactly one block,
// free or allocated. The list starts as a single free block spanning the
// whole region. Allocation carves blocks out of free ones; freeing marks a
// block free and immediately coalesces it with free neighbours.
//
// Addresses are integers. The allocator never reads or writes the memory it
// describes; it only keeps bookkeeping.
//
// # Strategies
//
//   - FirstFit: first free block from the head that is large enough
//   - BestFit: fitting block with the smallest remainder (first found wins ties)
//   - WorstFit: largest fitting block (first found wins ties)
//   - NextFit: resume after the last allocated block, wrap to the head once
//
// AllocAt allocates a caller-chosen range instead of letting a strategy pick.
//
// # Usage Example
//
//	fl, err := freelist.New(0x1000, 2048)
//	if err != nil {
//	    return err
//	}
//
//	addr, err := fl.Alloc(256, types.FirstFit)
//	if err != nil {
//	    return err
//	}
//
//	// Later, return the block with the size originally requested
//	err = fl.Free(addr, 256)
//
// # Node Storage
//
// List nodes live in an arena slice and link to each other by index. Nodes
// absorbed by coalescing are recycled through a spare-slot stack, so the arena
// never grows past the peak block count.
//
// # Errors
//
// Invalid arguments, no fit, out-of-range AllocAt and unknown frees are all
// reported as typed errors (see pkg/types) and leave the allocator unchanged.
// A Free that does not match an allocated block exactly is ErrNotFound; it is
// never accepted by inventing a new block.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must synchronize access
// externally.
package freelist
