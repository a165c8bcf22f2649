// Package buddy implements binary buddy allocators over a simulated address
// range.
//
// # Overview
//
// Blocks are 2^k multiples of a minimum block size. A request is rounded up
// to the smallest such block that holds it; larger free blocks are split in
// halves ("buddies") until one of the right size exists. When a block is
// freed and its buddy is also free, the two merge back into their parent,
// cascading upwards.
//
// Two implementations share the same contract:
//
//   - Allocator: an explicit binary tree. Leaves are blocks; an interior node
//     has been split and is never free itself. Search is left-biased, so
//     lower addresses are preferred.
//   - ListAllocator: one free list per order plus an allocation map. Buddy
//     addresses are computed, not stored: for a power-of-two minimum block
//     the buddy of addr is base + ((addr - base) XOR blockSize).
//
// # Sizing
//
//	maxLevel  = floor(log2(regionSize / minBlock))
//	rootSize  = minBlock << maxLevel
//	blockSize = minBlock * NextPowerOfTwo(ceil(requested / minBlock))
//
// When the region size is not a power-of-two multiple of the minimum block,
// the root covers the largest such prefix and the remainder is unmanaged.
//
// # Accounting
//
// Allocated() sums the sizes callers requested, not the rounded block sizes.
// The difference is internal fragmentation and is reported by Usage().
//
// # Usage Example
//
//	b, err := buddy.New(0x1000, 1024)
//	if err != nil {
//	    return err
//	}
//
//	addr, err := b.Alloc(70) // served from a 128-byte block
//	if err != nil {
//	    return err
//	}
//
//	err = b.Free(addr, 70)
//
// # Errors
//
// Requests below the minimum block or not smaller than the region are
// ErrInvalidArgument. A Free whose address or requested size does not match
// a live allocation is ErrNotFound. Failed calls never change state.
//
// # Thread Safety
//
// Allocator and ListAllocator are not thread-safe.
package buddy
