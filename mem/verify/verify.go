package verify

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/joshuapare/memkit/pkg/types"
)

// ValidationError describes a failed invariant.
type ValidationError struct {
	Type    string
	Message string
	Addr    types.Address
}

func (e *ValidationError) Error() string {
	if e.Addr != types.NullAddress {
		return fmt.Sprintf("%s at %s: %s", e.Type, e.Addr, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// FreeList validates all free-list allocator invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func FreeList(i types.Inspector) error {
	blocks := i.Blocks()
	if err := Tiling(i.Region(), blocks); err != nil {
		return err
	}
	if err := Conservation(i.Allocated(), blocks); err != nil {
		return err
	}
	return Coalesced(blocks)
}

// Buddy validates all buddy allocator invariants visible in block snapshots.
func Buddy(i types.Inspector, minBlock types.Size) error {
	blocks := i.Blocks()
	if err := Coverage(i.Region(), blocks); err != nil {
		return err
	}
	if err := Conservation(i.Allocated(), blocks); err != nil {
		return err
	}
	return PowerOfTwo(i.Region(), minBlock, blocks)
}

// Tiling checks that blocks, in address order, cover the region exactly
// with no gaps and no overlaps.
func Tiling(region types.Region, blocks []types.Block) error {
	if len(blocks) == 0 {
		return &ValidationError{Type: "Tiling", Message: "no blocks"}
	}
	if !sorted(blocks) {
		return &ValidationError{Type: "Tiling", Message: "blocks not in address order"}
	}

	pos := region.Base
	for _, b := range blocks {
		if b.Size == 0 {
			return &ValidationError{Type: "Tiling", Message: "zero-size block", Addr: b.Start}
		}
		switch {
		case b.Start > pos:
			return &ValidationError{
				Type:    "Tiling",
				Message: fmt.Sprintf("gap of %d bytes before block", uint64(b.Start-pos)),
				Addr:    pos,
			}
		case b.Start < pos:
			return &ValidationError{
				Type:    "Tiling",
				Message: fmt.Sprintf("block overlaps previous by %d bytes", uint64(pos-b.Start)),
				Addr:    b.Start,
			}
		}
		pos = b.End()
	}

	if pos != region.Limit() {
		return &ValidationError{
			Type:    "Tiling",
			Message: fmt.Sprintf("blocks end at %s, region ends at %s", pos, region.Limit()),
			Addr:    pos,
		}
	}
	return nil
}

// Coverage checks that every block lies inside the region and that blocks do
// not overlap. Unlike Tiling it tolerates uncovered space.
func Coverage(region types.Region, blocks []types.Block) error {
	ordered := append([]types.Block(nil), blocks...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var prevEnd types.Address
	for i, b := range ordered {
		if !region.Contains(b.Start, b.Size) {
			return &ValidationError{
				Type:    "Coverage",
				Message: fmt.Sprintf("block of %d bytes outside region %s", uint64(b.Size), region),
				Addr:    b.Start,
			}
		}
		if i > 0 && b.Start < prevEnd {
			return &ValidationError{
				Type:    "Coverage",
				Message: fmt.Sprintf("block overlaps previous by %d bytes", uint64(prevEnd-b.Start)),
				Addr:    b.Start,
			}
		}
		prevEnd = b.End()
	}
	return nil
}

// Conservation checks that allocated equals the sum of requested sizes of
// the allocated blocks.
func Conservation(allocated types.Size, blocks []types.Block) error {
	var sum types.Size
	for _, b := range blocks {
		if b.Free {
			continue
		}
		if b.Requested > b.Size {
			return &ValidationError{
				Type:    "Conservation",
				Message: fmt.Sprintf("requested %d exceeds block size %d", uint64(b.Requested), uint64(b.Size)),
				Addr:    b.Start,
			}
		}
		sum += b.Requested
	}
	if sum != allocated {
		return &ValidationError{
			Type:    "Conservation",
			Message: fmt.Sprintf("allocated total %d, blocks hold %d", uint64(allocated), uint64(sum)),
		}
	}
	return nil
}

// Coalesced checks that no two address-adjacent blocks are both free.
func Coalesced(blocks []types.Block) error {
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		if prev.Free && cur.Free && prev.End() == cur.Start {
			return &ValidationError{
				Type:    "Coalesced",
				Message: fmt.Sprintf("free blocks at %s and %s not merged", prev.Start, cur.Start),
				Addr:    prev.Start,
			}
		}
	}
	return nil
}

// PowerOfTwo checks that every block is 2^k * minBlock bytes and starts at a
// multiple of its own size relative to the region base.
func PowerOfTwo(region types.Region, minBlock types.Size, blocks []types.Block) error {
	if minBlock == 0 {
		return &ValidationError{Type: "PowerOfTwo", Message: "minimum block size is zero"}
	}
	for _, b := range blocks {
		if b.Size%minBlock != 0 || bits.OnesCount64(uint64(b.Size/minBlock)) != 1 {
			return &ValidationError{
				Type:    "PowerOfTwo",
				Message: fmt.Sprintf("size %d is not a power-of-two multiple of %d", uint64(b.Size), uint64(minBlock)),
				Addr:    b.Start,
			}
		}
		if region.Offset(b.Start)%b.Size != 0 {
			return &ValidationError{
				Type:    "PowerOfTwo",
				Message: fmt.Sprintf("block of %d bytes misaligned", uint64(b.Size)),
				Addr:    b.Start,
			}
		}
	}
	return nil
}

func sorted(blocks []types.Block) bool {
	return sort.SliceIsSorted(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })
}
