package freelist

import "github.com/joshuapare/memkit/pkg/types"

// Each finder returns the chosen free block and its predecessor, or
// (nilNode, nilNode) when nothing fits. None of them mutate the list.

// findFirst returns the first free block from the head with size >= need.
func (a *Allocator) findFirst(need types.Size) (int32, int32) {
	prev := nilNode
	for idx := a.head; idx != nilNode; prev, idx = idx, a.nodes[idx].next {
		if a.fits(idx, need) {
			return prev, idx
		}
	}
	return nilNode, nilNode
}

// findBest returns the fitting free block with the smallest remainder.
// Ties go to the block found first.
func (a *Allocator) findBest(need types.Size) (int32, int32) {
	bestPrev, best := nilNode, nilNode
	prev := nilNode
	for idx := a.head; idx != nilNode; prev, idx = idx, a.nodes[idx].next {
		if !a.fits(idx, need) {
			continue
		}
		if best == nilNode || a.nodes[idx].size < a.nodes[best].size {
			bestPrev, best = prev, idx
			if a.nodes[idx].size == need {
				break
			}
		}
	}
	return bestPrev, best
}

// findWorst returns the largest fitting free block. Ties go to the block
// found first.
func (a *Allocator) findWorst(need types.Size) (int32, int32) {
	worstPrev, worst := nilNode, nilNode
	prev := nilNode
	for idx := a.head; idx != nilNode; prev, idx = idx, a.nodes[idx].next {
		if !a.fits(idx, need) {
			continue
		}
		if worst == nilNode || a.nodes[idx].size > a.nodes[worst].size {
			worstPrev, worst = prev, idx
		}
	}
	return worstPrev, worst
}

// findNext scans from the block after the cursor, wrapping to the head once.
// Every block is visited at most once per call.
func (a *Allocator) findNext(need types.Size) (int32, int32) {
	if a.head == nilNode {
		return nilNode, nilNode
	}

	prev, start := nilNode, a.head
	if a.cursor != nilNode && a.nodes[a.cursor].next != nilNode {
		prev, start = a.cursor, a.nodes[a.cursor].next
	}

	idx := start
	for {
		if a.fits(idx, need) {
			return prev, idx
		}
		prev, idx = idx, a.nodes[idx].next
		if idx == nilNode {
			prev, idx = nilNode, a.head
		}
		if idx == start {
			return nilNode, nilNode
		}
	}
}

func (a *Allocator) fits(idx int32, need types.Size) bool {
	n := &a.nodes[idx]
	return n.free && n.size >= need
}
