package buddy

import (
	"github.com/joshuapare/memkit/pkg/types"
)

// Region returns the managed address range.
func (a *Allocator) Region() types.Region { return a.region }

// Allocated returns the sum of requested sizes of live allocations.
func (a *Allocator) Allocated() types.Size { return a.allocated }

// MaxLevel returns the depth of the smallest possible block.
func (a *Allocator) MaxLevel() int { return a.maxLevel }

// MinBlockSize returns the smallest block size.
func (a *Allocator) MinBlockSize() types.Size { return a.minBlock }

// RootSize returns the size of the level-0 block.
func (a *Allocator) RootSize() types.Size { return a.rootSize }

// Stats returns a copy of the allocator counters.
func (a *Allocator) Stats() Stats { return a.stats }

// Blocks returns every leaf in address order.
func (a *Allocator) Blocks() []types.Block {
	var out []types.Block
	if a.closed {
		return out
	}
	a.walk(a.root, func(n *node) {
		if !n.leaf() {
			return
		}
		out = append(out, types.Block{
			Start:     n.start,
			Size:      n.size,
			Free:      n.free,
			Level:     n.level,
			Requested: n.requested,
		})
	})
	return out
}

// FreeBlocks returns the free leaves in address order.
func (a *Allocator) FreeBlocks() []types.Block {
	var out []types.Block
	for _, b := range a.Blocks() {
		if b.Free {
			out = append(out, b)
		}
	}
	return out
}

// Usage returns occupancy and fragmentation metrics.
func (a *Allocator) Usage() types.Usage {
	return types.Summarize(a.region, a.Blocks())
}

// Check validates the tree structure:
//   - every interior node has two children and is not free
//   - children are the two halves of their parent, one level deeper
//   - every node is rootSize >> level bytes
//   - the allocation index names exactly the allocated leaves
//   - the allocated total equals the sum of recorded requests
func (a *Allocator) Check() error {
	if a.closed {
		return ErrClosed
	}
	if a.nodes[a.root].parent != nilNode || a.nodes[a.root].level != 0 {
		return types.Errorf(types.ErrKindState, "buddy: root has a parent or non-zero level")
	}

	var (
		err      error
		leaves   int
		live     int
		requests types.Size
	)
	a.walkIdx(a.root, func(idx int32) {
		if err != nil {
			return
		}
		n := &a.nodes[idx]
		if want := a.rootSize >> n.level; n.size != want {
			err = types.Errorf(types.ErrKindState,
				"buddy: node at %s level %d holds %d bytes, want %d", n.start, n.level, uint64(n.size), uint64(want))
			return
		}
		if n.size < a.minBlock {
			err = types.Errorf(types.ErrKindState, "buddy: node at %s below minimum block", n.start)
			return
		}

		if n.leaf() {
			if n.right != nilNode {
				err = types.Errorf(types.ErrKindState, "buddy: node at %s has one child", n.start)
				return
			}
			leaves++
			if n.free {
				if n.requested != 0 {
					err = types.Errorf(types.ErrKindState, "buddy: free block at %s records a request", n.start)
				}
				return
			}
			live++
			requests += n.requested
			if n.requested == 0 || n.requested > n.size {
				err = types.Errorf(types.ErrKindState,
					"buddy: block at %s of %d bytes records request %d", n.start, uint64(n.size), uint64(n.requested))
				return
			}
			if got, ok := a.byAddr[n.start]; !ok || got != idx {
				err = types.Errorf(types.ErrKindState, "buddy: block at %s missing from index", n.start)
			}
			return
		}

		if n.right == nilNode {
			err = types.Errorf(types.ErrKindState, "buddy: node at %s has one child", n.start)
			return
		}
		if n.free {
			err = types.Errorf(types.ErrKindState, "buddy: split node at %s marked free", n.start)
			return
		}
		l, r := &a.nodes[n.left], &a.nodes[n.right]
		half := n.size / 2
		if l.parent != idx || r.parent != idx || l.level != n.level+1 || r.level != n.level+1 ||
			l.start != n.start || r.start != n.start+types.Address(half) {
			err = types.Errorf(types.ErrKindState, "buddy: children of %s are not its halves", n.start)
		}
	})
	if err != nil {
		return err
	}

	if live != len(a.byAddr) {
		return types.Errorf(types.ErrKindState,
			"buddy: %d allocated leaves, index holds %d", live, len(a.byAddr))
	}
	if requests != a.allocated {
		return types.Errorf(types.ErrKindState,
			"buddy: allocated total %d, leaves record %d", uint64(a.allocated), uint64(requests))
	}
	if used := len(a.nodes) - len(a.spare); used != 2*leaves-1 {
		return types.Errorf(types.ErrKindState,
			"buddy: %d live nodes for %d leaves", used, leaves)
	}
	return nil
}

// walk visits the subtree at idx in address order, parents before children.
func (a *Allocator) walk(idx int32, fn func(*node)) {
	a.walkIdx(idx, func(i int32) { fn(&a.nodes[i]) })
}

func (a *Allocator) walkIdx(idx int32, fn func(int32)) {
	if idx == nilNode {
		return
	}
	fn(idx)
	a.walkIdx(a.nodes[idx].left, fn)
	a.walkIdx(a.nodes[idx].right, fn)
}

var _ types.Inspector = (*Allocator)(nil)
