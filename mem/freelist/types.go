package freelist

import (
	"io"
	"log/slog"

	"github.com/joshuapare/memkit/pkg/types"
)

// nilNode marks the absence of a node (end of list, no cursor).
const nilNode int32 = -1

// node is one block in the address-ordered list.
type node struct {
	start types.Address
	size  types.Size
	free  bool
	next  int32 // arena index of the next block, nilNode at the tail
}

func (n *node) end() types.Address { return n.start + types.Address(n.size) }

// Stats holds allocator counters for testing and instrumentation.
type Stats struct {
	AllocCalls       int    // Alloc() and AllocAt() calls
	AllocFailures    int    // Calls that returned an error
	FreeCalls        int    // Free() calls
	FreeFailures     int    // Free() calls that returned an error
	BytesAllocated   uint64 // Total bytes handed out
	BytesFreed       uint64 // Total bytes returned
	SplitCount       int    // Allocations that split a free block
	CoalesceForward  int    // Merges of a freed block with its successor
	CoalesceBackward int    // Merges of a freed block into its predecessor
	NodesRecycled    int    // Arena slots reused from the spare stack
}

// Option configures an Allocator.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	nodeHint int
}

func defaultConfig() config {
	return config{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		nodeHint: 16,
	}
}

// WithLogger routes allocation, free and coalesce events to l at Debug level.
// The default logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNodeCapacity preallocates room for n list nodes.
func WithNodeCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.nodeHint = n
		}
	}
}
