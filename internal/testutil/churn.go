// Package testutil holds workload helpers shared by allocator tests and
// benchmarks.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/joshuapare/memkit/pkg/types"
)

// AllocFunc allocates size bytes.
type AllocFunc func(size types.Size) (types.Address, error)

// FreeFunc frees a block previously returned by the matching AllocFunc.
type FreeFunc func(addr types.Address, size types.Size) error

// Live is one outstanding allocation.
type Live struct {
	Addr types.Address
	Size types.Size
}

// ChurnOptions shapes a Churn workload.
type ChurnOptions struct {
	Ops     int        // Operations to issue
	MinSize types.Size // Smallest request. Default: 1
	MaxSize types.Size // Largest request
	MaxLive int        // Live allocations before frees are forced. Default: 256
	Seed    int64
}

// Churn issues a seeded mix of allocations and frees: roughly one free for
// every two allocations, and always a free once MaxLive blocks are held.
// Allocation failures are skipped; a free failure fails tb. It returns the
// allocations still live at the end.
//
// Example:
//
//	testutil.Churn(b, testutil.ChurnOptions{Ops: b.N, MaxSize: 1024},
//	    func(n types.Size) (types.Address, error) { return fl.Alloc(n, types.BestFit) },
//	    fl.Free)
func Churn(tb testing.TB, opts ChurnOptions, alloc AllocFunc, free FreeFunc) []Live {
	tb.Helper()

	if opts.MinSize == 0 {
		opts.MinSize = 1
	}
	if opts.MaxSize < opts.MinSize {
		opts.MaxSize = opts.MinSize
	}
	if opts.MaxLive <= 0 {
		opts.MaxLive = 256
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	span := int64(opts.MaxSize-opts.MinSize) + 1
	var held []Live

	for i := 0; i < opts.Ops; i++ {
		if len(held) >= opts.MaxLive || (len(held) > 0 && i%3 == 0) {
			k := rng.Intn(len(held))
			if err := free(held[k].Addr, held[k].Size); err != nil {
				tb.Fatalf("op %d: free %s (%d bytes): %v", i, held[k].Addr, uint64(held[k].Size), err)
			}
			held[k] = held[len(held)-1]
			held = held[:len(held)-1]
			continue
		}

		size := opts.MinSize + types.Size(rng.Int63n(span))
		if addr, err := alloc(size); err == nil {
			held = append(held, Live{Addr: addr, Size: size})
		}
	}
	return held
}
