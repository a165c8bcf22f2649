// Package verify provides validation functions for allocator block layouts.
//
// # Overview
//
// The checks operate on types.Block snapshots, so they work for every
// allocator that implements types.Inspector. They are used by the package
// tests after every mutating step, by the scenario runner when a script sets
// verify: true, and by memctl simulate.
//
// Validation categories:
//   - Tiling: blocks exactly cover the region with no gap or overlap
//   - Coverage: blocks lie inside the region and do not overlap
//   - Conservation: the allocated total matches the allocated blocks
//   - Coalesced: no two address-adjacent blocks are both free
//   - PowerOfTwo: buddy blocks are 2^k * minimum block size and aligned
//
// # Quick Start
//
//	if err := verify.FreeList(fl); err != nil {
//	    t.Fatalf("invariants violated: %v", err)
//	}
//
//	if err := verify.Buddy(b, b.MinBlockSize()); err != nil {
//	    t.Fatalf("invariants violated: %v", err)
//	}
//
// # ValidationError
//
// All validation functions return *ValidationError on failure:
//
//	type ValidationError struct {
//	    Type    string        // Check name (e.g., "Tiling")
//	    Message string        // Human-readable description
//	    Addr    types.Address // Address where the problem starts (0 if N/A)
//	}
//
// # Limitations
//
// Buddy tree shape (child counts, parent state) is not visible through block
// snapshots; buddy.Allocator.Check covers it.
package verify
