// Package types defines the value types shared by the memkit allocators:
// addresses and sizes in a simulated address space, the Region under
// management, Block snapshots for diagnostics, fit strategies, and the
// typed error categories every allocator reports.
//
// Design goals:
//   - Addresses are plain integers; nothing is ever read or written at them.
//   - Snapshots (Block, Usage) are values, never handles into allocator state.
//   - Typed errors with stable categories (invalid argument/no fit/out of
//     range/not found/state).
//
// This package has no dependencies beyond the standard library.
package types
