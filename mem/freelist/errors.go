package freelist

import "github.com/joshuapare/memkit/pkg/types"

// Sentinels re-exported from pkg/types so callers of this package can match
// errors without a second import.
var (
	// ErrInvalidArgument indicates a null base, zero size or unknown strategy.
	ErrInvalidArgument = types.ErrInvalidArgument

	// ErrNoFit indicates that no free block large enough was found.
	ErrNoFit = types.ErrNoFit

	// ErrOutOfRange indicates an AllocAt or Free range outside the region, or
	// an AllocAt range not contained in a single free block.
	ErrOutOfRange = types.ErrOutOfRange

	// ErrNotFound indicates a Free that matches no allocated block.
	ErrNotFound = types.ErrNotFound

	// ErrClosed indicates use after Close.
	ErrClosed = types.ErrClosed
)
