package buddy

import "github.com/joshuapare/memkit/pkg/types"

var (
	// ErrInvalidArgument indicates a null base, a region too small to split,
	// or a request below the minimum block or not smaller than the region.
	ErrInvalidArgument = types.ErrInvalidArgument

	// ErrNoFit indicates that no free block large enough was found.
	ErrNoFit = types.ErrNoFit

	// ErrNotFound indicates a Free that matches no live allocation.
	ErrNotFound = types.ErrNotFound

	// ErrClosed indicates use after Close.
	ErrClosed = types.ErrClosed
)
