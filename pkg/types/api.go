package types

import (
	"errors"
	"fmt"
	"math"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindInvalidArgument ErrKind = iota // zero size, null base, malformed bounds
	ErrKindNoFit                          // no free block large enough
	ErrKindOutOfRange                     // range outside the region or not inside one free block
	ErrKindNotFound                       // free of an address/size pair that is not allocated
	ErrKindState                          // operation on a closed allocator
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindInvalidArgument:
		return "invalid argument"
	case ErrKindNoFit:
		return "no fit"
	case ErrKindOutOfRange:
		return "out of range"
	case ErrKindNotFound:
		return "not found"
	case ErrKindState:
		return "state"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so detailed errors built with
// Errorf still satisfy errors.Is against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels commonly returned by implementations.
var (
	// ErrInvalidArgument indicates a null base, zero size or malformed bounds.
	ErrInvalidArgument = &Error{Kind: ErrKindInvalidArgument, Msg: "invalid argument"}
	// ErrNoFit indicates that no free block can satisfy the request.
	ErrNoFit = &Error{Kind: ErrKindNoFit, Msg: "no free block large enough"}
	// ErrOutOfRange indicates a requested range outside the region or not
	// contained in a single free block.
	ErrOutOfRange = &Error{Kind: ErrKindOutOfRange, Msg: "range not available"}
	// ErrNotFound indicates a free of an address/size pair that is not allocated.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "allocation not found"}
	// ErrClosed indicates use of an allocator after Close.
	ErrClosed = &Error{Kind: ErrKindState, Msg: "allocator is closed"}
)

// Errorf builds an error of the given kind with a formatted message.
func Errorf(kind ErrKind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the ErrKind of err, or false if err is not a typed error.
func KindOf(err error) (ErrKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// -----------------------------------------------------------------------------
// Core Identifiers & Metadata
// -----------------------------------------------------------------------------

type (
	// Address is a position in the simulated address space. Zero is the null
	// address and never names a managed byte.
	Address uint64

	// Size is a byte count.
	Size uint64
)

// NullAddress is the zero Address.
const NullAddress Address = 0

func (a Address) String() string { return fmt.Sprintf("0x%X", uint64(a)) }

// Region is the fixed address range an allocator manages.
type Region struct {
	Base Address `json:"base"`
	Size Size    `json:"size"`
}

// NewRegion validates base and size and returns the region [base, base+size).
func NewRegion(base Address, size Size) (Region, error) {
	if base == NullAddress {
		return Region{}, Errorf(ErrKindInvalidArgument, "region base is null")
	}
	if size == 0 {
		return Region{}, Errorf(ErrKindInvalidArgument, "region size is zero")
	}
	if uint64(size) > math.MaxUint64-uint64(base) {
		return Region{}, Errorf(ErrKindInvalidArgument,
			"region %s+%d overflows the address space", base, uint64(size))
	}
	return Region{Base: base, Size: size}, nil
}

// Limit returns the first address past the region.
func (r Region) Limit() Address { return r.Base + Address(r.Size) }

// Contains reports whether [addr, addr+size) lies within the region.
// A zero-sized range is never contained.
func (r Region) Contains(addr Address, size Size) bool {
	if size == 0 || addr < r.Base || addr >= r.Limit() {
		return false
	}
	return uint64(size) <= uint64(r.Limit()-addr)
}

// Offset returns addr relative to the region base.
func (r Region) Offset(addr Address) Size { return Size(addr - r.Base) }

func (r Region) String() string {
	return fmt.Sprintf("[%s, %s)", r.Base, r.Limit())
}

// Block is a read-only snapshot of one block, used for dumps and
// verification. It is not a handle; mutating it has no effect.
type Block struct {
	Start Address `json:"start"`
	Size  Size    `json:"size"`
	Free  bool    `json:"free"`

	// Level is the buddy tree depth, or -1 for blocks without one.
	Level int `json:"level"`

	// Requested is the caller's original request for an allocated block.
	// Free-list blocks always record their own size here.
	Requested Size `json:"requested,omitempty"`
}

// End returns the first address past the block.
func (b Block) End() Address { return b.Start + Address(b.Size) }

// Inspector exposes the read-only view every allocator offers for
// diagnostics. Implementations: freelist.Allocator, buddy.Allocator,
// buddy.ListAllocator.
type Inspector interface {
	// Region returns the managed address range.
	Region() Region

	// Allocated returns the allocated byte total as accounted by the
	// allocator (requested sizes, not rounded block sizes).
	Allocated() Size

	// Blocks returns every block in address order.
	Blocks() []Block
}
