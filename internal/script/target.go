package script

import (
	"log/slog"

	"github.com/joshuapare/memkit/mem/buddy"
	"github.com/joshuapare/memkit/mem/freelist"
	"github.com/joshuapare/memkit/mem/verify"
	"github.com/joshuapare/memkit/pkg/types"
)

// target adapts each allocator to the operations a script can issue.
type target interface {
	types.Inspector
	alloc(size types.Size, strategy types.Strategy) (types.Address, error)
	allocAt(addr types.Address, size types.Size) (types.Address, error)
	free(addr types.Address, size types.Size) error
	check() error
	Reset() error
	Close() error
}

// newTarget builds the allocator a script names.
func newTarget(s *Script, log *slog.Logger) (target, error) {
	base, size := types.Address(s.Base), types.Size(s.Size)
	switch s.Allocator {
	case KindFreeList:
		a, err := freelist.New(base, size, freelist.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return freeListTarget{a}, nil
	case KindBuddy:
		a, err := buddy.New(base, size, buddy.WithMinBlockSize(types.Size(s.MinBlock)), buddy.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return buddyTarget{a}, nil
	case KindBuddyList:
		a, err := buddy.NewList(base, size, buddy.WithMinBlockSize(types.Size(s.MinBlock)), buddy.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return buddyListTarget{a}, nil
	default:
		return nil, invalid("unknown allocator %q", s.Allocator)
	}
}

type freeListTarget struct{ *freelist.Allocator }

func (t freeListTarget) alloc(size types.Size, strategy types.Strategy) (types.Address, error) {
	return t.Alloc(size, strategy)
}

func (t freeListTarget) allocAt(addr types.Address, size types.Size) (types.Address, error) {
	return t.AllocAt(addr, size)
}

func (t freeListTarget) free(addr types.Address, size types.Size) error { return t.Free(addr, size) }

func (t freeListTarget) check() error { return verify.FreeList(t) }

type buddyTarget struct{ *buddy.Allocator }

func (t buddyTarget) alloc(size types.Size, _ types.Strategy) (types.Address, error) {
	return t.Alloc(size)
}

func (t buddyTarget) allocAt(types.Address, types.Size) (types.Address, error) {
	return types.NullAddress, invalid("buddy: alloc_at is not supported")
}

func (t buddyTarget) free(addr types.Address, size types.Size) error { return t.Free(addr, size) }

func (t buddyTarget) check() error {
	if err := verify.Buddy(t, t.MinBlockSize()); err != nil {
		return err
	}
	return t.Check()
}

type buddyListTarget struct{ *buddy.ListAllocator }

func (t buddyListTarget) alloc(size types.Size, _ types.Strategy) (types.Address, error) {
	return t.Alloc(size)
}

func (t buddyListTarget) allocAt(types.Address, types.Size) (types.Address, error) {
	return types.NullAddress, invalid("buddy list: alloc_at is not supported")
}

func (t buddyListTarget) free(addr types.Address, size types.Size) error { return t.Free(addr, size) }

func (t buddyListTarget) check() error { return verify.Buddy(t, t.MinBlockSize()) }
