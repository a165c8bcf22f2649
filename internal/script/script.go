// Package script parses and runs allocator scenarios written as YAML.
//
// A scenario names an allocator, its region and a list of steps:
//
//	allocator: freelist   # freelist | buddy | buddy-list
//	base: 4096
//	size: 2048
//	verify: true
//	steps:
//	  - {op: alloc, name: a, size: 256, strategy: first}
//	  - {op: alloc_at, name: b, addr: 4352, size: 100}
//	  - {op: free, ref: a}
//	  - {op: dump}
package script

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/memkit/pkg/types"
)

// Allocator kinds.
const (
	KindFreeList  = "freelist"
	KindBuddy     = "buddy"
	KindBuddyList = "buddy-list"
)

// Step operations.
const (
	OpAlloc   = "alloc"
	OpAllocAt = "alloc_at"
	OpFree    = "free"
	OpDump    = "dump"
	OpCheck   = "check"
	OpReset   = "reset"
)

// Expectations a step can declare.
const (
	ExpectAny = ""   // record the outcome, never fail the run
	ExpectOK  = "ok" // the step must succeed
)

// DefaultBase is the region base used when a script omits one.
const DefaultBase = 0x1000

// Script is a parsed scenario.
type Script struct {
	Allocator string `yaml:"allocator"`
	Base      uint64 `yaml:"base"`
	Size      uint64 `yaml:"size"`
	MinBlock  uint64 `yaml:"min_block"`
	Verify    bool   `yaml:"verify"`
	Steps     []Step `yaml:"steps"`
}

// Step is one scenario operation.
//
// Expect is "", "ok", or an error kind written with dashes
// ("no-fit", "out-of-range", "not-found", "invalid-argument").
type Step struct {
	Op       string `yaml:"op"`
	Name     string `yaml:"name,omitempty"`
	Size     uint64 `yaml:"size,omitempty"`
	Strategy string `yaml:"strategy,omitempty"`
	Addr     uint64 `yaml:"addr,omitempty"`
	Ref      string `yaml:"ref,omitempty"`
	Expect   string `yaml:"expect,omitempty"`
}

// Parse decodes and validates a scenario.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, types.Errorf(types.ErrKindInvalidArgument, "script: empty document")
		}
		return nil, fmt.Errorf("script: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal encodes s as YAML.
func Marshal(s *Script) ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate checks the allocator, region and every step. It fills in the
// default base.
func (s *Script) Validate() error {
	switch s.Allocator {
	case KindFreeList, KindBuddy, KindBuddyList:
	default:
		return invalid("unknown allocator %q", s.Allocator)
	}
	if s.Base == 0 {
		s.Base = DefaultBase
	}
	if s.Size == 0 {
		return invalid("size is required")
	}
	if s.MinBlock != 0 && s.Allocator == KindFreeList {
		return invalid("min_block applies to buddy allocators only")
	}

	names := make(map[string]int)
	for i := range s.Steps {
		st := &s.Steps[i]
		if err := s.validateStep(st, names); err != nil {
			return fmt.Errorf("script: step %d (%s): %w", i, st.Op, err)
		}
		if st.Name != "" {
			names[st.Name] = i
		}
	}
	return nil
}

func (s *Script) validateStep(st *Step, names map[string]int) error {
	if st.Name != "" {
		if prev, dup := names[st.Name]; dup {
			return invalid("name %q already used by step %d", st.Name, prev)
		}
	}
	if _, ok := parseExpect(st.Expect); !ok {
		return invalid("unknown expectation %q", st.Expect)
	}

	switch st.Op {
	case OpAlloc:
		if st.Size == 0 {
			return invalid("size is required")
		}
		if st.Strategy != "" {
			if s.Allocator != KindFreeList {
				return invalid("strategy applies to freelist only")
			}
			if _, err := types.ParseStrategy(st.Strategy); err != nil {
				return err
			}
		}
	case OpAllocAt:
		if s.Allocator != KindFreeList {
			return invalid("alloc_at applies to freelist only")
		}
		if st.Size == 0 || st.Addr == 0 {
			return invalid("addr and size are required")
		}
	case OpFree:
		switch {
		case st.Ref != "":
			if _, ok := names[st.Ref]; !ok {
				return invalid("ref %q does not name an earlier step", st.Ref)
			}
		case st.Addr == 0 || st.Size == 0:
			return invalid("ref, or addr and size, are required")
		}
	case OpDump, OpCheck, OpReset:
	default:
		return invalid("unknown op %q", st.Op)
	}
	return nil
}

// parseExpect maps an expectation to an error kind. The kind is meaningless
// for ExpectAny and ExpectOK; ok is false for unknown names.
func parseExpect(s string) (kind types.ErrKind, ok bool) {
	switch s {
	case ExpectAny, ExpectOK:
		return 0, true
	}
	for _, k := range []types.ErrKind{
		types.ErrKindInvalidArgument,
		types.ErrKindNoFit,
		types.ErrKindOutOfRange,
		types.ErrKindNotFound,
	} {
		if s == kindName(k) {
			return k, true
		}
	}
	return 0, false
}

// kindName renders an error kind as used in scripts: "no fit" becomes "no-fit".
func kindName(k types.ErrKind) string {
	return strings.ReplaceAll(k.String(), " ", "-")
}

func invalid(format string, args ...any) error {
	return types.Errorf(types.ErrKindInvalidArgument, format, args...)
}
