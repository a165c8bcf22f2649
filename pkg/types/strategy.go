package types

import (
	"fmt"
	"strings"
)

// Strategy selects which free block a free-list allocator carves from.
type Strategy int

const (
	// FirstFit takes the first free block, from the head, that is large enough.
	FirstFit Strategy = iota

	// BestFit takes the fitting free block that leaves the smallest remainder.
	BestFit

	// WorstFit takes the largest fitting free block.
	WorstFit

	// NextFit resumes scanning after the last allocated block and wraps once.
	NextFit
)

// Strategies lists every strategy in declaration order.
var Strategies = []Strategy{FirstFit, BestFit, WorstFit, NextFit}

func (s Strategy) String() string {
	switch s {
	case FirstFit:
		return "first"
	case BestFit:
		return "best"
	case WorstFit:
		return "worst"
	case NextFit:
		return "next"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Valid reports whether s is one of the declared strategies.
func (s Strategy) Valid() bool { return s >= FirstFit && s <= NextFit }

// ParseStrategy accepts "first", "best", "worst", "next" and the same names
// with a "fit" or "-fit" suffix, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(strings.TrimSuffix(n, "fit"), "-")
	n = strings.TrimSuffix(n, "_")
	for _, s := range Strategies {
		if n == s.String() {
			return s, nil
		}
	}
	return 0, Errorf(ErrKindInvalidArgument, "unknown strategy %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, Errorf(ErrKindInvalidArgument, "unknown strategy %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
