package script

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/mem/printer"
	"github.com/joshuapare/memkit/pkg/types"
)

func parseFile(t *testing.T, name string) *Script {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	s, err := Parse(f)
	require.NoError(t, err)
	return s
}

func parseString(t *testing.T, doc string) (*Script, error) {
	t.Helper()
	return Parse(strings.NewReader(doc))
}

func Test_Parse_Testdata(t *testing.T) {
	s := parseFile(t, "freelist.yaml")
	require.Equal(t, KindFreeList, s.Allocator)
	require.Equal(t, uint64(4096), s.Base)
	require.True(t, s.Verify)
	require.Len(t, s.Steps, 16)
	require.Equal(t, Step{Op: OpAlloc, Name: "a", Size: 256, Strategy: "first", Expect: ExpectOK}, s.Steps[0])
}

func Test_Parse_DefaultBase(t *testing.T) {
	s, err := parseString(t, "allocator: buddy\nsize: 1024\n")
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultBase), s.Base)
	require.Empty(t, s.Steps)
}

func Test_Parse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty document"},
		{"unknown field", "allocator: freelist\nsize: 10\ncolour: red\n", "colour"},
		{"unknown allocator", "allocator: slab\nsize: 10\n", `unknown allocator "slab"`},
		{"no size", "allocator: freelist\n", "size is required"},
		{"min block on freelist", "allocator: freelist\nsize: 10\nmin_block: 4\n", "buddy allocators only"},
		{"unknown op", "allocator: freelist\nsize: 10\nsteps: [{op: grow}]\n", `unknown op "grow"`},
		{"alloc without size", "allocator: freelist\nsize: 10\nsteps: [{op: alloc}]\n", "size is required"},
		{"bad strategy", "allocator: freelist\nsize: 10\nsteps: [{op: alloc, size: 1, strategy: random}]\n", "random"},
		{"strategy on buddy", "allocator: buddy\nsize: 10\nsteps: [{op: alloc, size: 1, strategy: best}]\n", "freelist only"},
		{"alloc_at on buddy", "allocator: buddy\nsize: 10\nsteps: [{op: alloc_at, addr: 4096, size: 1}]\n", "freelist only"},
		{"dangling ref", "allocator: freelist\nsize: 10\nsteps: [{op: free, ref: x}]\n", `ref "x"`},
		{"free without target", "allocator: freelist\nsize: 10\nsteps: [{op: free}]\n", "ref, or addr and size"},
		{"duplicate name", "allocator: freelist\nsize: 10\nsteps: [{op: alloc, name: a, size: 1}, {op: alloc, name: a, size: 1}]\n", "already used"},
		{"bad expectation", "allocator: freelist\nsize: 10\nsteps: [{op: alloc, size: 1, expect: maybe}]\n", `unknown expectation "maybe"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, tt.doc)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func Test_Run_FreeListScenario(t *testing.T) {
	s := parseFile(t, "freelist.yaml")

	var out bytes.Buffer
	report, err := Run(context.Background(), s, Options{Out: &out})
	require.NoError(t, err)

	require.Len(t, report.Steps, 16)
	require.Equal(t, 3, report.Failures)
	require.Equal(t, types.Address(0x1000), report.Steps[0].Addr)
	require.Equal(t, types.Address(0x1100), report.Steps[1].Addr)
	require.Equal(t, types.Address(0x1180), report.Steps[2].Addr)
	require.Equal(t, types.Address(5120), report.Steps[3].Addr)
	require.Equal(t, "out-of-range", report.Steps[4].Kind)

	// Next fit resumes after d, the last allocation.
	require.Equal(t, types.Address(5220), report.Steps[8].Addr)

	require.Zero(t, report.Allocated)
	require.Equal(t, []types.Block{{Start: 0x1000, Size: 2048, Free: true, Level: -1}}, report.Final)

	dump := out.String()
	require.Contains(t, dump, "== allocated ==")
	require.Contains(t, dump, "== empty ==")
}

func Test_Run_BuddyScenario(t *testing.T) {
	s := parseFile(t, "buddy.yaml")

	var out bytes.Buffer
	opts := Options{Out: &out, Printer: printer.DefaultOptions()}
	opts.Printer.Format = printer.FormatJSON
	report, err := Run(context.Background(), s, opts)
	require.NoError(t, err)

	require.Equal(t, types.Address(0x1000), report.Steps[0].Addr)
	require.Equal(t, types.Address(0x1080), report.Steps[1].Addr)
	require.Equal(t, types.Address(0x1100), report.Steps[2].Addr)
	require.Equal(t, "invalid-argument", report.Steps[4].Kind)
	require.Len(t, report.Final, 1)
	require.True(t, report.Final[0].Free)
	require.Contains(t, out.String(), `"title": "split"`)
}

func Test_Run_ExpectationMismatch(t *testing.T) {
	s, err := parseString(t, `
allocator: freelist
size: 100
steps:
  - {op: alloc, name: a, size: 60, expect: ok}
  - {op: alloc, size: 60, expect: ok}
  - {op: free, ref: a}
`)
	require.NoError(t, err)

	report, err := Run(context.Background(), s, Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "step 1 (alloc): expected success")
	require.Len(t, report.Steps, 2, "the run stops at the failed expectation")
	require.Equal(t, types.Size(60), report.Allocated)

	s.Steps[1].Expect = "not-found"
	_, err = Run(context.Background(), s, Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected not-found, got no-fit")

	s.Steps[1].Expect = "no-fit"
	report, err = Run(context.Background(), s, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, report.Failures)
}

func Test_Run_FreeOfFreedRef(t *testing.T) {
	s, err := parseString(t, `
allocator: buddy-list
size: 256
steps:
  - {op: alloc, name: a, size: 16}
  - {op: free, ref: a}
  - {op: free, ref: a, expect: not-found}
  - {op: reset}
`)
	require.NoError(t, err)

	report, err := Run(context.Background(), s, Options{})
	require.NoError(t, err)
	require.Contains(t, report.Steps[2].Err, `"a" holds no live allocation`)
}

func Test_Run_Cancelled(t *testing.T) {
	s := parseFile(t, "buddy.yaml")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, s, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, report.Steps)
}

func Test_Step_UnknownStrategyFailsTheStep(t *testing.T) {
	s := &Script{Allocator: KindFreeList, Base: DefaultBase, Size: 1024}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tgt, err := newTarget(s, log)
	require.NoError(t, err)
	defer tgt.Close()

	r := &runner{
		script: s,
		target: tgt,
		out:    io.Discard,
		popts:  printer.DefaultOptions(),
		log:    log,
		named:  make(map[string]allocation),
		report: &Report{},
	}

	// Steps built in code skip Validate.
	res, err := r.step(0, Step{Op: OpAlloc, Name: "a", Size: 64, Strategy: "sideways"})
	require.NoError(t, err)
	require.False(t, res.OK())
	require.Equal(t, "invalid-argument", res.Kind)
	require.Contains(t, res.Err, "sideways")
	require.Empty(t, r.named)
	require.Zero(t, tgt.Allocated())

	res, err = r.step(1, Step{Op: OpAlloc, Name: "b", Size: 64, Strategy: "best"})
	require.NoError(t, err)
	require.True(t, res.OK())
	require.Equal(t, types.Address(DefaultBase), res.Addr)
}

func Test_Simulate_ReplaysThroughRun(t *testing.T) {
	for _, kind := range []string{KindFreeList, KindBuddy, KindBuddyList} {
		t.Run(kind, func(t *testing.T) {
			report, s, err := Simulate(context.Background(), SimulateOptions{
				Allocator: kind,
				Size:      16 * 1024,
				Steps:     500,
				Seed:      42,
			})
			require.NoError(t, err)
			require.Len(t, report.Steps, 500)
			require.Len(t, s.Steps, 500)

			// The recorded steps survive a YAML round trip and replay identically.
			doc, err := Marshal(s)
			require.NoError(t, err)
			replay, err := Parse(bytes.NewReader(doc))
			require.NoError(t, err)

			again, err := Run(context.Background(), replay, Options{})
			require.NoError(t, err)
			require.Equal(t, report.Steps, again.Steps)
			require.Equal(t, report.Final, again.Final)
			require.Equal(t, report.Allocated, again.Allocated)
		})
	}
}

func Test_Simulate_FixedStrategy(t *testing.T) {
	_, s, err := Simulate(context.Background(), SimulateOptions{
		Allocator: KindFreeList,
		Size:      4096,
		Steps:     50,
		Seed:      7,
		Strategy:  "best-fit",
	})
	require.NoError(t, err)
	for _, st := range s.Steps {
		if st.Op == OpAlloc {
			require.Equal(t, "best", st.Strategy)
		}
	}

	_, _, err = Simulate(context.Background(), SimulateOptions{Allocator: KindBuddy, Size: 4096, Steps: 1, Strategy: "best"})
	require.ErrorIs(t, err, types.ErrInvalidArgument)

	_, _, err = Simulate(context.Background(), SimulateOptions{Allocator: KindBuddy, Size: 4096})
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}
