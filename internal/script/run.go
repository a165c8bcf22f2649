package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joshuapare/memkit/mem/printer"
	"github.com/joshuapare/memkit/pkg/types"
)

// Options controls Run.
type Options struct {
	// Out receives dump output. Nil discards it.
	Out io.Writer

	// Printer formats dumps. Title is set per step.
	Printer printer.Options

	// Logger receives step and allocator events at Debug level.
	Logger *slog.Logger
}

// StepResult records the outcome of one step.
type StepResult struct {
	Index int           `json:"index"`
	Op    string        `json:"op"`
	Name  string        `json:"name,omitempty"`
	Addr  types.Address `json:"addr,omitempty"`
	Size  types.Size    `json:"size,omitempty"`
	Err   string        `json:"error,omitempty"`
	Kind  string        `json:"kind,omitempty"`
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool { return r.Err == "" }

// Report is the result of a run.
type Report struct {
	Allocator string        `json:"allocator"`
	Region    types.Region  `json:"region"`
	Steps     []StepResult  `json:"steps"`
	Failures  int           `json:"failures"`
	Allocated types.Size    `json:"allocated"`
	Usage     types.Usage   `json:"usage"`
	Final     []types.Block `json:"final"`
}

// allocation is a named live block.
type allocation struct {
	addr types.Address
	size types.Size
}

// Run executes s. A step failure is recorded in the report; Run returns an
// error only when a step's expectation is not met, an invariant check
// fails, the context is cancelled or a dump cannot be written. The report
// covers the steps executed so far in every case.
func Run(ctx context.Context, s *Script, opts Options) (*Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	t, err := newTarget(s, log)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	r := &runner{
		script: s,
		target: t,
		out:    out,
		popts:  opts.Printer,
		log:    log,
		named:  make(map[string]allocation),
		report: &Report{Allocator: s.Allocator, Region: t.Region()},
	}
	if r.popts.Format == "" {
		r.popts = printer.DefaultOptions()
	}

	runErr := r.run(ctx)
	return r.finish(), runErr
}

type runner struct {
	script *Script
	target target
	out    io.Writer
	popts  printer.Options
	log    *slog.Logger
	named  map[string]allocation
	report *Report
}

func (r *runner) run(ctx context.Context) error {
	for i, st := range r.script.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("script: stopped before step %d: %w", i, err)
		}

		res, err := r.step(i, st)
		if err != nil {
			return err
		}
		if !res.OK() {
			r.report.Failures++
		}
		r.report.Steps = append(r.report.Steps, res)
		r.log.Debug("script: step",
			"index", i,
			"op", st.Op,
			"name", st.Name,
			"addr", res.Addr,
			"error", res.Err,
		)

		if err := expectation(st, res); err != nil {
			return fmt.Errorf("script: step %d (%s): %w", i, st.Op, err)
		}
		if r.script.Verify {
			if err := r.target.check(); err != nil {
				return fmt.Errorf("script: invariants after step %d (%s): %w", i, st.Op, err)
			}
		}
	}
	return nil
}

// step executes one operation. The returned error is fatal to the run.
func (r *runner) step(i int, st Step) (StepResult, error) {
	res := StepResult{Index: i, Op: st.Op, Name: st.Name, Size: types.Size(st.Size)}

	var opErr error
	switch st.Op {
	case OpAlloc:
		strategy := types.FirstFit
		if st.Strategy != "" {
			if strategy, opErr = types.ParseStrategy(st.Strategy); opErr != nil {
				break
			}
		}
		res.Addr, opErr = r.target.alloc(res.Size, strategy)
	case OpAllocAt:
		res.Addr, opErr = r.target.allocAt(types.Address(st.Addr), res.Size)
	case OpFree:
		addr, size := types.Address(st.Addr), types.Size(st.Size)
		if st.Ref != "" {
			a, ok := r.named[st.Ref]
			if !ok {
				opErr = types.Errorf(types.ErrKindNotFound, "script: %q holds no live allocation", st.Ref)
				break
			}
			addr, size = a.addr, a.size
		}
		res.Addr, res.Size = addr, size
		if opErr = r.target.free(addr, size); opErr == nil && st.Ref != "" {
			delete(r.named, st.Ref)
		}
	case OpDump:
		opts := r.popts
		opts.Title = st.Name
		if opts.Title == "" {
			opts.Title = fmt.Sprintf("step %d", i)
		}
		if err := printer.New(r.out, opts).Print(r.target); err != nil {
			return res, fmt.Errorf("script: dump at step %d: %w", i, err)
		}
	case OpCheck:
		if err := r.target.check(); err != nil {
			return res, fmt.Errorf("script: check at step %d: %w", i, err)
		}
	case OpReset:
		opErr = r.target.Reset()
		clear(r.named)
	}

	if opErr != nil {
		res.Err = opErr.Error()
		if k, ok := types.KindOf(opErr); ok {
			res.Kind = kindName(k)
		}
		return res, nil
	}
	if st.Name != "" && (st.Op == OpAlloc || st.Op == OpAllocAt) {
		r.named[st.Name] = allocation{addr: res.Addr, size: res.Size}
	}
	return res, nil
}

// expectation compares a step's outcome with what it declared.
func expectation(st Step, res StepResult) error {
	switch st.Expect {
	case ExpectAny:
		return nil
	case ExpectOK:
		if !res.OK() {
			return fmt.Errorf("expected success: %s", res.Err)
		}
		return nil
	}
	if res.OK() {
		return fmt.Errorf("expected %s, step succeeded", st.Expect)
	}
	if res.Kind != st.Expect {
		return fmt.Errorf("expected %s, got %s: %s", st.Expect, res.Kind, res.Err)
	}
	return nil
}
