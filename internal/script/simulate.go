package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"github.com/joshuapare/memkit/mem/printer"
	"github.com/joshuapare/memkit/pkg/types"
)

// SimulateOptions configures a random workload.
type SimulateOptions struct {
	Allocator string
	Base      uint64
	Size      uint64
	MinBlock  uint64
	Steps     int
	Seed      int64

	// Strategy fixes the free-list strategy. Empty picks one per step.
	Strategy string

	// MaxRequest bounds request sizes. Zero means Size/8.
	MaxRequest uint64

	Logger *slog.Logger
}

// Simulate runs a seeded random alloc/free workload, checking invariants
// after every step. It returns the report and the executed steps as a
// Script, which replays the same run through Run.
func Simulate(ctx context.Context, o SimulateOptions) (*Report, *Script, error) {
	s := &Script{
		Allocator: o.Allocator,
		Base:      o.Base,
		Size:      o.Size,
		MinBlock:  o.MinBlock,
		Verify:    true,
	}
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	if o.Steps <= 0 {
		return nil, nil, invalid("steps must be positive")
	}
	var fixed *types.Strategy
	if o.Strategy != "" {
		if s.Allocator != KindFreeList {
			return nil, nil, invalid("strategy applies to freelist only")
		}
		st, err := types.ParseStrategy(o.Strategy)
		if err != nil {
			return nil, nil, err
		}
		fixed = &st
	}

	log := o.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t, err := newTarget(s, log)
	if err != nil {
		return nil, nil, err
	}
	defer t.Close()

	maxReq := o.MaxRequest
	if maxReq == 0 {
		maxReq = max(o.Size/8, 1)
	}
	minReq := max(o.MinBlock, 1)
	if maxReq < minReq {
		maxReq = minReq
	}

	rng := rand.New(rand.NewSource(o.Seed))
	r := &runner{
		script: s,
		target: t,
		out:    io.Discard,
		popts:  printer.DefaultOptions(),
		log:    log,
		named:  make(map[string]allocation),
		report: &Report{Allocator: s.Allocator, Region: t.Region()},
	}

	var live []string
	for i := 0; i < o.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return r.finish(), s, fmt.Errorf("script: simulation stopped at step %d: %w", i, err)
		}

		var st Step
		if len(live) > 0 && rng.Intn(5) < 2 {
			k := rng.Intn(len(live))
			st = Step{Op: OpFree, Ref: live[k]}
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]
		} else {
			st = Step{
				Op:   OpAlloc,
				Name: fmt.Sprintf("a%d", i),
				Size: minReq + uint64(rng.Int63n(int64(maxReq-minReq+1))),
			}
			if s.Allocator == KindFreeList {
				strategy := types.Strategies[rng.Intn(len(types.Strategies))]
				if fixed != nil {
					strategy = *fixed
				}
				st.Strategy = strategy.String()
			}
		}

		res, err := r.step(i, st)
		if err != nil {
			return r.finish(), s, err
		}
		if res.OK() && st.Op == OpAlloc {
			live = append(live, st.Name)
		}
		if !res.OK() {
			r.report.Failures++
		}
		s.Steps = append(s.Steps, st)
		r.report.Steps = append(r.report.Steps, res)

		if err := t.check(); err != nil {
			return r.finish(), s, fmt.Errorf("script: invariants after step %d (%s): %w", i, st.Op, err)
		}
	}
	return r.finish(), s, nil
}

// finish fills in the final state of the report.
func (r *runner) finish() *Report {
	r.report.Allocated = r.target.Allocated()
	r.report.Final = r.target.Blocks()
	r.report.Usage = types.Summarize(r.target.Region(), r.report.Final)
	return r.report
}
