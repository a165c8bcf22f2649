package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/cmd/memctl/logger"
	"github.com/joshuapare/memkit/internal/script"
)

var (
	simAllocator string
	simBase      uint64
	simSize      uint64
	simMinBlock  uint64
	simSteps     int
	simSeed      int64
	simStrategy  string
	simMaxReq    uint64
	simSave      string
)

func init() {
	rootCmd.AddCommand(newSimulateCmd())
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded random alloc/free workload",
		Long: `The simulate command issues random allocations and frees against an
allocator, checking every invariant after each step, and prints the final
usage. The same seed always produces the same run; --save writes the
executed steps as a scenario that "memctl run" replays.

Example:
  memctl simulate --allocator buddy --size 65536 --steps 5000
  memctl simulate --strategy best --seed 7 --save best.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&simAllocator, "allocator", "", "Allocator: freelist, buddy or buddy-list (default from MEMCTL_DEFAULT_ALLOCATOR)")
	cmd.Flags().Uint64Var(&simBase, "base", script.DefaultBase, "Region base address")
	cmd.Flags().Uint64Var(&simSize, "size", 64*1024, "Region size in bytes")
	cmd.Flags().Uint64Var(&simMinBlock, "min-block", 0, "Minimum buddy block size (buddy allocators only)")
	cmd.Flags().IntVar(&simSteps, "steps", 1000, "Number of operations")
	cmd.Flags().Int64Var(&simSeed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&simStrategy, "strategy", "", "Fix the free-list strategy (default from MEMCTL_DEFAULT_STRATEGY, else random per step)")
	cmd.Flags().Uint64Var(&simMaxReq, "max-request", 0, "Largest request size (default size/8)")
	cmd.Flags().StringVar(&simSave, "save", "", "Write the executed steps as a scenario file")
	return cmd
}

func runSimulate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	alloc := simAllocator
	if alloc == "" {
		alloc = cfg.DefaultAllocator
	}
	strategy := simStrategy
	if strategy == "" && alloc == script.KindFreeList {
		strategy = cfg.DefaultStrategy
	}

	printVerbose("Simulating %d steps on %s (seed %d)\n", simSteps, alloc, simSeed)
	logger.Info("simulating", "allocator", alloc, "size", simSize, "steps", simSteps, "seed", simSeed)

	report, s, err := script.Simulate(ctx, script.SimulateOptions{
		Allocator:  alloc,
		Base:       simBase,
		Size:       simSize,
		MinBlock:   simMinBlock,
		Steps:      simSteps,
		Seed:       simSeed,
		Strategy:   strategy,
		MaxRequest: simMaxReq,
		Logger:     logger.Scenario("simulate"),
	})
	if report == nil {
		return err
	}

	if simSave != "" && s != nil {
		doc, mErr := script.Marshal(s)
		if mErr != nil {
			return fmt.Errorf("failed to encode scenario: %w", mErr)
		}
		if wErr := os.WriteFile(simSave, doc, 0o644); wErr != nil {
			return fmt.Errorf("failed to save scenario: %w", wErr)
		}
		printVerbose("Saved %d steps to %s\n", len(s.Steps), simSave)
	}

	if jsonOut {
		if jErr := printJSON(report); jErr != nil {
			return jErr
		}
		return err
	}

	if verbose {
		printSteps(report.Steps)
		printInfo("\n")
	}
	printSummary(fmt.Sprintf("simulate seed=%d", simSeed), report)
	return err
}
