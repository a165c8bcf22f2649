package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/cmd/memctl/logger"
	"github.com/joshuapare/memkit/internal/script"
	"github.com/joshuapare/memkit/mem/printer"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run an allocator scenario",
		Long: `The run command executes a YAML scenario step by step. Dump steps print
the block list; a failing allocation is reported but only stops the run
when the step declares an expectation it does not meet.

Example:
  memctl run scenario.yaml
  memctl run scenario.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args)
		},
	}
	return cmd
}

func runRun(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path := args[0]
	printVerbose("Loading scenario: %s\n", path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()

	s, err := script.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	opts := script.Options{
		Out:     os.Stdout,
		Printer: printer.DefaultOptions(),
		Logger:  logger.Scenario(path),
	}
	if jsonOut || quiet {
		// Dumps would interleave with the JSON report.
		opts.Out = io.Discard
	}

	logger.Info("running scenario", "path", path, "allocator", s.Allocator, "steps", len(s.Steps))
	report, runErr := script.Run(ctx, s, opts)
	if report == nil {
		return runErr
	}
	if runErr != nil {
		logger.Error("scenario failed", "path", path, "error", runErr)
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
		return runErr
	}

	printInfo("\n")
	printSteps(report.Steps)
	printInfo("\n")
	printSummary(path, report)
	return runErr
}
