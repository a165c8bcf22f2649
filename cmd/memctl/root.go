package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/cmd/memctl/logger"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	noColor bool
	debug   bool

	// cfg is loaded from the environment before any command runs.
	cfg = &Config{DefaultAllocator: "freelist", LogLevel: "info"}
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Run and inspect memory allocator simulations",
	Long: `memctl drives the free-list and buddy allocator simulations.
It runs YAML scenarios step by step, generates seeded random workloads,
and checks allocator invariants after every operation.

Environment:
  MEMCTL_LOG                enable JSON logging to a file
  MEMCTL_LOG_DIR            log directory (default ~/.memctl/logs)
  MEMCTL_LOG_LEVEL          debug, info, warn or error
  MEMCTL_DEFAULT_ALLOCATOR  allocator for simulate (freelist, buddy, buddy-list)
  MEMCTL_DEFAULT_STRATEGY   free-list strategy for simulate`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		BoolVarP(&debug, "debug", "d", false, "Log allocator events at debug level")
}

// setup loads the environment configuration and initializes logging.
func setup(_ *cobra.Command, _ []string) error {
	c, err := LoadConfig()
	if err != nil {
		return err
	}
	cfg = c

	level, _ := cfg.Level()
	if debug {
		level = slog.LevelDebug
	}
	path, err := logger.Init(logger.Options{
		Enabled: cfg.Log || debug,
		LogDir:  cfg.LogDir,
		Level:   level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
		return nil
	}
	if path != "" {
		printVerbose("Logging to %s\n", path)
	}
	return nil
}

func execute() {
	err := rootCmd.Execute()
	_ = logger.Close()
	if err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
