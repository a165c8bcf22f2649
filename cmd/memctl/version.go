package main

import (
	"fmt"
	"runtime"
	rdebug "runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=...". Build info fills them in for
// plain go install builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const libraryPath = "github.com/joshuapare/memkit"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		bi, ok := rdebug.ReadBuildInfo()
		return printVersion(versionFrom(bi, ok))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionInfo is what `memctl version` reports.
type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
	Library string `json:"library"` // memkit module version, "(local)" when replaced
	Go      string `json:"go"`
}

// versionFrom merges the linker-set variables with the binary's build info.
// Linker values win.
func versionFrom(bi *rdebug.BuildInfo, ok bool) versionInfo {
	v := versionInfo{
		Version: version,
		Commit:  commit,
		Built:   date,
		Library: "unknown",
		Go:      runtime.Version(),
	}
	if !ok || bi == nil {
		return v
	}
	if bi.GoVersion != "" {
		v.Go = bi.GoVersion
	}
	if v.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if v.Commit == "none" {
				v.Commit = s.Value
			}
		case "vcs.time":
			if v.Built == "unknown" {
				v.Built = s.Value
			}
		}
	}
	for _, dep := range bi.Deps {
		if dep.Path != libraryPath {
			continue
		}
		v.Library = dep.Version
		if dep.Replace != nil {
			v.Library = "(local)"
			if dep.Replace.Version != "" {
				v.Library = dep.Replace.Version
			}
		}
	}
	return v
}

func printVersion(v versionInfo) error {
	if jsonOut {
		return printJSON(v)
	}
	fmt.Printf("memctl %s\n", v.Version)
	fmt.Printf("  commit:  %s\n", v.Commit)
	fmt.Printf("  built:   %s\n", v.Built)
	fmt.Printf("  memkit:  %s\n", v.Library)
	fmt.Printf("  go:      %s\n", v.Go)
	return nil
}
