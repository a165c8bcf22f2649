// Command benchreport turns `go test -bench` output into a markdown report
// that ranks allocator variants (strategies, tree vs list buddy) against the
// fastest variant of each benchmark family.
//
//	go test -bench . -benchmem ./mem/... | go run ./scripts/benchreport
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Family      string // Benchmark name before the first "/", without "Benchmark"
	Variant     string // Sub-benchmark name, or the family for flat benchmarks
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// Ranking places one variant relative to the fastest of its family.
type Ranking struct {
	BenchmarkResult
	Relative float64 // NsPerOp / fastest NsPerOp, 1.0 for the fastest
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

// benchmarkRegex matches a benchmark output line:
// Benchmark_Alloc_Strategies/best-8    10000    12450 ns/op    4096 B/op    8 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

// procSuffix matches the -GOMAXPROCS suffix go test appends.
var procSuffix = regexp.MustCompile(`-\d+$`)

func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	report := generateMarkdownReport(rank(results), time.Now())

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Accept `go test -json` events as well as plain output.
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		r := BenchmarkResult{Name: procSuffix.ReplaceAllString(matches[1], "")}
		r.Iterations, _ = strconv.Atoi(matches[2])
		r.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
		if matches[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		r.Family, r.Variant = splitName(r.Name)
		results = append(results, r)
	}

	return results
}

// splitName maps Benchmark_Alloc_Strategies/best to ("Alloc_Strategies",
// "best"). Flat benchmarks such as Benchmark_Tree_AllocFree share a family
// with their siblings by the suffix after the first word: ("AllocFree",
// "Tree").
func splitName(name string) (family, variant string) {
	base := strings.TrimPrefix(strings.TrimPrefix(name, "Benchmark"), "_")
	if i := strings.Index(base, "/"); i >= 0 {
		return base[:i], base[i+1:]
	}
	if i := strings.Index(base, "_"); i > 0 {
		return base[i+1:], base[:i]
	}
	return base, base
}

// rank groups results by family and orders each family fastest first.
func rank(results []BenchmarkResult) []Ranking {
	fastest := make(map[string]float64)
	for _, r := range results {
		if f, ok := fastest[r.Family]; !ok || r.NsPerOp < f {
			fastest[r.Family] = r.NsPerOp
		}
	}

	out := make([]Ranking, 0, len(results))
	for _, r := range results {
		rel := 0.0
		if f := fastest[r.Family]; f > 0 {
			rel = r.NsPerOp / f
		}
		out = append(out, Ranking{BenchmarkResult: r, Relative: rel})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		return out[i].NsPerOp < out[j].NsPerOp
	})
	return out
}

func generateMarkdownReport(rankings []Ranking, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	if len(rankings) == 0 {
		sb.WriteString("No benchmark results found.\n")
		return sb.String()
	}

	family := ""
	for _, r := range rankings {
		if r.Family != family {
			family = r.Family
			fmt.Fprintf(&sb, "## %s\n\n", family)
			sb.WriteString("| Variant | ns/op | vs fastest | B/op | allocs/op |\n")
			sb.WriteString("|---------|-------|------------|------|-----------|\n")
		}
		marker := ""
		if r.Relative == 1.0 {
			marker = " ✓"
		}
		fmt.Fprintf(&sb, "| %s%s | %s | %.2fx | %s | %d |\n",
			r.Variant, marker,
			formatNumber(r.NsPerOp),
			r.Relative,
			formatBytes(r.BytesPerOp),
			r.AllocsPerOp,
		)
		if lastOfFamily(rankings, r) {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// lastOfFamily reports whether r is the last ranking of its family.
func lastOfFamily(rankings []Ranking, r Ranking) bool {
	for i := range rankings {
		if rankings[i].Name == r.Name {
			return i == len(rankings)-1 || rankings[i+1].Family != r.Family
		}
	}
	return true
}

func formatNumber(n float64) string {
	switch {
	case n >= 1e6:
		return fmt.Sprintf("%.2fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.2fK", n/1e3)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
