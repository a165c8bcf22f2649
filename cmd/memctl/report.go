package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshuapare/memkit/internal/script"
)

// printSteps prints one line per step result.
func printSteps(steps []script.StepResult) {
	for _, st := range steps {
		printInfo("%s\n", stepLine(st))
	}
}

func stepLine(st script.StepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d  %-8s", st.Index, st.Op)
	if st.Name != "" {
		fmt.Fprintf(&b, " %-6s", st.Name)
	} else {
		b.WriteString("       ")
	}
	if st.Addr != 0 {
		fmt.Fprintf(&b, " %-8s", st.Addr)
	}
	if st.Size != 0 {
		fmt.Fprintf(&b, " %d bytes", uint64(st.Size))
	}
	if st.OK() {
		b.WriteString("  " + render(okStyle, "ok"))
	} else {
		b.WriteString("  " + render(failStyle, st.Kind+": "+st.Err))
	}
	return b.String()
}

// printSummary prints the final usage of a report in a box.
func printSummary(title string, r *script.Report) {
	u := r.Usage
	rows := [][2]string{
		{"Allocator", r.Allocator},
		{"Region", r.Region.String()},
		{"Steps", fmt.Sprintf("%d (%d failed)", len(r.Steps), r.Failures)},
		{"Allocated", fmt.Sprintf("%d bytes requested, %d reserved in %d blocks",
			uint64(r.Allocated), uint64(u.AllocatedBytes), u.AllocatedCount)},
		{"Free", fmt.Sprintf("%d bytes in %d blocks", uint64(u.FreeBytes), u.FreeCount)},
		{"Largest free", fmt.Sprintf("%d bytes", uint64(u.LargestFree))},
		{"Fragmentation", fmt.Sprintf("internal %.1f%%, external %.1f%%",
			100*u.InternalFragmentation, 100*u.ExternalFragmentation)},
	}

	lines := []string{render(titleStyle, title)}
	for _, row := range rows {
		lines = append(lines, render(labelStyle, fmt.Sprintf("%-14s", row[0]))+" "+row[1])
	}

	if noColor {
		printInfo("%s\n", strings.Join(lines, "\n"))
		return
	}
	printInfo("%s\n", boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}
