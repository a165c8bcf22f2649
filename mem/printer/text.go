package printer

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/joshuapare/memkit/pkg/types"
)

// printText writes one row per block followed by the summary line.
//
//	#  START   SIZE  STATE      LEVEL  REQUESTED
//	0  0x1000  128   allocated  3      70
func (p *Printer) printText(i types.Inspector, blocks []types.Block) error {
	region := i.Region()
	if p.opts.Title != "" {
		if _, err := fmt.Fprintf(p.writer, "== %s ==\n", p.opts.Title); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(p.writer, "region %s, %s bytes\n", region, p.bytes(region.Size)); err != nil {
		return err
	}

	tree := hasLevels(blocks)
	tw := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)

	header := []string{"#", "START", "SIZE", "STATE"}
	if tree {
		header = append(header, "LEVEL", "REQUESTED")
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for idx, b := range blocks {
		row := []string{
			fmt.Sprintf("%d", idx),
			b.Start.String(),
			p.bytes(b.Size),
			state(b),
		}
		if tree {
			req := "-"
			if !b.Free {
				req = p.bytes(b.Requested)
			}
			row = append(row, fmt.Sprintf("%d", b.Level), req)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !p.opts.ShowSummary {
		return nil
	}
	u := types.Summarize(region, i.Blocks())
	_, err := fmt.Fprintf(p.writer,
		"allocated %s bytes in %d blocks, %s free in %d blocks, largest free %s; fragmentation internal %.1f%% external %.1f%%\n",
		p.bytes(i.Allocated()), u.AllocatedCount,
		p.bytes(u.FreeBytes), u.FreeCount,
		p.bytes(u.LargestFree),
		100*u.InternalFragmentation, 100*u.ExternalFragmentation,
	)
	return err
}

func state(b types.Block) string {
	if b.Free {
		return "free"
	}
	return "allocated"
}

func hasLevels(blocks []types.Block) bool {
	for _, b := range blocks {
		if b.Level >= 0 {
			return true
		}
	}
	return false
}
