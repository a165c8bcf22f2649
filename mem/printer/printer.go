package printer

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/memkit/pkg/types"
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs a human-readable block table.
	FormatText Format = "text"

	// FormatJSON outputs one JSON document per Print call.
	FormatJSON Format = "json"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", types.Errorf(types.ErrKindInvalidArgument, "printer: unknown format %q", s)
	}
}

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// ShowFree includes free blocks.
	// Default: true
	ShowFree bool

	// ShowAllocated includes allocated blocks.
	// Default: true
	ShowAllocated bool

	// ShowSummary appends usage totals (text) or a usage object (json).
	// Default: true
	ShowSummary bool

	// Grouping formats byte counts with thousands separators (text only).
	// Default: true
	Grouping bool

	// Title is printed above the table when set (text only).
	Title string
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:        FormatText,
		ShowFree:      true,
		ShowAllocated: true,
		ShowSummary:   true,
		Grouping:      true,
	}
}

// Printer writes allocator snapshots.
type Printer struct {
	opts   Options
	writer io.Writer
	num    *message.Printer
}

// New creates a new Printer writing to w.
//
// Example:
//
//	p := printer.New(os.Stdout, printer.DefaultOptions())
//	p.Print(fl)
func New(w io.Writer, opts Options) *Printer {
	return &Printer{
		opts:   opts,
		writer: w,
		num:    message.NewPrinter(language.English),
	}
}

// Print writes the blocks, and optionally the usage summary, of i.
func (p *Printer) Print(i types.Inspector) error {
	blocks := p.filter(i.Blocks())

	switch p.opts.Format {
	case FormatJSON:
		return p.printJSON(i, blocks)
	case FormatText:
		return p.printText(i, blocks)
	default:
		return fmt.Errorf("printer: unknown format %q", p.opts.Format)
	}
}

// filter drops the blocks the options exclude.
func (p *Printer) filter(blocks []types.Block) []types.Block {
	if p.opts.ShowFree && p.opts.ShowAllocated {
		return blocks
	}
	out := blocks[:0:0]
	for _, b := range blocks {
		if (b.Free && p.opts.ShowFree) || (!b.Free && p.opts.ShowAllocated) {
			out = append(out, b)
		}
	}
	return out
}

// bytes formats a byte count, grouped when the options ask for it.
func (p *Printer) bytes(n types.Size) string {
	if p.opts.Grouping {
		return p.num.Sprintf("%d", uint64(n))
	}
	return fmt.Sprintf("%d", uint64(n))
}
