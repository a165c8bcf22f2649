package printer

import (
	"encoding/json"

	"github.com/joshuapare/memkit/pkg/types"
)

// jsonRegion is the region in JSON format.
type jsonRegion struct {
	Base  types.Address `json:"base"`
	Size  types.Size    `json:"size"`
	Limit types.Address `json:"limit"`
}

// jsonDump is one Print call in JSON format.
type jsonDump struct {
	Title     string        `json:"title,omitempty"`
	Region    jsonRegion    `json:"region"`
	Allocated types.Size    `json:"allocated"`
	Blocks    []types.Block `json:"blocks"`
	Usage     *types.Usage  `json:"usage,omitempty"`
}

func (p *Printer) printJSON(i types.Inspector, blocks []types.Block) error {
	region := i.Region()
	out := jsonDump{
		Title:     p.opts.Title,
		Region:    jsonRegion{Base: region.Base, Size: region.Size, Limit: region.Limit()},
		Allocated: i.Allocated(),
		Blocks:    blocks,
	}
	if out.Blocks == nil {
		out.Blocks = []types.Block{}
	}
	if p.opts.ShowSummary {
		u := types.Summarize(region, i.Blocks())
		out.Usage = &u
	}

	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
