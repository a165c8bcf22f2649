// Package printer writes allocator block snapshots as text tables or JSON.
//
// Any types.Inspector can be printed; the buddy columns (LEVEL, REQUESTED)
// appear only when the blocks carry a tree level.
//
//	p := printer.New(os.Stdout, printer.DefaultOptions())
//	if err := p.Print(alloc); err != nil {
//	    return err
//	}
package printer
