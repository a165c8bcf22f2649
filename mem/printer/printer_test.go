package printer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/mem/buddy"
	"github.com/joshuapare/memkit/mem/freelist"
	"github.com/joshuapare/memkit/pkg/types"
)

func newFreeList(t *testing.T) *freelist.Allocator {
	t.Helper()
	fl, err := freelist.New(0x1000, 2048)
	require.NoError(t, err)
	_, err = fl.Alloc(256, types.FirstFit)
	require.NoError(t, err)
	_, err = fl.Alloc(128, types.BestFit)
	require.NoError(t, err)
	return fl
}

func TestPrinter_Text_FreeList(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, DefaultOptions())
	require.NoError(t, p.Print(newFreeList(t)))

	out := buf.String()
	t.Logf("Text output:\n%s", out)

	require.Contains(t, out, "region [0x1000, 0x1800), 2,048 bytes")
	require.Contains(t, out, "0x1000")
	require.Contains(t, out, "0x1180")
	require.Contains(t, out, "1,664")
	require.Contains(t, out, "allocated 384 bytes in 2 blocks, 1,664 free in 1 blocks")
	require.NotContains(t, out, "LEVEL", "free-list blocks have no level")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6) // region, header, 3 blocks, summary
}

func TestPrinter_Text_Buddy(t *testing.T) {
	b, err := buddy.New(0x1000, 1024)
	require.NoError(t, err)
	_, err = b.Alloc(70)
	require.NoError(t, err)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Title = "after alloc"
	require.NoError(t, New(&buf, opts).Print(b))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "== after alloc ==\n"))
	require.Contains(t, out, "LEVEL")
	require.Contains(t, out, "REQUESTED")
	require.Contains(t, out, "allocated 70 bytes")
	require.Contains(t, out, "internal 45.3%")
}

func TestPrinter_Text_Filters(t *testing.T) {
	fl := newFreeList(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.ShowAllocated = false
	opts.ShowSummary = false
	opts.Grouping = false
	require.NoError(t, New(&buf, opts).Print(fl))

	out := buf.String()
	require.NotContains(t, out, "allocated")
	require.Contains(t, out, "1664")
	require.NotContains(t, out, "1,664")
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJSON
	require.NoError(t, New(&buf, opts).Print(newFreeList(t)))

	var result struct {
		Region struct {
			Base  uint64 `json:"base"`
			Size  uint64 `json:"size"`
			Limit uint64 `json:"limit"`
		} `json:"region"`
		Allocated uint64        `json:"allocated"`
		Blocks    []types.Block `json:"blocks"`
		Usage     *types.Usage  `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))

	require.Equal(t, uint64(0x1000), result.Region.Base)
	require.Equal(t, uint64(0x1800), result.Region.Limit)
	require.Equal(t, uint64(384), result.Allocated)
	require.Len(t, result.Blocks, 3)
	require.True(t, result.Blocks[2].Free)
	require.NotNil(t, result.Usage)
	require.Equal(t, types.Size(1664), result.Usage.LargestFree)
}

func TestPrinter_JSON_NoSummary(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJSON
	opts.ShowSummary = false
	opts.ShowFree = false
	opts.ShowAllocated = false
	require.NoError(t, New(&buf, opts).Print(newFreeList(t)))

	var result map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	require.NotContains(t, result, "usage")
	require.Equal(t, []any{}, result["blocks"])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatText, f)

	_, err = ParseFormat("reg")
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}
