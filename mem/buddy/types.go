package buddy

import (
	"io"
	"log/slog"
	"math/bits"

	"github.com/joshuapare/memkit/pkg/types"
)

// DefaultMinBlockSize is the smallest block size unless WithMinBlockSize
// says otherwise.
const DefaultMinBlockSize types.Size = 1

const nilNode int32 = -1

// node is one tree node. A node with no children is a leaf (a block).
type node struct {
	start types.Address
	size  types.Size
	level int

	free      bool       // only leaves can be free
	requested types.Size // caller's request, allocated leaves only

	parent, left, right int32
}

func (n *node) leaf() bool { return n.left == nilNode }

// Stats holds allocator counters for testing and instrumentation.
type Stats struct {
	AllocCalls     int    // Alloc() calls
	AllocFailures  int    // Alloc() calls that returned an error
	FreeCalls      int    // Free() calls
	FreeFailures   int    // Free() calls that returned an error
	BytesRequested uint64 // Sum of requested sizes handed out
	BytesReserved  uint64 // Sum of rounded block sizes handed out
	Splits         int    // Blocks split into two buddies
	Merges         int    // Buddy pairs merged into their parent
}

// Option configures an Allocator or ListAllocator.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	minBlock types.Size
}

func defaultConfig() config {
	return config{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		minBlock: DefaultMinBlockSize,
	}
}

// WithMinBlockSize sets the smallest block size. Zero keeps the default.
func WithMinBlockSize(n types.Size) Option {
	return func(c *config) {
		if n > 0 {
			c.minBlock = n
		}
	}
}

// WithLogger routes split, merge, alloc and free events to l at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// NextPowerOfTwo returns the smallest power of two >= n. It returns 1 for 0
// and n itself when n is already a power of two. Above 1<<63 no uint64 power
// of two qualifies and the result is 0.
func NextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	if n > 1<<63 {
		return 0
	}
	return 1 << bits.Len64(n-1)
}

// geometry is the sizing shared by both implementations.
type geometry struct {
	region   types.Region
	minBlock types.Size
	maxLevel int
	rootSize types.Size
}

func newGeometry(base types.Address, size, minBlock types.Size) (geometry, error) {
	region, err := types.NewRegion(base, size)
	if err != nil {
		return geometry{}, err
	}
	if size <= minBlock {
		return geometry{}, types.Errorf(types.ErrKindInvalidArgument,
			"buddy: region of %d bytes cannot hold two %d-byte blocks", uint64(size), uint64(minBlock))
	}
	maxLevel := bits.Len64(uint64(size/minBlock)) - 1
	return geometry{
		region:   region,
		minBlock: minBlock,
		maxLevel: maxLevel,
		rootSize: minBlock << maxLevel,
	}, nil
}

// blockSize rounds requested up to the block that serves it. The caller has
// already checked minBlock <= requested <= rootSize, so the result never
// exceeds rootSize.
func (g *geometry) blockSize(requested types.Size) types.Size {
	units := (requested + g.minBlock - 1) / g.minBlock
	return g.minBlock * types.Size(NextPowerOfTwo(uint64(units)))
}

// checkRequest validates an allocation request.
func (g *geometry) checkRequest(requested types.Size) error {
	if requested < g.minBlock || requested >= g.region.Size {
		return types.Errorf(types.ErrKindInvalidArgument,
			"buddy: request of %d bytes outside [%d, %d)",
			uint64(requested), uint64(g.minBlock), uint64(g.region.Size))
	}
	if requested > g.rootSize {
		return types.Errorf(types.ErrKindNoFit,
			"buddy: request of %d bytes exceeds the %d-byte root block",
			uint64(requested), uint64(g.rootSize))
	}
	return nil
}
