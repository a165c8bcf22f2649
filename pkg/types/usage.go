package types

// Usage holds occupancy and fragmentation metrics computed from a block
// snapshot.
type Usage struct {
	TotalSize      Size `json:"totalSize"`      // Region size
	ManagedSize    Size `json:"managedSize"`    // Bytes covered by blocks (buddy roots may be smaller than the region)
	AllocatedBytes Size `json:"allocatedBytes"` // Sum of allocated block sizes
	RequestedBytes Size `json:"requestedBytes"` // Sum of requested sizes of allocated blocks
	FreeBytes      Size `json:"freeBytes"`      // Sum of free block sizes
	LargestFree    Size `json:"largestFree"`    // Largest single free block
	AllocatedCount int  `json:"allocatedCount"`
	FreeCount      int  `json:"freeCount"`

	// InternalFragmentation is the share of allocated block bytes the
	// callers did not ask for (rounding waste), in [0, 1].
	InternalFragmentation float64 `json:"internalFragmentation"`

	// ExternalFragmentation is 1 - LargestFree/FreeBytes, in [0, 1].
	// Zero when all free space is one block or there is none.
	ExternalFragmentation float64 `json:"externalFragmentation"`
}

// Summarize computes Usage for blocks inside region.
func Summarize(region Region, blocks []Block) Usage {
	u := Usage{TotalSize: region.Size}
	for _, b := range blocks {
		u.ManagedSize += b.Size
		if b.Free {
			u.FreeBytes += b.Size
			u.FreeCount++
			if b.Size > u.LargestFree {
				u.LargestFree = b.Size
			}
			continue
		}
		u.AllocatedBytes += b.Size
		u.RequestedBytes += b.Requested
		u.AllocatedCount++
	}
	if u.AllocatedBytes > 0 && u.RequestedBytes < u.AllocatedBytes {
		u.InternalFragmentation = float64(u.AllocatedBytes-u.RequestedBytes) / float64(u.AllocatedBytes)
	}
	if u.FreeBytes > 0 {
		u.ExternalFragmentation = 1 - float64(u.LargestFree)/float64(u.FreeBytes)
	}
	return u
}
