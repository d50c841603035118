package memory_map

import (
	"fmt"
	"iter"
)

// Regions walks the address space behind q starting at address 0.
//
// Each step asks for the region containing or following the current address
// and then advances to the end of that region. The walk stops when the querier
// fails, including with ErrNoMoreRegions. A zero-size region or a region that
// does not move the walk forward is yielded as an error and ends the sequence.
// The sequence can be ranged over more than once; every pass queries afresh.
func Regions(q RegionQuerier) iter.Seq2[MemoryRegion, error] {
	return func(yield func(MemoryRegion, error) bool) {
		var addr uint64
		for {
			region, err := q.QueryRegion(addr)
			if err != nil {
				return
			}

			if region.Size == 0 {
				yield(region, fmt.Errorf("%w at 0x%x", ErrZeroSizeRegion, region.Address))
				return
			}

			end := region.End()
			wrapped := end < region.Address
			if !wrapped && end <= addr {
				yield(region, fmt.Errorf("%w: region 0x%x-0x%x for query 0x%x", ErrNoProgress, region.Address, end, addr))
				return
			}

			if !yield(region, nil) {
				return
			}

			if wrapped {
				return
			}
			addr = end
		}
	}
}

// Enumerate collects Regions(q) into a slice.
//
// A querier that fails on the very first query produces an empty result and
// no error. On an enumeration fault the regions gathered before the fault are
// returned together with the error.
func Enumerate(q RegionQuerier) ([]MemoryRegion, error) {
	var regions []MemoryRegion
	for region, err := range Regions(q) {
		if err != nil {
			return regions, err
		}
		regions = append(regions, region)
	}
	return regions, nil
}
