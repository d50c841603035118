package memory_map

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoMoreRegions is returned by a RegionQuerier when nothing is mapped at or above the address
	ErrNoMoreRegions = errors.New("no more regions")

	// ErrZeroSizeRegion is a fatal enumeration fault: the walk cannot advance past a zero-size region
	ErrZeroSizeRegion = errors.New("zero-size region")

	// ErrNoProgress is a fatal enumeration fault: the querier returned a region ending at or before the query address
	ErrNoProgress = errors.New("region enumeration made no progress")
)

// MemoryRegion represents a memory region in a process's address space
type MemoryRegion struct {
	Address uint64 `json:"address"` // The starting address of the memory region
	Size    uint64 `json:"size"`    // The size of the memory region in bytes
	Perms   string `json:"perms"`   // Permissions (e.g., "r-xp" for read, execute, private)
	Path    string `json:"path"`    // Backing file or pseudo-path such as [heap], empty for anonymous mappings
}

// String returns a string representation of the memory region
func (r MemoryRegion) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s", r.Address, r.Size, r.Perms)
}

// End returns the first address past the region. It wraps to 0 for a region ending at the top of the address space.
func (r MemoryRegion) End() uint64 {
	return r.Address + r.Size
}

// Contains reports whether addr falls inside the region
func (r MemoryRegion) Contains(addr uint64) bool {
	return addr >= r.Address && addr-r.Address < r.Size
}

func (r MemoryRegion) IsReadable() bool {
	return IsReadablePerms(r.Perms)
}

func (r MemoryRegion) IsWritable() bool {
	return IsWritablePerms(r.Perms)
}

func (r MemoryRegion) IsExecutable() bool {
	return IsExecutablePerms(r.Perms)
}

func IsReadablePerms(perms string) bool {
	return len(perms) > 0 && perms[0] == 'r'
}

func IsWritablePerms(perms string) bool {
	return len(perms) > 1 && perms[1] == 'w'
}

func IsExecutablePerms(perms string) bool {
	return len(perms) > 2 && perms[2] == 'x'
}

// RegionQuerier answers "which region contains or follows this address"
type RegionQuerier interface {
	// QueryRegion returns the region containing addr, or the lowest region starting above it.
	// It returns ErrNoMoreRegions when no such region exists.
	QueryRegion(addr uint64) (MemoryRegion, error)
}

// Lookup returns the region containing addr or the first region above it.
// regions must be sorted by address and must not overlap.
func Lookup(regions []MemoryRegion, addr uint64) (MemoryRegion, bool) {
	i := sort.Search(len(regions), func(i int) bool {
		return regions[i].End() > addr || regions[i].End() < regions[i].Address
	})
	if i < len(regions) {
		return regions[i], true
	}
	return MemoryRegion{}, false
}

// Find returns the region containing addr.
// regions must be sorted by address and must not overlap.
func Find(regions []MemoryRegion, addr uint64) *MemoryRegion {
	r, ok := Lookup(regions, addr)
	if ok && r.Contains(addr) {
		return &r
	}
	return nil
}

// ReadableSpan reports whether every byte of [addr, addr+size) lies in a readable region.
// Adjacent regions may cover the span together. regions must be sorted and must not overlap.
func ReadableSpan(regions []MemoryRegion, addr, size uint64) bool {
	if size == 0 {
		return true
	}
	end := addr + size
	if end < addr && end != 0 {
		return false
	}

	cur := addr
	for {
		r := Find(regions, cur)
		if r == nil || !r.IsReadable() {
			return false
		}
		next := r.End()
		if next == 0 || (end != 0 && next >= end) {
			return true
		}
		cur = next
	}
}

// SortRegions orders regions by starting address
func SortRegions(regions []MemoryRegion) {
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Address < regions[j].Address
	})
}

// SnapshotQuerier answers region queries from a fixed, sorted region list
type SnapshotQuerier []MemoryRegion

func (s SnapshotQuerier) QueryRegion(addr uint64) (MemoryRegion, error) {
	if r, ok := Lookup(s, addr); ok {
		return r, nil
	}
	return MemoryRegion{}, ErrNoMoreRegions
}
