// Package process_blob holds a target address space in memory.
// It backs offline editing of a saved dump and stands in for a live process in tests.
package process_blob

import (
	"fmt"
	"sync"

	"memedit/process"
	"memedit/process/memory_map"
)

var _ process.Handle = (*ProcessBlob)(nil)

// ProcessBlob implements process.Handle over in-memory regions.
// A region added without data is mapped but every read of it fails.
type ProcessBlob struct {
	pid  process.ProcessID
	name string

	mu      sync.Mutex
	regions []memory_map.MemoryRegion
	blobs   map[uint64][]byte // region address -> data
	closed  bool
}

func New(pid process.ProcessID, name string) *ProcessBlob {
	return &ProcessBlob{
		pid:   pid,
		name:  name,
		blobs: make(map[uint64][]byte),
	}
}

// AddRegion maps region. data must be nil or exactly region.Size bytes; it is not copied.
func (p *ProcessBlob) AddRegion(region memory_map.MemoryRegion, data []byte) error {
	if region.Size == 0 {
		return fmt.Errorf("%w at 0x%x", memory_map.ErrZeroSizeRegion, region.Address)
	}
	if data != nil && uint64(len(data)) != region.Size {
		return fmt.Errorf("region 0x%x has size %d but %d bytes of data", region.Address, region.Size, len(data))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, r := range p.regions {
		if region.Address < r.End() && r.Address < region.End() {
			return fmt.Errorf("region 0x%x-0x%x overlaps 0x%x-0x%x", region.Address, region.End(), r.Address, r.End())
		}
	}

	p.regions = append(p.regions, region)
	memory_map.SortRegions(p.regions)
	if data != nil {
		p.blobs[region.Address] = data
	}
	return nil
}

func (p *ProcessBlob) GetPID() process.ProcessID {
	return p.pid
}

func (p *ProcessBlob) Name() string {
	return p.name
}

// Regions returns a copy of the region list
func (p *ProcessBlob) Regions() []memory_map.MemoryRegion {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]memory_map.MemoryRegion, len(p.regions))
	copy(result, p.regions)
	return result
}

// Close detaches the blob; later operations fail with process.ErrTargetGone
func (p *ProcessBlob) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *ProcessBlob) QueryRegion(addr uint64) (memory_map.MemoryRegion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return memory_map.MemoryRegion{}, fmt.Errorf("%w: %w", process.ErrTargetGone, process.ErrProcessNotOpen)
	}
	if r, ok := memory_map.Lookup(p.regions, addr); ok {
		return r, nil
	}
	return memory_map.MemoryRegion{}, memory_map.ErrNoMoreRegions
}

// span locates [addr, addr+size) inside a single region and returns the backing slice
func (p *ProcessBlob) span(addr process.ProcessMemoryAddress, size uint64) (memory_map.MemoryRegion, []byte, error) {
	region := memory_map.Find(p.regions, uint64(addr))
	if region == nil {
		return memory_map.MemoryRegion{}, nil, process.ErrAddressNotMapped
	}

	offset := uint64(addr) - region.Address
	if size > region.Size-offset {
		return *region, nil, fmt.Errorf("span of %d bytes at 0x%x crosses the end of region 0x%x", size, uint64(addr), region.Address)
	}

	data, ok := p.blobs[region.Address]
	if !ok {
		return *region, nil, fmt.Errorf("no data for region 0x%x", region.Address)
	}
	return *region, data[offset : offset+size], nil
}

func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("%w: %w", process.ErrTargetGone, process.ErrProcessNotOpen)
	}
	if size == 0 {
		return []byte{}, nil
	}

	_, data, err := p.span(addr, uint64(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", process.ErrReadFailure, err)
	}

	result := make([]byte, len(data))
	copy(result, data)
	return result, nil
}

func (p *ProcessBlob) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("%w: %w", process.ErrTargetGone, process.ErrProcessNotOpen)
	}
	if len(data) == 0 {
		return nil
	}

	region, dst, err := p.span(addr, uint64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %w", process.ErrWriteFailure, err)
	}
	if !region.IsWritable() {
		return fmt.Errorf("%w: region 0x%x is %s", process.ErrWriteFailure, region.Address, region.Perms)
	}

	copy(dst, data)
	return nil
}
