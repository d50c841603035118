package process

import (
	"memedit/process/memory_map"
)

// MemoryReader reads raw bytes from a target address space
type MemoryReader interface {
	// ReadMemory returns exactly size bytes starting at addr or fails with ErrReadFailure
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// MemoryWriter writes raw bytes into a target address space
type MemoryWriter interface {
	// WriteMemory writes all of data at addr or fails with ErrWriteFailure.
	// Writing zero bytes succeeds without touching the target.
	WriteMemory(addr ProcessMemoryAddress, data []byte) error
}

// Handle is an attached view of one target process's address space.
// A Handle is not safe for concurrent use; callers serialize access.
type Handle interface {
	MemoryReader
	MemoryWriter
	memory_map.RegionQuerier

	// GetPID returns the process ID the handle is attached to
	GetPID() ProcessID

	// Close releases the platform access token. Calling Close more than once is a no-op.
	Close() error
}
