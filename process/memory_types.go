package process

import (
	"fmt"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

// MaxReadSize is the largest single read a platform handle accepts.
// Larger requests fail with ErrReadFailure before any buffer is allocated.
const MaxReadSize ProcessMemorySize = 1 << 30

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// AOB (Array of Bytes) represents a pattern to search for in memory
type AOB struct {
	Pattern []byte // The byte pattern to search for
	Mask    []byte // Mask where 0xFF means exact match and 0x00 means wildcard
}

// IsValid checks if the AOB pattern is valid
func (aob AOB) IsValid() bool {
	return len(aob.Pattern) == len(aob.Mask)
}

// Len returns the number of positions in the pattern
func (aob AOB) Len() int {
	return len(aob.Pattern)
}

// IsWildcard reports whether position i matches any byte
func (aob AOB) IsWildcard(i int) bool {
	return aob.Mask[i] == 0
}

func NewAOB(pattern, mask []byte) (AOB, error) {
	if len(pattern) != len(mask) {
		return AOB{}, fmt.Errorf("pattern and mask must be of the same length")
	}
	for i, m := range mask {
		if m != 0x00 && m != 0xFF {
			return AOB{}, fmt.Errorf("mask byte %d is 0x%02x, want 0x00 or 0xFF", i, m)
		}
	}
	return AOB{Pattern: pattern, Mask: mask}, nil
}

// ExactAOB builds an AOB with every position concrete
func ExactAOB(pattern []byte) AOB {
	mask := make([]byte, len(pattern))
	for i := range mask {
		mask[i] = 0xFF
	}
	return AOB{Pattern: pattern, Mask: mask}
}
