package memory_map

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses the /proc/[pid]/maps text format.
// Malformed lines are skipped. The result is sorted by address.
func ParseMaps(r io.Reader) ([]MemoryRegion, error) {
	var memoryMap []MemoryRegion
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		// Parse address range (e.g., "00400000-0040b000")
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr <= startAddr {
			continue
		}

		// offset, dev and inode precede the optional path, which may contain spaces
		var path string
		if len(fields) > 5 {
			path = strings.Join(fields[5:], " ")
		}

		memoryMap = append(memoryMap, MemoryRegion{
			Address: startAddr,
			Size:    endAddr - startAddr,
			Perms:   fields[1],
			Path:    path,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	SortRegions(memoryMap)
	return memoryMap, nil
}
