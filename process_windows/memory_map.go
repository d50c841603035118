//go:build windows

package process_windows

import (
	"fmt"
	"unsafe"

	"memedit/process"
	"memedit/process/memory_map"

	"golang.org/x/sys/windows"
)

// memoryBasicInformation mirrors MEMORY_BASIC_INFORMATION for 64-bit targets
type memoryBasicInformation struct {
	BaseAddress       uintptr
	AllocationBase    uintptr
	AllocationProtect uint32
	PartitionID       uint16
	RegionSize        uintptr
	State             uint32
	Protect           uint32
	Type              uint32
}

const (
	memCommit  = 0x1000
	memFree    = 0x10000
	memPrivate = 0x20000

	pageNoAccess         = 0x01
	pageReadOnly         = 0x02
	pageReadWrite        = 0x04
	pageWriteCopy        = 0x08
	pageExecute          = 0x10
	pageExecuteRead      = 0x20
	pageExecuteReadWrite = 0x40
	pageExecuteWriteCopy = 0x80
	pageGuard            = 0x100
	pageNoCache          = 0x200
	pageWriteCombine     = 0x400
)

// virtualQuery describes the block containing addr. It reports false past the top of user space.
func virtualQuery(handle windows.Handle, addr uint64) (memoryBasicInformation, bool) {
	var mbi memoryBasicInformation
	ret, _, _ := procVirtualQueryEx.Call(
		uintptr(handle),
		uintptr(addr),
		uintptr(unsafe.Pointer(&mbi)),
		unsafe.Sizeof(mbi),
	)
	return mbi, ret != 0
}

// QueryRegion returns the mapped region containing or following addr using VirtualQueryEx.
// Free blocks are not regions and are skipped. Reserved blocks are reported with "---" permissions.
func (p *WindowsProcess) QueryRegion(addr uint64) (memory_map.MemoryRegion, error) {
	handle, err := p.liveHandle()
	if err != nil {
		return memory_map.MemoryRegion{}, err
	}

	for {
		mbi, ok := virtualQuery(handle, addr)
		if !ok {
			// ERROR_INVALID_PARAMETER past the top of user space
			return memory_map.MemoryRegion{}, memory_map.ErrNoMoreRegions
		}

		if mbi.State != memFree {
			return blockRegion(mbi), nil
		}

		next := uint64(mbi.BaseAddress) + uint64(mbi.RegionSize)
		if next <= addr {
			return memory_map.MemoryRegion{}, memory_map.ErrNoMoreRegions
		}
		addr = next
	}
}

func blockRegion(mbi memoryBasicInformation) memory_map.MemoryRegion {
	return memory_map.MemoryRegion{
		Address: uint64(mbi.BaseAddress),
		Size:    uint64(mbi.RegionSize),
		Perms:   protectToPerms(mbi.State, mbi.Protect, mbi.Type),
	}
}

// checkReadable walks the blocks covering [addr, addr+size) and fails unless all are committed and readable
func checkReadable(handle windows.Handle, addr, size uint64) error {
	end := addr + size
	if end < addr {
		return fmt.Errorf("%w: 0x%x+%d wraps the address space", process.ErrReadFailure, addr, size)
	}

	for cur := addr; cur < end; {
		mbi, ok := virtualQuery(handle, cur)
		if !ok || !blockRegion(mbi).IsReadable() {
			return fmt.Errorf("%w: %w: 0x%x is not readable mapped memory", process.ErrReadFailure, process.ErrAddressNotMapped, cur)
		}
		next := uint64(mbi.BaseAddress) + uint64(mbi.RegionSize)
		if next <= cur {
			return fmt.Errorf("%w: no progress querying 0x%x", process.ErrReadFailure, cur)
		}
		cur = next
	}
	return nil
}

// protectToPerms renders a Windows page protection in the /proc maps "rwxp" form
func protectToPerms(state, protect, typ uint32) string {
	perms := []byte("---s")
	if typ == memPrivate {
		perms[3] = 'p'
	}

	if state != memCommit || protect&pageGuard != 0 || protect&pageNoAccess != 0 {
		return string(perms)
	}

	switch protect &^ (pageGuard | pageNoCache | pageWriteCombine) {
	case pageReadOnly:
		perms[0] = 'r'
	case pageReadWrite, pageWriteCopy:
		perms[0], perms[1] = 'r', 'w'
	case pageExecute:
		perms[2] = 'x'
	case pageExecuteRead:
		perms[0], perms[2] = 'r', 'x'
	case pageExecuteReadWrite, pageExecuteWriteCopy:
		perms[0], perms[1], perms[2] = 'r', 'w', 'x'
	}
	return string(perms)
}
