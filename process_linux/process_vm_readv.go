//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"memedit/process"
	"memedit/process/memory_map"

	"golang.org/x/sys/unix"
)

// maxChunkSize bounds a single process_vm_readv call. The kernel caps one call
// near 2 GiB, so larger reads are split.
const maxChunkSize = 4 << 20

// process_vm_readv uses the process_vm_readv syscall to read memory from another process.
// The buffer is filled in chunks of at most maxChunkSize. A short read returns the bytes
// that were read together with errPartialTransfer.
func process_vm_readv(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
	bytesToRead process.ProcessMemorySize,
) ([]byte, error) {
	// Allocate a buffer if one wasn't provided
	if localBuf == nil || len(localBuf) != int(bytesToRead) {
		localBuf = make([]byte, bytesToRead)
	}

	off := 0
	for off < len(localBuf) {
		want := min(maxChunkSize, len(localBuf)-off)
		n, err := readChunk(pid, localBuf[off:off+want], remoteAddr+process.ProcessMemoryAddress(off))
		if err != nil {
			return localBuf[:off], err
		}
		off += n
		if n != want {
			return localBuf[:off], fmt.Errorf("%w: %d of %d bytes", errPartialTransfer, off, bytesToRead)
		}
	}

	return localBuf, nil
}

func readChunk(pid process.ProcessID, buf []byte, remoteAddr process.ProcessMemoryAddress) (int, error) {
	// Create iovec for local buffer
	localIov := unix.Iovec{Base: &buf[0]}
	localIov.SetLen(len(buf))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(buf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

// ReadMemory reads exactly size bytes at addr.
// The span must lie in readable mappings and must not exceed process.MaxReadSize;
// both are checked before the buffer is allocated. Short reads fail with
// process.ErrReadFailure and are not retried.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if err := p.checkAlive(); err != nil {
		return nil, err
	}

	if size == 0 {
		return []byte{}, nil
	}

	if size > process.MaxReadSize {
		return nil, fmt.Errorf("%w: %d bytes at 0x%x exceeds the %d byte read limit", process.ErrReadFailure, size, uint64(addr), process.MaxReadSize)
	}

	if err := p.checkReadable(addr, size); err != nil {
		return nil, err
	}

	data, err := process_vm_readv(p.pid, nil, addr, size)
	if err != nil {
		return nil, p.classify(fmt.Errorf("process_vm_readv at 0x%x: %w", uint64(addr), err), process.ErrReadFailure)
	}

	return data, nil
}

// checkReadable verifies the span against the cached memory map.
// A miss reloads the map once since the target may have mapped new memory.
func (p *LinuxProcess) checkReadable(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) error {
	readable := func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return memory_map.ReadableSpan(p.mm, uint64(addr), uint64(size))
	}

	if readable() {
		return nil
	}

	if err := p.UpdateMemoryMap(); err != nil {
		return p.classify(err, process.ErrReadFailure)
	}
	if readable() {
		return nil
	}
	return fmt.Errorf("%w: %w: 0x%x+%d is not readable mapped memory", process.ErrReadFailure, process.ErrAddressNotMapped, uint64(addr), size)
}
