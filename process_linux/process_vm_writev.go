//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"unsafe"

	"memedit/process"

	"golang.org/x/sys/unix"
)

var errPartialTransfer = errors.New("partial transfer")

// process_vm_writev uses the process_vm_writev syscall to write memory to another process
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	// Create iovec for local buffer
	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(len(localBuf))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
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

// WriteMemory writes data to the process memory at the specified address.
// Writes into read-only mappings are rejected by the kernel and reported as process.ErrWriteFailure.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if err := p.checkAlive(); err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	// Create a copy of the data to avoid potential modification during the write
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	written, err := process_vm_writev(p.pid, dataCopy, addr)
	if err != nil {
		return p.classify(fmt.Errorf("process_vm_writev at 0x%x: %w", uint64(addr), err), process.ErrWriteFailure)
	}

	if written != len(data) {
		return fmt.Errorf("%w: %w: only wrote %d of %d bytes", process.ErrWriteFailure, errPartialTransfer, written, len(data))
	}

	return nil
}
