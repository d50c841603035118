//go:build windows

package process_windows

import (
	"fmt"
	"sync"
	"unsafe"

	"memedit/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

var (
	modkernel32            = windows.NewLazySystemDLL("kernel32.dll")
	procReadProcessMemory  = modkernel32.NewProc("ReadProcessMemory")
	procWriteProcessMemory = modkernel32.NewProc("WriteProcessMemory")
	procVirtualQueryEx     = modkernel32.NewProc("VirtualQueryEx")
)

const (
	desiredAccess = windows.PROCESS_VM_READ |
		windows.PROCESS_VM_WRITE |
		windows.PROCESS_VM_OPERATION |
		windows.PROCESS_QUERY_INFORMATION

	stillActive = 259
)

var _ process.Handle = (*WindowsProcess)(nil)

// WindowsProcess implements process.Handle for Windows systems
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
	mu     sync.Mutex
}

// Attach opens the process with the given PID for memory operations.
// Every failure is reported as process.ErrAccessDenied.
func Attach(pid process.ProcessID) (*WindowsProcess, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("%w: invalid pid %d", process.ErrAccessDenied, pid)
	}

	handle, err := windows.OpenProcess(desiredAccess, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("%w: OpenProcess failed: %w", process.ErrAccessDenied, err)
	}

	p := &WindowsProcess{
		pid:    pid,
		handle: handle,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	p.log.Infoln("Process opened")
	return p, nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil
	}

	err := windows.CloseHandle(p.handle)
	p.handle = 0

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	p.log.Infoln("Process closed")

	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	return p.pid
}

// liveHandle returns the handle if it is open and the target is still running
func (p *WindowsProcess) liveHandle() (windows.Handle, error) {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return 0, fmt.Errorf("%w: %w", process.ErrTargetGone, process.ErrProcessNotOpen)
	}

	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err == nil && code != stillActive {
		return 0, fmt.Errorf("%w: process %d exited with code %d", process.ErrTargetGone, p.pid, code)
	}
	return handle, nil
}

// maxChunkSize bounds a single ReadProcessMemory call
const maxChunkSize = 4 << 20

// ReadMemory reads exactly size bytes at addr. The span must be committed readable
// memory no larger than process.MaxReadSize; both are checked before allocating.
func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	handle, err := p.liveHandle()
	if err != nil {
		return nil, err
	}

	if size == 0 {
		return []byte{}, nil
	}

	if size > process.MaxReadSize {
		return nil, fmt.Errorf("%w: %d bytes at 0x%x exceeds the %d byte read limit", process.ErrReadFailure, size, uint64(addr), process.MaxReadSize)
	}

	if err := checkReadable(handle, uint64(addr), uint64(size)); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	for off := 0; off < len(buf); {
		want := min(maxChunkSize, len(buf)-off)
		var bytesRead uintptr
		ret, _, callErr := procReadProcessMemory.Call(
			uintptr(handle),
			uintptr(addr)+uintptr(off),
			uintptr(unsafe.Pointer(&buf[off])),
			uintptr(want),
			uintptr(unsafe.Pointer(&bytesRead)),
		)

		if ret == 0 {
			return nil, fmt.Errorf("%w: ReadProcessMemory at 0x%x: %v", process.ErrReadFailure, uint64(addr)+uint64(off), callErr)
		}

		if bytesRead != uintptr(want) {
			return nil, fmt.Errorf("%w: read incomplete: expected %d, got %d", process.ErrReadFailure, size, off+int(bytesRead))
		}
		off += want
	}

	return buf, nil
}

func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	handle, err := p.liveHandle()
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	var written uintptr
	ret, _, callErr := procWriteProcessMemory.Call(
		uintptr(handle),
		uintptr(addr),
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(len(data)),
		uintptr(unsafe.Pointer(&written)),
	)

	if ret == 0 {
		return fmt.Errorf("%w: WriteProcessMemory at 0x%x: %v", process.ErrWriteFailure, uint64(addr), callErr)
	}

	if written != uintptr(len(data)) {
		return fmt.Errorf("%w: only wrote %d of %d bytes", process.ErrWriteFailure, written, len(data))
	}

	return nil
}
