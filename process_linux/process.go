//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"memedit/process"
	"memedit/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

var _ process.Handle = (*LinuxProcess)(nil)

// LinuxProcess implements process.Handle on top of process_vm_readv/process_vm_writev.
// The pidfd pins the identity of the target so that a recycled PID is reported
// as ErrTargetGone instead of silently reading another process.
type LinuxProcess struct {
	pid    process.ProcessID
	pidfd  int // -1 when the kernel has no pidfd_open
	log    *logger.Logger
	mm     []memory_map.MemoryRegion
	mu     sync.Mutex
	closed bool
}

// Attach opens the process with the given PID for memory operations.
// Every failure is reported as process.ErrAccessDenied.
func Attach(pid process.ProcessID) (*LinuxProcess, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("%w: invalid pid %d", process.ErrAccessDenied, pid)
	}

	// Check if process exists
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); err != nil {
		return nil, fmt.Errorf("%w: process with PID %d does not exist", process.ErrAccessDenied, pid)
	}

	p := &LinuxProcess{
		pid:   pid,
		pidfd: -1,
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	fd, err := unix.PidfdOpen(int(pid), 0)
	switch {
	case err == nil:
		p.pidfd = fd
	case errors.Is(err, unix.ESRCH):
		return nil, fmt.Errorf("%w: process with PID %d exited", process.ErrAccessDenied, pid)
	default:
		p.log.Warn("pidfd_open unavailable, exit detection falls back to /proc: ", err)
	}

	// Reading maps needs PTRACE_MODE_READ on the target
	if err := p.UpdateMemoryMap(); err != nil {
		p.release()
		return nil, fmt.Errorf("%w: failed to read memory map: %w", process.ErrAccessDenied, err)
	}

	if err := p.probe(); err != nil {
		p.release()
		return nil, fmt.Errorf("%w: %w", process.ErrAccessDenied, err)
	}

	p.log.Infoln("Process opened,", len(p.mm), "regions mapped")

	return p, nil
}

// probe performs a one byte read to surface privilege failures at attach time
// rather than on the first search.
func (p *LinuxProcess) probe() error {
	for _, region := range p.mm {
		if !region.IsReadable() {
			continue
		}
		_, err := process_vm_readv(p.pid, nil, process.ProcessMemoryAddress(region.Address), 1)
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("probe read at 0x%x: %w", region.Address, err)
		}
		return nil
	}
	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.log.Infoln("Closing process")
	p.release()

	p.closed = true
	p.mm = nil

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	p.log.Infoln("Process closed")

	return nil
}

func (p *LinuxProcess) release() {
	if p.pidfd >= 0 {
		unix.Close(p.pidfd)
		p.pidfd = -1
	}
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	return p.pid
}

// UpdateMemoryMap refreshes the cached region snapshot from /proc/[pid]/maps
func (p *LinuxProcess) UpdateMemoryMap() error {
	mm, err := memory_map.ReadMemoryMap(int(p.pid))
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.mm = mm
	p.mu.Unlock()
	return nil
}

// QueryRegion returns the region containing or following addr.
// A query for address 0 starts a new enumeration pass and reloads the map.
func (p *LinuxProcess) QueryRegion(addr uint64) (memory_map.MemoryRegion, error) {
	if err := p.checkAlive(); err != nil {
		return memory_map.MemoryRegion{}, err
	}

	if addr == 0 {
		if err := p.UpdateMemoryMap(); err != nil {
			return memory_map.MemoryRegion{}, p.classify(err, process.ErrTargetGone)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if region, ok := memory_map.Lookup(p.mm, addr); ok {
		return region, nil
	}
	return memory_map.MemoryRegion{}, memory_map.ErrNoMoreRegions
}
