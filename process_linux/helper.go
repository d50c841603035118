//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"memedit/process"

	"golang.org/x/sys/unix"
)

// checkAlive fails with ErrTargetGone when the handle is closed or the target exited
func (p *LinuxProcess) checkAlive() error {
	p.mu.Lock()
	closed, pidfd := p.closed, p.pidfd
	p.mu.Unlock()

	if closed {
		return fmt.Errorf("%w: %w", process.ErrTargetGone, process.ErrProcessNotOpen)
	}

	if pidfd >= 0 {
		// signal 0 only checks that the process behind the pidfd still exists
		if err := unix.PidfdSendSignal(pidfd, 0, nil, 0); errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("%w: process %d exited", process.ErrTargetGone, p.pid)
		}
		return nil
	}

	if _, err := os.Stat("/proc/" + strconv.Itoa(int(p.pid))); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: process %d exited", process.ErrTargetGone, p.pid)
	}
	return nil
}

// classify maps a syscall failure onto the error taxonomy.
// ESRCH and a missing /proc entry mean the target is gone; anything else is reported as kind.
func (p *LinuxProcess) classify(err error, kind error) error {
	if errors.Is(err, unix.ESRCH) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", process.ErrTargetGone, err)
	}
	if aliveErr := p.checkAlive(); aliveErr != nil {
		return aliveErr
	}
	return fmt.Errorf("%w: %w", kind, err)
}
