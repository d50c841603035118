//go:build !linux && !windows

package editor

import (
	"fmt"
	"runtime"

	"memedit/process"
)

func attach(pid process.ProcessID) (process.Handle, error) {
	return nil, fmt.Errorf("%w: attaching to pid %d is not supported on %s", process.ErrAccessDenied, pid, runtime.GOOS)
}
