//go:build linux

package editor

import (
	"memedit/process"
	"memedit/process_linux"
)

func attach(pid process.ProcessID) (process.Handle, error) {
	p, err := process_linux.Attach(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}
