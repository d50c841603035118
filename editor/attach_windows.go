//go:build windows

package editor

import (
	"memedit/process"
	"memedit/process_windows"
)

func attach(pid process.ProcessID) (process.Handle, error) {
	p, err := process_windows.Attach(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}
