// Package process_finder lists running processes through gopsutil
package process_finder

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"memedit/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	ps "github.com/shirou/gopsutil/v3/process"
)

// ErrNotFound is returned by Resolve when no process has the requested name
var ErrNotFound = errors.New("process not found")

// candidate is one row of the raw process table
type candidate struct {
	PID    int32
	Exe    func() (string, error)
	Exists func() (bool, error)
}

var _ process.ProcessEnumerator = (*Finder)(nil)

// Finder implements process.ProcessEnumerator
type Finder struct {
	list func() ([]candidate, error)
	log  *logger.Logger
}

func New() *Finder {
	return &Finder{
		list: systemProcesses,
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-finder")),
	}
}

func systemProcesses() ([]candidate, error) {
	procs, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	out := make([]candidate, 0, len(procs))
	for _, p := range procs {
		pid := p.Pid
		out = append(out, candidate{
			PID: pid,
			Exe: p.Exe,
			Exists: func() (bool, error) {
				return ps.PidExists(pid)
			},
		})
	}
	return out, nil
}

// ListProcesses returns every running process sorted by name, then by PID.
// Processes that exit during the listing are skipped; processes whose executable
// cannot be resolved are named process.UnknownProcessName. A failure of the
// listing itself yields an empty result.
func (f *Finder) ListProcesses() []process.ProcessDescriptor {
	candidates, err := f.list()
	if err != nil {
		f.log.Warn("process listing failed: ", err)
		return []process.ProcessDescriptor{}
	}

	result := make([]process.ProcessDescriptor, 0, len(candidates))
	for _, c := range candidates {
		if c.PID <= 0 {
			continue
		}

		name := process.UnknownProcessName
		exe, err := c.Exe()
		if err == nil && exe != "" {
			name = filepath.Base(exe)
		} else if alive, existsErr := c.Exists(); existsErr == nil && !alive {
			continue
		}

		result = append(result, process.ProcessDescriptor{PID: process.ProcessID(c.PID), Name: name})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].PID < result[j].PID
	})
	return result
}

// FindByName returns the processes whose executable base name equals name, lowest PID first
func (f *Finder) FindByName(name string) []process.ProcessDescriptor {
	var out []process.ProcessDescriptor
	for _, d := range f.ListProcesses() {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// Resolve turns a decimal PID or an executable name into a PID.
// When several processes share the name the lowest PID wins.
func (f *Finder) Resolve(arg string) (process.ProcessID, error) {
	arg = strings.TrimSpace(arg)
	if pid, err := strconv.Atoi(arg); err == nil {
		if pid <= 0 {
			return 0, fmt.Errorf("invalid pid %d", pid)
		}
		return process.ProcessID(pid), nil
	}

	matches := f.FindByName(arg)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: no process named %q", ErrNotFound, arg)
	}
	if len(matches) > 1 {
		f.log.Infoln("found", len(matches), "processes named", arg, "using pid", matches[0].PID)
	}
	return matches[0].PID, nil
}
