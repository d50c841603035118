package process_finder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"memedit/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(path string) func() (string, error) {
	return func() (string, error) { return path, nil }
}

func failing() (string, error) {
	return "", errors.New("permission denied")
}

func exists(alive bool) func() (bool, error) {
	return func() (bool, error) { return alive, nil }
}

func fakeFinder(candidates []candidate, err error) *Finder {
	f := New()
	f.list = func() ([]candidate, error) { return candidates, err }
	return f
}

func TestListProcessesOrderingAndFallbacks(t *testing.T) {
	f := fakeFinder([]candidate{
		{PID: 0, Exe: fixed("/sbin/idle"), Exists: exists(true)},
		{PID: 30, Exe: fixed("/usr/bin/zsh"), Exists: exists(true)},
		{PID: 20, Exe: fixed("/usr/bin/bash"), Exists: exists(true)},
		{PID: 10, Exe: fixed("/bin/bash"), Exists: exists(true)},
		{PID: 40, Exe: failing, Exists: exists(true)},  // unresolvable path
		{PID: 50, Exe: failing, Exists: exists(false)}, // exited mid-listing
		{PID: 5, Exe: fixed("/usr/bin/Xorg"), Exists: exists(true)},
	}, nil)

	got := f.ListProcesses()
	assert.Equal(t, []process.ProcessDescriptor{
		{PID: 40, Name: process.UnknownProcessName},
		{PID: 5, Name: "Xorg"},
		{PID: 10, Name: "bash"},
		{PID: 20, Name: "bash"},
		{PID: 30, Name: "zsh"},
	}, got)
}

func TestListProcessesGlobalFailureIsEmpty(t *testing.T) {
	f := fakeFinder(nil, errors.New("no /proc"))
	got := f.ListProcesses()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindByNameAndResolve(t *testing.T) {
	f := fakeFinder([]candidate{
		{PID: 30, Exe: fixed("/usr/bin/game"), Exists: exists(true)},
		{PID: 12, Exe: fixed("/opt/game"), Exists: exists(true)},
		{PID: 7, Exe: fixed("/usr/bin/other"), Exists: exists(true)},
	}, nil)

	matches := f.FindByName("game")
	require.Len(t, matches, 2)
	assert.Equal(t, process.ProcessID(12), matches[0].PID)

	pid, err := f.Resolve("game")
	require.NoError(t, err)
	assert.Equal(t, process.ProcessID(12), pid)

	pid, err = f.Resolve(" 1234 ")
	require.NoError(t, err)
	assert.Equal(t, process.ProcessID(1234), pid)

	_, err = f.Resolve("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Resolve("-3")
	assert.Error(t, err)
}

func TestListProcessesIncludesSelf(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skip("cannot resolve own executable")
	}

	self := process.ProcessID(os.Getpid())
	for _, d := range New().ListProcesses() {
		if d.PID == self {
			assert.Equal(t, filepath.Base(exe), d.Name)
			return
		}
	}
	t.Fatalf("pid %d not listed", self)
}
