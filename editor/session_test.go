package editor

import (
	"context"
	"testing"

	"memedit/pattern"
	"memedit/process"
	"memedit/process/memory_map"
	"memedit/process_blob"
	"memedit/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) (*Session, *process_blob.ProcessBlob) {
	t.Helper()
	b := process_blob.New(99, "target")
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x10, Size: 6, Perms: "rw-p"}, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE}))
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x100, Size: 4, Perms: "r--p"}, []byte{1, 2, 3, 4}))
	s := NewSession(b)
	t.Cleanup(func() { s.Close() })
	return s, b
}

func TestWriteReadRoundTrip(t *testing.T) {
	s, _ := newSession(t)

	require.NoError(t, s.Write(0x12, []byte{0x01, 0x02}))
	data, err := s.Read(0x12, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, data)
}

func TestRestoreTwiceYieldsOriginal(t *testing.T) {
	s, _ := newSession(t)

	require.NoError(t, s.Write(0x10, []byte{0x00, 0x00}))
	require.NoError(t, s.Restore(0x10))
	require.NoError(t, s.Restore(0x10))

	data, err := s.Read(0x10, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE}, data)
}

func TestFirstWriteWins(t *testing.T) {
	s, _ := newSession(t)

	require.NoError(t, s.Write(0x11, []byte{0x11}))
	require.NoError(t, s.Write(0x11, []byte{0x22}))

	snap, ok := s.Snapshot(0x11)
	require.True(t, ok)
	assert.Equal(t, []byte{0xAD}, snap)

	require.NoError(t, s.Restore(0x11))
	data, err := s.Read(0x11, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAD}, data)
}

func TestRestoreWithoutWrite(t *testing.T) {
	s, _ := newSession(t)
	assert.ErrorIs(t, s.Restore(0x10), process.ErrNoSnapshot)
}

func TestZeroLengthWriteIsNoop(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Write(0x10, nil))
	assert.Empty(t, s.Snapshots())
}

func TestWriteFailuresLeaveNoSnapshot(t *testing.T) {
	s, _ := newSession(t)

	err := s.Write(0x100, []byte{9}) // read-only region
	assert.ErrorIs(t, err, process.ErrWriteFailure)

	err = s.Write(0x5000, []byte{9}) // unmapped, snapshot read fails
	assert.ErrorIs(t, err, process.ErrWriteFailure)

	assert.Empty(t, s.Snapshots())
}

func TestRestoreAll(t *testing.T) {
	s, _ := newSession(t)

	require.NoError(t, s.Write(0x14, []byte{0, 0}))
	require.NoError(t, s.Write(0x10, []byte{0}))
	assert.Equal(t, []process.ProcessMemoryAddress{0x10, 0x14}, s.Snapshots())

	require.NoError(t, s.RestoreAll())
	data, err := s.Read(0x10, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE}, data)
}

func TestSearchThroughSession(t *testing.T) {
	s, _ := newSession(t)

	spec, err := pattern.ParseHex(pattern.KindExact, "AD ?? EF")
	require.NoError(t, err)

	res, err := s.Search(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x11}, res.Addresses)
	assert.Equal(t, search.StateCompleted, s.SearchState())

	job, err := s.StartSearch(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, res.Addresses, job.Wait().Addresses)
}

func TestEnumerateRegions(t *testing.T) {
	s, _ := newSession(t)

	regions, err := s.EnumerateRegions()
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, uint64(0x100), regions[1].Address)
}

func TestDumpAndReopen(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Write(0x10, []byte{0x42}))

	dir := t.TempDir()
	stats, err := s.Dump(dir, process_blob.SaveOptions{Name: "target"})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Saved)

	reopened, err := OpenDump(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, process.ProcessID(99), reopened.PID())
	data, err := reopened.Read(0x10, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x42, 0xAD}, data)
}

func TestCloseDiscardsAndReleases(t *testing.T) {
	s, b := newSession(t)
	require.NoError(t, s.Write(0x10, []byte{0}))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := b.ReadMemory(0x10, 1)
	assert.ErrorIs(t, err, process.ErrTargetGone)

	_, err = s.Read(0x10, 1)
	assert.ErrorIs(t, err, process.ErrTargetGone)
	assert.ErrorIs(t, s.Write(0x10, []byte{1}), process.ErrTargetGone)
	assert.ErrorIs(t, s.Restore(0x10), process.ErrTargetGone)
	assert.Empty(t, s.Snapshots())

	regions, err := s.EnumerateRegions()
	assert.NoError(t, err)
	assert.Empty(t, regions)
}

func TestAttachInvalidPID(t *testing.T) {
	_, err := Attach(-1)
	assert.ErrorIs(t, err, process.ErrAccessDenied)

	called := false
	err = With(-1, func(*Session) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, process.ErrAccessDenied)
	assert.False(t, called)
}
