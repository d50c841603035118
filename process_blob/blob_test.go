package process_blob

import (
	"os"
	"path/filepath"
	"testing"

	"memedit/process"
	"memedit/process/memory_map"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlob(t *testing.T) *ProcessBlob {
	t.Helper()
	b := New(42, "target")
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x2000, Size: 4, Perms: "r--p"}, []byte{1, 2, 3, 4}))
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x1000, Size: 8, Perms: "rw-p"}, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE, 0, 0}))
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x3000, Size: 16, Perms: "---p"}, nil))
	return b
}

func TestAddRegionValidation(t *testing.T) {
	b := newTestBlob(t)

	err := b.AddRegion(memory_map.MemoryRegion{Address: 0x1004, Size: 8, Perms: "rw-p"}, nil)
	assert.Error(t, err)

	err = b.AddRegion(memory_map.MemoryRegion{Address: 0x5000, Size: 0}, nil)
	assert.ErrorIs(t, err, memory_map.ErrZeroSizeRegion)

	err = b.AddRegion(memory_map.MemoryRegion{Address: 0x5000, Size: 4}, []byte{1})
	assert.Error(t, err)

	regions := b.Regions()
	require.Len(t, regions, 3)
	assert.Equal(t, uint64(0x1000), regions[0].Address)
}

func TestReadMemory(t *testing.T) {
	b := newTestBlob(t)

	data, err := b.ReadMemory(0x1001, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAD, 0xBE, 0xEF}, data)

	// the result is a copy
	data[0] = 0
	again, _ := b.ReadMemory(0x1001, 1)
	assert.Equal(t, []byte{0xAD}, again)

	empty, err := b.ReadMemory(0x9999, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReadFailures(t *testing.T) {
	b := newTestBlob(t)

	_, err := b.ReadMemory(0x1006, 4) // runs off the end of the region
	assert.ErrorIs(t, err, process.ErrReadFailure)

	_, err = b.ReadMemory(0x1800, 1)
	assert.ErrorIs(t, err, process.ErrReadFailure)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	_, err = b.ReadMemory(0x3000, 1) // mapped without data
	assert.ErrorIs(t, err, process.ErrReadFailure)
}

func TestWriteMemory(t *testing.T) {
	b := newTestBlob(t)

	require.NoError(t, b.WriteMemory(0x1006, []byte{0x11, 0x22}))
	data, err := b.ReadMemory(0x1006, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22}, data)

	assert.NoError(t, b.WriteMemory(0x2000, nil))

	err = b.WriteMemory(0x2000, []byte{9})
	assert.ErrorIs(t, err, process.ErrWriteFailure)

	err = b.WriteMemory(0x1007, []byte{1, 2})
	assert.ErrorIs(t, err, process.ErrWriteFailure)
}

func TestQueryRegionWalk(t *testing.T) {
	b := newTestBlob(t)

	regions, err := memory_map.Enumerate(b)
	require.NoError(t, err)
	require.Len(t, regions, 3)
	assert.Equal(t, []uint64{0x1000, 0x2000, 0x3000}, []uint64{regions[0].Address, regions[1].Address, regions[2].Address})
}

func TestClose(t *testing.T) {
	b := newTestBlob(t)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := b.ReadMemory(0x1000, 1)
	assert.ErrorIs(t, err, process.ErrTargetGone)
	assert.ErrorIs(t, b.WriteMemory(0x1000, []byte{1}), process.ErrTargetGone)
	_, err = b.QueryRegion(0)
	assert.ErrorIs(t, err, process.ErrTargetGone)

	regions, err := memory_map.Enumerate(b)
	assert.NoError(t, err)
	assert.Empty(t, regions)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	b := newTestBlob(t)
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x4000, Size: 64, Perms: "rw-p", Path: "[heap]"}, make([]byte, 64)))
	dir := t.TempDir()

	stats, err := Save(b, dir, SaveOptions{Name: "target", MaxRegionSize: 32})
	require.NoError(t, err)
	assert.Equal(t, SaveStats{Regions: 4, Saved: 2, SkippedNonReadable: 1, SkippedTooLarge: 1, Bytes: 12}, stats)

	_, err = os.Stat(filepath.Join(dir, "blob_0x1000_8.bin"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "blob_0x4000_64.bin"))
	assert.True(t, os.IsNotExist(err))

	loaded, meta, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessID(42), meta.PID)
	assert.Equal(t, "target", meta.Name)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, process.ProcessID(42), loaded.GetPID())
	assert.Equal(t, b.Regions(), loaded.Regions())

	data, err := loaded.ReadMemory(0x1000, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE}, data)

	_, err = loaded.ReadMemory(0x4000, 1)
	assert.ErrorIs(t, err, process.ErrReadFailure)
}

func TestSaveCountsReadErrors(t *testing.T) {
	b := New(7, "")
	require.NoError(t, b.AddRegion(memory_map.MemoryRegion{Address: 0x1000, Size: 4, Perms: "r--p"}, nil))
	dir := t.TempDir()

	stats, err := Save(b, dir, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ReadErrors)
	assert.Zero(t, stats.Saved)

	_, meta, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, process.UnknownProcessName, meta.Name)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
