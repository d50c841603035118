package undo

import (
	"errors"
	"testing"

	"memedit/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	writes map[process.ProcessMemoryAddress][]byte
	err    error
}

func (w *recordingWriter) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.writes == nil {
		w.writes = make(map[process.ProcessMemoryAddress][]byte)
	}
	w.writes[addr] = append([]byte(nil), data...)
	return nil
}

func TestFirstWriteWins(t *testing.T) {
	s := New()
	assert.True(t, s.RecordIfAbsent(0x10, []byte{1, 2}))
	assert.False(t, s.RecordIfAbsent(0x10, []byte{9, 9}))

	snap, ok := s.Snapshot(0x10)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, snap)
}

func TestRecordCopiesInput(t *testing.T) {
	s := New()
	current := []byte{1, 2, 3}
	s.RecordIfAbsent(0x10, current)
	current[0] = 0xFF

	snap, _ := s.Snapshot(0x10)
	assert.Equal(t, []byte{1, 2, 3}, snap)

	snap[1] = 0xFF
	again, _ := s.Snapshot(0x10)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestRestoreIsIdempotent(t *testing.T) {
	s := New()
	s.RecordIfAbsent(0x20, []byte{0xAA})

	w := &recordingWriter{}
	require.NoError(t, s.Restore(w, 0x20))
	require.NoError(t, s.Restore(w, 0x20))
	assert.Equal(t, []byte{0xAA}, w.writes[0x20])
	assert.True(t, s.Has(0x20))
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	s := New()
	err := s.Restore(&recordingWriter{}, 0x30)
	assert.ErrorIs(t, err, process.ErrNoSnapshot)
}

func TestRestorePropagatesWriteError(t *testing.T) {
	s := New()
	s.RecordIfAbsent(0x20, []byte{0xAA})

	err := s.Restore(&recordingWriter{err: process.ErrWriteFailure}, 0x20)
	assert.True(t, errors.Is(err, process.ErrWriteFailure))
	assert.Equal(t, 1, s.Len())
}

func TestAddressesAndDiscard(t *testing.T) {
	s := New()
	s.RecordIfAbsent(0x30, []byte{1})
	s.RecordIfAbsent(0x10, []byte{1})
	s.RecordIfAbsent(0x20, []byte{1})

	assert.Equal(t, []process.ProcessMemoryAddress{0x10, 0x20, 0x30}, s.Addresses())

	s.Discard()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Addresses())
	_, ok := s.Snapshot(0x10)
	assert.False(t, ok)
}
