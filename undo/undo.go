// Package undo keeps the original bytes of every address written during an editing session
package undo

import (
	"fmt"
	"slices"

	"memedit/process"
)

// Store maps an address to the bytes it held before the first write through the session.
// Store has no lock of its own; it is mutated under the same lock that serializes the handle.
type Store struct {
	entries map[process.ProcessMemoryAddress][]byte
}

func New() *Store {
	return &Store{entries: make(map[process.ProcessMemoryAddress][]byte)}
}

// RecordIfAbsent stores a copy of current under addr unless addr already has an entry.
// It reports whether a new entry was created.
func (s *Store) RecordIfAbsent(addr process.ProcessMemoryAddress, current []byte) bool {
	if _, ok := s.entries[addr]; ok {
		return false
	}
	s.entries[addr] = slices.Clone(current)
	return true
}

// Has reports whether addr has a snapshot
func (s *Store) Has(addr process.ProcessMemoryAddress) bool {
	_, ok := s.entries[addr]
	return ok
}

// Snapshot returns a copy of the original bytes at addr
func (s *Store) Snapshot(addr process.ProcessMemoryAddress) ([]byte, bool) {
	b, ok := s.entries[addr]
	if !ok {
		return nil, false
	}
	return slices.Clone(b), true
}

// Restore writes the original bytes back. The entry is kept, so restoring twice is harmless.
func (s *Store) Restore(w process.MemoryWriter, addr process.ProcessMemoryAddress) error {
	original, ok := s.entries[addr]
	if !ok {
		return fmt.Errorf("%w: %s", process.ErrNoSnapshot, addr.ToString())
	}
	return w.WriteMemory(addr, original)
}

// Addresses lists every snapshotted address in ascending order
func (s *Store) Addresses() []process.ProcessMemoryAddress {
	addrs := make([]process.ProcessMemoryAddress, 0, len(s.entries))
	for addr := range s.entries {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)
	return addrs
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Discard drops every entry. It is called when the session detaches from the target.
func (s *Store) Discard() {
	clear(s.entries)
}
