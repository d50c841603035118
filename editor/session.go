// Package editor ties a process handle, the search coordinator and the undo store into one editing session
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"memedit/pattern"
	"memedit/process"
	"memedit/process/memory_map"
	"memedit/process_blob"
	"memedit/search"
	"memedit/undo"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/uuid"
)

// Session is an editing session on one target.
// Every handle call goes through the session mutex, so a background search
// and manual reads or writes interleave at region granularity.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	handle   process.Handle
	snapshot *undo.Store
	search   *search.Coordinator
	closed   bool
	log      *logger.Logger
}

// NewSession takes ownership of h; Close releases it
func NewSession(h process.Handle) *Session {
	id := uuid.New()
	s := &Session{
		ID:       id,
		handle:   h,
		snapshot: undo.New(),
		search:   search.NewCoordinator(),
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("session-%d", h.GetPID()))),
	}
	s.log.Infoln("Session", id, "started")
	return s
}

// Attach opens pid with the platform handle. Failures are process.ErrAccessDenied.
func Attach(pid process.ProcessID) (*Session, error) {
	h, err := attach(pid)
	if err != nil {
		return nil, err
	}
	return NewSession(h), nil
}

// OpenDump starts a session on a dump written by process_blob.Save
func OpenDump(dir string) (*Session, error) {
	blob, _, err := process_blob.Load(dir)
	if err != nil {
		return nil, err
	}
	return NewSession(blob), nil
}

// With attaches to pid, runs fn and always closes the session
func With(pid process.ProcessID, fn func(*Session) error) (err error) {
	s, err := Attach(pid)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(s)
}

func (s *Session) PID() process.ProcessID {
	return s.handle.GetPID()
}

// Close discards the undo store and releases the handle. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.snapshot.Discard()
	s.log.Infoln("Session", s.ID, "closed")
	return s.handle.Close()
}

func (s *Session) errClosed() error {
	return fmt.Errorf("%w: %w", process.ErrTargetGone, process.ErrProcessNotOpen)
}

func (s *Session) Read(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, s.errClosed()
	}
	return s.handle.ReadMemory(addr, size)
}

// Write stores data at addr. The bytes at addr are snapshotted before the
// first write to that address; if they cannot be read the write is refused.
func (s *Session) Write(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.errClosed()
	}

	var original []byte
	if !s.snapshot.Has(addr) {
		var err error
		original, err = s.handle.ReadMemory(addr, process.ProcessMemorySize(len(data)))
		if err != nil {
			return fmt.Errorf("%w: snapshot before write: %w", process.ErrWriteFailure, err)
		}
	}

	if err := s.handle.WriteMemory(addr, data); err != nil {
		return err
	}

	if original != nil {
		s.snapshot.RecordIfAbsent(addr, original)
	}
	s.log.Debugln("wrote", len(data), "bytes at", addr.ToString())
	return nil
}

// Restore writes back the bytes addr held before the first write in this session
func (s *Session) Restore(addr process.ProcessMemoryAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.errClosed()
	}
	return s.snapshot.Restore(s.handle, addr)
}

// RestoreAll restores every snapshotted address, lowest first
func (s *Session) RestoreAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.errClosed()
	}

	var errs []error
	for _, addr := range s.snapshot.Addresses() {
		if err := s.snapshot.Restore(s.handle, addr); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", addr.ToString(), err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns the original bytes recorded for addr
func (s *Session) Snapshot(addr process.ProcessMemoryAddress) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Snapshot(addr)
}

// Snapshots lists the addresses that can be restored
func (s *Session) Snapshots() []process.ProcessMemoryAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Addresses()
}

// EnumerateRegions walks the target address space. On an enumeration fault the
// regions found before it are returned with the error.
func (s *Session) EnumerateRegions() ([]memory_map.MemoryRegion, error) {
	return memory_map.Enumerate(lockedTarget{s})
}

func (s *Session) Search(ctx context.Context, spec pattern.Spec, opts ...search.Option) (search.Result, error) {
	return s.search.Search(ctx, lockedTarget{s}, spec, opts...)
}

// StartSearch runs a search in the background
func (s *Session) StartSearch(ctx context.Context, spec pattern.Spec, opts ...search.Option) (*search.Job, error) {
	return s.search.Start(ctx, lockedTarget{s}, spec, opts...)
}

// SearchState reports whether a search is running
func (s *Session) SearchState() search.State {
	return s.search.State()
}

// Dump saves the target address space to dir
func (s *Session) Dump(dir string, opts process_blob.SaveOptions) (process_blob.SaveStats, error) {
	return process_blob.Save(lockedTarget{s}, dir, opts)
}

// Reader returns a process.MemoryReader that reads through the session lock
func (s *Session) Reader() process.MemoryReader {
	return lockedTarget{s}
}

// lockedTarget takes the session lock for each handle call
type lockedTarget struct {
	s *Session
}

func (l lockedTarget) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	return l.s.Read(addr, size)
}

func (l lockedTarget) QueryRegion(addr uint64) (memory_map.MemoryRegion, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if l.s.closed {
		return memory_map.MemoryRegion{}, l.s.errClosed()
	}
	return l.s.handle.QueryRegion(addr)
}

func (l lockedTarget) GetPID() process.ProcessID {
	return l.s.PID()
}
