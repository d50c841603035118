// Package process provides interfaces and types for process memory access
package process

import "errors"

var (
	// ErrAccessDenied is returned when a handle cannot be acquired: insufficient
	// privilege, a nonexistent pid, or a protected target.
	ErrAccessDenied = errors.New("access denied")

	// ErrTargetGone is returned when an operation is attempted after the target
	// process exited or after the handle was closed.
	ErrTargetGone = errors.New("target process gone")

	// ErrReadFailure is returned when a bounded read did not return the full requested span.
	ErrReadFailure = errors.New("read failure")

	// ErrWriteFailure is returned when the platform rejected a write or wrote only part of it.
	ErrWriteFailure = errors.New("write failure")

	// ErrInvalidPattern is returned for empty patterns and malformed hex or number text.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrNoSnapshot is returned when restoring an address that was never written in this session.
	ErrNoSnapshot = errors.New("no snapshot for address")

	// ErrSearchInProgress is returned when a search is started while another one is running.
	ErrSearchInProgress = errors.New("search in progress")

	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// after the handle has been closed.
	ErrProcessNotOpen = errors.New("process not open")
)
