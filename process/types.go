package process

// ProcessID represents a unique identifier for a process.
// The kernel may hand the same value to a new process once the old one exits.
type ProcessID int

// UnknownProcessName is used when a process executable path cannot be resolved
const UnknownProcessName = "Unknown"

// ProcessDescriptor identifies a running process at the time it was enumerated
type ProcessDescriptor struct {
	PID  ProcessID `json:"pid"`  // Process ID
	Name string    `json:"name"` // Base name of the executable path
}
