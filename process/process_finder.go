package process

// ProcessEnumerator lists the processes currently running on this machine
type ProcessEnumerator interface {
	// ListProcesses returns running processes sorted by name, then by PID.
	// An empty result means either no processes or enumeration unavailable.
	ListProcesses() []ProcessDescriptor
}
