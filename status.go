package daemon

import (
	"fmt"
)

// BasicStatus is the subset of status information every backend can report
type BasicStatus interface {
	IsRunning() bool
	IsFailed() bool
	CommandLine() string
}

// ServiceStatus is built fresh by every status query and never cached.
// Its fields come from independent native queries, so a restart between them
// can leave PID and State describing different process generations.
type ServiceStatus struct {
	// State is the normalized service state
	State ServiceState
	// PID is the main process id, 0 when there is none
	PID uint32
	// Cmdline is the main process command line
	Cmdline string
	// Failed reports that the manager holds a failure record for the service
	Failed bool
	// Details is the raw status text the state was derived from
	Details string
}

var _ BasicStatus = ServiceStatus{}

// IsActive reports whether the service is in the active branch
func (s ServiceStatus) IsActive() bool {
	return s.State.IsActive()
}

// IsInactive reports whether the service is in the inactive branch
func (s ServiceStatus) IsInactive() bool {
	return !s.State.IsActive()
}

// IsRunning reports whether the service is active (running)
func (s ServiceStatus) IsRunning() bool {
	return s.State.IsRunning()
}

// IsFailed reports whether the manager holds a failure record
func (s ServiceStatus) IsFailed() bool {
	return s.Failed
}

// CommandLine returns the main process command line
func (s ServiceStatus) CommandLine() string {
	return s.Cmdline
}

// String returns a human-readable status string
func (s ServiceStatus) String() string {
	out := s.State.String()
	if s.PID > 0 {
		out = fmt.Sprintf("%s pid %d", out, s.PID)
	}
	if s.Failed {
		out += " [failed]"
	}
	return out
}
