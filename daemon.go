package daemon

import (
	"time"
)

// systemd paths and binaries
const (
	// DefaultSystemctlPath is the default path to the systemctl binary
	DefaultSystemctlPath = "systemctl"

	// DefaultUnitDir is where unit files are installed
	DefaultUnitDir = "/lib/systemd/system"

	// DefaultWantedBy is the install target written into generated units
	DefaultWantedBy = "multi-user.target"

	// UnitSuffix is appended to the service name to form the unit file name
	UnitSuffix = ".service"

	// DropInSuffix is appended to the unit file name to form the drop-in directory
	DropInSuffix = ".d"

	// statusNotActiveCode is the systemctl status exit code for a unit that is not active
	statusNotActiveCode = 3
)

// Defaults for background producers
const (
	// DefaultMonitorGrace is the grace period given to the session monitor on Close
	DefaultMonitorGrace = 100 * time.Millisecond

	// DefaultPollInterval is the default interval used by WaitForState
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultOpTimeout is the default per-operation timeout used by Manager
	DefaultOpTimeout = 10 * time.Second

	// DefaultConcurrency is the default Manager concurrency
	DefaultConcurrency = 10
)

// File modes
const (
	// DirMode is the default mode for created directories
	DirMode = 0o755

	// FileMode is the default mode for created files
	FileMode = 0o644
)

// Operation represents a controller action
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpCreate installs and registers the service
	OpCreate
	// OpDelete unregisters the service and removes its descriptor
	OpDelete
	// OpStart starts the service
	OpStart
	// OpStop stops the service
	OpStop
	// OpStatus queries the service status
	OpStatus
	// OpRegister hands the process to the native dispatch loop
	OpRegister
)

// Operation string constants
const (
	opUnknownStr  = "unknown"
	opCreateStr   = "create"
	opDeleteStr   = "delete"
	opStartStr    = "start"
	opStopStr     = "stop"
	opStatusStr   = "status"
	opRegisterStr = "register"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return opCreateStr
	case OpDelete:
		return opDeleteStr
	case OpStart:
		return opStartStr
	case OpStop:
		return opStopStr
	case OpStatus:
		return opStatusStr
	case OpRegister:
		return opRegisterStr
	default:
		return opUnknownStr
	}
}
