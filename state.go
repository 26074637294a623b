package daemon

import (
	"fmt"
)

// StateKind is the top-level lifecycle classification of a service
type StateKind int

const (
	// KindInactive means the manager reports the service as not active
	KindInactive StateKind = iota
	// KindActive means the manager reports the service as active
	KindActive
)

// SubState refines a StateKind
type SubState int

const (
	// SubDead means no process is running
	SubDead SubState = iota
	// SubRunning means the main process is running
	SubRunning
	// SubExited means the process ran and exited
	SubExited
	// SubWaiting means the unit is waiting for an event
	SubWaiting
	// SubResetting means the unit is being reset after a failure
	SubResetting
)

// SubState string constants
const (
	subDeadStr      = "dead"
	subRunningStr   = "running"
	subExitedStr    = "exited"
	subWaitingStr   = "waiting"
	subResettingStr = "resetting"
)

// String returns the string representation of the sub state
func (s SubState) String() string {
	switch s {
	case SubRunning:
		return subRunningStr
	case SubExited:
		return subExitedStr
	case SubWaiting:
		return subWaitingStr
	case SubResetting:
		return subResettingStr
	default:
		return subDeadStr
	}
}

// String returns the string representation of the kind
func (k StateKind) String() string {
	if k == KindActive {
		return "active"
	}
	return "inactive"
}

// ServiceState is a normalized snapshot of a service's state. Exactly one kind
// and one sub state hold; use Active or Inactive to build valid values.
type ServiceState struct {
	Kind StateKind
	Sub  SubState
}

// Active returns an active state. Resetting is not a valid active sub state.
func Active(sub SubState) ServiceState {
	if sub == SubResetting {
		panic(fmt.Sprintf("daemon: %s is not an active sub state", sub))
	}
	return ServiceState{Kind: KindActive, Sub: sub}
}

// Inactive returns an inactive state. Running is not a valid inactive sub state.
func Inactive(sub SubState) ServiceState {
	if sub == SubRunning {
		panic(fmt.Sprintf("daemon: %s is not an inactive sub state", sub))
	}
	return ServiceState{Kind: KindInactive, Sub: sub}
}

// IsActive reports whether the state is in the active branch
func (s ServiceState) IsActive() bool {
	return s.Kind == KindActive
}

// IsRunning reports whether the state is active (running)
func (s ServiceState) IsRunning() bool {
	return s.Kind == KindActive && s.Sub == SubRunning
}

// String renders the state the way systemctl prints it, e.g. "active (running)"
func (s ServiceState) String() string {
	return fmt.Sprintf("%s (%s)", s.Kind, s.Sub)
}
