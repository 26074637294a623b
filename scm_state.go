package daemon

import (
	"strconv"
)

// Windows SCM service states (SERVICE_STOPPED ... SERVICE_PAUSED)
const (
	scmStopped         = 1
	scmStartPending    = 2
	scmStopPending     = 3
	scmRunning         = 4
	scmContinuePending = 5
	scmPausePending    = 6
	scmPaused          = 7
)

// errorServiceNeverStarted is ERROR_SERVICE_NEVER_STARTED
const errorServiceNeverStarted = 1077

// ParseSCMState maps a Service Control Manager state code onto the normalized model
func ParseSCMState(code uint32) (ServiceState, error) {
	switch code {
	case scmRunning:
		return Active(SubRunning), nil
	case scmStartPending, scmContinuePending, scmPausePending, scmPaused:
		return Active(SubWaiting), nil
	case scmStopPending:
		return Inactive(SubWaiting), nil
	case scmStopped:
		return Inactive(SubDead), nil
	default:
		return ServiceState{}, &ParseError{Kind: UnrecognizedState, Text: "scm state " + strconv.FormatUint(uint64(code), 10)}
	}
}

// scmFailed reports whether a stopped service left a failure exit code behind
func scmFailed(code, win32ExitCode uint32) bool {
	if code != scmStopped {
		return false
	}
	return win32ExitCode != 0 && win32ExitCode != errorServiceNeverStarted
}

// WTS session change codes delivered with SERVICE_CONTROL_SESSIONCHANGE
const (
	wtsConsoleConnect    = 0x1
	wtsConsoleDisconnect = 0x2
	wtsRemoteConnect     = 0x3
	wtsRemoteDisconnect  = 0x4
	wtsSessionLogon      = 0x5
	wtsSessionLogoff     = 0x6
	wtsSessionLock       = 0x7
	wtsSessionUnlock     = 0x8
)

// wtsEventKind maps a WTS session change code to an event kind.
// Codes without a matching event (remote control, create, terminate) are dropped.
func wtsEventKind(code uint32) (EventKind, bool) {
	switch code {
	case wtsConsoleConnect:
		return EventSessionConnect, true
	case wtsConsoleDisconnect:
		return EventSessionDisconnect, true
	case wtsRemoteConnect:
		return EventSessionRemoteConnect, true
	case wtsRemoteDisconnect:
		return EventSessionRemoteDisconnect, true
	case wtsSessionLogon:
		return EventSessionLogon, true
	case wtsSessionLogoff:
		return EventSessionLogoff, true
	case wtsSessionLock:
		return EventSessionLock, true
	case wtsSessionUnlock:
		return EventSessionUnlock, true
	default:
		return 0, false
	}
}
