//go:build windows

package daemon

import (
	"go.uber.org/zap"
)

// DefaultBackend returns the native backend of this platform
func DefaultBackend() Backend {
	return BackendSCM
}

// The SCM delivers session changes through the service handler, so there
// is no separate subsystem to monitor.
func defaultSessionSubsystem() (SessionSubsystem, error) {
	return nil, ErrUnsupportedPlatform
}

func notifyReady(*zap.Logger)    {}
func notifyStopping(*zap.Logger) {}
