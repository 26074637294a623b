//go:build !linux && !windows

package daemon

import (
	"go.uber.org/zap"
)

// DefaultBackend returns the native backend of this platform
func DefaultBackend() Backend {
	return BackendUnknown
}

func defaultSessionSubsystem() (SessionSubsystem, error) {
	return nil, ErrUnsupportedPlatform
}

func notifyReady(*zap.Logger)    {}
func notifyStopping(*zap.Logger) {}
