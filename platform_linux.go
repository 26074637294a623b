//go:build linux

package daemon

import (
	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
)

// DefaultBackend returns the native backend of this platform
func DefaultBackend() Backend {
	return BackendSystemd
}

func defaultSessionSubsystem() (SessionSubsystem, error) {
	return NewLoginSubsystem(""), nil
}

// notifyReady tells systemd the service finished starting. It is a no-op
// outside a notify-type unit.
func notifyReady(logger *zap.Logger) {
	sdNotify(logger, sddaemon.SdNotifyReady)
}

// notifyStopping tells systemd the service is shutting down
func notifyStopping(logger *zap.Logger) {
	sdNotify(logger, sddaemon.SdNotifyStopping)
}

func sdNotify(logger *zap.Logger, state string) {
	sent, err := sddaemon.SdNotify(false, state)
	if err != nil {
		logger.Debug("sd_notify failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		logger.Debug("sd_notify sent", zap.String("state", state))
	}
}
