package daemon

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"vawter.tech/stopper"

	"github.com/axondata/go-daemon/internal/login"
)

// SessionSubsystem is the OS session-management subsystem the monitor follows
type SessionSubsystem interface {
	// ActiveSession returns the active session, or an error wrapping
	// ErrNoActiveSession when there is none
	ActiveSession() (Session, error)

	// Subscribe starts change notifications. Notifications must be delivered
	// serially; a closed channel means the subsystem shut down. The returned
	// function releases the subscription.
	Subscribe() (<-chan struct{}, func() error, error)
}

// LoginSubsystem follows the active session of a systemd-logind seat
type LoginSubsystem struct {
	runtime *login.Runtime
}

// NewLoginSubsystem reads logind state below runtimeDir ("" means /run/systemd)
func NewLoginSubsystem(runtimeDir string) *LoginSubsystem {
	return &LoginSubsystem{runtime: login.New(runtimeDir)}
}

// ActiveSession returns the seat's active session
func (l *LoginSubsystem) ActiveSession() (Session, error) {
	id, err := l.runtime.ActiveSession()
	if err != nil {
		if errors.Is(err, login.ErrNoActiveSession) {
			return Session{}, fmt.Errorf("%w: %v", ErrNoActiveSession, err)
		}
		return Session{}, err
	}
	return NewSession(id), nil
}

// Subscribe watches the logind runtime directories
func (l *LoginSubsystem) Subscribe() (<-chan struct{}, func() error, error) {
	return l.runtime.Subscribe()
}

// sessionTransition returns the events for a move from prev to cur: a connect
// for the new session, then a disconnect for the old one. Equal ids and
// (nil, nil) produce nothing.
func sessionTransition[T any](prev, cur *Session) []Event[T] {
	changed := false
	switch {
	case prev != nil && cur != nil:
		changed = !prev.Equal(*cur)
	case prev == nil && cur == nil:
		changed = false
	default:
		changed = true
	}
	if !changed {
		return nil
	}

	var events []Event[T]
	if cur != nil {
		events = append(events, SessionEvent[T](EventSessionConnect, *cur))
	}
	if prev != nil {
		events = append(events, SessionEvent[T](EventSessionDisconnect, *prev))
	}
	return events
}

// SessionMonitor turns session subsystem notifications into connect and
// disconnect events. The current session is owned by the monitor goroutine
// and never shared.
type SessionMonitor struct {
	sctx *stopper.Context
}

// startSessionMonitor subscribes to sub and forwards transitions to tx.
// Failing to subscribe is fatal; failing to query a session is not.
func startSessionMonitor[T any](ctx context.Context, sub SessionSubsystem, tx Sender[T], logger *zap.Logger) (*SessionMonitor, error) {
	notifications, unsubscribe, err := sub.Subscribe()
	if err != nil {
		return nil, &SubsystemError{Subsystem: "session monitor", Err: err}
	}

	current := queryActiveSession(sub, logger)

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		if err := unsubscribe(); err != nil {
			logger.Debug("failed to release session subscription", zap.Error(err))
		}
	})

	sctx.Go(func(sctx *stopper.Context) error {
		for {
			select {
			case <-sctx.Stopping():
				return nil

			case _, ok := <-notifications:
				if !ok {
					logger.Debug("session subsystem closed")
					return nil
				}

				active := queryActiveSession(sub, logger)
				for _, ev := range sessionTransition[T](current, active) {
					if err := tx.Send(ev); err != nil {
						logger.Debug("dropping session event", zap.Stringer("event", ev), zap.Error(err))
					}
				}
				// Track the subsystem even when nothing changed
				current = active
			}
		}
	})

	return &SessionMonitor{sctx: sctx}, nil
}

// Close stops the monitor and releases the subscription. It is safe to call
// more than once.
func (m *SessionMonitor) Close() error {
	if m == nil {
		return nil
	}
	m.sctx.Stop(DefaultMonitorGrace)
	return m.sctx.Wait()
}

func queryActiveSession(sub SessionSubsystem, logger *zap.Logger) *Session {
	s, err := sub.ActiveSession()
	if err != nil {
		logger.Debug("failed to get active session", zap.Error(err))
		return nil
	}
	return &s
}
