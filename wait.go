package daemon

import (
	"context"
	"time"
)

// StateMatcher reports whether a status is the one being waited for
type StateMatcher func(ServiceStatus) bool

// InState matches a status whose state equals one of states. With no states
// it matches anything.
func InState(states ...ServiceState) StateMatcher {
	return func(s ServiceStatus) bool {
		if len(states) == 0 {
			return true
		}
		for _, target := range states {
			if s.State == target {
				return true
			}
		}
		return false
	}
}

// WaitForState polls c every interval until match accepts its status, the
// query fails, or ctx is done. The last status seen is returned with
// ctx.Err() when the wait is abandoned.
func WaitForState(ctx context.Context, c Controller, interval time.Duration, match StateMatcher) (ServiceStatus, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if match == nil {
		match = InState()
	}

	status, err := c.Status(ctx)
	if err != nil {
		return ServiceStatus{}, err
	}
	if match(status) {
		return status, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err = c.Status(ctx)
			if err != nil {
				return ServiceStatus{}, err
			}
			if match(status) {
				return status, nil
			}
		case <-ctx.Done():
			return status, ctx.Err()
		}
	}
}
