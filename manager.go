package daemon

import (
	"context"
	"sync"
	"time"
)

// Manager runs controller operations over many services concurrently
type Manager struct {
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
	// Timeout is the per-operation timeout
	Timeout time.Duration
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent operations
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.Timeout = d
	}
}

// NewManager creates a new Manager with default settings
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultOpTimeout,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	return m
}

// execute runs op once per controller, at most Concurrency at a time, and
// collects every failure
func (m *Manager) execute(ctx context.Context, controllers []Controller, op func(context.Context, Controller) error) error {
	if len(controllers) == 0 {
		return nil
	}

	sem := make(chan struct{}, m.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for _, c := range controllers {
		wg.Add(1)
		go func(c Controller) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			opCtx := ctx
			if m.Timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, m.Timeout)
				defer cancel()
			}

			if err := op(opCtx, c); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(c)
	}

	wg.Wait()

	return merr.Err()
}

// Create installs the given services
func (m *Manager) Create(ctx context.Context, controllers ...Controller) error {
	return m.execute(ctx, controllers, func(ctx context.Context, c Controller) error {
		return c.Create(ctx)
	})
}

// Delete uninstalls the given services
func (m *Manager) Delete(ctx context.Context, controllers ...Controller) error {
	return m.execute(ctx, controllers, func(ctx context.Context, c Controller) error {
		return c.Delete(ctx)
	})
}

// Start starts the given services
func (m *Manager) Start(ctx context.Context, controllers ...Controller) error {
	return m.execute(ctx, controllers, func(ctx context.Context, c Controller) error {
		return c.Start(ctx)
	})
}

// Stop stops the given services
func (m *Manager) Stop(ctx context.Context, controllers ...Controller) error {
	return m.execute(ctx, controllers, func(ctx context.Context, c Controller) error {
		return c.Stop(ctx)
	})
}

// Status queries the given services, keyed by service name. Services whose
// query failed are missing from the map.
func (m *Manager) Status(ctx context.Context, controllers ...Controller) (map[string]ServiceStatus, error) {
	var mu sync.Mutex
	results := make(map[string]ServiceStatus, len(controllers))

	err := m.execute(ctx, controllers, func(ctx context.Context, c Controller) error {
		status, err := c.Status(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		results[c.Identity().Name] = status
		mu.Unlock()
		return nil
	})

	return results, err
}
