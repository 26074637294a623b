package daemon

import (
	"context"
)

// Controller is the main interface every backend implements. It installs,
// removes, starts, stops and inspects one service on the native manager.
type Controller interface {
	// Identity returns the service this controller manages
	Identity() Identity

	// Lifecycle operations
	Create(ctx context.Context) error
	Delete(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Status queries the native manager and returns a fresh snapshot
	Status(ctx context.Context) (ServiceStatus, error)

	// Register hands the process to the native dispatch loop. It returns
	// once the service main has returned.
	Register(ctx context.Context, r Runner) (uint32, error)
}
