package daemon

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Runner is the live-service entry point handed to Controller.Register
type Runner interface {
	Run(ctx context.Context, args []string) (uint32, error)
}

// Service binds a name to a service main. Run is the path taken when the
// native manager launches the process; RunStandalone runs the same main as a
// foreground program that only reacts to interrupts.
type Service[T any] struct {
	// Name is the native service name
	Name string
	// Main is the service entry point
	Main ServiceMain[T]
	// Logger receives diagnostics
	Logger *zap.Logger
	// Metrics counts events
	Metrics *Metrics
	// Subsystem overrides the platform session subsystem
	Subsystem SessionSubsystem
	// Interrupts overrides the process signal source
	Interrupts InterruptSource

	mu          sync.Mutex
	dispatchers []*Dispatcher[T]
}

// NewService returns a service running main under name
func NewService[T any](name string, main ServiceMain[T]) *Service[T] {
	return &Service[T]{
		Name:   name,
		Main:   main,
		Logger: zap.NewNop(),
	}
}

// WithLogger sets the logger
func (s *Service[T]) WithLogger(logger *zap.Logger) *Service[T] {
	if logger != nil {
		s.Logger = logger
	}
	return s
}

// WithMetrics sets the metrics sink
func (s *Service[T]) WithMetrics(m *Metrics) *Service[T] {
	s.Metrics = m
	return s
}

// WithSubsystem overrides the session subsystem
func (s *Service[T]) WithSubsystem(sub SessionSubsystem) *Service[T] {
	s.Subsystem = sub
	return s
}

// WithInterrupts overrides the interrupt source
func (s *Service[T]) WithInterrupts(src InterruptSource) *Service[T] {
	s.Interrupts = src
	return s
}

// Run dispatches the service main with the session monitor and the interrupt
// handler attached. The monitor keeps running after Run returns until Close.
func (s *Service[T]) Run(ctx context.Context, args []string) (uint32, error) {
	sub := s.Subsystem
	if sub == nil {
		var err error
		if sub, err = defaultSessionSubsystem(); err != nil {
			return 0, &SubsystemError{Subsystem: "session monitor", Err: err}
		}
	}

	d := s.newDispatcher(sub)

	notifyReady(s.logger())
	code, err := d.Dispatch(ctx, s.Main, args, false)
	notifyStopping(s.logger())
	return code, err
}

// RunStandalone dispatches the service main as a foreground process: only
// interrupts produce events and the main sees standalone=true.
func (s *Service[T]) RunStandalone(ctx context.Context, args []string) (uint32, error) {
	return s.newDispatcher(nil).Dispatch(ctx, s.Main, args, true)
}

// Close stops the producers of every dispatch started by this service
func (s *Service[T]) Close() error {
	s.mu.Lock()
	dispatchers := s.dispatchers
	s.dispatchers = nil
	s.mu.Unlock()

	merr := &MultiError{}
	for _, d := range dispatchers {
		merr.Add(d.Close())
	}
	return merr.Err()
}

func (s *Service[T]) newDispatcher(sub SessionSubsystem) *Dispatcher[T] {
	d := NewDispatcher[T](sub, s.logger())
	d.Metrics = s.Metrics
	if s.Interrupts != nil {
		d.Interrupts = s.Interrupts
	}

	s.mu.Lock()
	s.dispatchers = append(s.dispatchers, d)
	s.mu.Unlock()
	return d
}

func (s *Service[T]) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger.With(zap.String("service", s.Name))
}
