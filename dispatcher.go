package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"vawter.tech/stopper"
)

// ServiceMain is the user's service entry point. It consumes events from rx,
// may produce its own through tx, and returns the process status code.
// standalone is true when running as an ordinary foreground process.
type ServiceMain[T any] func(rx Receiver[T], tx Sender[T], args []string, standalone bool) uint32

// InterruptSource delivers process interrupt requests
type InterruptSource interface {
	// Notify registers for interrupts. The returned function unregisters.
	Notify() (<-chan os.Signal, func(), error)
}

// signalInterrupts delivers OS signals through os/signal
type signalInterrupts struct {
	signals []os.Signal
}

// DefaultInterrupts returns a source for SIGINT and SIGTERM
func DefaultInterrupts() InterruptSource {
	return signalInterrupts{signals: []os.Signal{os.Interrupt, syscall.SIGTERM}}
}

func (s signalInterrupts) Notify() (<-chan os.Signal, func(), error) {
	if len(s.signals) == 0 {
		return nil, nil, errors.New("no signals to watch")
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, s.signals...)
	return ch, func() { signal.Stop(ch) }, nil
}

// Dispatcher wires the session monitor and the interrupt handler into one
// event queue and runs the service main against it. Producers keep running
// after the service main returns until Close is called.
type Dispatcher[T any] struct {
	// Subsystem feeds session events; required unless dispatching standalone
	Subsystem SessionSubsystem
	// Interrupts feeds Stop events
	Interrupts InterruptSource
	// Logger receives diagnostics
	Logger *zap.Logger
	// Metrics counts queued events by kind
	Metrics *Metrics

	mu      sync.Mutex
	cleanup []func() error
	queues  []*eventQueue[T]
}

// NewDispatcher returns a dispatcher using sub for session events and the
// process signals for interrupts
func NewDispatcher[T any](sub SessionSubsystem, logger *zap.Logger) *Dispatcher[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher[T]{
		Subsystem:  sub,
		Interrupts: DefaultInterrupts(),
		Logger:     logger,
	}
}

// Dispatch creates the event queue, starts the session monitor and the
// interrupt handler, then calls main on the calling goroutine and returns its
// status code. Without a working session monitor (unless standalone) or
// interrupt handler, Dispatch fails before main is called.
func (d *Dispatcher[T]) Dispatch(ctx context.Context, main ServiceMain[T], args []string, standalone bool) (uint32, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tx, rx := NewEventChannel[T]()
	if d.Metrics != nil {
		tx.q.onSend = d.Metrics.observeEvent
	}

	var cleanup []func() error
	release := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			_ = cleanup[i]()
		}
	}

	switch {
	case d.Subsystem != nil:
		monitor, err := startSessionMonitor(ctx, d.Subsystem, tx, logger)
		if err != nil {
			return 0, fmt.Errorf("failed to run session monitor: %w", err)
		}
		cleanup = append(cleanup, monitor.Close)
	case !standalone:
		return 0, &SubsystemError{Subsystem: "session monitor", Err: errors.New("no session subsystem configured")}
	}

	stopInterrupts, err := forwardInterrupts(ctx, d.Interrupts, tx, logger)
	if err != nil {
		release()
		return 0, fmt.Errorf("failed to register interrupt handler: %w", err)
	}
	cleanup = append(cleanup, stopInterrupts)

	d.mu.Lock()
	d.cleanup = append(d.cleanup, cleanup...)
	d.queues = append(d.queues, tx.q)
	d.mu.Unlock()

	logger.Debug("dispatching service main", zap.Strings("args", args), zap.Bool("standalone", standalone))
	return main(rx, tx, args, standalone), nil
}

// Close stops every producer started by Dispatch and closes their queues
func (d *Dispatcher[T]) Close() error {
	d.mu.Lock()
	cleanup, queues := d.cleanup, d.queues
	d.cleanup, d.queues = nil, nil
	d.mu.Unlock()

	merr := &MultiError{}
	for i := len(cleanup) - 1; i >= 0; i-- {
		merr.Add(cleanup[i]())
	}
	for _, q := range queues {
		q.close()
	}
	return merr.Err()
}

// forwardInterrupts sends one Stop event per delivered interrupt
func forwardInterrupts[T any](ctx context.Context, src InterruptSource, tx Sender[T], logger *zap.Logger) (func() error, error) {
	if src == nil {
		return nil, errors.New("no interrupt source configured")
	}

	signals, unregister, err := src.Notify()
	if err != nil {
		return nil, err
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(unregister)

	sctx.Go(func(sctx *stopper.Context) error {
		for {
			select {
			case <-sctx.Stopping():
				return nil

			case sig, ok := <-signals:
				if !ok {
					return nil
				}
				logger.Info("interrupt received", zap.Stringer("signal", sig))
				if err := tx.Send(ControlEvent[T](EventStop)); err != nil {
					return nil
				}
			}
		}
	})

	return func() error {
		sctx.Stop(DefaultMonitorGrace)
		return sctx.Wait()
	}, nil
}
