package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeResult is a scripted Executor reply
type fakeResult struct {
	out string
	err error
}

// fakeExecutor records invocations and replies by subcommand
type fakeExecutor struct {
	mu        sync.Mutex
	calls     [][]string
	responses map[string]fakeResult
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{responses: make(map[string]fakeResult)}
}

func (f *fakeExecutor) on(subcommand, out string, err error) *fakeExecutor {
	f.responses[subcommand] = fakeResult{out: out, err: err}
	return f
}

func (f *fakeExecutor) Execute(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", ErrEmptyCommand
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), args...))
	r := f.responses[args[0]]
	return r.out, r.err
}

func (f *fakeExecutor) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

// fakeProcs serves command lines from a map
type fakeProcs map[uint32]string

func (f fakeProcs) CommandLine(ctx context.Context, pid uint32) (string, error) {
	if cmdline, ok := f[pid]; ok {
		return cmdline, nil
	}
	return "", fmt.Errorf("pid %d: %w", pid, ErrProcessGone)
}

// fakeSubsystem is a session subsystem driven by the test
type fakeSubsystem struct {
	mu           sync.Mutex
	active       *Session
	queryErr     error
	subscribeErr error
	notify       chan struct{}
	released     atomic.Bool
}

func newFakeSubsystem() *fakeSubsystem {
	return &fakeSubsystem{notify: make(chan struct{})}
}

func (f *fakeSubsystem) ActiveSession() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return Session{}, f.queryErr
	}
	if f.active == nil {
		return Session{}, ErrNoActiveSession
	}
	return *f.active, nil
}

func (f *fakeSubsystem) Subscribe() (<-chan struct{}, func() error, error) {
	if f.subscribeErr != nil {
		return nil, nil, f.subscribeErr
	}
	return f.notify, func() error {
		f.released.Store(true)
		return nil
	}, nil
}

// switchTo sets the active session and delivers one notification
func (f *fakeSubsystem) switchTo(t *testing.T, s *Session) {
	t.Helper()
	f.mu.Lock()
	f.active = s
	f.mu.Unlock()
	select {
	case f.notify <- struct{}{}:
	case <-time.After(time.Second):
		t.Fatal("session monitor did not take the notification")
	}
}

// fakeInterrupts hands out a test-owned signal channel
type fakeInterrupts struct {
	signals      chan os.Signal
	err          error
	unregistered atomic.Bool
}

func newFakeInterrupts() *fakeInterrupts {
	return &fakeInterrupts{signals: make(chan os.Signal, 4)}
}

func (f *fakeInterrupts) Notify() (<-chan os.Signal, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.signals, func() { f.unregistered.Store(true) }, nil
}

// fakeController is an in-memory Controller
type fakeController struct {
	id Identity

	mu       sync.Mutex
	statuses []ServiceStatus
	err      error
	calls    []Operation
}

func newFakeController(name string, statuses ...ServiceStatus) *fakeController {
	return &fakeController{id: NewIdentity(name, "", ""), statuses: statuses}
}

func (f *fakeController) record(op Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.err != nil {
		return &OpError{Op: op, Service: f.id.Name, Err: f.err}
	}
	return nil
}

func (f *fakeController) Identity() Identity                { return f.id }
func (f *fakeController) Create(ctx context.Context) error  { return f.record(OpCreate) }
func (f *fakeController) Delete(ctx context.Context) error  { return f.record(OpDelete) }
func (f *fakeController) Start(ctx context.Context) error   { return f.record(OpStart) }
func (f *fakeController) Stop(ctx context.Context) error    { return f.record(OpStop) }

func (f *fakeController) Status(ctx context.Context) (ServiceStatus, error) {
	if err := f.record(OpStatus); err != nil {
		return ServiceStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return ServiceStatus{}, errors.New("no status scripted")
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeController) Register(ctx context.Context, r Runner) (uint32, error) {
	if err := f.record(OpRegister); err != nil {
		return 0, err
	}
	return r.Run(ctx, nil)
}

// recvWithin receives one event or fails the test
func recvWithin[T any](t *testing.T, rx Receiver[T], d time.Duration) Event[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	ev, err := rx.Recv(ctx)
	if err != nil {
		t.Fatalf("no event within %v: %v", d, err)
	}
	return ev
}
