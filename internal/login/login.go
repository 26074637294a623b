// Package login reads systemd-logind runtime state from /run/systemd and
// watches it for changes, the same files sd-login consults.
package login

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"vawter.tech/stopper"
)

const (
	// DefaultRuntimeDir is the logind runtime directory
	DefaultRuntimeDir = "/run/systemd"

	// DefaultSeat is the seat whose active session is tracked
	DefaultSeat = "seat0"

	// SeatsDir holds one state file per seat
	SeatsDir = "seats"

	// SessionsDir holds one state file per session
	SessionsDir = "sessions"

	// activeKey is the seat file key naming the active session
	activeKey = "ACTIVE"

	stopGrace = 100 * time.Millisecond
)

// ErrNoActiveSession indicates the seat has no active session
var ErrNoActiveSession = errors.New("login: no active session")

// Runtime reads seat state below Dir
type Runtime struct {
	// Dir is the logind runtime directory
	Dir string
	// Seat is the seat to query
	Seat string
}

// New returns a Runtime rooted at dir; an empty dir means DefaultRuntimeDir
func New(dir string) *Runtime {
	if dir == "" {
		dir = DefaultRuntimeDir
	}
	return &Runtime{Dir: dir, Seat: DefaultSeat}
}

// SeatPath returns the state file of the tracked seat
func (r *Runtime) SeatPath() string {
	return filepath.Join(r.Dir, SeatsDir, r.Seat)
}

// WatchDirs returns the directories whose changes may move the active session
func (r *Runtime) WatchDirs() []string {
	return []string{
		filepath.Join(r.Dir, SessionsDir),
		filepath.Join(r.Dir, SeatsDir),
	}
}

// ActiveSession returns the identifier of the seat's active session
func (r *Runtime) ActiveSession() (string, error) {
	vals, err := godotenv.Read(r.SeatPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("seat %s: %w", r.Seat, ErrNoActiveSession)
		}
		return "", fmt.Errorf("reading seat %s: %w", r.Seat, err)
	}

	id := strings.TrimSpace(vals[activeKey])
	if id == "" {
		return "", fmt.Errorf("seat %s: %w", r.Seat, ErrNoActiveSession)
	}
	return id, nil
}

// Subscribe watches the runtime directories. The returned channel receives a
// notification after any change; bursts coalesce into one pending
// notification. Notifications are delivered from a single goroutine. The
// cleanup function stops the watcher and closes the channel; it is safe to
// call more than once.
func (r *Runtime) Subscribe() (<-chan struct{}, func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("creating watcher: %w", err)
	}

	for _, dir := range r.WatchDirs() {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	ch := make(chan struct{}, 1)

	sctx := stopper.WithContext(context.Background())
	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	notify := func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	sctx.Go(func(sctx *stopper.Context) error {
		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case _, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				notify()

			case _, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				// Overflow or read errors lose events; force a re-query.
				notify()
			}
		}
		return nil
	})

	cleanup := func() error {
		sctx.Stop(stopGrace)
		return sctx.Wait()
	}

	return ch, cleanup, nil
}
