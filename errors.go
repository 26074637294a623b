package daemon

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by daemon operations
var (
	// ErrEmptyCommand indicates the executor was called without arguments
	ErrEmptyCommand = errors.New("daemon: empty command")

	// ErrUnrecognizedState indicates the status text matched no known state marker
	ErrUnrecognizedState = errors.New("daemon: unrecognized service state")

	// ErrMalformedPID indicates a process id query returned a non-numeric value
	ErrMalformedPID = errors.New("daemon: malformed pid")

	// ErrProcessGone indicates the main process exited between the pid query and the cmdline read
	ErrProcessGone = errors.New("daemon: process gone")

	// ErrNoActiveSession indicates the session subsystem reports no active session
	ErrNoActiveSession = errors.New("daemon: no active session")

	// ErrQueueClosed indicates an event was sent after the event queue was closed
	ErrQueueClosed = errors.New("daemon: event queue closed")

	// ErrUnsupportedPlatform indicates the requested backend is not available on this OS
	ErrUnsupportedPlatform = errors.New("daemon: unsupported platform")
)

// SpawnError reports that the native control command could not be started at all
type SpawnError struct {
	// Command is the command line that failed to start
	Command string
	// Err is the underlying error from the OS
	Err error
}

// Error returns a formatted error message
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to execute command %s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// CommandError reports a native control command that ran but did not succeed.
// When the process was killed by a signal, Signaled is set and ExitCode is -1.
type CommandError struct {
	// Command is the command line that was executed
	Command string
	// ExitCode is the process exit status, -1 when unavailable
	ExitCode int
	// Signaled is true when the process was terminated by a signal
	Signaled bool
	// Stdout is the captured standard output
	Stdout string
	// Stderr is the captured standard error
	Stderr string
}

// Error returns a formatted error message
func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if e.Signaled {
		return fmt.Sprintf("command %q terminated by signal: %s", e.Command, stderr)
	}
	return fmt.Sprintf("command %q failed (%d): %s", e.Command, e.ExitCode, stderr)
}

// HasExitCode reports whether the process exited normally with a status code
func (e *CommandError) HasExitCode() bool {
	return !e.Signaled
}

// ParseErrorKind classifies a ParseError
type ParseErrorKind int

const (
	// UnrecognizedState means no state marker matched in the selected branch
	UnrecognizedState ParseErrorKind = iota + 1
	// MalformedPID means the pid field was not numeric
	MalformedPID
)

// ParseError reports native status output that could not be normalized
type ParseError struct {
	// Kind is the parse failure class
	Kind ParseErrorKind
	// Text is the raw text that failed to parse
	Text string
}

// Error returns a formatted error message
func (e *ParseError) Error() string {
	switch e.Kind {
	case MalformedPID:
		return fmt.Sprintf("malformed pid: %q", e.Text)
	default:
		return fmt.Sprintf("invalid active state: %s", e.Text)
	}
}

// Is lets errors.Is match the sentinel for each kind
func (e *ParseError) Is(target error) bool {
	switch e.Kind {
	case UnrecognizedState:
		return target == ErrUnrecognizedState
	case MalformedPID:
		return target == ErrMalformedPID
	}
	return false
}

// SubsystemError reports that the session notification subsystem is unavailable
type SubsystemError struct {
	// Subsystem names the native subsystem
	Subsystem string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *SubsystemError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Subsystem, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SubsystemError) Unwrap() error {
	return e.Err
}

// OpError represents an error from a controller operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Service is the service name involved in the operation
	Service string
	// Path is the file path involved, if any
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("daemon %s %q %s: %v", e.Op.String(), e.Service, e.Path, e.Err)
	}
	return fmt.Sprintf("daemon %s %q: %v", e.Op.String(), e.Service, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
