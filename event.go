package daemon

import (
	"fmt"
)

// EventKind identifies the variant of an Event
type EventKind int

const (
	// EventContinue asks a paused service to resume
	EventContinue EventKind = iota + 1
	// EventPause asks the service to pause
	EventPause
	// EventStop asks the service to stop
	EventStop
	// EventSessionConnect reports a session became active on the console
	EventSessionConnect
	// EventSessionDisconnect reports a session stopped being active on the console
	EventSessionDisconnect
	// EventSessionRemoteConnect reports a remote session connected
	EventSessionRemoteConnect
	// EventSessionRemoteDisconnect reports a remote session disconnected
	EventSessionRemoteDisconnect
	// EventSessionLogon reports a user logon
	EventSessionLogon
	// EventSessionLogoff reports a user logoff
	EventSessionLogoff
	// EventSessionLock reports a session lock
	EventSessionLock
	// EventSessionUnlock reports a session unlock
	EventSessionUnlock
	// EventCustom carries an application-defined payload
	EventCustom
)

var eventKindNames = map[EventKind]string{
	EventContinue:                "Continue",
	EventPause:                   "Pause",
	EventStop:                    "Stop",
	EventSessionConnect:          "SessionConnect",
	EventSessionDisconnect:       "SessionDisconnect",
	EventSessionRemoteConnect:    "SessionRemoteConnect",
	EventSessionRemoteDisconnect: "SessionRemoteDisconnect",
	EventSessionLogon:            "SessionLogon",
	EventSessionLogoff:           "SessionLogoff",
	EventSessionLock:             "SessionLock",
	EventSessionUnlock:           "SessionUnlock",
	EventCustom:                  "Custom",
}

// String returns the variant name
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsSession reports whether events of this kind carry a Session
func (k EventKind) IsSession() bool {
	return k >= EventSessionConnect && k <= EventSessionUnlock
}

// Event is delivered to the service main. Session is set for session kinds,
// Custom for EventCustom. Events are values and are copied into the queue.
type Event[T any] struct {
	Kind    EventKind
	Session Session
	Custom  T
}

// ControlEvent returns a Continue, Pause or Stop event
func ControlEvent[T any](kind EventKind) Event[T] {
	return Event[T]{Kind: kind}
}

// SessionEvent returns a session event of the given kind
func SessionEvent[T any](kind EventKind, s Session) Event[T] {
	return Event[T]{Kind: kind, Session: s}
}

// CustomEvent wraps an application payload
func CustomEvent[T any](v T) Event[T] {
	return Event[T]{Kind: EventCustom, Custom: v}
}

// String renders the event, e.g. "Stop" or "SessionConnect(3)"
func (e Event[T]) String() string {
	if e.Kind.IsSession() {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Session)
	}
	return e.Kind.String()
}
