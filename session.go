package daemon

// Session identifies an OS login session. Two sessions are equal iff their
// identifiers are equal; nothing else about the session is inspected.
type Session struct {
	ID string
}

// NewSession wraps a native session identifier
func NewSession(id string) Session {
	return Session{ID: id}
}

// Equal reports whether both sessions carry the same identifier
func (s Session) Equal(other Session) bool {
	return s.ID == other.ID
}

// String returns the session identifier
func (s Session) String() string {
	return s.ID
}
