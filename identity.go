package daemon

import (
	"fmt"
	"strings"
)

// Identity describes a service. It is created once per controller and never
// mutated afterwards.
type Identity struct {
	// Name is the service name known to the native manager
	Name string
	// DisplayName is the human-friendly name
	DisplayName string
	// Description is a one-line description
	Description string
	// Config is an optional backend-specific blob (a systemd drop-in, or the
	// SCM Parameters value); empty means absent
	Config string
}

// NewIdentity returns an Identity with the given names
func NewIdentity(name, displayName, description string) Identity {
	return Identity{
		Name:        name,
		DisplayName: displayName,
		Description: description,
	}
}

// WithConfig returns a copy of the identity carrying a backend config blob
func (id Identity) WithConfig(config string) Identity {
	id.Config = config
	return id
}

// HasConfig reports whether a backend config blob is present
func (id Identity) HasConfig() bool {
	return id.Config != ""
}

// Validate checks that the identity can name a native service
func (id Identity) Validate() error {
	if id.Name == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if strings.ContainsAny(id.Name, `/\`) {
		return fmt.Errorf("service name %q must not contain path separators", id.Name)
	}
	if strings.ContainsAny(id.Name, " \t\n") {
		return fmt.Errorf("service name %q must not contain whitespace", id.Name)
	}
	return nil
}

// summary is the text used for unit descriptions
func (id Identity) summary() string {
	switch {
	case id.Description != "":
		return id.Description
	case id.DisplayName != "":
		return id.DisplayName
	default:
		return id.Name
	}
}
