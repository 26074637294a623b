package daemon

// Version is the current version of the go-daemon library
const Version = "0.1.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Backends lists the native managers compiled into this build
	Backends []Backend
	// Default is the backend New selects on this platform
	Default Backend
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:  Version,
		Backends: []Backend{BackendSystemd, BackendSCM},
		Default:  DefaultBackend(),
	}
}
