package daemon

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Backend represents the native service manager a controller drives
type Backend int

const (
	// BackendUnknown represents an unknown service manager
	BackendUnknown Backend = iota
	// BackendSystemd represents systemd, driven through systemctl
	BackendSystemd
	// BackendSCM represents the Windows Service Control Manager
	BackendSCM
)

// Backend string constants
const (
	backendUnknownStr = "unknown"
	backendSystemdStr = "systemd"
	backendSCMStr     = "scm"
)

// String returns the string representation of Backend
func (b Backend) String() string {
	switch b {
	case BackendSystemd:
		return backendSystemdStr
	case BackendSCM:
		return backendSCMStr
	case BackendUnknown:
		fallthrough
	default:
		return backendUnknownStr
	}
}

// ParseBackend resolves a backend name; an empty name selects DefaultBackend
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultBackend(), nil
	case backendSystemdStr:
		return BackendSystemd, nil
	case backendSCMStr, "windows":
		return BackendSCM, nil
	default:
		return BackendUnknown, fmt.Errorf("unknown backend %q", name)
	}
}

// options collects controller settings shared by all backends
type options struct {
	logger        *zap.Logger
	metrics       *Metrics
	executor      Executor
	procs         ProcessInfo
	store         DescriptorStore
	unitDir       string
	systemctlPath string
	sudo          string
	execPath      string
}

// Option configures a Controller
type Option func(*options)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithExecutor replaces the native command executor
func WithExecutor(e Executor) Option {
	return func(o *options) {
		o.executor = e
	}
}

// WithProcessInfo replaces the process table reader
func WithProcessInfo(p ProcessInfo) Option {
	return func(o *options) {
		o.procs = p
	}
}

// WithDescriptorStore replaces the descriptor writer
func WithDescriptorStore(s DescriptorStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithUnitDir sets the systemd unit directory
func WithUnitDir(dir string) Option {
	return func(o *options) {
		o.unitDir = dir
	}
}

// WithSystemctlPath sets the path to systemctl
func WithSystemctlPath(path string) Option {
	return func(o *options) {
		o.systemctlPath = path
	}
}

// WithSudo prefixes native commands with a privilege escalation command
func WithSudo(command string) Option {
	return func(o *options) {
		o.sudo = command
	}
}

// WithExecPath sets the binary the service descriptor launches. By default
// it is the running executable.
func WithExecPath(path string) Option {
	return func(o *options) {
		o.execPath = path
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		unitDir:       DefaultUnitDir,
		systemctlPath: DefaultSystemctlPath,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.procs == nil {
		o.procs = DefaultProcessInfo()
	}
	if o.store == nil {
		o.store = FileStore{}
	}
	if o.executor == nil {
		o.executor = NewCommandExecutor(o.systemctlPath).
			WithSudo(o.sudo).
			WithLogger(o.logger).
			WithMetrics(o.metrics)
	}
	return o
}

// NewController creates a Controller for the given backend
func NewController(id Identity, backend Backend, opts ...Option) (Controller, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	switch backend {
	case BackendSystemd:
		c, err := NewSystemdController(id, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendSCM:
		return newSCMController(id, opts...)
	default:
		return nil, fmt.Errorf("backend %v: %w", backend, ErrUnsupportedPlatform)
	}
}

// New creates a Controller for the platform's native backend
func New(id Identity, opts ...Option) (Controller, error) {
	return NewController(id, DefaultBackend(), opts...)
}
