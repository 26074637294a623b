package daemon

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the file form of a service definition
type Config struct {
	// Name is the native service name
	Name string `yaml:"name"`
	// DisplayName is the human readable name
	DisplayName string `yaml:"display_name"`
	// Description describes the service
	Description string `yaml:"description"`
	// Config is an opaque blob installed alongside the service descriptor
	Config string `yaml:"config"`

	// Backend selects the native manager; empty means the platform default
	Backend string `yaml:"backend"`
	// ExecPath is the binary the descriptor launches
	ExecPath string `yaml:"exec_path"`

	Systemd SystemdConfig `yaml:"systemd"`
}

// SystemdConfig holds the systemd specific settings
type SystemdConfig struct {
	UnitDir       string `yaml:"unit_dir"`
	SystemctlPath string `yaml:"systemctl_path"`
	Sudo          string `yaml:"sudo"`
}

// LoadConfig reads and validates a YAML service definition
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a YAML service definition
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if err := cfg.Identity().Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseBackend(cfg.Backend); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Identity returns the service identity described by the config
func (c *Config) Identity() Identity {
	id := NewIdentity(c.Name, c.DisplayName, c.Description)
	if c.Config != "" {
		id = id.WithConfig(c.Config)
	}
	return id
}

// Options converts the config into controller options
func (c *Config) Options() []Option {
	var opts []Option
	if c.ExecPath != "" {
		opts = append(opts, WithExecPath(c.ExecPath))
	}
	if c.Systemd.UnitDir != "" {
		opts = append(opts, WithUnitDir(c.Systemd.UnitDir))
	}
	if c.Systemd.SystemctlPath != "" {
		opts = append(opts, WithSystemctlPath(c.Systemd.SystemctlPath))
	}
	if c.Systemd.Sudo != "" {
		opts = append(opts, WithSudo(c.Systemd.Sudo))
	}
	return opts
}

// NewController builds the controller the config describes. extra options
// are applied after the config's own.
func (c *Config) NewController(logger *zap.Logger, extra ...Option) (Controller, error) {
	backend, err := ParseBackend(c.Backend)
	if err != nil {
		return nil, err
	}
	opts := append(c.Options(), WithLogger(logger))
	opts = append(opts, extra...)
	return NewController(c.Identity(), backend, opts...)
}
