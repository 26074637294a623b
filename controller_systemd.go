package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// SystemdController manages a service through systemctl. It writes a unit
// file into UnitDir and drives it with the configured Executor.
type SystemdController struct {
	// UnitDir is the directory where unit files are written
	UnitDir string

	// ExecPath is the binary the unit launches; empty means the running executable
	ExecPath string

	identity Identity
	executor Executor
	procs    ProcessInfo
	store    DescriptorStore
	logger   *zap.Logger
}

var _ Controller = (*SystemdController)(nil)

// NewSystemdController creates a controller for the systemd unit named after id
func NewSystemdController(id Identity, opts ...Option) (*SystemdController, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &SystemdController{
		UnitDir:  o.unitDir,
		ExecPath: o.execPath,
		identity: id,
		executor: o.executor,
		procs:    o.procs,
		store:    o.store,
		logger:   o.logger.With(zap.String("service", id.Name)),
	}, nil
}

// Identity returns the managed service identity
func (c *SystemdController) Identity() Identity {
	return c.identity
}

// UnitName returns the unit file name, e.g. "foo.service"
func (c *SystemdController) UnitName() string {
	return c.identity.Name + UnitSuffix
}

// UnitPath returns the full path of the unit file
func (c *SystemdController) UnitPath() string {
	return filepath.Join(c.UnitDir, c.UnitName())
}

// DropInDir returns the drop-in directory of the unit
func (c *SystemdController) DropInDir() string {
	return filepath.Join(c.UnitDir, c.UnitName()+DropInSuffix)
}

// DropInPath returns the drop-in file holding the identity's config blob
func (c *SystemdController) DropInPath() string {
	return filepath.Join(c.DropInDir(), c.identity.Name+".conf")
}

// UnitContent renders the unit file
func (c *SystemdController) UnitContent() (string, error) {
	execPath, err := c.execPath()
	if err != nil {
		return "", err
	}
	return BuildUnit(c.identity, execPath), nil
}

// BuildUnit renders a unit with a description, the binary to launch and the
// install target
func BuildUnit(id Identity, execPath string) string {
	if strings.ContainsAny(execPath, " \t\"'\\$") {
		execPath = fmt.Sprintf("%q", execPath)
	}

	var unit strings.Builder

	unit.WriteString("[Unit]\n")
	unit.WriteString(fmt.Sprintf("Description=%s\n", id.summary()))
	unit.WriteString("\n")

	unit.WriteString("[Service]\n")
	unit.WriteString(fmt.Sprintf("ExecStart=%s\n", execPath))
	unit.WriteString("\n")

	unit.WriteString("[Install]\n")
	unit.WriteString(fmt.Sprintf("WantedBy=%s\n", DefaultWantedBy))

	return unit.String()
}

// Create writes the unit (and its drop-in when the identity carries a
// config blob), reloads systemd and enables the unit. Rerunning it after a
// partial failure rewrites the same files.
func (c *SystemdController) Create(ctx context.Context) error {
	content, err := c.UnitContent()
	if err != nil {
		return &OpError{Op: OpCreate, Service: c.identity.Name, Err: err}
	}

	path := c.UnitPath()
	c.logger.Info("writing service file", zap.String("path", path))
	if err := c.store.WriteFile(path, []byte(content), FileMode); err != nil {
		return &OpError{Op: OpCreate, Service: c.identity.Name, Path: path, Err: err}
	}

	if c.identity.HasConfig() {
		dir := c.DropInDir()
		if err := c.store.MkdirAll(dir, DirMode); err != nil {
			return &OpError{Op: OpCreate, Service: c.identity.Name, Path: dir, Err: err}
		}
		path := c.DropInPath()
		c.logger.Info("writing config file", zap.String("path", path))
		if err := c.store.WriteFile(path, []byte(c.identity.Config), FileMode); err != nil {
			return &OpError{Op: OpCreate, Service: c.identity.Name, Path: path, Err: err}
		}
	}

	if _, err := c.executor.Execute(ctx, "daemon-reload"); err != nil {
		return &OpError{Op: OpCreate, Service: c.identity.Name, Err: err}
	}
	if _, err := c.executor.Execute(ctx, "enable", c.UnitName()); err != nil {
		return &OpError{Op: OpCreate, Service: c.identity.Name, Err: err}
	}
	return nil
}

// Delete disables the unit and then removes its files. Only the disable
// result is reported; file removal, reload and reset-failed are best effort.
func (c *SystemdController) Delete(ctx context.Context) error {
	if _, err := c.executor.Execute(ctx, "disable", c.UnitName()); err != nil {
		return &OpError{Op: OpDelete, Service: c.identity.Name, Err: err}
	}

	if err := c.store.Remove(c.UnitPath()); err != nil {
		c.logger.Debug("failed to delete unit file", zap.String("path", c.UnitPath()), zap.Error(err))
	}
	if err := c.store.RemoveAll(c.DropInDir()); err != nil {
		c.logger.Debug("failed to delete drop-in dir", zap.String("path", c.DropInDir()), zap.Error(err))
	}

	if _, err := c.executor.Execute(ctx, "daemon-reload"); err != nil {
		c.logger.Debug("daemon-reload failed", zap.Error(err))
	}
	if _, err := c.executor.Execute(ctx, "reset-failed", c.UnitName()); err != nil {
		c.logger.Debug("reset-failed failed", zap.Error(err))
	}
	return nil
}

// Start starts the unit
func (c *SystemdController) Start(ctx context.Context) error {
	if _, err := c.executor.Execute(ctx, "start", c.UnitName()); err != nil {
		return &OpError{Op: OpStart, Service: c.identity.Name, Err: err}
	}
	return nil
}

// Stop stops the unit
func (c *SystemdController) Stop(ctx context.Context) error {
	if _, err := c.executor.Execute(ctx, "stop", c.UnitName()); err != nil {
		return &OpError{Op: OpStop, Service: c.identity.Name, Err: err}
	}
	return nil
}

// Status queries the main pid, the failed flag, the command line and the
// status text, in that order. The queries are not atomic: a restart between
// them can pair a stale pid with a fresh state.
func (c *SystemdController) Status(ctx context.Context) (ServiceStatus, error) {
	unit := c.UnitName()

	out, err := c.executor.Execute(ctx, "show", "-p", "MainPID", unit)
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpStatus, Service: c.identity.Name, Err: err}
	}
	pid, err := ParsePID(out)
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpStatus, Service: c.identity.Name, Err: err}
	}

	failed := c.isFailed(ctx, unit)

	var cmdline string
	if pid != 0 {
		cmdline, err = c.procs.CommandLine(ctx, pid)
		if err != nil {
			return ServiceStatus{}, &OpError{Op: OpStatus, Service: c.identity.Name, Err: err}
		}
	}

	text, err := c.statusText(ctx, unit)
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpStatus, Service: c.identity.Name, Err: err}
	}

	status, err := ParseStatus(text, failed)
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpStatus, Service: c.identity.Name, Err: err}
	}
	status.PID = pid
	status.Cmdline = cmdline
	return status, nil
}

// Register runs r in this process. systemd launches the unit's binary
// directly, so there is no dispatch loop to hand over to.
func (c *SystemdController) Register(ctx context.Context, r Runner) (uint32, error) {
	code, err := r.Run(ctx, os.Args)
	if err != nil {
		return code, &OpError{Op: OpRegister, Service: c.identity.Name, Err: err}
	}
	return code, nil
}

// isFailed runs "systemctl is-failed". It exits non-zero for units that are
// not failed, so any error reads as not failed.
func (c *SystemdController) isFailed(ctx context.Context, unit string) bool {
	out, err := c.executor.Execute(ctx, "is-failed", unit)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return parseFailed(cmdErr.Stdout)
		}
		c.logger.Debug("is-failed query failed", zap.Error(err))
		return false
	}
	return parseFailed(out)
}

// statusText runs "systemctl status". Exit code 3 means the unit is not
// active; its output still describes the state.
func (c *SystemdController) statusText(ctx context.Context, unit string) (string, error) {
	out, err := c.executor.Execute(ctx, "status", "--no-pager", unit)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.HasExitCode() && cmdErr.ExitCode == statusNotActiveCode && cmdErr.Stdout != "" {
			return cmdErr.Stdout, nil
		}
		return "", err
	}
	return out, nil
}

func (c *SystemdController) execPath() (string, error) {
	if c.ExecPath != "" {
		return c.ExecPath, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}
