package daemon

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Executor runs the native service-manager control command
type Executor interface {
	// Execute runs the command with args and returns its stdout.
	// It blocks until the process exits and never retries.
	Execute(ctx context.Context, args ...string) (string, error)
}

// CommandExecutor runs a control binary such as systemctl
type CommandExecutor struct {
	// Path is the control binary to run
	Path string

	// Sudo, when set, is prefixed to every invocation (e.g. "sudo")
	Sudo string

	// Logger receives non-empty command output at info level
	Logger *zap.Logger

	// Metrics counts invocations by subcommand and result
	Metrics *Metrics
}

// NewCommandExecutor creates an executor for the given control binary
func NewCommandExecutor(path string) *CommandExecutor {
	if path == "" {
		path = DefaultSystemctlPath
	}
	return &CommandExecutor{
		Path:   path,
		Logger: zap.NewNop(),
	}
}

// WithSudo configures a privilege escalation prefix; an empty command disables it
func (e *CommandExecutor) WithSudo(command string) *CommandExecutor {
	e.Sudo = command
	return e
}

// WithLogger sets the logger
func (e *CommandExecutor) WithLogger(logger *zap.Logger) *CommandExecutor {
	if logger != nil {
		e.Logger = logger
	}
	return e
}

// WithMetrics sets the metrics sink
func (e *CommandExecutor) WithMetrics(m *Metrics) *CommandExecutor {
	e.Metrics = m
	return e
}

// Execute runs Path with args. A process that cannot be started yields a
// *SpawnError; one that exits non-zero or is killed by a signal yields a
// *CommandError. Output is decoded as UTF-8, replacing invalid sequences.
func (e *CommandExecutor) Execute(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", ErrEmptyCommand
	}

	name, argv := e.Path, args
	if e.Sudo != "" {
		name = e.Sudo
		argv = append([]string{e.Path}, args...)
	}
	command := strings.Join(append([]string{e.Path}, args...), " ")

	cmd := exec.CommandContext(ctx, name, argv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := lossyString(stdout.Bytes())
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			err = &CommandError{
				Command:  command,
				ExitCode: code,
				Signaled: code == -1,
				Stdout:   out,
				Stderr:   lossyString(stderr.Bytes()),
			}
		} else {
			err = &SpawnError{Command: command, Err: err}
		}
		e.Metrics.observeCommand(args[0], err)
		return "", err
	}

	e.Metrics.observeCommand(args[0], nil)
	if out != "" {
		e.logger().Info("command output", zap.String("command", command), zap.String("stdout", out))
	}
	return out, nil
}

func (e *CommandExecutor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func lossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
