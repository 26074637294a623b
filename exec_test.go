package daemon

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestExecuteNonexistentCommand(t *testing.T) {
	e := NewCommandExecutor("/nonexistent/daemon-control-binary")

	_, err := e.Execute(context.Background(), "status")
	require.Error(t, err)

	var spawnErr *SpawnError
	assert.True(t, errors.As(err, &spawnErr), "want SpawnError, got %T", err)

	var cmdErr *CommandError
	assert.False(t, errors.As(err, &cmdErr), "nonexistent command must not be a CommandError")
}

func TestExecuteNonZeroExit(t *testing.T) {
	skipOnWindows(t)

	e := NewCommandExecutor("sh")
	_, err := e.Execute(context.Background(), "-c", "echo partial; echo boom >&2; exit 3")

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr), "want CommandError, got %v", err)
	assert.True(t, cmdErr.HasExitCode())
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "partial\n", cmdErr.Stdout)
	assert.Equal(t, "boom\n", cmdErr.Stderr)
	assert.Contains(t, cmdErr.Error(), "boom")
}

func TestExecuteSignalTermination(t *testing.T) {
	skipOnWindows(t)

	e := NewCommandExecutor("sh")
	_, err := e.Execute(context.Background(), "-c", "kill -KILL $$")

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr), "want CommandError, got %v", err)
	assert.True(t, cmdErr.Signaled)
	assert.False(t, cmdErr.HasExitCode())
	assert.Equal(t, -1, cmdErr.ExitCode)
}

func TestExecuteLogsOutput(t *testing.T) {
	skipOnWindows(t)

	core, logs := observer.New(zapcore.InfoLevel)
	e := NewCommandExecutor("echo").WithLogger(zap.New(core))

	out, err := e.Execute(context.Background(), "hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)

	entries := logs.FilterMessage("command output").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "hello world\n", entries[0].ContextMap()["stdout"])
	assert.Equal(t, "echo hello world", entries[0].ContextMap()["command"])
}

func TestExecuteSilentCommandDoesNotLog(t *testing.T) {
	skipOnWindows(t)

	core, logs := observer.New(zapcore.InfoLevel)
	e := NewCommandExecutor("true").WithLogger(zap.New(core))

	_, err := e.Execute(context.Background(), "ignored")
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}

func TestExecuteSudoPrefix(t *testing.T) {
	skipOnWindows(t)

	// env runs its arguments, standing in for sudo
	e := NewCommandExecutor("echo").WithSudo("env")

	out, err := e.Execute(context.Background(), "prefixed")
	require.NoError(t, err)
	assert.Equal(t, "prefixed\n", out)
}

func TestExecuteEmptyCommand(t *testing.T) {
	_, err := NewCommandExecutor("").Execute(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestExecuteInvalidUTF8(t *testing.T) {
	skipOnWindows(t)

	e := NewCommandExecutor("printf")
	out, err := e.Execute(context.Background(), `a\377b`)
	require.NoError(t, err)
	assert.Equal(t, "a\uFFFDb", out)
}

func TestExecuteMetrics(t *testing.T) {
	skipOnWindows(t)

	m := NewMetrics(prometheus.NewRegistry())
	ok := NewCommandExecutor("true").WithMetrics(m)
	bad := NewCommandExecutor("false").WithMetrics(m)
	missing := NewCommandExecutor("/nonexistent/binary").WithMetrics(m)

	_, _ = ok.Execute(context.Background(), "start")
	_, _ = ok.Execute(context.Background(), "start")
	_, _ = bad.Execute(context.Background(), "stop")
	_, _ = missing.Execute(context.Background(), "status")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("start", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("stop", "command_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("status", "spawn_error")))
}
