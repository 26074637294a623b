package daemon

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const runningStatus = "● foobar.service - Foo Bar\n" +
	"     Loaded: loaded (/lib/systemd/system/foobar.service; enabled)\n" +
	"     Active: active (running) since Tue 2024-01-02 10:00:00 UTC; 5s ago\n" +
	"   Main PID: 1234 (foobar)\n"

func newTestSystemd(t *testing.T, exec Executor, opts ...Option) *SystemdController {
	t.Helper()
	id := NewIdentity("foobar", "Foo Bar", "Foo Bar daemon")
	all := append([]Option{
		WithExecutor(exec),
		WithUnitDir(t.TempDir()),
		WithExecPath("/usr/local/bin/foobar"),
		WithProcessInfo(fakeProcs{1234: "/usr/local/bin/foobar --serve"}),
	}, opts...)
	c, err := NewSystemdController(id, all...)
	require.NoError(t, err)
	return c
}

func TestSystemdPaths(t *testing.T) {
	c, err := NewSystemdController(NewIdentity("foobar", "", ""), WithExecutor(newFakeExecutor()))
	require.NoError(t, err)

	assert.Equal(t, "foobar.service", c.UnitName())
	assert.Equal(t, filepath.FromSlash("/lib/systemd/system/foobar.service"), c.UnitPath())
	assert.Equal(t, filepath.FromSlash("/lib/systemd/system/foobar.service.d"), c.DropInDir())
	assert.Equal(t, filepath.FromSlash("/lib/systemd/system/foobar.service.d/foobar.conf"), c.DropInPath())
}

func TestBuildUnit(t *testing.T) {
	unit := BuildUnit(NewIdentity("foobar", "Foo Bar", "Foo Bar daemon"), "/usr/local/bin/foobar")
	assert.Equal(t, "[Unit]\n"+
		"Description=Foo Bar daemon\n"+
		"\n"+
		"[Service]\n"+
		"ExecStart=/usr/local/bin/foobar\n"+
		"\n"+
		"[Install]\n"+
		"WantedBy=multi-user.target\n", unit)

	unit = BuildUnit(NewIdentity("foobar", "Foo Bar", ""), "/opt/foo bar/foobar")
	assert.Contains(t, unit, "Description=Foo Bar\n")
	assert.Contains(t, unit, `ExecStart="/opt/foo bar/foobar"`)
}

func TestSystemdCreate(t *testing.T) {
	exec := newFakeExecutor()
	core, logs := observer.New(zapcore.InfoLevel)
	c := newTestSystemd(t, exec, WithLogger(zap.New(core)))
	c.identity = c.identity.WithConfig("[Service]\nEnvironment=FOO=1\n")

	require.NoError(t, c.Create(context.Background()))

	unit, err := os.ReadFile(c.UnitPath())
	require.NoError(t, err)
	assert.Contains(t, string(unit), "ExecStart=/usr/local/bin/foobar\n")

	dropIn, err := os.ReadFile(c.DropInPath())
	require.NoError(t, err)
	assert.Equal(t, "[Service]\nEnvironment=FOO=1\n", string(dropIn))

	assert.Equal(t, []string{"daemon-reload", "enable foobar.service"}, exec.commands())
	assert.Equal(t, 1, logs.FilterMessage("writing service file").Len())
	assert.Equal(t, 1, logs.FilterMessage("writing config file").Len())
}

func TestSystemdCreateWithoutConfig(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestSystemd(t, exec)

	require.NoError(t, c.Create(context.Background()))

	_, err := os.Stat(c.DropInDir())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSystemdCreateIsRepeatable(t *testing.T) {
	exec := newFakeExecutor().on("enable", "", &CommandError{Command: "systemctl enable foobar.service", ExitCode: 1})
	c := newTestSystemd(t, exec)

	err := c.Create(context.Background())
	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpCreate, opErr.Op)
	var cmdErr *CommandError
	assert.True(t, errors.As(err, &cmdErr))

	exec.on("enable", "", nil)
	require.NoError(t, c.Create(context.Background()))
}

func TestSystemdCreateWriteFailure(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestSystemd(t, exec, WithUnitDir(filepath.Join(t.TempDir(), "missing")))

	err := c.Create(context.Background())
	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, c.UnitPath(), opErr.Path)
	assert.Empty(t, exec.commands())
}

// failingRemoveStore fails every removal
type failingRemoveStore struct {
	FileStore
}

func (failingRemoveStore) Remove(string) error    { return errors.New("read-only file system") }
func (failingRemoveStore) RemoveAll(string) error { return errors.New("read-only file system") }

func TestSystemdDelete(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestSystemd(t, exec)
	c.identity = c.identity.WithConfig("x")
	require.NoError(t, c.Create(context.Background()))
	exec.calls = nil

	require.NoError(t, c.Delete(context.Background()))

	assert.Equal(t, []string{"disable foobar.service", "daemon-reload", "reset-failed foobar.service"}, exec.commands())
	_, err := os.Stat(c.UnitPath())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = os.Stat(c.DropInDir())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestSystemdDeleteReportsDisable(t *testing.T) {
	exec := newFakeExecutor().on("disable", "", &CommandError{Command: "systemctl disable foobar.service", ExitCode: 1})
	c := newTestSystemd(t, exec)
	require.NoError(t, c.Create(context.Background()))

	err := c.Delete(context.Background())
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))

	// nothing was removed
	_, statErr := os.Stat(c.UnitPath())
	assert.NoError(t, statErr)
}

func TestSystemdDeleteBestEffortCleanup(t *testing.T) {
	exec := newFakeExecutor().
		on("daemon-reload", "", errors.New("bus timeout")).
		on("reset-failed", "", &CommandError{ExitCode: 1})
	core, logs := observer.New(zapcore.DebugLevel)
	c := newTestSystemd(t, exec, WithDescriptorStore(failingRemoveStore{}), WithLogger(zap.New(core)))

	require.NoError(t, c.Delete(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("failed to delete unit file").Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to delete drop-in dir").Len())
}

func TestSystemdStartStop(t *testing.T) {
	exec := newFakeExecutor()
	c := newTestSystemd(t, exec)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
	assert.Equal(t, []string{"start foobar.service", "stop foobar.service"}, exec.commands())

	exec.on("start", "", &CommandError{ExitCode: 5})
	err := c.Start(context.Background())
	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpStart, opErr.Op)
	assert.Equal(t, "foobar", opErr.Service)
}

func TestSystemdStatus(t *testing.T) {
	exec := newFakeExecutor().
		on("show", "MainPID=1234\n", nil).
		on("is-failed", "", &CommandError{ExitCode: 1, Stdout: "active\n"}).
		on("status", runningStatus, nil)
	c := newTestSystemd(t, exec)

	status, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Active(SubRunning), status.State)
	assert.Equal(t, uint32(1234), status.PID)
	assert.Equal(t, "/usr/local/bin/foobar --serve", status.Cmdline)
	assert.False(t, status.Failed)
	assert.Equal(t, runningStatus, status.Details)

	assert.Equal(t, []string{
		"show -p MainPID foobar.service",
		"is-failed foobar.service",
		"status --no-pager foobar.service",
	}, exec.commands())
}

func TestSystemdStatusIdempotent(t *testing.T) {
	exec := newFakeExecutor().
		on("show", "MainPID=1234\n", nil).
		on("is-failed", "active\n", nil).
		on("status", runningStatus, nil)
	c := newTestSystemd(t, exec)

	first, err := c.Status(context.Background())
	require.NoError(t, err)
	second, err := c.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Failed, second.Failed)
}

func TestSystemdStatusInactiveFailed(t *testing.T) {
	inactive := "● foobar.service - Foo Bar\n     Active: inactive (dead)\n"
	exec := newFakeExecutor().
		on("show", "MainPID=0\n", nil).
		on("is-failed", "failed\n", nil).
		on("status", "", &CommandError{ExitCode: 3, Stdout: inactive})
	c := newTestSystemd(t, exec, WithProcessInfo(fakeProcs{}))

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Inactive(SubDead), status.State)
	assert.True(t, status.Failed)
	assert.Zero(t, status.PID)
	assert.Empty(t, status.Cmdline)
}

func TestSystemdStatusErrors(t *testing.T) {
	t.Run("malformed pid", func(t *testing.T) {
		exec := newFakeExecutor().on("show", "MainPID=[not set]\n", nil)
		_, err := newTestSystemd(t, exec).Status(context.Background())
		assert.ErrorIs(t, err, ErrMalformedPID)
	})

	t.Run("process gone", func(t *testing.T) {
		exec := newFakeExecutor().
			on("show", "MainPID=999\n", nil).
			on("status", runningStatus, nil)
		_, err := newTestSystemd(t, exec).Status(context.Background())
		assert.ErrorIs(t, err, ErrProcessGone)
	})

	t.Run("unrecognized state", func(t *testing.T) {
		exec := newFakeExecutor().
			on("show", "MainPID=0\n", nil).
			on("status", "Active: reloading\n", nil)
		_, err := newTestSystemd(t, exec).Status(context.Background())
		assert.ErrorIs(t, err, ErrUnrecognizedState)
	})

	t.Run("status fails", func(t *testing.T) {
		exec := newFakeExecutor().
			on("show", "MainPID=0\n", nil).
			on("status", "", &CommandError{ExitCode: 4, Stderr: "Unit foobar.service could not be found."})
		_, err := newTestSystemd(t, exec).Status(context.Background())
		var cmdErr *CommandError
		require.True(t, errors.As(err, &cmdErr))
		assert.Equal(t, 4, cmdErr.ExitCode)
	})

	t.Run("spawn failure", func(t *testing.T) {
		exec := newFakeExecutor().on("show", "", &SpawnError{Command: "systemctl show", Err: fs.ErrNotExist})
		_, err := newTestSystemd(t, exec).Status(context.Background())
		var spawnErr *SpawnError
		assert.True(t, errors.As(err, &spawnErr))
	})
}

func TestSystemdRegister(t *testing.T) {
	c := newTestSystemd(t, newFakeExecutor())

	svc := NewService[string]("foobar", func(Receiver[string], Sender[string], []string, bool) uint32 {
		return 9
	}).WithSubsystem(newFakeSubsystem()).WithInterrupts(newFakeInterrupts())
	defer func() { _ = svc.Close() }()

	code, err := c.Register(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), code)
}
