//go:build windows

package daemon

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// SCMController manages a service through the Windows Service Control Manager
type SCMController struct {
	// ExecPath is the binary the service launches; empty means the running executable
	ExecPath string

	identity Identity
	procs    ProcessInfo
	logger   *zap.Logger
}

var _ Controller = (*SCMController)(nil)

func newSCMController(id Identity, opts ...Option) (Controller, error) {
	o := newOptions(opts)
	return &SCMController{
		ExecPath: o.execPath,
		identity: id,
		procs:    o.procs,
		logger:   o.logger.With(zap.String("service", id.Name)),
	}, nil
}

// Identity returns the managed service identity
func (c *SCMController) Identity() Identity {
	return c.identity
}

// parametersKey is where the identity's config blob is stored
func (c *SCMController) parametersKey() string {
	return `SYSTEM\CurrentControlSet\Services\` + c.identity.Name + `\Parameters`
}

// Create registers the service for automatic start and stores the config blob
func (c *SCMController) Create(ctx context.Context) error {
	exe := c.ExecPath
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return &OpError{Op: OpCreate, Service: c.identity.Name, Err: err}
		}
	}

	m, err := mgr.Connect()
	if err != nil {
		return &OpError{Op: OpCreate, Service: c.identity.Name, Err: err}
	}
	defer func() { _ = m.Disconnect() }()

	s, err := m.CreateService(c.identity.Name, exe, mgr.Config{
		DisplayName: c.identity.DisplayName,
		Description: c.identity.Description,
		StartType:   mgr.StartAutomatic,
	})
	if err != nil {
		return &OpError{Op: OpCreate, Service: c.identity.Name, Err: err}
	}
	defer func() { _ = s.Close() }()

	if c.identity.HasConfig() {
		key := c.parametersKey()
		c.logger.Info("writing service parameters", zap.String("key", key))
		if err := writeParameters(key, c.identity.Config); err != nil {
			return &OpError{Op: OpCreate, Service: c.identity.Name, Path: key, Err: err}
		}
	}
	return nil
}

// Delete marks the service for deletion; parameter removal is best effort
func (c *SCMController) Delete(ctx context.Context) error {
	if err := c.withService(func(s *mgr.Service) error { return s.Delete() }); err != nil {
		return &OpError{Op: OpDelete, Service: c.identity.Name, Err: err}
	}

	if err := registry.DeleteKey(registry.LOCAL_MACHINE, c.parametersKey()); err != nil {
		c.logger.Debug("failed to delete service parameters", zap.String("key", c.parametersKey()), zap.Error(err))
	}
	return nil
}

// Start starts the service
func (c *SCMController) Start(ctx context.Context) error {
	if err := c.withService(func(s *mgr.Service) error { return s.Start() }); err != nil {
		return &OpError{Op: OpStart, Service: c.identity.Name, Err: err}
	}
	return nil
}

// Stop sends the stop control
func (c *SCMController) Stop(ctx context.Context) error {
	err := c.withService(func(s *mgr.Service) error {
		_, err := s.Control(svc.Stop)
		return err
	})
	if err != nil {
		return &OpError{Op: OpStop, Service: c.identity.Name, Err: err}
	}
	return nil
}

// Status queries the SCM once for state, pid and exit code
func (c *SCMController) Status(ctx context.Context) (ServiceStatus, error) {
	var st svc.Status
	err := c.withService(func(s *mgr.Service) error {
		var err error
		st, err = s.Query()
		return err
	})
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpStatus, Service: c.identity.Name, Err: err}
	}

	state, err := ParseSCMState(uint32(st.State))
	if err != nil {
		return ServiceStatus{}, &OpError{Op: OpStatus, Service: c.identity.Name, Err: err}
	}

	var cmdline string
	if st.ProcessId != 0 {
		cmdline, err = c.procs.CommandLine(ctx, st.ProcessId)
		if err != nil {
			return ServiceStatus{}, &OpError{Op: OpStatus, Service: c.identity.Name, Err: err}
		}
	}

	return ServiceStatus{
		State:   state,
		PID:     st.ProcessId,
		Cmdline: cmdline,
		Failed:  scmFailed(uint32(st.State), st.Win32ExitCode),
		Details: fmt.Sprintf("STATE: %d PID: %d WIN32_EXIT_CODE: %d", st.State, st.ProcessId, st.Win32ExitCode),
	}, nil
}

// Register hands the process to the SCM dispatch loop when it was started
// by the SCM, and runs r in the foreground otherwise.
func (c *SCMController) Register(ctx context.Context, r Runner) (uint32, error) {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return 0, &OpError{Op: OpRegister, Service: c.identity.Name, Err: err}
	}

	var code uint32
	switch sr, ok := r.(scmRunner); {
	case isService && ok:
		code, err = sr.runSCM(ctx, c.identity.Name)
	default:
		if fg, ok := r.(interface {
			RunStandalone(context.Context, []string) (uint32, error)
		}); ok {
			code, err = fg.RunStandalone(ctx, os.Args)
		} else {
			code, err = r.Run(ctx, os.Args)
		}
	}
	if err != nil {
		return code, &OpError{Op: OpRegister, Service: c.identity.Name, Err: err}
	}
	return code, nil
}

func (c *SCMController) withService(fn func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = m.Disconnect() }()

	s, err := m.OpenService(c.identity.Name)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return fn(s)
}

func writeParameters(path, config string) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, path, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer func() { _ = k.Close() }()
	return k.SetStringValue("Config", config)
}

// scmRunner is implemented by runners that can serve the SCM dispatch loop
type scmRunner interface {
	runSCM(ctx context.Context, name string) (uint32, error)
}

// wtsSessionNotification mirrors WTSSESSION_NOTIFICATION
type wtsSessionNotification struct {
	Size      uint32
	SessionID uint32
}

// scmHandler bridges SCM change requests into the event queue
type scmHandler[T any] struct {
	ctx     context.Context
	service *Service[T]
	code    uint32
	err     error
}

func (s *Service[T]) runSCM(ctx context.Context, name string) (uint32, error) {
	h := &scmHandler[T]{ctx: ctx, service: s}
	if err := svc.Run(name, h); err != nil {
		return 0, err
	}
	return h.code, h.err
}

// Execute implements svc.Handler
func (h *scmHandler[T]) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown | svc.AcceptPauseAndContinue | svc.AcceptSessionChange

	changes <- svc.Status{State: svc.StartPending}

	logger := h.service.logger()
	tx, rx := NewEventChannel[T]()
	if h.service.Metrics != nil {
		tx.q.onSend = h.service.Metrics.observeEvent
	}

	interrupts := h.service.Interrupts
	if interrupts == nil {
		interrupts = DefaultInterrupts()
	}
	stopInterrupts, err := forwardInterrupts(h.ctx, interrupts, tx, logger)
	if err != nil {
		h.err = fmt.Errorf("failed to register interrupt handler: %w", err)
		changes <- svc.Status{State: svc.Stopped}
		return false, 1
	}
	defer func() { _ = stopInterrupts() }()

	done := make(chan struct{})
	reply := func(st svc.Status) {
		select {
		case changes <- st:
		case <-done:
		}
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case c, ok := <-r:
				if !ok {
					return
				}
				var ev Event[T]
				switch c.Cmd {
				case svc.Interrogate:
					reply(c.CurrentStatus)
					continue
				case svc.Stop, svc.Shutdown:
					logger.Info("received stop request from SCM")
					reply(svc.Status{State: svc.StopPending})
					ev = ControlEvent[T](EventStop)
				case svc.Pause:
					reply(svc.Status{State: svc.Paused, Accepts: accepted})
					ev = ControlEvent[T](EventPause)
				case svc.Continue:
					reply(svc.Status{State: svc.Running, Accepts: accepted})
					ev = ControlEvent[T](EventContinue)
				case svc.SessionChange:
					kind, ok := wtsEventKind(c.EventType)
					if !ok || c.EventData == 0 {
						continue
					}
					n := (*wtsSessionNotification)(unsafe.Pointer(c.EventData))
					ev = SessionEvent[T](kind, NewSession(strconv.FormatUint(uint64(n.SessionID), 10)))
				default:
					logger.Warn("unexpected service control request", zap.Uint32("cmd", uint32(c.Cmd)))
					continue
				}
				if err := tx.Send(ev); err != nil {
					return
				}
			}
		}
	}()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}
	h.code = h.service.Main(rx, tx, args, false)
	close(done)
	tx.q.close()

	changes <- svc.Status{State: svc.Stopped}
	return h.code != 0, h.code
}
