// Package daemon installs, controls and runs a program as a native system
// service: a systemd unit on Linux, a Service Control Manager entry on
// Windows.
//
// A Controller drives the native manager for one service Identity:
//
//	id := daemon.NewIdentity("foobar", "Foo Bar", "Foo Bar daemon")
//	ctl, err := daemon.New(id, daemon.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Install the descriptor and enable it
//	err = ctl.Create(ctx)
//
//	// Query state, pid and command line
//	status, err := ctl.Status(ctx)
//	fmt.Printf("%s pid=%d\n", status.State, status.PID)
//
// # Running as a service
//
// When the manager launches the program, Register hands control to a Service.
// The service main receives Events from one queue fed by the native
// manager's control requests, by interrupts and by the session monitor:
//
//	svc := daemon.NewService[string]("foobar", func(rx daemon.Receiver[string], tx daemon.Sender[string], args []string, standalone bool) uint32 {
//	    for {
//	        ev, err := rx.Recv(context.Background())
//	        if err != nil || ev.Kind == daemon.EventStop {
//	            return 0
//	        }
//	    }
//	})
//	code, err := ctl.Register(ctx, svc)
//
// RunStandalone runs the same main as an ordinary foreground process where
// only interrupts produce events.
//
// # Manager for Bulk Operations
//
// Manager runs Create, Delete, Start, Stop and Status over many controllers
// with bounded concurrency and a per-operation timeout. Failures are
// collected in a MultiError.
package daemon
