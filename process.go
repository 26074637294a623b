package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo reads process details by pid
type ProcessInfo interface {
	// CommandLine returns the process command line, or ErrProcessGone if
	// the process no longer exists
	CommandLine(ctx context.Context, pid uint32) (string, error)
}

// processTable reads the OS process table through gopsutil
type processTable struct{}

// DefaultProcessInfo returns the OS process table reader
func DefaultProcessInfo() ProcessInfo {
	return processTable{}
}

func (processTable) CommandLine(ctx context.Context, pid uint32) (string, error) {
	if pid > math.MaxInt32 {
		return "", fmt.Errorf("pid %d: %w", pid, ErrProcessGone)
	}

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return "", fmt.Errorf("pid %d: %w", pid, ErrProcessGone)
		}
		return "", fmt.Errorf("pid %d: %w", pid, err)
	}

	cmdline, err := p.CmdlineWithContext(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("pid %d: %w", pid, ErrProcessGone)
		}
		return "", fmt.Errorf("reading cmdline of pid %d: %w", pid, err)
	}
	return cmdline, nil
}
