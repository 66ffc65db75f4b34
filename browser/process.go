// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bvk/supplybot/ctxutil"
	"github.com/shirou/gopsutil/v4/process"
)

// processExited reports true if the process is gone or is a zombie waiting to
// be reaped.
func processExited(ctx context.Context, pid int) bool {
	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil || !exists {
		return true
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return true
	}
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, s := range status {
		if s == process.Zombie {
			return true
		}
	}
	return false
}

// waitExit polls for process exit up to given number of attempts.
func waitExit(ctx context.Context, pid int, attempts int, interval time.Duration) error {
	for i := 0; i < attempts; i++ {
		if processExited(ctx, pid) {
			return nil
		}
		ctxutil.Sleep(ctx, interval)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
	}
	if processExited(ctx, pid) {
		return nil
	}
	return fmt.Errorf("process %d did not exit after %d attempts", pid, attempts)
}

// killProcess sends SIGKILL to the process, ignoring processes that are
// already gone.
func killProcess(ctx context.Context, pid int) error {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil
	}
	if err := p.KillWithContext(ctx); err != nil {
		if processExited(ctx, pid) {
			return nil
		}
		return fmt.Errorf("could not kill process %d: %w", pid, err)
	}
	return nil
}

// KillStale kills browser processes left behind by a previous run that still
// hold the given profile directory. A profile directory can only be used by
// one browser at a time.
func KillStale(ctx context.Context, userDataDir string) (int, error) {
	if userDataDir == "" {
		return 0, nil
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not list processes: %w", err)
	}

	needle := "--user-data-dir=" + userDataDir
	nkilled := 0
	for _, p := range procs {
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		if !hasArg(args, needle) {
			continue
		}
		if err := killProcess(ctx, int(p.Pid)); err != nil {
			slog.Warn("could not kill stale browser process (ignored)", "pid", p.Pid, "err", err)
			continue
		}
		slog.Info("killed stale browser process", "pid", p.Pid, "profile", userDataDir)
		nkilled++
	}
	return nkilled, nil
}

func hasArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want || strings.HasPrefix(arg, want+" ") {
			return true
		}
	}
	return false
}
