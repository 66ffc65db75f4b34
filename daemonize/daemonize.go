// Copyright (c) 2025 BVK Chaitanya

package daemonize

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CheckFunc verifies that the background process has initialized. It returns
// true with the error when the check should be retried.
type CheckFunc func(ctx context.Context, child *os.Process) (retry bool, err error)

// IsChild returns true when the current process was spawned by Daemonize
// with the same environment key.
func IsChild(envKey string) bool {
	return len(os.Getenv(envKey)) != 0
}

// Daemonize respawns the current program in the background with the same
// command-line arguments, environment and working directory. The envKey
// environment variable tells the parent and the child processes apart, so it
// must not be used by anything else.
//
// Standard input and outputs of the background process are /dev/null and the
// standard library log goes to syslog.
//
// Parent process waits for the check function to succeed and exits. Child
// process returns nil. On errors, parent returns the error and child exits.
func Daemonize(ctx context.Context, envKey string, check CheckFunc) error {
	if !IsChild(envKey) {
		if err := daemonizeParent(ctx, envKey, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := daemonizeChild(); err != nil {
		os.Exit(1)
	}
	return nil
}

func childEnv(envKey string, ppid int) []string {
	env := []string{fmt.Sprintf("%s=%d", envKey, ppid)}
	prefix := envKey + "="
	for _, kv := range os.Environ() {
		if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
			continue
		}
		env = append(env, kv)
	}
	return env
}

func daemonizeParent(ctx context.Context, envKey string, check CheckFunc) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("could not lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}

	file, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", os.DevNull, err)
	}
	defer file.Close()

	// Receive signal when child-process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	attr := &os.ProcAttr{
		Dir:   wd,
		Env:   childEnv(envKey, os.Getpid()),
		Files: []*os.File{file, file, file},
	}
	child, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("could not start process: %w", err)
	}
	defer child.Release()

	if check == nil {
		return nil
	}

	time.Sleep(time.Second)
	for ctx.Err() == nil {
		retry, err := check(ctx, child)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		slog.WarnContext(ctx, "background process is not yet initialized", "pid", child.Pid, "err", err)
		time.Sleep(time.Second)
	}
	return fmt.Errorf("background process has died or was interrupted: %w", context.Cause(ctx))
}

func daemonizeChild() error {
	syslogger, err := syslog.New(syslog.LOG_INFO, filepath.Base(os.Args[0]))
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
