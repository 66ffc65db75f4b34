// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bvk/supplybot/browser"
	"github.com/bvk/supplybot/config"
	"github.com/bvk/supplybot/ctxutil"
	"github.com/bvk/supplybot/daemonize"
	"github.com/bvk/supplybot/httputil"
	"github.com/bvk/supplybot/notify"
	"github.com/bvk/supplybot/pushover"
	"github.com/bvk/supplybot/subcmds/cmdutil"
	"github.com/bvk/supplybot/telegram"
	"github.com/bvk/supplybot/tracker"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
)

type Run struct {
	cmdutil.ConfigFlags

	background      bool
	restart         bool
	shutdownTimeout time.Duration

	noPprof bool
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the tracker in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Tracks the supplies and sends notifications"
}

func (c *Run) Description() string {
	return `

Command "run" starts tracking the not-planned supplies of the seller account.
When an acceptance date of a tracked supply becomes available, a notification
is sent through the configured Telegram bot and the Pushover service.

Sign into the seller portal with the "login" command before the first run.
The browser profile directory from the config file keeps the login state.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cfgPath, err := c.ConfigFlags.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Launch.FirstRun {
		return fmt.Errorf("sign into the seller portal with the login command first (or set first_run to false in %s): %w", cfgPath, os.ErrInvalid)
	}

	if c.background {
		if len(cfg.HTTP.Addr) == 0 {
			return fmt.Errorf("background mode needs the http status server address: %w", os.ErrInvalid)
		}
		if err := daemonize.Daemonize(ctx, daemonizeEnvKey, c.checkChild(cfg.HTTP.Addr)); err != nil {
			return err
		}
	}

	closeLogs, err := cmdutil.SetupLogging(&cfg.Log)
	if err != nil {
		return err
	}
	defer closeLogs()

	bopts, err := cfg.BrowserOptions()
	if err != nil {
		return err
	}
	topts, err := cfg.TrackerOptions()
	if err != nil {
		return err
	}

	flock, err := lockProfile(ctx, bopts.UserDataDir, c.restart, c.shutdownTimeout)
	if err != nil {
		return err
	}
	defer flock.Unlock()

	if n, err := browser.KillStale(ctx, bopts.UserDataDir); err != nil {
		slog.Warn("could not kill stale browser processes (ignored)", "err", err)
	} else if n > 0 {
		slog.Info("killed stale browser processes of the profile", "count", n)
	}

	tr, err := tracker.Watch(ctx, bopts, topts)
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(); err != nil {
			slog.Warn("could not close the tracker (ignored)", "err", err)
		}
	}()

	var notifiers []notify.Notifier
	if cfg.TelegramEnabled() {
		tc, err := telegram.New(ctx, kvmemdb.New(), &cfg.Telegram)
		if err != nil {
			return fmt.Errorf("could not create telegram client: %w", err)
		}
		defer tc.Close()

		supplies := func(ctx context.Context, _ []string) error {
			fmt.Fprint(cli.Stdout(ctx), notify.FormatLedger(tr.Snapshot()))
			return nil
		}
		if err := tc.AddCommand(ctx, "supplies", "Prints the tracked supplies", supplies); err != nil {
			return fmt.Errorf("could not add telegram command: %w", err)
		}
		notifiers = append(notifiers, tc)
		slog.Info("telegram notifications are enabled", "bot", tc.BotUserName(), "owner", tc.OwnerUserName())
	} else if cfg.Launch.TelegramNotifications {
		slog.Warn("telegram notifications are enabled without a bot token (ignored)")
	}
	if cfg.Launch.PushoverNotifications {
		pc, err := pushover.New(&cfg.Pushover, nil)
		if err != nil {
			return fmt.Errorf("could not create pushover client: %w", err)
		}
		notifiers = append(notifiers, pc)
	}
	if cfg.Launch.Open {
		notifiers = append(notifiers, &notify.LinkOpener{Open: tr.OpenPage})
	}
	if len(notifiers) == 0 {
		slog.Warn("no notification services are configured; updates are only logged")
	}

	dopts := &notify.Options{
		Verbose: cfg.Launch.Verbose,
	}
	dispatcher, err := notify.New(notifiers, dopts)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	if err := dispatcher.Start(tr); err != nil {
		return err
	}

	if len(cfg.HTTP.Addr) != 0 {
		s, err := startStatusServer(ctx, cfg, tr, dispatcher, !c.noPprof)
		if err != nil {
			return err
		}
		defer s.Close()
	}

	slog.Info("started tracking the supplies", "days", topts.Days, "interval", topts.Interval)

	select {
	case <-ctx.Done():
		slog.Info("supplybot is shutting down")
		return nil
	case <-dispatcher.Done():
		return fmt.Errorf("tracker has stopped unexpectedly")
	}
}

const daemonizeEnvKey = "SUPPLYBOT_DAEMONIZE"

// checkChild verifies that the status server is served by the background
// process and not by an older instance.
func (c *Run) checkChild(addr string) daemonize.CheckFunc {
	return func(ctx context.Context, child *os.Process) (bool, error) {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr))
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return true, fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, err
		}
		if pid := string(data); pid != fmt.Sprintf("%d", child.Pid) {
			return c.restart, fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
		}
		return false, nil
	}
}

// lockProfile takes the lock on the browser profile directory. When restart
// is true, a running owner of the lock is interrupted and then killed if it
// doesn't release the lock in time.
func lockProfile(ctx context.Context, profileDir string, restart bool, shutdownTimeout time.Duration) (*lockfile.Lockfile, error) {
	if err := os.MkdirAll(profileDir, 0700); err != nil {
		return nil, fmt.Errorf("could not create profile directory %q: %w", profileDir, err)
	}
	lockPath := filepath.Join(profileDir, "supplybot.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return nil, fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !restart {
			return nil, fmt.Errorf("could not get lock on file %q (is another instance running?): %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return nil, fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
			if err := ctxutil.RetryTimeout(ctx, time.Second, shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return nil, fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return nil, fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	return &flock, nil
}

func startStatusServer(ctx context.Context, cfg *config.Config, tr *tracker.Tracker, d *notify.Dispatcher, withPprof bool) (_ *httputil.Server, status error) {
	addr, err := net.ResolveTCPAddr("tcp", cfg.HTTP.Addr)
	if err != nil {
		return nil, fmt.Errorf("could not resolve status server address %q: %w", cfg.HTTP.Addr, err)
	}

	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return nil, err
	}
	defer func() {
		if status != nil {
			s.Close()
		}
	}()

	if _, err := s.StartTCP(ctx, addr); err != nil {
		return nil, fmt.Errorf("could not start http server on %s: %w", addr, err)
	}

	if withPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	s.AddHandler("/pid", httputil.PIDHandler())
	s.AddHandler("/healthz", httputil.HealthHandler(func() error {
		select {
		case <-d.Done():
			return errors.New("tracker has stopped")
		default:
		}
		if sent, failed := d.Stats(); failed > 0 && sent == 0 {
			return fmt.Errorf("all %d notifications have failed", failed)
		}
		return nil
	}))
	s.AddHandler("/ledger", httputil.JSONHandler(func() (tracker.Ledger, error) {
		return tr.Snapshot(), nil
	}))

	slog.Info("started status server", "addr", addr)
	return s, nil
}
