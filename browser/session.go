// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bvk/supplybot/ctxutil"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const (
	closeWaitAttempts = 20
	closeWaitInterval = 100 * time.Millisecond

	eventBufferSize = 256
)

// Session owns a single browser process and the protocol connection to it.
// Operations other than Close require the process to be alive.
type Session struct {
	opts Options

	allocCtx    context.Context
	allocCancel context.CancelFunc

	browserCtx    context.Context
	browserCancel context.CancelFunc

	pid int

	// pump drains browser-level protocol events until the session is closed.
	pump   ctxutil.CloseGroup
	events chan any
}

// Launch starts a new browser process with the given options. Browser is
// usable when this function returns.
func Launch(ctx context.Context, opts *Options) (_ *Session, status error) {
	if opts == nil {
		opts = new(Options)
	}
	s := &Session{opts: *opts}
	s.opts.setDefaults()
	if err := s.opts.Check(); err != nil {
		return nil, err
	}
	if ok, err := InstallExtension(s.opts.CommandExtensionDir); err != nil {
		return nil, fmt.Errorf("could not install the command extension: %w", errors.Join(ErrLaunch, err))
	} else if ok {
		slog.Info("installed the command extension", "dir", s.opts.CommandExtensionDir)
	}

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), s.opts.allocatorOptions()...)
	s.browserCtx, s.browserCancel = chromedp.NewContext(s.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Warn(fmt.Sprintf(format, args...), "source", "chromedp")
		}))
	defer func() {
		if status != nil {
			s.browserCancel()
			s.allocCancel()
		}
	}()

	if err := allocate(ctx, s.browserCtx); err != nil {
		return nil, fmt.Errorf("could not start the browser: %w", errors.Join(ErrLaunch, err))
	}
	if c := chromedp.FromContext(s.browserCtx); c != nil && c.Browser != nil {
		if p := c.Browser.Process(); p != nil {
			s.pid = p.Pid
		}
	}

	s.events = make(chan any, eventBufferSize)
	chromedp.ListenBrowser(s.browserCtx, func(ev any) {
		select {
		case s.events <- ev:
		default:
		}
	})
	s.pump.Go(s.goPump)

	ctxutil.Sleep(ctx, s.opts.Timings.LaunchSettle)
	slog.Info("browser is started", "pid", s.pid, "profile", s.opts.UserDataDir)
	return s, nil
}

// allocate runs the first action on a chromedp context, which creates the
// browser process or the tab. Context passed to the first Run becomes the
// lifetime of the allocated resource, so the caller's context only bounds the
// wait here.
func allocate(ctx, cdpCtx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(cdpCtx)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

func (s *Session) goPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.browserCtx.Done():
			return
		case ev := <-s.events:
			switch v := ev.(type) {
			case *target.EventTargetCrashed:
				slog.Warn("browser target has crashed", "target", v.TargetID, "status", v.Status, "code", v.ErrorCode)
			case *target.EventDetachedFromTarget:
				slog.Debug("detached from browser target", "session", v.SessionID)
			}
		}
	}
}

// PID returns the operating system process id of the browser.
func (s *Session) PID() int {
	return s.pid
}

// Options returns the effective options used for the session.
func (s *Session) Options() Options {
	return s.opts
}

// Close shuts down the browser. A graceful close is tried first and the
// process is force-killed if it doesn't exit in time. Event pump is stopped
// after the process is gone.
func (s *Session) Close() error {
	defer s.pump.Close()
	defer s.allocCancel()
	defer s.browserCancel()

	ctx := context.Background()
	gracefulTimeout := closeWaitAttempts / 2 * closeWaitInterval

	closeCh := make(chan error, 1)
	go func() {
		closeCh <- chromedp.Cancel(s.browserCtx)
	}()
	select {
	case err := <-closeCh:
		if err != nil {
			slog.Warn("could not close the browser gracefully (ignored)", "pid", s.pid, "err", err)
		}
	case <-time.After(gracefulTimeout):
		slog.Warn("graceful browser close is taking too long", "pid", s.pid)
	}

	if s.pid == 0 || processExited(ctx, s.pid) {
		return nil
	}

	slog.Warn("browser did not exit after graceful close; killing it", "pid", s.pid)
	if err := killProcess(ctx, s.pid); err != nil {
		return err
	}
	if err := waitExit(ctx, s.pid, closeWaitAttempts, closeWaitInterval); err != nil {
		return fmt.Errorf("could not wait for browser exit: %w", err)
	}
	return nil
}

// Cookies returns all cookies known to the browser, across all sites.
func (s *Session) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	c := chromedp.FromContext(s.browserCtx)

	var cookies []*network.Cookie
	err := ctxutil.RunTimeout(ctx, s.opts.RequestTimeout, func(ctx context.Context) error {
		return runIn(ctx, s.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			v, err := storage.GetCookies().Do(cdp.WithExecutor(ctx, c.Browser))
			if err != nil {
				return err
			}
			cookies = v
			return nil
		}))
	})
	if err != nil {
		return nil, fmt.Errorf("could not get browser cookies: %w", err)
	}
	return cookies, nil
}

// NewPage creates a new blank tab.
func (s *Session) NewPage(ctx context.Context) (*Page, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	err := ctxutil.RunTimeout(ctx, s.opts.RequestTimeout, func(ctx context.Context) error {
		return allocate(ctx, tabCtx)
	})
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("could not create a new tab: %w", errors.Join(ErrPageCreation, err))
	}
	p := &Page{
		session:   s,
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
	}
	if s.opts.DisableCache {
		if err := p.run(ctx, network.SetCacheDisabled(true)); err != nil {
			slog.Warn("could not disable network cache on the page (ignored)", "err", err)
		}
	}
	return p, nil
}

// Open creates a new tab and navigates it to the url. Navigation is bounded by
// the navigation timeout and its failure is not an error; the page is
// returned in whatever state it reached.
func (s *Session) Open(ctx context.Context, url string) (*Page, error) {
	p, err := s.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.NavigateTimeout(ctx, url, s.opts.Timings.NavigationTimeout); err != nil {
		slog.Debug("page navigation did not complete (ignored)", "url", url, "err", err)
	}
	return p, nil
}

func (s *Session) alive() error {
	if s.browserCtx.Err() != nil {
		return fmt.Errorf("browser is not running: %w", os.ErrClosed)
	}
	return nil
}

// runIn runs the actions on the chromedp context target, but bounded by the
// caller's context. Canceling ctx doesn't close the target.
func runIn(ctx, cdpCtx context.Context, actions ...chromedp.Action) error {
	rctx, rcancel := context.WithCancelCause(cdpCtx)
	defer rcancel(nil)

	stop := context.AfterFunc(ctx, func() { rcancel(context.Cause(ctx)) })
	defer stop()

	if err := chromedp.Run(rctx, actions...); err != nil {
		if cause := context.Cause(rctx); cause != nil && ctx.Err() != nil {
			return errors.Join(cause, err)
		}
		return err
	}
	return nil
}
