// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/bvk/supplybot/ctxutil"
	"github.com/chromedp/cdproto/network"
)

// SelectorWait waits for Selector to appear, giving up after Timeout. When
// Stop is non-empty the wait also ends when Stop appears.
type SelectorWait struct {
	Selector string
	Stop     string
	Timeout  time.Duration
}

// PageParams describes how a page is prepared and opened. Every step is
// optional and is skipped when its field is the zero value.
type PageParams struct {
	// Proxy is installed before the page is created.
	Proxy *Proxy

	UserAgent string

	Cookies []*network.CookieParam

	// OpenTimeout bounds the navigation. Default navigation timeout is used
	// when zero.
	OpenTimeout time.Duration

	// WaitForNavigation bounds an additional wait for the document to finish
	// loading.
	WaitForNavigation time.Duration

	// Settle is an unconditional delay after navigation.
	Settle time.Duration

	WaitFor *SelectorWait

	WaitForUntil *SelectorWait
}

// pageDriver is the part of a Page used to prepare it.
type pageDriver interface {
	checker
	Close() error
	SetUserAgent(ctx context.Context, userAgent string) error
	SetCookies(ctx context.Context, cookies []*network.CookieParam) error
	NavigateTimeout(ctx context.Context, url string, timeout time.Duration) error
	WaitNavigation(ctx context.Context) error
}

// OpenWithParams opens the url in a new page prepared as per the params.
// Readiness waits are best effort; their failures are not reported and the
// page is returned in whatever state it reached.
func (s *Session) OpenWithParams(ctx context.Context, url string, params *PageParams) (*Page, error) {
	if params == nil {
		params = new(PageParams)
	}

	if params.Proxy != nil {
		if err := s.SetProxy(ctx, params.Proxy); err != nil {
			return nil, err
		}
	}

	p, err := s.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := preparePage(ctx, p, url, params, s.opts.Timings.NavigationTimeout); err != nil {
		return nil, err
	}
	return p, nil
}

// preparePage runs the page steps of the params. Page is closed when an error
// is returned.
func preparePage(ctx context.Context, p pageDriver, url string, params *PageParams, navTimeout time.Duration) (status error) {
	defer func() {
		if status != nil {
			if err := p.Close(); err != nil {
				slog.Warn("could not close the page (ignored)", "err", err)
			}
		}
	}()

	if params.UserAgent != "" {
		if err := p.SetUserAgent(ctx, params.UserAgent); err != nil {
			return err
		}
	}
	if len(params.Cookies) != 0 {
		if err := p.SetCookies(ctx, params.Cookies); err != nil {
			return err
		}
	}

	timeout := navTimeout
	if params.OpenTimeout > 0 {
		timeout = params.OpenTimeout
	}
	if err := p.NavigateTimeout(ctx, url, timeout); err != nil {
		slog.Debug("page navigation did not complete (ignored)", "url", url, "err", err)
	}

	if params.WaitForNavigation > 0 {
		err := ctxutil.RunTimeout(ctx, params.WaitForNavigation, p.WaitNavigation)
		if err != nil {
			slog.Debug("page did not finish loading (ignored)", "url", url, "err", err)
		}
	}

	ctxutil.Sleep(ctx, params.Settle)

	if w := params.WaitFor; w != nil {
		err := ctxutil.RunTimeout(ctx, w.Timeout, func(ctx context.Context) error {
			return waitFor(ctx, p, w.Selector)
		})
		if err != nil {
			slog.Debug("selector did not appear (ignored)", "selector", w.Selector, "err", err)
		}
	}
	if w := params.WaitForUntil; w != nil {
		err := ctxutil.RunTimeout(ctx, w.Timeout, func(ctx context.Context) error {
			return waitForUntil(ctx, p, w.Selector, w.Stop)
		})
		if err != nil {
			slog.Debug("selector did not appear (ignored)", "selector", w.Selector, "stop", w.Stop, "err", err)
		}
	}

	return context.Cause(ctx)
}
