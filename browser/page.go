// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bvk/supplybot/ctxutil"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Page is a single browser tab.
type Page struct {
	session *Session

	tabCtx    context.Context
	tabCancel context.CancelFunc
}

func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	return runIn(ctx, p.tabCtx, actions...)
}

// Close closes the tab.
func (p *Page) Close() error {
	defer p.tabCancel()
	if err := chromedp.Cancel(p.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("could not close the tab: %w", err)
	}
	return nil
}

// Navigate loads the url in the tab and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("could not navigate to %q: %w", url, errors.Join(ErrNavigation, err))
	}
	return nil
}

// NavigateTimeout is like Navigate, but gives up after the timeout.
func (p *Page) NavigateTimeout(ctx context.Context, url string, timeout time.Duration) error {
	return ctxutil.RunTimeout(ctx, timeout, func(ctx context.Context) error {
		return p.Navigate(ctx, url)
	})
}

// WaitNavigation blocks till the current document has finished loading.
func (p *Page) WaitNavigation(ctx context.Context) error {
	for {
		var state string
		if err := p.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return fmt.Errorf("could not read document state: %w", err)
		}
		if state == "complete" {
			return nil
		}
		ctxutil.Sleep(ctx, WaitPollInterval)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
	}
}

// HasSelector reports whether an element matching the css selector is
// currently present in the document.
func (p *Page) HasSelector(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	var found bool
	script := fmt.Sprintf(`document.querySelector(%s) !== null`, quoted)
	if err := p.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false, fmt.Errorf("could not query selector %q: %w", selector, err)
	}
	return found, nil
}

// Evaluate runs a javascript expression in the page and returns its result in
// json form. Exceptions thrown by the script are reported as ErrScript.
func (p *Page) Evaluate(ctx context.Context, expr string) ([]byte, error) {
	var result []byte
	err := ctxutil.RunTimeout(ctx, p.session.opts.RequestTimeout, func(ctx context.Context) error {
		return p.run(ctx, chromedp.Evaluate(expr, &result))
	})
	if err != nil {
		var exp *runtime.ExceptionDetails
		if errors.As(err, &exp) {
			return nil, fmt.Errorf("could not evaluate script: %w", errors.Join(ErrScript, err))
		}
		return nil, fmt.Errorf("could not evaluate script: %w", err)
	}
	return result, nil
}

// SetUserAgent overrides the user agent for all subsequent requests from the
// tab.
func (p *Page) SetUserAgent(ctx context.Context, userAgent string) error {
	if err := p.run(ctx, emulation.SetUserAgentOverride(userAgent)); err != nil {
		return fmt.Errorf("could not set user agent: %w", err)
	}
	return nil
}

// SetCookies injects the cookies into the browser through this tab.
func (p *Page) SetCookies(ctx context.Context, cookies []*network.CookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	if err := p.run(ctx, network.SetCookies(cookies)); err != nil {
		return fmt.Errorf("could not set cookies: %w", err)
	}
	return nil
}

// Location returns the current url of the tab.
func (p *Page) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("could not get page location: %w", err)
	}
	return url, nil
}
