// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"context"
	"time"

	"github.com/bvk/supplybot/ctxutil"
)

// WaitPollInterval is the delay between successive selector checks.
const WaitPollInterval = 10 * time.Millisecond

// checker reports whether an element is present in a document.
type checker interface {
	HasSelector(ctx context.Context, selector string) (bool, error)
}

// found treats check errors as absence; a document that is being replaced
// fails queries for a short while.
func found(ctx context.Context, p checker, selector string) bool {
	ok, err := p.HasSelector(ctx, selector)
	return err == nil && ok
}

// WaitForSelector blocks till an element matching the selector appears on the
// page. Returns only when the element is found or the context is canceled.
func WaitForSelector(ctx context.Context, page *Page, selector string) error {
	return waitFor(ctx, page, selector)
}

// WaitForSelectorUntil is like WaitForSelector, but also returns with nil
// error when an element matching the stop selector appears first.
func WaitForSelectorUntil(ctx context.Context, page *Page, selector, stop string) error {
	return waitForUntil(ctx, page, selector, stop)
}

// WaitForSelectorTimeout is like WaitForSelector, but fails with ErrTimeout
// after the timeout.
func WaitForSelectorTimeout(ctx context.Context, page *Page, selector string, timeout time.Duration) error {
	return ctxutil.RunTimeout(ctx, timeout, func(ctx context.Context) error {
		return waitFor(ctx, page, selector)
	})
}

// WaitForSelectorUntilTimeout is like WaitForSelectorUntil, but fails with
// ErrTimeout after the timeout.
func WaitForSelectorUntilTimeout(ctx context.Context, page *Page, selector, stop string, timeout time.Duration) error {
	return ctxutil.RunTimeout(ctx, timeout, func(ctx context.Context) error {
		return waitForUntil(ctx, page, selector, stop)
	})
}

func waitFor(ctx context.Context, p checker, selector string) error {
	for !found(ctx, p, selector) {
		ctxutil.Sleep(ctx, WaitPollInterval)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
	}
	return nil
}

func waitForUntil(ctx context.Context, p checker, selector, stop string) error {
	for !found(ctx, p, selector) {
		ctxutil.Sleep(ctx, WaitPollInterval)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if found(ctx, p, stop) {
			return nil
		}
		ctxutil.Sleep(ctx, WaitPollInterval)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
	}
	return nil
}
