// Copyright (c) 2025 BVK Chaitanya

package ctxutil

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is the cause attached to contexts that expire in RunTimeout.
var ErrTimeout = errors.New("operation timed out")

// Sleep blocks the caller for given timeout duration. Returns early if the
// input context is canceled.
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	sctx, scancel := context.WithTimeout(ctx, d)
	<-sctx.Done()
	scancel()
}

// Retry runs the input function till it succeeds or till the input context is
// canceled. Returns nil if the input function is successful or last non-nil
// error from the function after the context has expired.
func Retry(ctx context.Context, interval time.Duration, f func() error) (err error) {
	for err = f(); err != nil && context.Cause(ctx) == nil; err = f() {
		Sleep(ctx, interval)
	}
	return
}

// RetryTimeout is like Retry, but gives up after the input timeout.
func RetryTimeout(ctx context.Context, interval, timeout time.Duration, f func() error) error {
	sctx, scancel := context.WithTimeout(ctx, timeout)
	defer scancel()
	return Retry(sctx, interval, f)
}

// RunTimeout races the input function against a deadline. Function receives a
// context that is canceled when the deadline expires, so only the await point
// inside f is abandoned. Returns an error wrapping ErrTimeout when the
// deadline wins, otherwise the function's own result.
//
// A non-positive timeout runs f with the parent context unchanged.
func RunTimeout(ctx context.Context, timeout time.Duration, f func(context.Context) error) error {
	if timeout <= 0 {
		return f(ctx)
	}
	tctx, tcancel := context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	defer tcancel()

	err := f(tctx)
	if cause := context.Cause(tctx); errors.Is(cause, ErrTimeout) && ctx.Err() == nil {
		if err == nil {
			return nil
		}
		return errors.Join(ErrTimeout, err)
	}
	return err
}
