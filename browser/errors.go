// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/bvk/supplybot/ctxutil"
	"github.com/chromedp/chromedp"
)

var (
	ErrConfig       = errors.New("invalid browser config")
	ErrLaunch       = errors.New("browser launch failed")
	ErrPageCreation = errors.New("failed to create page")
	ErrNavigation   = errors.New("navigation failed")
	ErrScript       = errors.New("javascript exception")

	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = ctxutil.ErrTimeout
)

// isTransportError reports whether err is a navigation-level failure, as
// opposed to a protocol failure. Extension command URLs never load, so these
// errors are the normal outcome of issuing a command.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	if errors.Is(err, chromedp.ErrInvalidContext) || errors.Is(err, chromedp.ErrChannelClosed) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "net::ERR_") || strings.Contains(msg, "page load error")
}
