// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bvk/supplybot/browser"
	"github.com/bvk/supplybot/config"
	"github.com/bvk/supplybot/seller"
)

// NewSellerClient launches the browser, derives the identity and returns a
// supplies api client. Browser is closed before returning.
func NewSellerClient(ctx context.Context, cfg *config.Config, headless bool) (*seller.Client, error) {
	bopts, err := cfg.BrowserOptions()
	if err != nil {
		return nil, err
	}
	bopts.Headless = headless
	topts, err := cfg.TrackerOptions()
	if err != nil {
		return nil, err
	}

	session, err := browser.Launch(ctx, bopts)
	if err != nil {
		return nil, fmt.Errorf("could not launch the browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("could not close the browser (ignored)", "err", err)
		}
	}()

	if topts.Proxy != nil {
		if err := session.SetProxy(ctx, topts.Proxy); err != nil {
			return nil, fmt.Errorf("could not set browser proxy: %w", err)
		}
	}

	identity, err := seller.DeriveIdentity(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("could not derive the identity (is login done?): %w", err)
	}
	return seller.New(identity, &topts.Client)
}
