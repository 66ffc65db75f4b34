// Copyright (c) 2025 BVK Chaitanya

package tracker

import (
	"fmt"
	"os"
	"time"

	"github.com/bvk/supplybot/browser"
	"github.com/bvk/supplybot/seller"
)

type Options struct {
	// Interval is the delay between successive polls.
	Interval time.Duration

	// RefreshInterval is the age after which the identity is derived again
	// from the browser.
	RefreshInterval time.Duration

	// Days is the number of days, starting today, to track acceptance costs
	// for.
	Days int

	// Client holds the options for the supply api clients.
	Client seller.Options

	// Proxy when non-nil is applied to the browser through the command
	// extension right after the launch.
	Proxy *browser.Proxy
}

func (v *Options) setDefaults() {
	if v.Interval == 0 {
		v.Interval = 5 * time.Second
	}
	if v.RefreshInterval == 0 {
		v.RefreshInterval = 60 * time.Minute
	}
	if v.Days == 0 {
		v.Days = 14
	}
}

func (v *Options) Check() error {
	if v.Interval < 0 {
		return fmt.Errorf("poll interval cannot be negative: %w", os.ErrInvalid)
	}
	if v.RefreshInterval < v.Interval {
		return fmt.Errorf("refresh interval %s must not be shorter than the poll interval %s: %w", v.RefreshInterval, v.Interval, os.ErrInvalid)
	}
	if v.Days < 1 || v.Days > 255 {
		return fmt.Errorf("tracking days %d must be in [1, 255]: %w", v.Days, os.ErrInvalid)
	}
	return nil
}
