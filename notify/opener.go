// Copyright (c) 2025 BVK Chaitanya

package notify

import (
	"context"
	"errors"
)

// LinkOpener is a notifier that opens every link of a notice, typically in
// a visible browser.
type LinkOpener struct {
	Open func(ctx context.Context, url string) error
}

func (v *LinkOpener) Notify(ctx context.Context, n *Notice) error {
	var errs []error
	for _, l := range n.Links {
		if err := v.Open(ctx, l.URL); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
