// Copyright (c) 2025 BVK Chaitanya

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/bvk/supplybot/ctxutil"
	"github.com/bvk/supplybot/tracker"
	"github.com/google/uuid"
	"github.com/visvasity/topic"
)

type Options struct {
	// SendTimeout bounds the delivery time of a notice per notifier.
	SendTimeout time.Duration

	// Verbose when true logs every received tracker message and the full
	// notice text.
	Verbose bool
}

func (v *Options) setDefaults() {
	if v.SendTimeout == 0 {
		v.SendTimeout = 30 * time.Second
	}
}

func (v *Options) Check() error {
	if v.SendTimeout < 0 {
		return fmt.Errorf("send timeout cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}

// Source is the tracker side of a dispatcher.
type Source interface {
	Subscribe() (*topic.Receiver[*tracker.Message], error)
}

// Dispatcher forwards the tracker updates to all notifiers.
type Dispatcher struct {
	cg ctxutil.CloseGroup

	opts Options

	notifiers []Notifier

	numSent   atomic.Int64
	numFailed atomic.Int64

	done chan struct{}
}

func New(notifiers []Notifier, opts *Options) (*Dispatcher, error) {
	if opts == nil {
		opts = new(Options)
	}
	dopts := *opts
	dopts.setDefaults()
	if err := dopts.Check(); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		opts:      dopts,
		notifiers: notifiers,
		done:      make(chan struct{}),
	}
	return d, nil
}

// Close stops the dispatcher and waits for the in-flight notices.
func (d *Dispatcher) Close() error {
	d.cg.Close()
	return nil
}

// Start subscribes to the source and dispatches its updates in the
// background till the end of stream or till the dispatcher is closed.
func (d *Dispatcher) Start(src Source) error {
	r, err := src.Subscribe()
	if err != nil {
		return fmt.Errorf("could not subscribe to the tracker: %w", err)
	}
	ch, err := topic.ReceiveCh(r)
	if err != nil {
		r.Close()
		return fmt.Errorf("could not create receive channel: %w", err)
	}
	d.cg.Go(func(ctx context.Context) {
		defer close(d.done)
		defer r.Close()

		d.dispatch(ctx, ch)
	})
	return nil
}

// Done returns a channel that is closed when the dispatch loop stops.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Stats returns the number of delivered and failed notices.
func (d *Dispatcher) Stats() (sent, failed int64) {
	return d.numSent.Load(), d.numFailed.Load()
}

func (d *Dispatcher) dispatch(ctx context.Context, ch <-chan *tracker.Message) {
	var last uuid.UUID
	for {
		var msg *tracker.Message
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				slog.Info("tracker updates channel is closed")
				return
			}
			msg = v
		}

		if msg.ID == last {
			continue
		}
		last = msg.ID

		if d.opts.Verbose {
			slog.Info("received tracker message", "id", msg.ID, "kind", msg.Kind, "at", msg.At)
		}

		switch msg.Kind {
		case tracker.KindEndOfStream:
			slog.Info("tracker has stopped")
			return
		case tracker.KindChanges:
			n := FormatChanges(msg.At, msg.Changes)
			if d.opts.Verbose {
				slog.Info("sending notice", "text", n.Text)
			}
			if err := d.Notify(ctx, n); err != nil {
				slog.Warn("could not deliver notice to all notifiers (ignored)", "err", err)
			}
		}
	}
}

// Notify sends the notice to every notifier. Returns the joined errors of
// the failed notifiers.
func (d *Dispatcher) Notify(ctx context.Context, n *Notice) error {
	var errs []error
	for _, nf := range d.notifiers {
		err := ctxutil.RunTimeout(ctx, d.opts.SendTimeout, func(ctx context.Context) error {
			return nf.Notify(ctx, n)
		})
		if err != nil {
			d.numFailed.Add(1)
			errs = append(errs, err)
			continue
		}
		d.numSent.Add(1)
	}
	return errors.Join(errs...)
}
