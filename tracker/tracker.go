// Copyright (c) 2025 BVK Chaitanya

package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvk/supplybot/browser"
	"github.com/bvk/supplybot/ctxutil"
	"github.com/bvk/supplybot/seller"
	"github.com/visvasity/topic"
)

// fetcher is the subset of the supplies api used by the poll loop.
type fetcher interface {
	NotPlannedSupplies(ctx context.Context) (*seller.ListSuppliesResponse, error)
	AcceptanceCostsForSupplies(ctx context.Context, days int, supplies []*seller.Supply) (map[int64][]*seller.Cost, error)
}

// session is the browser used for identity refreshes.
type session interface {
	io.Closer
	Open(ctx context.Context, url string) (*browser.Page, error)
}

// refreshFunc derives a fresh identity and returns a client that uses it.
type refreshFunc func(ctx context.Context) (fetcher, error)

// Tracker polls the not-planned supplies and their acceptance costs in the
// background and publishes the dates that become available.
type Tracker struct {
	lifeCtx    context.Context
	lifeCancel context.CancelCauseFunc

	wg sync.WaitGroup

	opts Options

	closed atomic.Bool

	// sessionMu is held for individual browser operations only.
	sessionMu sync.Mutex
	session   session
	refresh   refreshFunc

	ledgerMu sync.Mutex
	ledger   Ledger

	topic *topic.Topic[*Message]
}

// Watch launches a browser, derives the initial identity and starts the poll
// loop. Browser is closed if the initial identity cannot be derived.
func Watch(ctx context.Context, bopts *browser.Options, opts *Options) (_ *Tracker, status error) {
	if opts == nil {
		opts = new(Options)
	}
	topts := *opts
	topts.setDefaults()
	if err := topts.Check(); err != nil {
		return nil, err
	}

	session, err := browser.Launch(ctx, bopts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if status != nil {
			if err := session.Close(); err != nil {
				slog.Error("could not close the browser (ignored)", "err", err)
			}
		}
	}()

	if topts.Proxy != nil {
		if err := session.SetProxy(ctx, topts.Proxy); err != nil {
			return nil, fmt.Errorf("could not set browser proxy: %w", err)
		}
	}

	refresh := func(ctx context.Context) (fetcher, error) {
		identity, err := seller.DeriveIdentity(ctx, session)
		if err != nil {
			return nil, err
		}
		client, err := seller.New(identity, &topts.Client)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not derive the initial identity: %w", err)
	}
	return newTracker(&topts, session, client, refresh), nil
}

func newTracker(opts *Options, session session, client fetcher, refresh refreshFunc) *Tracker {
	lifeCtx, lifeCancel := context.WithCancelCause(context.Background())
	t := &Tracker{
		lifeCtx:    lifeCtx,
		lifeCancel: lifeCancel,
		opts:       *opts,
		session:    session,
		refresh:    refresh,
		ledger:     make(Ledger),
		topic:      topic.New[*Message](),
	}
	_ = t.topic.Send(newMessage(KindNoUpdate, nil))

	t.wg.Add(1)
	go t.goLoop(t.lifeCtx, client)
	return t
}

// Close stops the browser and the poll loop. It is safe to call Close more
// than once. In-flight poll is abandoned, not waited for.
func (t *Tracker) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.lifeCancel(os.ErrClosed)

	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()

	if err := t.session.Close(); err != nil {
		return fmt.Errorf("could not close the browser: %w", err)
	}
	return nil
}

// Subscribe returns a receiver that first yields the most recent message and
// then only the latest message published since the previous receive.
func (t *Tracker) Subscribe() (*topic.Receiver[*Message], error) {
	return topic.Subscribe(t.topic, 1, true /* includeRecent */)
}

// OpenPage opens the url in a new browser tab and leaves the tab open. It is
// meant for visible, non-headless browsers.
func (t *Tracker) OpenPage(ctx context.Context, url string) error {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()

	if t.closed.Load() {
		return os.ErrClosed
	}
	if _, err := t.session.Open(ctx, url); err != nil {
		return fmt.Errorf("could not open page %q: %w", url, err)
	}
	return nil
}

// Snapshot returns a copy of the current ledger.
func (t *Tracker) Snapshot() Ledger {
	t.ledgerMu.Lock()
	defer t.ledgerMu.Unlock()

	return t.ledger.Clone()
}

// Options returns the effective tracker options.
func (t *Tracker) Options() Options {
	return t.opts
}

func (t *Tracker) goLoop(ctx context.Context, client fetcher) {
	defer t.wg.Done()

	// Topic is left open so that the end-of-stream marker is replayed to the
	// current and the later subscribers.
	defer func() {
		if err := t.topic.Send(newMessage(KindEndOfStream, nil)); err != nil {
			slog.Warn("could not publish the end of stream (ignored)", "err", err)
		}
	}()

	var ticks int64
	for ctx.Err() == nil {
		if t.refreshDue(ticks) {
			if c, err := t.refreshClient(ctx); err != nil {
				slog.Warn("could not refresh the identity (will retry)", "err", err)
			} else {
				client, ticks = c, 0
				slog.Info("identity is refreshed")
			}
		}
		ticks++

		msg, err := t.poll(ctx, client)
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("could not poll the supplies (will retry)", "err", err)
			}
		} else if msg != nil {
			if ctx.Err() != nil {
				return
			}
			if err := t.topic.Send(msg); err != nil {
				slog.Error("could not publish the supply updates; tracker is stopping", "err", err)
				return
			}
		}

		ctxutil.Sleep(ctx, t.opts.Interval)
	}
}

func (t *Tracker) refreshDue(ticks int64) bool {
	return time.Duration(ticks)*t.opts.Interval > t.opts.RefreshInterval
}

func (t *Tracker) refreshClient(ctx context.Context) (fetcher, error) {
	t.sessionMu.Lock()
	defer t.sessionMu.Unlock()

	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	return t.refresh(ctx)
}

// poll fetches the supplies and their costs and merges them into the
// ledger. Returns a nil message when there is nothing to merge.
func (t *Tracker) poll(ctx context.Context, client fetcher) (*Message, error) {
	resp, err := client.NotPlannedSupplies(ctx)
	if err != nil {
		return nil, err
	}
	supplies := resp.Result.Data
	if len(supplies) == 0 {
		return nil, nil
	}

	costs, err := client.AcceptanceCostsForSupplies(ctx, t.opts.Days, supplies)
	if err != nil {
		return nil, err
	}
	if len(costs) == 0 {
		return nil, nil
	}

	lookup := make(map[int64]*seller.Supply, len(supplies))
	for _, s := range supplies {
		if s != nil && s.PreorderID != nil {
			lookup[*s.PreorderID] = s
		}
	}

	t.ledgerMu.Lock()
	changes := t.ledger.update(lookup, costs)
	t.ledgerMu.Unlock()

	if len(changes) == 0 {
		return newMessage(KindNoUpdate, nil), nil
	}
	for id, u := range changes {
		slog.Info("acceptance dates became available", "preorder", id, "warehouse", u.Supply.WarehouseName, "dates", len(u.Costs))
	}
	return newMessage(KindChanges, changes), nil
}
