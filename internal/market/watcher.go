package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bitex_go/internal/infra"
	"bitex_go/pkg/bitex"

	"github.com/shopspring/decimal"
)

// BookSource is anything that can fetch the current order book.
// bitex.Api satisfies it.
type BookSource interface {
	OrderBook(ctx context.Context) (bitex.OrderBook, error)
}

// Quote is the top of book at a point in time.
type Quote struct {
	Bid    bitex.PriceLevel `json:"bid"`
	Ask    bitex.PriceLevel `json:"ask"`
	HasBid bool             `json:"has_bid"`
	HasAsk bool             `json:"has_ask"`
	At     time.Time        `json:"at"`
}

// QuoteOf extracts the best levels of book.
func QuoteOf(book bitex.OrderBook, at time.Time) Quote {
	q := Quote{At: at}
	q.Bid, q.HasBid = book.BestBid()
	q.Ask, q.HasAsk = book.BestAsk()
	return q
}

// Spread is ask minus bid; ok is false when a side is empty.
func (q Quote) Spread() (spread decimal.Decimal, ok bool) {
	if !q.HasBid || !q.HasAsk {
		return decimal.Zero, false
	}
	return q.Ask.Price.Sub(q.Bid.Price), true
}

// SameTop ignores the timestamp.
func (q Quote) SameTop(o Quote) bool {
	return q.HasBid == o.HasBid && q.HasAsk == o.HasAsk &&
		q.Bid.Equal(o.Bid) && q.Ask.Equal(o.Ask)
}

// Watcher polls a BookSource and reports top-of-book changes.
// Failed polls are retried with exponential backoff instead of the
// regular interval.
type Watcher struct {
	source   BookSource
	onUpdate func(Quote)
	interval time.Duration
	backoff  infra.Backoff

	mu        sync.RWMutex
	latest    Quote
	hasLatest bool
	failures  int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher polling every interval.
func NewWatcher(source BookSource, interval time.Duration, onUpdate func(Quote)) *Watcher {
	return &Watcher{
		source:   source,
		onUpdate: onUpdate,
		interval: interval,
		backoff:  infra.DefaultBackoff(),
	}
}

// NewWatcherWithConfig takes the interval from cfg.Watch.
func NewWatcherWithConfig(source BookSource, cfg *infra.Config, onUpdate func(Quote)) *Watcher {
	return NewWatcher(source, time.Duration(cfg.Watch.IntervalMS)*time.Millisecond, onUpdate)
}

// SetBackoff replaces the retry policy. Call before Start.
func (w *Watcher) SetBackoff(b infra.Backoff) {
	w.backoff = b
}

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("watcher already started")

// Start fetches once and then keeps polling in the background until ctx is
// canceled or Stop is called. A Watcher runs once; later calls to Start
// return ErrAlreadyStarted.
func (w *Watcher) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", w.interval)
	}

	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	if err := w.Poll(ctx); err != nil {
		slog.Warn("Initial order book fetch failed", slog.Any("error", err))
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Order book polling panic recovered", slog.Any("panic", r))
			}
		}()

		timer := time.NewTimer(w.nextDelay())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Order book polling stopped")
				return
			case <-timer.C:
				if err := w.Poll(ctx); err != nil && ctx.Err() == nil {
					slog.Warn("Order book fetch failed",
						slog.Any("error", err),
						slog.Duration("retry_in", w.nextDelay()),
					)
				}
				timer.Reset(w.nextDelay())
			}
		}
	}()

	return nil
}

// Poll fetches the book once, updates Latest and fires onUpdate when the
// top of book moved.
func (w *Watcher) Poll(ctx context.Context) error {
	book, err := w.source.OrderBook(ctx)
	if err != nil {
		w.mu.Lock()
		w.failures++
		w.mu.Unlock()
		return err
	}

	quote := QuoteOf(book, time.Now().UTC())

	w.mu.Lock()
	changed := !w.hasLatest || !w.latest.SameTop(quote)
	w.latest = quote
	w.hasLatest = true
	w.failures = 0
	w.mu.Unlock()

	if changed && w.onUpdate != nil {
		w.onUpdate(quote)
	}
	return nil
}

// Latest returns the most recent quote; ok is false before the first
// successful poll.
func (w *Watcher) Latest() (Quote, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest, w.hasLatest
}

func (w *Watcher) nextDelay() time.Duration {
	w.mu.RLock()
	failures := w.failures
	w.mu.RUnlock()

	if failures == 0 {
		return w.interval
	}
	return w.backoff.Delay(failures - 1)
}

// Stop stops the polling
func (w *Watcher) Stop() {
	w.mu.RLock()
	cancel := w.cancel
	w.mu.RUnlock()

	if cancel != nil {
		cancel()
		w.wg.Wait()
	}
}
