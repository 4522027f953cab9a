// Package livesync keeps a display's snapshot in step with the backend: any
// change notification triggers a full re-fetch through the refresh callback.
package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
)

// RefreshFunc re-fetches the content collection. It must honour ctx.
type RefreshFunc func(ctx context.Context) error

type Option func(*Bridge)

func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithRetryInterval sets how long to wait between failed subscription attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(b *Bridge) { b.retry = d }
}

// Bridge subscribes to a change feed and runs refresh on a single worker
// goroutine. Notifications that arrive while a refresh is running collapse
// into one follow-up refresh.
type Bridge struct {
	feed    changefeed.Feed
	refresh RefreshFunc
	retry   time.Duration
	logger  zerolog.Logger

	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	unsubscribe changefeed.Unsubscribe
	started     bool
	closed      bool
}

func New(feed changefeed.Feed, refresh RefreshFunc, opts ...Option) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		feed:    feed,
		refresh: refresh,
		retry:   5 * time.Second,
		logger:  log.With().Str("component", "livesync").Logger(),
		kick:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the worker and makes the first subscription attempt. A failed
// attempt is logged and retried in the background; the returned error is only
// informational, the display keeps running on its last snapshot.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started || b.closed {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.work()

	err := b.subscribe(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Dur("retry", b.retry).Msg("[livesync] subscription failed, live updates paused")
		b.wg.Add(1)
		go b.resubscribe()
	}
	return err
}

func (b *Bridge) subscribe(ctx context.Context) error {
	unsub, err := b.feed.Subscribe(ctx, b.Trigger)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		unsub()
		return nil
	}
	b.unsubscribe = unsub
	b.mu.Unlock()
	return nil
}

func (b *Bridge) resubscribe() {
	defer b.wg.Done()

	timer := time.NewTimer(b.retry)
	defer timer.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-timer.C:
		}

		if err := b.subscribe(b.ctx); err != nil {
			b.logger.Warn().Err(err).Msg("[livesync] resubscribe failed")
			timer.Reset(b.retry)
			continue
		}
		b.logger.Info().Msg("[livesync] subscription restored")
		// Changes made while we were deaf are only visible through a full fetch.
		b.Trigger()
		return
	}
}

// Trigger schedules a refresh. It never blocks and is a no-op after Close.
func (b *Bridge) Trigger() {
	if b.ctx.Err() != nil {
		return
	}
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

func (b *Bridge) work() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.kick:
		}
		if b.ctx.Err() != nil {
			return
		}
		if err := b.refresh(b.ctx); err != nil {
			b.logger.Error().Err(err).Msg("[livesync] refresh failed, keeping last snapshot")
		}
	}
}

// Connected reports whether a subscription is currently held.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unsubscribe != nil
}

// Close unsubscribes and waits for an in-flight refresh to return. No refresh
// starts after Close returns.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	unsub := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	b.cancel()
	b.wg.Wait()
}
