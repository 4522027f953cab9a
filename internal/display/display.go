// Package display hosts the playback sessions screens attach to. A display
// owns one transition machine and one live sync bridge, and publishes its
// state to every attached screen.
package display

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/clock"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/livesync"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/playback"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/telemetry"
)

// Fetcher is the read side of the content collection.
type Fetcher interface {
	ListContentItems(ctx context.Context) ([]model.ContentItem, error)
}

type Config struct {
	Timing        playback.Timing
	Placeholder   string
	RetryInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timing:        playback.DefaultTiming(),
		Placeholder:   "/placeholder.svg",
		RetryInterval: 5 * time.Second,
	}
}

// State is what screens receive.
type State struct {
	Display         string             `json:"display"`
	State           playback.State     `json:"state"`
	Loading         bool               `json:"loading"`
	Version         uint64             `json:"version"`
	CurrentIndex    int                `json:"currentIndex"`
	ItemCount       int                `json:"itemCount"`
	IsTransitioning bool               `json:"isTransitioning"`
	FadeMillis      int64              `json:"fadeMs"`
	VisitID         uint64             `json:"visitId,omitempty"`
	EndSignal       string             `json:"endSignal,omitempty"`
	EndsAt          *time.Time         `json:"endsAt,omitempty"`
	Item            *model.ContentItem `json:"item,omitempty"`
	Surface         Surface            `json:"surface"`
	SyncError       string             `json:"syncError,omitempty"`
	SyncedAt        *time.Time         `json:"syncedAt,omitempty"`
	Live            bool               `json:"live"`
}

type EventType string

const (
	EventEnded      EventType = "ended"
	EventMediaError EventType = "media_error"
	EventAdvance    EventType = "advance"
	EventRefresh    EventType = "refresh"
)

// Event is a report from a screen.
type Event struct {
	Type    EventType `json:"type"`
	VisitID uint64    `json:"visit_id,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

var ErrUnknownEvent = errors.New("unknown display event")

type Display struct {
	name    string
	store   Fetcher
	clock   clock.Clock
	cfg     Config
	logger  zerolog.Logger
	machine *playback.Machine
	bridge  *livesync.Bridge

	refreshMu sync.Mutex
	fanMu     sync.Mutex

	mu         sync.Mutex
	loading    bool
	syncErr    string
	syncedAt   time.Time
	retry      clock.Timer
	last       State
	listeners  map[uint64]func(State)
	nextListen uint64
	stopped    bool
	done       chan struct{}
}

func newDisplay(name string, store Fetcher, feed changefeed.Feed, c clock.Clock, cfg Config, startHint *int) *Display {
	d := &Display{
		name:      name,
		store:     store,
		clock:     c,
		cfg:       cfg,
		logger:    log.With().Str("display", name).Logger(),
		loading:   true,
		listeners: make(map[uint64]func(State)),
		done:      make(chan struct{}),
	}
	d.machine = playback.NewMachine(c, cfg.Timing,
		playback.WithLogger(d.logger),
		playback.WithStartIndex(startHint),
		playback.WithObserver(d.publish),
	)
	d.bridge = livesync.New(feed, d.Refresh,
		livesync.WithLogger(d.logger),
		livesync.WithRetryInterval(cfg.RetryInterval),
	)
	d.last = d.buildLocked(d.machine.Snapshot())
	return d
}

func (d *Display) Name() string { return d.name }

func (d *Display) start(ctx context.Context) {
	// Subscribe before the first fetch so no change slips in between.
	_ = d.bridge.Start(ctx)
	if err := d.Refresh(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("[display] initial fetch failed")
	}
}

// Refresh re-fetches the collection and hands the rotation to the machine. On
// failure the previous snapshot stays in place and a retry is scheduled.
func (d *Display) Refresh(ctx context.Context) error {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	items, err := d.store.ListContentItems(ctx)

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.loading = false
	if err != nil {
		d.syncErr = err.Error()
		d.scheduleRetryLocked()
		d.mu.Unlock()

		telemetry.Refreshes.WithLabelValues(d.name, "error").Inc()
		d.publish(d.machine.Snapshot())
		return fmt.Errorf("fetch content: %w", err)
	}
	d.syncErr = ""
	d.syncedAt = d.clock.Now()
	d.mu.Unlock()

	active := playback.ActiveItems(items)
	telemetry.Refreshes.WithLabelValues(d.name, "ok").Inc()
	telemetry.ActiveItems.WithLabelValues(d.name).Set(float64(len(active)))
	d.logger.Debug().Int("items", len(items)).Int("active", len(active)).Msg("[display] snapshot refreshed")

	d.machine.Replace(active)
	d.publish(d.machine.Snapshot())
	return nil
}

func (d *Display) scheduleRetryLocked() {
	if d.retry != nil || d.cfg.RetryInterval <= 0 {
		return
	}
	d.retry = d.clock.AfterFunc(d.cfg.RetryInterval, func() {
		d.mu.Lock()
		d.retry = nil
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.bridge.Trigger()
		}
	})
}

// Handle applies a screen event. The bool reports whether the event changed
// anything; stale visit ids are accepted and ignored.
func (d *Display) Handle(ctx context.Context, ev Event) (bool, error) {
	switch ev.Type {
	case EventEnded:
		return d.machine.MediaEnded(ev.VisitID), nil
	case EventMediaError:
		ok := d.machine.MediaError(ev.VisitID, ev.Reason)
		if ok {
			telemetry.MediaErrors.WithLabelValues(d.name).Inc()
		}
		return ok, nil
	case EventAdvance:
		return d.machine.Advance(), nil
	case EventRefresh:
		if err := d.Refresh(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
}

func (d *Display) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Subscribe registers a listener for state changes. Listeners run in order of
// change; they must not block or call back into the display.
func (d *Display) Subscribe(fn func(State)) (cancel func()) {
	d.mu.Lock()
	d.nextListen++
	id := d.nextListen
	d.listeners[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

// Follow hands states to fn on a goroutine of its own. When fn is slower than
// the display, intermediate states are dropped and fn sees the latest one. It
// stops on cancel or when the display unmounts.
func (d *Display) Follow(fn func(State)) (cancel func()) {
	var (
		mu     sync.Mutex
		latest State
	)
	kick := make(chan struct{}, 1)
	quit := make(chan struct{})

	unsubscribe := d.Subscribe(func(st State) {
		mu.Lock()
		latest = st
		mu.Unlock()
		select {
		case kick <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-quit:
				return
			case <-d.done:
				return
			case <-kick:
			}
			mu.Lock()
			st := latest
			mu.Unlock()
			fn(st)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(quit)
		})
	}
}

// Done is closed when the display unmounts.
func (d *Display) Done() <-chan struct{} { return d.done }

func (d *Display) publish(snap playback.Snapshot) {
	d.mu.Lock()
	if d.stopped || snap.Version < d.last.Version {
		d.mu.Unlock()
		return
	}
	st := d.buildLocked(snap)
	if snap.Version == d.last.Version && snap.Reason == "" && sameSync(st, d.last) {
		d.mu.Unlock()
		return
	}
	d.last = st
	listeners := make([]func(State), 0, len(d.listeners))
	for _, fn := range d.listeners {
		listeners = append(listeners, fn)
	}
	d.fanMu.Lock()
	d.mu.Unlock()
	defer d.fanMu.Unlock()

	if snap.Reason != "" {
		telemetry.Transitions.WithLabelValues(d.name, string(snap.Reason)).Inc()
	}
	for _, fn := range listeners {
		fn(st)
	}
}

func sameSync(a, b State) bool {
	return a.Loading == b.Loading && a.SyncError == b.SyncError && a.Live == b.Live
}

func (d *Display) buildLocked(snap playback.Snapshot) State {
	st := State{
		Display:         d.name,
		State:           snap.State,
		Loading:         d.loading,
		Version:         snap.Version,
		CurrentIndex:    snap.CurrentIndex,
		ItemCount:       snap.ItemCount,
		IsTransitioning: snap.IsTransitioning,
		FadeMillis:      d.cfg.Timing.Fade.Milliseconds(),
		VisitID:         snap.VisitID,
		EndsAt:          snap.EndsAt,
		Item:            snap.Current,
		Surface:         RenderSurface(d.loading, snap.Current, snap.MediaFailed, d.cfg.Placeholder),
		SyncError:       d.syncErr,
		Live:            d.bridge != nil && d.bridge.Connected(),
	}
	if snap.VisitID != 0 {
		st.EndSignal = snap.Signal.String()
	}
	if !d.syncedAt.IsZero() {
		at := d.syncedAt
		st.SyncedAt = &at
	}
	return st
}

func (d *Display) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.retry != nil {
		d.retry.Stop()
		d.retry = nil
	}
	d.listeners = make(map[uint64]func(State))
	close(d.done)
	d.mu.Unlock()

	d.bridge.Close()
	d.machine.Stop()
	d.logger.Info().Msg("[display] unmounted")
}
