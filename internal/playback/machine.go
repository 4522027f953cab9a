package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/clock"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

type State string

const (
	StateIdle          State = "idle"
	StateShowing       State = "showing"
	StateTransitioning State = "transitioning"
)

// Reason tags why a snapshot was emitted.
type Reason string

const (
	ReasonSnapshot   Reason = "snapshot"
	ReasonAdvance    Reason = "advance"
	ReasonFadeDone   Reason = "fade_done"
	ReasonRearm      Reason = "rearm"
	ReasonMediaError Reason = "media_error"
)

// Session is the playback state owned by a Machine. Nothing else mutates it.
type Session struct {
	ActiveItems     []model.ContentItem
	CurrentIndex    int
	IsTransitioning bool
}

// Snapshot is an immutable view of a machine, handed to observers.
type Snapshot struct {
	State           State
	Reason          Reason
	Version         uint64
	CurrentIndex    int
	IsTransitioning bool
	ItemCount       int
	Current         *model.ContentItem
	VisitID         uint64
	Signal          EndSignal
	ArmedAt         time.Time
	EndsAt          *time.Time
	MediaFailed     bool
}

// visit is one stay of one item on screen. Its id is the cancellation token:
// any end signal that carries another id is stale and ignored.
type visit struct {
	id          uint64
	item        model.ContentItem
	rule        Rule
	timer       clock.Timer
	armedAt     time.Time
	deadline    time.Time
	mediaFailed bool
}

type Observer func(Snapshot)

type Option func(*Machine)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithStartIndex seeds the index used when the first non-empty rotation arrives.
func WithStartIndex(hint *int) Option {
	return func(m *Machine) { m.startHint = hint }
}

func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, o) }
}

// Machine is the transition state machine. All entry points are serialized on
// one mutex, so end signals and snapshot replacement never interleave.
type Machine struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	clock  clock.Clock
	timing Timing
	logger zerolog.Logger

	session   Session
	visit     *visit
	visitSeq  uint64
	fade      clock.Timer
	fadeSeq   uint64
	fadeIndex int
	fadeItem  model.ContentItem
	pending   []model.ContentItem
	queued    bool
	startHint *int
	started   bool
	stopped   bool
	version   uint64
	observers []Observer
}

func NewMachine(c clock.Clock, timing Timing, opts ...Option) *Machine {
	m := &Machine{
		clock:  c,
		timing: timing,
		logger: log.With().Str("component", "playback").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Replace hands the machine a new rotation. During a fade the rotation is
// queued and applied when the fade completes.
func (m *Machine) Replace(active []model.ContentItem) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	items := append([]model.ContentItem(nil), active...)

	if m.session.IsTransitioning {
		m.pending = items
		m.queued = true
		m.logger.Debug().Int("items", len(items)).Msg("[playback] rotation queued behind fade")
		m.mu.Unlock()
		return
	}

	m.replaceLocked(items)
	m.emit(ReasonSnapshot)
}

func (m *Machine) replaceLocked(items []model.ContentItem) {
	if len(items) == 0 {
		if len(m.session.ActiveItems) > 0 {
			m.logger.Info().Msg("[playback] rotation empty, going idle")
		}
		m.disarm()
		m.session = Session{}
		return
	}

	if len(m.session.ActiveItems) == 0 {
		idx := 0
		if !m.started {
			idx = ClampStart(m.startHint, len(items))
			m.started = true
		}
		m.session = Session{ActiveItems: items, CurrentIndex: idx}
		m.arm(items[idx])
		return
	}

	current := m.session.ActiveItems[m.session.CurrentIndex]
	if idx := indexOf(items, current.ID); idx >= 0 {
		m.session.ActiveItems = items
		m.session.CurrentIndex = idx
		return
	}

	idx := m.session.CurrentIndex
	if idx >= len(items) {
		idx = 0
	}
	m.logger.Info().Str("removed", current.ID).Str("next", items[idx].ID).Msg("[playback] current item left the rotation")
	m.disarm()
	m.session = Session{ActiveItems: items, CurrentIndex: idx}
	m.arm(items[idx])
}

// Advance starts the fade to the next item. It reports false when there is
// nothing to advance to: idle, a single item, a fade in flight, or stopped.
func (m *Machine) Advance() bool {
	m.mu.Lock()
	if !m.advanceLocked() {
		m.mu.Unlock()
		return false
	}
	m.emit(ReasonAdvance)
	return true
}

func (m *Machine) advanceLocked() bool {
	n := len(m.session.ActiveItems)
	if m.stopped || m.session.IsTransitioning || n <= 1 {
		return false
	}

	m.disarm()
	m.fadeIndex = (m.session.CurrentIndex + 1) % n
	m.fadeItem = m.session.ActiveItems[m.fadeIndex]
	m.session.IsTransitioning = true

	m.fadeSeq++
	seq := m.fadeSeq
	m.fade = m.clock.AfterFunc(m.timing.Fade, func() { m.completeFade(seq) })
	return true
}

func (m *Machine) completeFade(seq uint64) {
	m.mu.Lock()
	if m.stopped || seq != m.fadeSeq || !m.session.IsTransitioning {
		m.mu.Unlock()
		return
	}
	m.fade = nil

	items := m.session.ActiveItems
	if m.queued {
		items = m.pending
		m.pending, m.queued = nil, false
	}

	if len(items) == 0 {
		m.session = Session{}
		m.logger.Info().Msg("[playback] rotation emptied during fade, going idle")
		m.emit(ReasonFadeDone)
		return
	}

	idx := indexOf(items, m.fadeItem.ID)
	if idx < 0 {
		idx = m.fadeIndex
		if idx >= len(items) {
			idx = 0
		}
	}
	m.session = Session{ActiveItems: items, CurrentIndex: idx}
	m.arm(items[idx])
	m.emit(ReasonFadeDone)
}

// MediaEnded delivers a player's "ended" report for a visit. Reports for stale
// visits, or for visits whose policy does not listen to the player, are ignored.
func (m *Machine) MediaEnded(visitID uint64) bool {
	m.mu.Lock()
	v := m.visit
	if m.stopped || v == nil || v.id != visitID {
		m.mu.Unlock()
		return false
	}
	if !v.rule.AcceptsMediaEnded() {
		m.logger.Debug().Uint64("visit", visitID).Str("signal", v.rule.Signal.String()).Msg("[playback] ended report ignored by policy")
		m.mu.Unlock()
		return false
	}
	m.endVisitLocked(visitID, "media_ended")
	return true
}

// MediaError records that the player could not load the current item. The
// screen shows a placeholder; when the visit waits on the media ended event a
// countdown of the item's duration is armed so the rotation keeps moving.
func (m *Machine) MediaError(visitID uint64, reason string) bool {
	m.mu.Lock()
	v := m.visit
	if m.stopped || v == nil || v.id != visitID {
		m.mu.Unlock()
		return false
	}

	m.logger.Warn().Uint64("visit", visitID).Str("item", v.item.ID).Str("reason", reason).Msg("[playback] media failed to load")
	if v.mediaFailed {
		m.mu.Unlock()
		return true
	}
	v.mediaFailed = true
	if v.timer == nil {
		delay, _ := m.timing.Delay(Rule{Signal: SignalTimer, Delay: DelayItemDuration}, v.item)
		m.armTimer(v, delay)
	}
	m.emit(ReasonMediaError)
	return true
}

func (m *Machine) endVisitLocked(visitID uint64, cause string) {
	m.logger.Debug().Uint64("visit", visitID).Str("cause", cause).Msg("[playback] end signal")

	if len(m.session.ActiveItems) <= 1 {
		// A lone item stays put; a fresh visit restarts its clock.
		m.disarm()
		m.arm(m.session.ActiveItems[m.session.CurrentIndex])
		m.emit(ReasonRearm)
		return
	}
	if !m.advanceLocked() {
		m.mu.Unlock()
		return
	}
	m.emit(ReasonAdvance)
}

func (m *Machine) arm(item model.ContentItem) {
	m.visitSeq++
	rule := PolicyFor(item)
	v := &visit{id: m.visitSeq, item: item, rule: rule, armedAt: m.clock.Now()}
	m.visit = v

	if delay, ok := m.timing.Delay(rule, item); ok {
		m.armTimer(v, delay)
	}
	m.logger.Debug().
		Uint64("visit", v.id).
		Str("item", item.ID).
		Str("signal", rule.Signal.String()).
		Time("ends_at", v.deadline).
		Msg("[playback] visit armed")
}

func (m *Machine) armTimer(v *visit, delay time.Duration) {
	id := v.id
	v.deadline = m.clock.Now().Add(delay)
	v.timer = m.clock.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.stopped || m.visit == nil || m.visit.id != id {
			m.mu.Unlock()
			return
		}
		m.endVisitLocked(id, "timer")
	})
}

func (m *Machine) disarm() {
	if m.visit != nil && m.visit.timer != nil {
		m.visit.timer.Stop()
	}
	m.visit = nil
}

// Stop tears the machine down. Pending timers are cancelled and every later
// call is a no-op.
func (m *Machine) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.disarm()
	if m.fade != nil {
		m.fade.Stop()
		m.fade = nil
	}
	m.fadeSeq++
	m.stopped = true
	m.pending, m.queued = nil, false
	m.mu.Unlock()
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked("")
}

// Session returns a copy of the current session.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	s.ActiveItems = append([]model.ContentItem(nil), s.ActiveItems...)
	return s
}

func (m *Machine) snapshotLocked(reason Reason) Snapshot {
	s := Snapshot{
		Reason:          reason,
		Version:         m.version,
		CurrentIndex:    m.session.CurrentIndex,
		IsTransitioning: m.session.IsTransitioning,
		ItemCount:       len(m.session.ActiveItems),
	}

	switch {
	case len(m.session.ActiveItems) == 0:
		s.State = StateIdle
		return s
	case m.session.IsTransitioning:
		s.State = StateTransitioning
	default:
		s.State = StateShowing
	}

	current := m.session.ActiveItems[m.session.CurrentIndex]
	s.Current = &current
	if v := m.visit; v != nil {
		s.VisitID = v.id
		s.Signal = v.rule.Signal
		s.ArmedAt = v.armedAt
		s.MediaFailed = v.mediaFailed
		if !v.deadline.IsZero() {
			deadline := v.deadline
			s.EndsAt = &deadline
		}
	}
	return s
}

// emit must be called with mu held. It releases mu and notifies observers in
// the order the changes happened. Observers must not call back into the machine
// synchronously.
func (m *Machine) emit(reason Reason) {
	m.version++
	snap := m.snapshotLocked(reason)
	observers := m.observers
	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}
