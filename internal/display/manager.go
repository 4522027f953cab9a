package display

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/clock"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/telemetry"
)

var (
	ErrInvalidName = errors.New("display name must be 1-64 characters of letters, digits, '-' or '_'")
	ErrNotMounted  = errors.New("display not mounted")
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func ValidName(name string) bool { return nameRe.MatchString(name) }

type mounted struct {
	display *Display
	refs    int
}

// Manager keeps one Display per name alive for as long as something holds a
// reference to it.
type Manager struct {
	store Fetcher
	feed  changefeed.Feed
	clock clock.Clock
	cfg   Config

	mu       sync.Mutex
	displays map[string]*mounted
	pinned   map[string]bool
	onMount  []func(*Display)
	closed   bool
}

func NewManager(store Fetcher, feed changefeed.Feed, c clock.Clock, cfg Config) *Manager {
	if c == nil {
		c = clock.Real()
	}
	return &Manager{
		store:    store,
		feed:     feed,
		clock:    c,
		cfg:      cfg,
		displays: make(map[string]*mounted),
		pinned:   make(map[string]bool),
	}
}

// OnMount registers a hook run for every newly mounted display, before its
// first fetch.
func (m *Manager) OnMount(fn func(*Display)) {
	m.mu.Lock()
	m.onMount = append(m.onMount, fn)
	m.mu.Unlock()
}

// Open mounts the named display, or takes another reference to it. The start
// hint only applies when the display is created.
func (m *Manager) Open(ctx context.Context, name string, startHint *int) (*Display, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrNotMounted
	}
	if md, ok := m.displays[name]; ok {
		md.refs++
		m.mu.Unlock()
		return md.display, nil
	}
	d := newDisplay(name, m.store, m.feed, m.clock, m.cfg, startHint)
	m.displays[name] = &mounted{display: d, refs: 1}
	hooks := append([]func(*Display){}, m.onMount...)
	count := len(m.displays)
	m.mu.Unlock()

	telemetry.MountedDisplays.Set(float64(count))
	log.Info().Str("display", name).Msg("[display] mounted")

	for _, fn := range hooks {
		fn(d)
	}
	d.start(context.WithoutCancel(ctx))
	return d, nil
}

// Release drops one reference; the last one unmounts the display.
func (m *Manager) Release(name string) {
	m.mu.Lock()
	md, ok := m.displays[name]
	if !ok {
		m.mu.Unlock()
		return
	}
	md.refs--
	if md.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.displays, name)
	count := len(m.displays)
	m.mu.Unlock()

	telemetry.MountedDisplays.Set(float64(count))
	telemetry.ActiveItems.DeleteLabelValues(name)
	md.display.stop()
}

func (m *Manager) Get(name string) (*Display, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.displays[name]
	if !ok {
		return nil, false
	}
	return md.display, true
}

func (m *Manager) Names() []string {
	m.mu.Lock()
	names := make([]string, 0, len(m.displays))
	for name := range m.displays {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)
	return names
}

// Pin keeps a display mounted with no screen attached, for devices that only
// follow it over MQTT. Pinning twice holds a single reference.
func (m *Manager) Pin(ctx context.Context, name string) (*Display, error) {
	m.mu.Lock()
	already := m.pinned[name]
	m.mu.Unlock()
	if already {
		if d, ok := m.Get(name); ok {
			return d, nil
		}
	}

	d, err := m.Open(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.pinned[name] {
		m.mu.Unlock()
		m.Release(name)
		return d, nil
	}
	m.pinned[name] = true
	m.mu.Unlock()
	return d, nil
}

// Unpin drops the pin reference. It reports false when name was not pinned.
func (m *Manager) Unpin(name string) bool {
	m.mu.Lock()
	if !m.pinned[name] {
		m.mu.Unlock()
		return false
	}
	delete(m.pinned, name)
	m.mu.Unlock()
	m.Release(name)
	return true
}

func (m *Manager) Pinned(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pinned[name]
}

// Shutdown unmounts everything regardless of references.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	all := m.displays
	m.displays = make(map[string]*mounted)
	m.pinned = make(map[string]bool)
	m.mu.Unlock()

	for _, md := range all {
		md.display.stop()
	}
	telemetry.MountedDisplays.Set(0)
}
