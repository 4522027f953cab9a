// Package changefeed carries coarse "the content collection changed"
// notifications. Notifications have no payload the consumer relies on; every
// one of them means "re-fetch everything".
package changefeed

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Channel is the Postgres NOTIFY channel, Redis channel and NATS subject used
// for content changes.
const Channel = "content_items_changed"

// Unsubscribe detaches a subscription. It is safe to call more than once.
type Unsubscribe func()

// Feed delivers change notifications to subscribers.
type Feed interface {
	Subscribe(ctx context.Context, onChange func()) (Unsubscribe, error)
}

// Notifier announces a change. Stores call it after every committed mutation
// when the database does not notify on its own.
type Notifier interface {
	Publish(ctx context.Context) error
}

// Message is the body sent over Redis and NATS.
type Message struct {
	Table  string    `json:"table"`
	NodeID string    `json:"node_id"`
	At     time.Time `json:"at"`
}

func marshalMessage(nodeID string) ([]byte, error) {
	return json.Marshal(Message{Table: "content_items", NodeID: nodeID, At: time.Now().UTC()})
}

func unmarshalMessage(data []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// Memory is an in-process feed. It is the fallback when no broker is reachable
// and the feed used by the in-memory store.
type Memory struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]func()
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[uint64]func())}
}

func (m *Memory) Subscribe(_ context.Context, onChange func()) (Unsubscribe, error) {
	m.mu.Lock()
	m.next++
	id := m.next
	m.subs[id] = onChange
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}, nil
}

// Publish calls every subscriber on the caller's goroutine.
func (m *Memory) Publish(_ context.Context) error {
	m.mu.RLock()
	subs := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
	return nil
}

// Subscribers is the number of live subscriptions.
func (m *Memory) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

var (
	_ Feed     = (*Memory)(nil)
	_ Notifier = (*Memory)(nil)
)
