package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

// MemoryStore keeps the collection in process. It backs development runs
// without DATABASE_URL and the HTTP tests.
type MemoryStore struct {
	mu       sync.RWMutex
	items    []model.ContentItem
	notifier changefeed.Notifier
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(notifier changefeed.Notifier) *MemoryStore {
	return &MemoryStore{notifier: notifier, now: time.Now}
}

func (m *MemoryStore) ListContentItems(_ context.Context) ([]model.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.ContentItem{}, m.items...), nil
}

func (m *MemoryStore) GetContentItem(_ context.Context, id string) (model.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := lo.Find(m.items, func(c model.ContentItem) bool { return c.ID == id })
	if !ok {
		return model.ContentItem{}, ErrNotFound
	}
	return item, nil
}

func (m *MemoryStore) CreateContentItem(ctx context.Context, draft model.ContentDraft) (model.ContentItem, error) {
	items, err := m.CreateContentItems(ctx, []model.ContentDraft{draft})
	if err != nil {
		return model.ContentItem{}, err
	}
	return items[0], nil
}

func (m *MemoryStore) CreateContentItems(ctx context.Context, drafts []model.ContentDraft) ([]model.ContentItem, error) {
	created := make([]model.ContentItem, 0, len(drafts))
	for _, d := range drafts {
		p, err := prepareDraft(d)
		if err != nil {
			return nil, err
		}
		created = append(created, model.ContentItem{
			ID:                   uuid.NewString(),
			Type:                 p.Type,
			Title:                p.Title,
			Source:               p.Source,
			VideoSource:          p.VideoSource,
			Duration:             p.Duration,
			UseVideoDuration:     p.UseVideoDuration,
			Active:               p.Active,
			LeftBackgroundImage:  p.LeftBackgroundImage,
			RightBackgroundImage: p.RightBackgroundImage,
		})
	}
	if len(created) == 0 {
		return created, nil
	}

	m.mu.Lock()
	now := m.now().UTC()
	for i := range created {
		created[i].Position = len(m.items)
		created[i].CreatedAt = now
		m.items = append(m.items, created[i])
	}
	m.mu.Unlock()

	m.notify(ctx)
	return created, nil
}

func (m *MemoryStore) UpdateContentItem(ctx context.Context, id string, patch model.ContentPatch) (model.ContentItem, error) {
	m.mu.Lock()
	_, idx, ok := lo.FindIndexOf(m.items, func(c model.ContentItem) bool { return c.ID == id })
	if !ok {
		m.mu.Unlock()
		return model.ContentItem{}, ErrNotFound
	}

	updated := m.items[idx]
	updated.Apply(patch)
	if err := updated.Validate(); err != nil {
		m.mu.Unlock()
		return model.ContentItem{}, err
	}
	m.items[idx] = updated
	m.mu.Unlock()

	m.notify(ctx)
	return updated, nil
}

func (m *MemoryStore) SetContentItemActive(ctx context.Context, id string, active bool) (model.ContentItem, error) {
	return m.UpdateContentItem(ctx, id, model.ContentPatch{Active: &active})
}

func (m *MemoryStore) DeleteContentItem(ctx context.Context, id string) error {
	m.mu.Lock()
	_, idx, ok := lo.FindIndexOf(m.items, func(c model.ContentItem) bool { return c.ID == id })
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.renumber()
	m.mu.Unlock()

	m.notify(ctx)
	return nil
}

func (m *MemoryStore) MoveContentItem(ctx context.Context, from, to int) error {
	m.mu.Lock()
	moved, err := spliceMove(m.ids(), from, to)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.applyOrder(moved)
	m.mu.Unlock()

	m.notify(ctx)
	return nil
}

func (m *MemoryStore) ReorderContentItems(ctx context.Context, ids []string) error {
	m.mu.Lock()
	if err := checkPermutation(m.ids(), ids); err != nil {
		m.mu.Unlock()
		return err
	}
	m.applyOrder(ids)
	m.mu.Unlock()

	m.notify(ctx)
	return nil
}

func (m *MemoryStore) ids() []string {
	return lo.Map(m.items, func(c model.ContentItem, _ int) string { return c.ID })
}

func (m *MemoryStore) applyOrder(ids []string) {
	byID := lo.KeyBy(m.items, func(c model.ContentItem) string { return c.ID })
	m.items = lo.Map(ids, func(id string, _ int) model.ContentItem { return byID[id] })
	m.renumber()
}

func (m *MemoryStore) renumber() {
	for i := range m.items {
		m.items[i].Position = i
	}
}

func (m *MemoryStore) notify(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx); err != nil {
		log.Warn().Err(err).Msg("[content] change notification failed")
	}
}
