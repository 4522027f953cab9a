// exposes a Store interface that is passed to API calls w/ param requirements
package db

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

var ErrNotFound = errors.New("content item not found")

type Store interface {
	// ListContentItems returns the whole collection in playlist order.
	ListContentItems(ctx context.Context) ([]model.ContentItem, error)
	GetContentItem(ctx context.Context, id string) (model.ContentItem, error)
	CreateContentItem(ctx context.Context, draft model.ContentDraft) (model.ContentItem, error)
	// CreateContentItems appends a batch atomically, in order.
	CreateContentItems(ctx context.Context, drafts []model.ContentDraft) ([]model.ContentItem, error)
	UpdateContentItem(ctx context.Context, id string, patch model.ContentPatch) (model.ContentItem, error)
	SetContentItemActive(ctx context.Context, id string, active bool) (model.ContentItem, error)
	DeleteContentItem(ctx context.Context, id string) error
	// MoveContentItem moves the item at list index from to index to.
	MoveContentItem(ctx context.Context, from, to int) error
	// ReorderContentItems sets the full order; ids must name every item once.
	ReorderContentItems(ctx context.Context, ids []string) error
}

type pgStore struct {
	db       *sqlx.DB
	notifier changefeed.Notifier
}

// compile-time check that pgStore implements Store
// required so linter doesn't complain
var _ Store = (*pgStore)(nil)

// NewStore wraps a connection. notifier may be nil when the database trigger
// is the change feed.
func NewStore(conn *sqlx.DB, notifier changefeed.Notifier) Store {
	return &pgStore{db: conn, notifier: notifier}
}
