package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/db"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

func draft(title string) model.ContentDraft {
	return model.ContentDraft{Type: model.ContentTypeImage, Title: title, Source: "https://example.com/" + title + ".png", Active: true}
}

func titles(items []model.ContentItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func seed(t *testing.T, store db.Store, names ...string) []model.ContentItem {
	t.Helper()
	drafts := make([]model.ContentDraft, 0, len(names))
	for _, n := range names {
		drafts = append(drafts, draft(n))
	}
	items, err := store.CreateContentItems(context.Background(), drafts)
	require.NoError(t, err)
	return items
}

func TestMemoryStoreCreateAssignsIdentity(t *testing.T) {
	store := db.NewMemoryStore(nil)
	ctx := context.Background()

	item, err := store.CreateContentItem(ctx, model.ContentDraft{Type: model.ContentTypeVideo, Title: "clip", Source: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Equal(t, model.DefaultDuration, item.Duration)
	assert.Equal(t, model.VideoSourceYouTube, item.VideoSource)

	got, err := store.GetContentItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, got)

	_, err = store.GetContentItem(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestMemoryStoreRejectsInvalidDrafts(t *testing.T) {
	store := db.NewMemoryStore(nil)
	_, err := store.CreateContentItems(context.Background(), []model.ContentDraft{draft("ok"), {Type: model.ContentTypeImage}})
	assert.ErrorIs(t, err, model.ErrValidation)

	all, _ := store.ListContentItems(context.Background())
	assert.Empty(t, all, "a failed batch inserts nothing")
}

func TestMemoryStoreUpdateAndToggle(t *testing.T) {
	store := db.NewMemoryStore(nil)
	ctx := context.Background()
	items := seed(t, store, "a", "b")

	title := "renamed"
	updated, err := store.UpdateContentItem(ctx, items[0].ID, model.ContentPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, items[0].CreatedAt, updated.CreatedAt)

	zero := 0
	_, err = store.UpdateContentItem(ctx, items[0].ID, model.ContentPatch{Duration: &zero})
	assert.ErrorIs(t, err, model.ErrValidation)

	toggled, err := store.SetContentItemActive(ctx, items[1].ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	_, err = store.SetContentItemActive(ctx, "missing", true)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestMemoryStoreMoveAndReorder(t *testing.T) {
	store := db.NewMemoryStore(nil)
	ctx := context.Background()
	items := seed(t, store, "a", "b", "c", "d")

	require.NoError(t, store.MoveContentItem(ctx, 0, 2))
	all, _ := store.ListContentItems(ctx)
	assert.Equal(t, []string{"b", "c", "a", "d"}, titles(all))
	for i, it := range all {
		assert.Equal(t, i, it.Position)
	}

	assert.ErrorIs(t, store.MoveContentItem(ctx, 0, 9), model.ErrValidation)

	require.NoError(t, store.ReorderContentItems(ctx, []string{items[3].ID, items[2].ID, items[1].ID, items[0].ID}))
	all, _ = store.ListContentItems(ctx)
	assert.Equal(t, []string{"d", "c", "b", "a"}, titles(all))

	assert.ErrorIs(t, store.ReorderContentItems(ctx, []string{items[0].ID}), model.ErrValidation)
	assert.ErrorIs(t, store.ReorderContentItems(ctx, []string{items[0].ID, items[0].ID, items[1].ID, items[2].ID}), model.ErrValidation)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := db.NewMemoryStore(nil)
	ctx := context.Background()
	items := seed(t, store, "a", "b", "c")

	require.NoError(t, store.DeleteContentItem(ctx, items[1].ID))
	all, _ := store.ListContentItems(ctx)
	assert.Equal(t, []string{"a", "c"}, titles(all))
	assert.Equal(t, 1, all[1].Position)

	assert.ErrorIs(t, store.DeleteContentItem(ctx, items[1].ID), db.ErrNotFound)
}

func TestMemoryStoreNotifiesOnEveryMutation(t *testing.T) {
	feed := changefeed.NewMemory()
	changes := 0
	_, err := feed.Subscribe(context.Background(), func() { changes++ })
	require.NoError(t, err)

	store := db.NewMemoryStore(feed)
	ctx := context.Background()
	items := seed(t, store, "a", "b")
	_, _ = store.SetContentItemActive(ctx, items[0].ID, false)
	_ = store.MoveContentItem(ctx, 0, 1)
	_ = store.DeleteContentItem(ctx, items[1].ID)

	assert.Equal(t, 4, changes)
}

func TestMemoryStoreListIsACopy(t *testing.T) {
	store := db.NewMemoryStore(nil)
	seed(t, store, "a")

	all, _ := store.ListContentItems(context.Background())
	all[0].Title = "mutated"

	again, _ := store.ListContentItems(context.Background())
	assert.Equal(t, "a", again[0].Title)
}
