package db_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/db"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/model"
)

// TestStoreIntegration runs against TEST_DATABASE_URL and is skipped without it.
func TestStoreIntegration(t *testing.T) {
	if err := db.InitTestDB("../../migrations"); err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	ctx := context.Background()
	store := db.TestStore

	_, err := db.DB.Exec(`TRUNCATE content_items;`)
	require.NoError(t, err)

	feed := changefeed.NewPostgresFeed(os.Getenv("TEST_DATABASE_URL"), zerolog.Nop())
	defer feed.Close()
	changed := make(chan struct{}, 16)
	unsub, err := feed.Subscribe(ctx, func() { changed <- struct{}{} })
	require.NoError(t, err)
	defer unsub()

	t.Run("create and list", func(t *testing.T) {
		items, err := store.CreateContentItems(ctx, []model.ContentDraft{draft("a"), draft("b"), draft("c")})
		require.NoError(t, err)
		require.Len(t, items, 3)

		all, err := store.ListContentItems(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, titles(all))

		select {
		case <-changed:
		case <-time.After(5 * time.Second):
			t.Fatal("no notification for insert")
		}
	})

	t.Run("update keeps identity", func(t *testing.T) {
		all, _ := store.ListContentItems(ctx)
		title := "renamed"
		updated, err := store.UpdateContentItem(ctx, all[0].ID, model.ContentPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, all[0].ID, updated.ID)
		assert.True(t, all[0].CreatedAt.Equal(updated.CreatedAt))
	})

	t.Run("move", func(t *testing.T) {
		require.NoError(t, store.MoveContentItem(ctx, 2, 0))
		all, _ := store.ListContentItems(ctx)
		assert.Equal(t, []string{"c", "renamed", "b"}, titles(all))
	})

	t.Run("delete", func(t *testing.T) {
		all, _ := store.ListContentItems(ctx)
		require.NoError(t, store.DeleteContentItem(ctx, all[0].ID))
		assert.ErrorIs(t, store.DeleteContentItem(ctx, all[0].ID), db.ErrNotFound)
		_, err := store.GetContentItem(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
}
