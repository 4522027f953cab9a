package changefeed_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
)

func TestMemoryFeedFanOut(t *testing.T) {
	feed := changefeed.NewMemory()
	ctx := context.Background()

	var a, b int
	unsubA, err := feed.Subscribe(ctx, func() { a++ })
	require.NoError(t, err)
	_, err = feed.Subscribe(ctx, func() { b++ })
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx))
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)

	unsubA()
	unsubA()
	require.NoError(t, feed.Publish(ctx))
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, feed.Subscribers())
}

func TestRedisFeedFallsBackWithoutClient(t *testing.T) {
	feed := changefeed.NewRedisFeed(nil, "node-1", zerolog.Nop())
	defer feed.Close()
	require.True(t, feed.Degraded())

	calls := 0
	unsub, err := feed.Subscribe(context.Background(), func() { calls++ })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, feed.Publish(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestRedisFeedAcrossNodes(t *testing.T) {
	srv := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer clientA.Close()
	defer clientB.Close()

	nodeA := changefeed.NewRedisFeed(clientA, "node-a", zerolog.Nop())
	nodeB := changefeed.NewRedisFeed(clientB, "node-b", zerolog.Nop())
	defer nodeA.Close()
	defer nodeB.Close()
	require.False(t, nodeA.Degraded())

	changed := make(chan struct{}, 4)
	unsub, err := nodeB.Subscribe(context.Background(), func() { changed <- struct{}{} })
	require.NoError(t, err)

	require.NoError(t, nodeA.Publish(context.Background()))
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("node b never heard about the change")
	}

	unsub()
	require.NoError(t, nodeA.Publish(context.Background()))
	select {
	case <-changed:
		t.Fatal("change delivered after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisFeedDegradesWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()
	srv.Close()

	feed := changefeed.NewRedisFeed(client, "node-a", zerolog.Nop())
	defer feed.Close()
	assert.True(t, feed.Degraded())
}
