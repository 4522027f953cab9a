package display

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerReferenceCounting(t *testing.T) {
	f := newFixture(image("a", 5))
	defer f.manager.Shutdown()
	ctx := context.Background()

	first, err := f.manager.Open(ctx, "lobby", nil)
	require.NoError(t, err)
	second, err := f.manager.Open(ctx, "lobby", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, f.feed.Subscribers())
	assert.Equal(t, 1, f.store.calls)

	f.manager.Release("lobby")
	_, ok := f.manager.Get("lobby")
	assert.True(t, ok)

	f.manager.Release("lobby")
	_, ok = f.manager.Get("lobby")
	assert.False(t, ok)
	assert.Equal(t, 0, f.feed.Subscribers())
	assert.Equal(t, 0, f.clock.Pending(), "unmounting cancels the visit timer")

	f.manager.Release("lobby")
}

func TestManagerStartHintOnlyOnCreate(t *testing.T) {
	f := newFixture(image("a", 5), image("b", 5), image("c", 5))
	defer f.manager.Shutdown()
	ctx := context.Background()

	two := 2
	d, err := f.manager.Open(ctx, "hall", &two)
	require.NoError(t, err)
	assert.Equal(t, "c", d.State().Item.ID)

	zero := 0
	again, err := f.manager.Open(ctx, "hall", &zero)
	require.NoError(t, err)
	assert.Equal(t, "c", again.State().Item.ID)

	far := 42
	clamped, err := f.manager.Open(ctx, "cafe", &far)
	require.NoError(t, err)
	assert.Equal(t, "a", clamped.State().Item.ID)

	assert.Equal(t, []string{"cafe", "hall"}, f.manager.Names())
}

func TestManagerRejectsBadNames(t *testing.T) {
	f := newFixture()
	defer f.manager.Shutdown()

	for _, name := range []string{"", "has space", "../etc", strings.Repeat("a", 65)} {
		_, err := f.manager.Open(context.Background(), name, nil)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestManagerOnMountSeesFirstState(t *testing.T) {
	f := newFixture(image("a", 5))
	rec := &recorder{}
	f.manager.OnMount(func(d *Display) { d.Subscribe(rec.record) })

	_, err := f.manager.Open(context.Background(), "lobby", nil)
	require.NoError(t, err)

	states := rec.all()
	require.NotEmpty(t, states)
	assert.Equal(t, "a", states[len(states)-1].Item.ID)

	f.manager.Shutdown()
	_, err = f.manager.Open(context.Background(), "lobby", nil)
	assert.ErrorIs(t, err, ErrNotMounted)
}

func TestManagerPin(t *testing.T) {
	f := newFixture(image("a", 5))
	defer f.manager.Shutdown()
	ctx := context.Background()

	_, err := f.manager.Pin(ctx, "tv-1")
	require.NoError(t, err)
	_, err = f.manager.Pin(ctx, "tv-1")
	require.NoError(t, err)
	assert.True(t, f.manager.Pinned("tv-1"))

	_, err = f.manager.Open(ctx, "tv-1", nil)
	require.NoError(t, err)
	f.manager.Release("tv-1")
	_, ok := f.manager.Get("tv-1")
	assert.True(t, ok, "the pin keeps it mounted")

	assert.True(t, f.manager.Unpin("tv-1"))
	assert.False(t, f.manager.Unpin("tv-1"))
	_, ok = f.manager.Get("tv-1")
	assert.False(t, ok)
}
