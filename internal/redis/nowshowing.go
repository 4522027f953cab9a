package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const nowShowingPrefix = "vibescreen:now_showing:"

// NowShowing is what a display had on screen at its last state change.
type NowShowing struct {
	Display   string    `json:"display"`
	State     string    `json:"state"`
	ItemID    string    `json:"itemId,omitempty"`
	Title     string    `json:"title,omitempty"`
	Type      string    `json:"type,omitempty"`
	Index     int       `json:"currentIndex"`
	ItemCount int       `json:"itemCount"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NowShowingCache keeps one entry per display so other nodes and dashboards
// can see what is playing without mounting the display themselves.
type NowShowingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewNowShowingCache(client *redis.Client, ttl time.Duration) *NowShowingCache {
	return &NowShowingCache{client: client, ttl: ttl}
}

func (c *NowShowingCache) Put(ctx context.Context, entry NowShowing) error {
	return SetJSON(ctx, c.client, nowShowingPrefix+entry.Display, entry, c.ttl)
}

func (c *NowShowingCache) Get(ctx context.Context, display string) (NowShowing, bool, error) {
	var entry NowShowing
	ok, err := GetJSON(ctx, c.client, nowShowingPrefix+display, &entry)
	return entry, ok, err
}

func (c *NowShowingCache) Delete(ctx context.Context, display string) error {
	return c.client.Del(ctx, nowShowingPrefix+display).Err()
}
