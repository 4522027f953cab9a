package changefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisFeed fans change notifications out across instances over Redis pub/sub.
// When Redis cannot be reached at start it degrades to an in-memory feed, which
// still serves the displays of this instance.
type RedisFeed struct {
	client   *redis.Client
	nodeID   string
	logger   zerolog.Logger
	fallback *Memory

	useFallback bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisFeed(client *redis.Client, nodeID string, logger zerolog.Logger) *RedisFeed {
	ctx, cancel := context.WithCancel(context.Background())
	rf := &RedisFeed{
		client:   client,
		nodeID:   nodeID,
		logger:   logger,
		fallback: NewMemory(),
		ctx:      ctx,
		cancel:   cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if client == nil {
		rf.useFallback = true
	} else if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("[changefeed] redis unavailable, using in-memory fallback")
		rf.useFallback = true
	}
	return rf
}

func (rf *RedisFeed) Subscribe(ctx context.Context, onChange func()) (Unsubscribe, error) {
	if rf.useFallback {
		return rf.fallback.Subscribe(ctx, onChange)
	}

	pubsub := rf.client.Subscribe(rf.ctx, Channel)
	// Wait for the subscription confirmation so a dead connection surfaces here.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel, err)
	}

	done := make(chan struct{})
	rf.wg.Add(1)
	go rf.receive(pubsub, onChange, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}, nil
}

func (rf *RedisFeed) receive(pubsub *redis.PubSub, onChange func(), done <-chan struct{}) {
	defer rf.wg.Done()

	ch := pubsub.Channel()
	for {
		select {
		case <-rf.ctx.Done():
			return
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := unmarshalMessage([]byte(msg.Payload)); err != nil {
				rf.logger.Warn().Err(err).Msg("[changefeed] malformed redis message, refreshing anyway")
			}
			onChange()
		}
	}
}

func (rf *RedisFeed) Publish(ctx context.Context) error {
	if rf.useFallback {
		return rf.fallback.Publish(ctx)
	}
	data, err := marshalMessage(rf.nodeID)
	if err != nil {
		return err
	}
	if err := rf.client.Publish(ctx, Channel, data).Err(); err != nil {
		rf.logger.Error().Err(err).Msg("[changefeed] redis publish failed")
		return fmt.Errorf("publish %s: %w", Channel, err)
	}
	return nil
}

// Degraded reports whether the feed runs on the in-memory fallback.
func (rf *RedisFeed) Degraded() bool { return rf.useFallback }

func (rf *RedisFeed) Close() error {
	rf.cancel()
	rf.wg.Wait()
	return nil
}

var (
	_ Feed     = (*RedisFeed)(nil)
	_ Notifier = (*RedisFeed)(nil)
)
