package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/vibescreen/internal/changefeed"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/config"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/db"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/mqtt"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/redis"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/storage"
)

const nowShowingTTL = 24 * time.Hour

// Environment is the set of backends one server process runs on.
type Environment struct {
	Config     *config.Config
	NodeID     string
	Store      db.Store
	Feed       changefeed.Feed
	Storage    storage.Storage
	NowShowing *redis.NowShowingCache
	MQTT       *mqtt.Client

	closers []func()
}

// LoadEnvironment connects every backend the configuration asks for. Optional
// backends (Redis, MQTT) that cannot be reached are logged and left out.
func LoadEnvironment(ctx context.Context, cfg *config.Config) (*Environment, error) {
	env := &Environment{Config: cfg, NodeID: cfg.NodeID}
	if env.NodeID == "" {
		env.NodeID = uuid.NewString()[:8]
	}

	if cfg.RedisAddress != "" {
		if err := redis.InitRedis(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword); err != nil {
			log.Warn().Err(err).Msg("[server] redis unreachable")
		} else {
			env.NowShowing = redis.NewNowShowingCache(redis.Rdb, nowShowingTTL)
		}
		env.closers = append(env.closers, redis.Close)
	}

	notifier, err := env.openFeed(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}

	if cfg.DatabaseURL != "" {
		if err := db.Init(cfg.DatabaseURL); err != nil {
			env.Close()
			return nil, err
		}
		env.closers = append(env.closers, func() { _ = db.DB.Close() })
		if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
			env.Close()
			return nil, fmt.Errorf("db migrate: %w", err)
		}
		env.Store = db.NewStore(db.DB, notifier)
	} else {
		log.Warn().Msg("[server] DATABASE_URL not set, content is kept in memory")
		env.Store = db.NewMemoryStore(notifier)
	}

	env.Storage, err = InitStorage(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}

	if cfg.MQTTBrokerURL != "" {
		client, err := mqtt.Connect(cfg.MQTTBrokerURL, "vibescreen-"+env.NodeID)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTTBrokerURL).Msg("[server] mqtt unavailable")
		} else {
			env.MQTT = client
			env.closers = append(env.closers, client.Close)
		}
	}
	return env, nil
}

// openFeed sets env.Feed and returns the notifier stores must call after a
// write, or nil when the database notifies on its own.
func (env *Environment) openFeed(cfg *config.Config) (changefeed.Notifier, error) {
	logger := log.With().Str("node", env.NodeID).Logger()

	switch cfg.ChangeFeed {
	case config.FeedPostgres:
		feed := changefeed.NewPostgresFeed(cfg.DatabaseURL, logger)
		env.Feed = feed
		env.closers = append(env.closers, func() { _ = feed.Close() })
		return nil, nil
	case config.FeedRedis:
		feed := changefeed.NewRedisFeed(redis.Rdb, env.NodeID, logger)
		if feed.Degraded() {
			logger.Warn().Msg("[server] change feed is local to this node until restart")
		}
		env.Feed = feed
		env.closers = append(env.closers, func() { _ = feed.Close() })
		return feed, nil
	case config.FeedNATS:
		feed, err := changefeed.NewNATSFeed(cfg.NATSURL, env.NodeID, logger)
		if err != nil {
			return nil, err
		}
		env.Feed = feed
		env.closers = append(env.closers, func() { _ = feed.Close() })
		return feed, nil
	default:
		feed := changefeed.NewMemory()
		env.Feed = feed
		return feed, nil
	}
}

// Close releases backends in reverse order of opening.
func (env *Environment) Close() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		env.closers[i]()
	}
	env.closers = nil
}
