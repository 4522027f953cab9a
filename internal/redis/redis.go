package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Rdb *redis.Client

// InitRedis creates the shared client and checks it can reach the server.
// The client is kept even when the ping fails so callers can decide to degrade.
func InitRedis(redisAddress string, redisUsername string, redisPassword string) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", redisAddress, err)
	}
	log.Info().Str("addr", redisAddress).Msg("[redis] connected")
	return nil
}

func Close() {
	if Rdb != nil {
		_ = Rdb.Close()
		Rdb = nil
	}
}

func SetJSON(ctx context.Context, client *redis.Client, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return client.Set(ctx, key, data, expiration).Err()
}

// GetJSON decodes key into dst. The bool is false when the key does not exist.
func GetJSON(ctx context.Context, client *redis.Client, key string, dst any) (bool, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
