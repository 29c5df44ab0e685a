// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hive-dispatch/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyPrefix namespaces queue keys in Redis.
	DefaultKeyPrefix = "dispatch:queue:"

	defaultPopTimeout   = time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// redisBase holds what every Redis strategy shares.
type redisBase struct {
	client *redis.Client
	key    string

	// PopTimeout bounds each blocking pop so cancellation is noticed between calls.
	PopTimeout time.Duration
}

// NewRedisStore creates the Redis-backed store for mode under key.
func NewRedisStore(client *redis.Client, mode Mode, key string) (Store, error) {
	if key == "" {
		return nil, fmt.Errorf("redis store: empty key")
	}

	logger.Printf("NewRedisStore: mode=%s key=%s", mode, key)

	base := redisBase{client: client, key: key, PopTimeout: defaultPopTimeout}
	switch mode {
	case ModeRaw:
		return &RedisList{redisBase: base}, nil
	case ModeSet:
		return &RedisSet{redisBase: base, PollInterval: defaultPollInterval}, nil
	case ModeSorted:
		return &RedisSorted{redisBase: base, PollInterval: defaultPollInterval}, nil
	}
	return nil, ErrUnknownMode
}

func (b *redisBase) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *redisBase) popTimeout() time.Duration {
	if b.PopTimeout <= 0 {
		return defaultPopTimeout
	}
	return b.PopTimeout
}

func memberStrings(items []Item) []interface{} {
	values := make([]interface{}, len(items))
	for i, item := range items {
		values[i] = string(item.Value)
	}
	return values
}
