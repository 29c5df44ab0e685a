// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hive-dispatch/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RedisSet implements set mode on a Redis set. Redis has no blocking SPOP, so
// Pop polls. Dispatch order among pending members is unspecified.
type RedisSet struct {
	redisBase

	PollInterval time.Duration
}

func (r *RedisSet) Mode() Mode { return ModeSet }

// Push adds items using SADD; members already present are absorbed.
func (r *RedisSet) Push(ctx context.Context, items ...Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	added, err := r.client.SAdd(ctx, r.key, memberStrings(items)...).Result()
	if err != nil {
		logger.Errorf("RedisSet.Push: key=%s failed to add: %v", r.key, err)
		return 0, fmt.Errorf("sadd %s: %w", r.key, err)
	}
	return int(added), nil
}

func (r *RedisSet) Pop(ctx context.Context) (Item, error) {
	interval := r.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		val, err := r.client.SPop(ctx, r.key).Result()
		if err == nil {
			return Item{Value: json.RawMessage(val)}, nil
		}
		if !errors.Is(err, redis.Nil) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Item{}, ctxErr
			}
			logger.Errorf("RedisSet.Pop: key=%s failed to pop: %v", r.key, err)
			return Item{}, fmt.Errorf("spop %s: %w", r.key, err)
		}

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RedisSet) Len(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, r.key).Result()
}

// Items returns the members sorted lexically, since Redis sets are unordered.
func (r *RedisSet) Items(ctx context.Context) ([]Item, error) {
	vals, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", r.key, err)
	}
	sort.Strings(vals)

	items := make([]Item, len(vals))
	for i, v := range vals {
		items[i] = Item{Value: json.RawMessage(v)}
	}
	return items, nil
}
