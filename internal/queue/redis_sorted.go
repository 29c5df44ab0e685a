// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hive-dispatch/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RedisSorted implements sorted mode on a Redis sorted set. Equal priorities
// pop in lexical member order.
type RedisSorted struct {
	redisBase

	PollInterval time.Duration
}

func (r *RedisSorted) Mode() Mode { return ModeSorted }

// Push uses ZADD, so a value already pending gets its priority replaced.
func (r *RedisSorted) Push(ctx context.Context, items ...Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	members := make([]redis.Z, len(items))
	for i, item := range items {
		members[i] = redis.Z{Score: item.Priority, Member: string(item.Value)}
	}

	added, err := r.client.ZAdd(ctx, r.key, members...).Result()
	if err != nil {
		logger.Errorf("RedisSorted.Push: key=%s failed to add: %v", r.key, err)
		return 0, fmt.Errorf("zadd %s: %w", r.key, err)
	}
	return int(added), nil
}

// Pop polls ZPOPMIN until an item arrives or ctx is done. ZPOPMIN removes
// and returns the lowest score atomically, so concurrent poppers never share
// an item.
func (r *RedisSorted) Pop(ctx context.Context) (Item, error) {
	interval := r.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		zs, err := r.client.ZPopMin(ctx, r.key, 1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Item{}, ctxErr
			}
			logger.Errorf("RedisSorted.Pop: key=%s failed to pop: %v", r.key, err)
			return Item{}, fmt.Errorf("zpopmin %s: %w", r.key, err)
		}
		if len(zs) > 0 {
			member, ok := zs[0].Member.(string)
			if !ok {
				return Item{}, fmt.Errorf("zpopmin %s: unexpected member type %T", r.key, zs[0].Member)
			}
			return Item{Value: json.RawMessage(member), Priority: zs[0].Score}, nil
		}

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *RedisSorted) Len(ctx context.Context) (int64, error) {
	return r.client.ZCard(ctx, r.key).Result()
}

func (r *RedisSorted) Items(ctx context.Context) ([]Item, error) {
	zs, err := r.client.ZRangeWithScores(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange %s: %w", r.key, err)
	}

	items := make([]Item, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("zrange %s: unexpected member type %T", r.key, z.Member)
		}
		items = append(items, Item{Value: json.RawMessage(member), Priority: z.Score})
	}
	return items, nil
}
