// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hive-dispatch/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RedisList implements raw mode on a Redis list.
type RedisList struct {
	redisBase
}

func (r *RedisList) Mode() Mode { return ModeRaw }

// Push appends items using RPUSH.
func (r *RedisList) Push(ctx context.Context, items ...Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	if err := r.client.RPush(ctx, r.key, memberStrings(items)...).Err(); err != nil {
		logger.Errorf("RedisList.Push: key=%s failed to push: %v", r.key, err)
		return 0, fmt.Errorf("rpush %s: %w", r.key, err)
	}
	return len(items), nil
}

// Pop blocks on BLPOP in bounded slices until an item arrives or ctx is done.
func (r *RedisList) Pop(ctx context.Context) (Item, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Item{}, err
		}

		val, err := r.client.BLPop(ctx, r.popTimeout(), r.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Item{}, ctxErr
			}
			logger.Errorf("RedisList.Pop: key=%s failed to pop: %v", r.key, err)
			return Item{}, fmt.Errorf("blpop %s: %w", r.key, err)
		}

		if len(val) < 2 {
			return Item{}, fmt.Errorf("blpop %s: expected 2 elements, got %d", r.key, len(val))
		}
		return Item{Value: json.RawMessage(val[1])}, nil
	}
}

func (r *RedisList) Len(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}

func (r *RedisList) Items(ctx context.Context) ([]Item, error) {
	vals, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", r.key, err)
	}

	items := make([]Item, len(vals))
	for i, v := range vals {
		items[i] = Item{Value: json.RawMessage(v)}
	}
	return items, nil
}
