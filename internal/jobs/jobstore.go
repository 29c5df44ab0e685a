// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hive-dispatch/internal/logger"
	"github.com/hive-dispatch/internal/queue"
)

// StoreFactory builds the store behind a named queue.
type StoreFactory func(name string, mode queue.Mode) (queue.Store, error)

// MemoryBackend keeps every queue in process memory.
func MemoryBackend() StoreFactory {
	return func(name string, mode queue.Mode) (queue.Store, error) {
		return queue.NewMemoryStore(mode)
	}
}

// RedisBackend keeps each queue under prefix+name in Redis.
func RedisBackend(client *redis.Client, prefix string) StoreFactory {
	if prefix == "" {
		prefix = queue.DefaultKeyPrefix
	}
	return func(name string, mode queue.Mode) (queue.Store, error) {
		return queue.NewRedisStore(client, mode, prefix+name)
	}
}

// Receipt confirms that a submission was handed to the store.
type Receipt struct {
	Queue       string     `json:"queue"`
	Mode        queue.Mode `json:"mode"`
	Submitted   int        `json:"submitted"`
	Accepted    int        `json:"accepted"`
	RequestedAt time.Time  `json:"requestedAt"`
}

// QueueStats describes one configured queue.
type QueueStats struct {
	Name   string     `json:"name"`
	Mode   queue.Mode `json:"mode"`
	Length int64      `json:"length"`
}

// JobStore routes submissions and dequeues to the store of each named queue.
type JobStore struct {
	stores map[string]queue.Store
	names  []string
}

// NewJobStore creates one store per route (queue name -> mode name).
func NewJobStore(routes map[string]string, factory StoreFactory) (*JobStore, error) {
	js := &JobStore{stores: make(map[string]queue.Store, len(routes))}

	for name, modeName := range routes {
		mode, err := queue.ParseMode(modeName)
		if err != nil {
			return nil, fmt.Errorf("queue %s: %w", name, err)
		}
		store, err := factory(name, mode)
		if err != nil {
			return nil, fmt.Errorf("queue %s: %w", name, err)
		}
		js.stores[name] = store
		js.names = append(js.names, name)
	}
	sort.Strings(js.names)

	logger.Printf("NewJobStore: queues=%v", js.names)
	return js, nil
}

// Names returns the configured queue names in sorted order.
func (js *JobStore) Names() []string {
	return append([]string(nil), js.names...)
}

// Store returns the store behind a queue.
func (js *JobStore) Store(name string) (queue.Store, error) {
	store, ok := js.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", queue.ErrUnknownQueue, name)
	}
	return store, nil
}

// Enqueue converts payload into items and pushes them to the queue's store.
// A priority map may only go to a sorted queue, and lists only to raw or set queues.
func (js *JobStore) Enqueue(ctx context.Context, name string, payload Payload) (Receipt, error) {
	store, err := js.Store(name)
	if err != nil {
		return Receipt{}, err
	}

	if payload == nil {
		return Receipt{}, queue.ErrEmptyPayload
	}
	if payload.Sorted() != (store.Mode() == queue.ModeSorted) {
		return Receipt{}, fmt.Errorf("%w: %T to %s queue %s", queue.ErrPayloadMismatch, payload, store.Mode(), name)
	}

	items, err := payload.Items()
	if err != nil {
		return Receipt{}, err
	}

	accepted, err := store.Push(ctx, items...)
	if err != nil {
		return Receipt{}, fmt.Errorf("enqueue %s: %w", name, err)
	}

	return Receipt{
		Queue:       name,
		Mode:        store.Mode(),
		Submitted:   len(items),
		Accepted:    accepted,
		RequestedAt: time.Now(),
	}, nil
}

// Dequeue blocks until the queue yields an item and wraps it in a Job.
func (js *JobStore) Dequeue(ctx context.Context, name string) (queue.Job, error) {
	store, err := js.Store(name)
	if err != nil {
		return queue.Job{}, err
	}

	item, err := store.Pop(ctx)
	if err != nil {
		return queue.Job{}, err
	}

	return queue.Job{
		ID:         uuid.New().String(),
		Queue:      name,
		Mode:       store.Mode(),
		Payload:    item.Value,
		Priority:   item.Priority,
		DequeuedAt: time.Now(),
	}, nil
}

// Source binds Dequeue to one queue for a worker pool.
func (js *JobStore) Source(name string) (*QueueSource, error) {
	if _, err := js.Store(name); err != nil {
		return nil, err
	}
	return &QueueSource{js: js, name: name}, nil
}

// Stats reports mode and pending length of every queue.
func (js *JobStore) Stats(ctx context.Context) ([]QueueStats, error) {
	stats := make([]QueueStats, 0, len(js.names))
	for _, name := range js.names {
		store := js.stores[name]
		n, err := store.Len(ctx)
		if err != nil {
			return nil, fmt.Errorf("length of %s: %w", name, err)
		}
		stats = append(stats, QueueStats{Name: name, Mode: store.Mode(), Length: n})
	}
	return stats, nil
}

// Pending returns a snapshot of the queue's pending items in dispatch order.
func (js *JobStore) Pending(ctx context.Context, name string) ([]queue.Item, error) {
	store, err := js.Store(name)
	if err != nil {
		return nil, err
	}
	return store.Items(ctx)
}

// Ping checks every store's backend.
func (js *JobStore) Ping(ctx context.Context) error {
	for _, name := range js.names {
		if err := js.stores[name].Ping(ctx); err != nil {
			return fmt.Errorf("ping %s: %w", name, err)
		}
	}
	return nil
}

// QueueSource dequeues jobs from a single queue.
type QueueSource struct {
	js   *JobStore
	name string
}

func (s *QueueSource) Queue() string { return s.name }

func (s *QueueSource) Dequeue(ctx context.Context) (queue.Job, error) {
	return s.js.Dequeue(ctx, s.name)
}
