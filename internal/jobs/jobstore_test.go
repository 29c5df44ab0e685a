// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hive-dispatch/internal/queue"
)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *fakeRecorder) Record(ctx context.Context, action, queueName, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, action+" "+queueName+" "+details)
	return nil
}

func (r *fakeRecorder) Entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

var testRoutes = map[string]string{
	"test_raw":        "raw",
	"test_set":        "set",
	"test_sorted_set": "sorted",
}

func backends(t *testing.T) map[string]StoreFactory {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]StoreFactory{
		"memory": MemoryBackend(),
		"redis":  RedisBackend(client, "test:"+t.Name()+":"),
	}
}

func newTestJobStore(t *testing.T, factory StoreFactory) *JobStore {
	t.Helper()
	js, err := NewJobStore(testRoutes, factory)
	if err != nil {
		t.Fatalf("NewJobStore failed: %v", err)
	}
	return js
}

func pendingValues(t *testing.T, js *JobStore, name string) []string {
	t.Helper()
	items, err := js.Pending(context.Background(), name)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it.Value)
	}
	return out
}

func TestJobStore_SetModeCollapsesDuplicates(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			js := newTestJobStore(t, factory)

			receipt, err := js.Enqueue(context.Background(), "test_set", RawList{{"a"}, {"b"}, {"a"}})
			if err != nil {
				t.Fatalf("Enqueue failed: %v", err)
			}
			if receipt.Submitted != 3 || receipt.Accepted != 2 {
				t.Errorf("Expected 3 submitted / 2 accepted, got %+v", receipt)
			}

			got := pendingValues(t, js, "test_set")
			if len(got) != 2 || got[0] != `"a"` || got[1] != `"b"` {
				t.Errorf(`Expected {"a","b"}, got %v`, got)
			}
		})
	}
}

func TestJobStore_RawModeKeepsDuplicates(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			js := newTestJobStore(t, factory)

			if _, err := js.Enqueue(context.Background(), "test_raw", RawList{{"a"}, {"b"}, {"a"}}); err != nil {
				t.Fatalf("Enqueue failed: %v", err)
			}

			count := 0
			for _, v := range pendingValues(t, js, "test_raw") {
				if v == `"a"` {
					count++
				}
			}
			if count != 2 {
				t.Errorf(`Expected "a" twice, got %d`, count)
			}
		})
	}
}

func TestJobStore_SortedModeRetrievalOrder(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			js := newTestJobStore(t, factory)

			if _, err := js.Enqueue(ctx, "test_sorted_set", PriorityMap{"a": 10, "b": -10}); err != nil {
				t.Fatalf("Enqueue failed: %v", err)
			}

			first, err := js.Dequeue(ctx, "test_sorted_set")
			if err != nil {
				t.Fatalf("Dequeue failed: %v", err)
			}
			second, err := js.Dequeue(ctx, "test_sorted_set")
			if err != nil {
				t.Fatalf("Dequeue failed: %v", err)
			}
			if string(first.Payload) != `"b"` || string(second.Payload) != `"a"` {
				t.Errorf("Expected [b a], got [%s %s]", first.Payload, second.Payload)
			}
			if first.Priority != -10 {
				t.Errorf("Expected priority -10, got %v", first.Priority)
			}
			if first.ID == "" || first.ID == second.ID {
				t.Errorf("Expected distinct job IDs, got %q and %q", first.ID, second.ID)
			}
			if first.Mode != queue.ModeSorted || first.Queue != "test_sorted_set" {
				t.Errorf("Unexpected job routing %s/%s", first.Queue, first.Mode)
			}
		})
	}
}

func TestJobStore_SortedModeResubmitUpdates(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			js := newTestJobStore(t, factory)

			if _, err := js.Enqueue(ctx, "test_sorted_set", PriorityMap{"a": 10}); err != nil {
				t.Fatalf("Enqueue failed: %v", err)
			}
			receipt, err := js.Enqueue(ctx, "test_sorted_set", PriorityMap{"a": -5})
			if err != nil {
				t.Fatalf("Enqueue failed: %v", err)
			}
			if receipt.Accepted != 0 {
				t.Errorf("Expected priority update, got %d new entries", receipt.Accepted)
			}

			items, err := js.Pending(ctx, "test_sorted_set")
			if err != nil {
				t.Fatalf("Pending failed: %v", err)
			}
			if len(items) != 1 || items[0].Priority != -5 {
				t.Errorf("Expected single entry at -5, got %+v", items)
			}
		})
	}
}

func TestJobStore_MappingRoundTripsThroughRaw(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			js := newTestJobStore(t, factory)

			if _, err := js.Enqueue(ctx, "test_raw", KeyValueList{{"url": "x", "meta": map[string]interface{}{"lang": "en"}}}); err != nil {
				t.Fatalf("Enqueue failed: %v", err)
			}

			job, err := js.Dequeue(ctx, "test_raw")
			if err != nil {
				t.Fatalf("Dequeue failed: %v", err)
			}
			if string(job.Payload) != `{"meta":{"lang":"en"},"url":"x"}` {
				t.Errorf("Payload changed in transit: %s", job.Payload)
			}
		})
	}
}

func TestJobStore_Errors(t *testing.T) {
	js := newTestJobStore(t, MemoryBackend())
	ctx := context.Background()

	tests := []struct {
		name    string
		queue   string
		payload Payload
		wantErr error
	}{
		{name: "unknown queue", queue: "nope", payload: RawList{{"a"}}, wantErr: queue.ErrUnknownQueue},
		{name: "map to raw", queue: "test_raw", payload: PriorityMap{"a": 1}, wantErr: queue.ErrPayloadMismatch},
		{name: "list to sorted", queue: "test_sorted_set", payload: RawList{{"a"}}, wantErr: queue.ErrPayloadMismatch},
		{name: "nil payload", queue: "test_set", payload: nil, wantErr: queue.ErrEmptyPayload},
		{name: "empty list", queue: "test_set", payload: KeyValueList{}, wantErr: queue.ErrEmptyPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := js.Enqueue(ctx, tt.queue, tt.payload); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := js.Dequeue(ctx, "nope"); !errors.Is(err, queue.ErrUnknownQueue) {
		t.Errorf("Expected ErrUnknownQueue from Dequeue, got %v", err)
	}
}

func TestNewJobStore_RejectsUnknownMode(t *testing.T) {
	if _, err := NewJobStore(map[string]string{"q": "fifo"}, MemoryBackend()); !errors.Is(err, queue.ErrUnknownMode) {
		t.Errorf("Expected ErrUnknownMode, got %v", err)
	}
}

func TestJobStore_Stats(t *testing.T) {
	js := newTestJobStore(t, MemoryBackend())
	ctx := context.Background()

	if _, err := js.Enqueue(ctx, "test_raw", RawList{{"a"}, {"a"}}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	stats, err := js.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("Expected 3 queues, got %d", len(stats))
	}
	for _, s := range stats {
		if s.Name == "test_raw" && s.Length != 2 {
			t.Errorf("Expected test_raw length 2, got %d", s.Length)
		}
	}
	if err := js.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestDispatcher_SubmitRecordsAudit(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(newTestJobStore(t, MemoryBackend()), rec)

	receipt, err := d.Submit(context.Background(), "test_set", KeyValueList{
		{"url": "https://techcrunch.com"},
		{"url": "https://mashable.com"},
		{"url": "https://techcrunch.com"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if receipt.Accepted != 2 {
		t.Errorf("Expected 2 accepted, got %d", receipt.Accepted)
	}

	entries := rec.Entries()
	if len(entries) != 1 || entries[0] != "SUBMIT test_set mode=set submitted=3 accepted=2" {
		t.Errorf("Unexpected audit entries %v", entries)
	}
}

func TestDispatcher_SubmitFailureNotAudited(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(newTestJobStore(t, MemoryBackend()), rec)

	if _, err := d.Submit(context.Background(), "missing", RawList{{"a"}}); err == nil {
		t.Fatal("Expected error for unknown queue")
	}
	if len(rec.Entries()) != 0 {
		t.Errorf("Expected no audit entries, got %v", rec.Entries())
	}
}
