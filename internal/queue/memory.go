// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"container/heap"
	"context"
	"sync"
)

// NewMemoryStore returns the in-process store for mode.
func NewMemoryStore(mode Mode) (Store, error) {
	switch mode {
	case ModeRaw:
		return NewMemoryList(), nil
	case ModeSet:
		return NewMemorySet(), nil
	case ModeSorted:
		return NewMemorySorted(), nil
	}
	return nil, ErrUnknownMode
}

// signal wakes blocked poppers. It holds at most one pending wakeup; a popper
// that takes an item while more remain passes the wakeup on.
type signal chan struct{}

func newSignal() signal { return make(signal, 1) }

func (s signal) notify() {
	select {
	case s <- struct{}{}:
	default:
	}
}

// popWith runs take under mu until it yields an item or ctx is done.
func popWith(ctx context.Context, mu *sync.Mutex, ready signal, take func() (Item, bool, bool)) (Item, error) {
	for {
		mu.Lock()
		item, ok, more := take()
		mu.Unlock()

		if ok {
			if more {
				ready.notify()
			}
			return item, nil
		}

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-ready:
		}
	}
}

// ------------------------------
// Raw: append-only FIFO list
// ------------------------------

type MemoryList struct {
	mu    sync.Mutex
	items []Item
	ready signal
}

func NewMemoryList() *MemoryList {
	return &MemoryList{ready: newSignal()}
}

func (l *MemoryList) Mode() Mode { return ModeRaw }

func (l *MemoryList) Push(ctx context.Context, items ...Item) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.items = append(l.items, items...)
	l.mu.Unlock()

	if len(items) > 0 {
		l.ready.notify()
	}
	return len(items), nil
}

func (l *MemoryList) Pop(ctx context.Context) (Item, error) {
	return popWith(ctx, &l.mu, l.ready, func() (Item, bool, bool) {
		if len(l.items) == 0 {
			return Item{}, false, false
		}
		item := l.items[0]
		l.items[0] = Item{}
		l.items = l.items[1:]
		return item, true, len(l.items) > 0
	})
}

func (l *MemoryList) Len(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.items)), nil
}

func (l *MemoryList) Items(ctx context.Context) ([]Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Item(nil), l.items...), nil
}

func (l *MemoryList) Ping(ctx context.Context) error { return nil }

// ------------------------------
// Set: insertion-ordered, deduplicated by content
// ------------------------------

type MemorySet struct {
	mu      sync.Mutex
	order   []string
	members map[string]Item
	ready   signal
}

func NewMemorySet() *MemorySet {
	return &MemorySet{
		members: make(map[string]Item),
		ready:   newSignal(),
	}
}

func (s *MemorySet) Mode() Mode { return ModeSet }

func (s *MemorySet) Push(ctx context.Context, items ...Item) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	added := 0
	for _, item := range items {
		key := string(item.Value)
		if _, exists := s.members[key]; exists {
			continue
		}
		s.members[key] = Item{Value: item.Value}
		s.order = append(s.order, key)
		added++
	}
	s.mu.Unlock()

	if added > 0 {
		s.ready.notify()
	}
	return added, nil
}

func (s *MemorySet) Pop(ctx context.Context) (Item, error) {
	return popWith(ctx, &s.mu, s.ready, func() (Item, bool, bool) {
		if len(s.order) == 0 {
			return Item{}, false, false
		}
		key := s.order[0]
		s.order = s.order[1:]
		item := s.members[key]
		delete(s.members, key)
		return item, true, len(s.order) > 0
	})
}

func (s *MemorySet) Len(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.order)), nil
}

func (s *MemorySet) Items(ctx context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, 0, len(s.order))
	for _, key := range s.order {
		items = append(items, s.members[key])
	}
	return items, nil
}

func (s *MemorySet) Ping(ctx context.Context) error { return nil }

// ------------------------------
// Sorted: min-heap on priority, one entry per value
// ------------------------------

type sortedEntry struct {
	item  Item
	seq   uint64
	index int
}

type entryHeap []*sortedEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].item.Priority == h[j].item.Priority {
		return h[i].seq < h[j].seq
	}
	return h[i].item.Priority < h[j].item.Priority
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*sortedEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

type MemorySorted struct {
	mu    sync.Mutex
	heap  entryHeap
	index map[string]*sortedEntry
	seq   uint64
	ready signal
}

func NewMemorySorted() *MemorySorted {
	return &MemorySorted{
		index: make(map[string]*sortedEntry),
		ready: newSignal(),
	}
}

func (s *MemorySorted) Mode() Mode { return ModeSorted }

// Push inserts new values and updates the priority of values already pending.
func (s *MemorySorted) Push(ctx context.Context, items ...Item) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	added := 0
	for _, item := range items {
		key := string(item.Value)
		if e, exists := s.index[key]; exists {
			e.item.Priority = item.Priority
			heap.Fix(&s.heap, e.index)
			continue
		}
		s.seq++
		e := &sortedEntry{item: item, seq: s.seq}
		heap.Push(&s.heap, e)
		s.index[key] = e
		added++
	}
	s.mu.Unlock()

	if len(items) > 0 {
		s.ready.notify()
	}
	return added, nil
}

func (s *MemorySorted) Pop(ctx context.Context) (Item, error) {
	return popWith(ctx, &s.mu, s.ready, func() (Item, bool, bool) {
		if s.heap.Len() == 0 {
			return Item{}, false, false
		}
		e := heap.Pop(&s.heap).(*sortedEntry)
		delete(s.index, string(e.item.Value))
		return e.item, true, s.heap.Len() > 0
	})
}

func (s *MemorySorted) Len(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.heap.Len()), nil
}

// Items returns pending entries in ascending priority order.
func (s *MemorySorted) Items(ctx context.Context) ([]Item, error) {
	s.mu.Lock()
	snapshot := make(entryHeap, len(s.heap))
	for i, e := range s.heap {
		snapshot[i] = &sortedEntry{item: e.item, seq: e.seq, index: i}
	}
	s.mu.Unlock()

	items := make([]Item, 0, len(snapshot))
	for snapshot.Len() > 0 {
		items = append(items, heap.Pop(&snapshot).(*sortedEntry).item)
	}
	return items, nil
}

func (s *MemorySorted) Ping(ctx context.Context) error { return nil }
