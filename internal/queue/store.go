// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Mode selects the dispatch semantics of a queue.
type Mode string

const (
	// ModeRaw keeps every submitted item, duplicates included, in FIFO order.
	ModeRaw Mode = "raw"
	// ModeSet collapses content-identical pending items into one entry.
	ModeSet Mode = "set"
	// ModeSorted dispatches items by ascending priority, most negative first.
	ModeSorted Mode = "sorted"
)

// ParseMode validates a mode name from configuration.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRaw, ModeSet, ModeSorted:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Item is one stored entry. Value is canonical JSON; Priority is only
// meaningful for sorted queues.
type Item struct {
	Value    json.RawMessage `json:"value"`
	Priority float64         `json:"priority,omitempty"`
}

// Job is a dequeued item handed to a worker.
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Mode       Mode            `json:"mode"`
	Payload    json.RawMessage `json:"payload"`
	Priority   float64         `json:"priority,omitempty"`
	DequeuedAt time.Time       `json:"dequeuedAt"`
}

// Store is the storage strategy behind a single queue.
type Store interface {
	// Mode reports the dispatch semantics implemented by the store.
	Mode() Mode

	// Push stores items and returns how many new entries were created.
	// Set duplicates and sorted priority updates do not count as new.
	Push(ctx context.Context, items ...Item) (int, error)

	// Pop blocks until an item is available, then removes and returns it.
	// Returns ctx.Err() if the context is cancelled first.
	Pop(ctx context.Context) (Item, error)

	// Len returns the number of pending entries.
	Len(ctx context.Context) (int64, error)

	// Items returns the pending entries in dispatch order without removing them.
	Items(ctx context.Context) ([]Item, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}

// Canonicalize re-encodes a JSON value with sorted object keys and no
// insignificant whitespace, so content-identical values compare equal.
func Canonicalize(raw json.RawMessage) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidPayload)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return json.RawMessage(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
