// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hive-dispatch/internal/queue"
)

// Payload is a batch of values submitted to one queue in a single call.
type Payload interface {
	// Items converts the payload into canonical store entries.
	Items() ([]queue.Item, error)

	// Sorted reports whether the payload carries priorities.
	Sorted() bool
}

// RawList is a list of entries for raw or set queues. A single-element entry
// such as ["https://mashable.com"] is stored as its element; other entries are
// stored as JSON arrays.
type RawList [][]interface{}

// KeyValueList is a list of structured records for raw or set queues. Each
// record is stored unchanged.
type KeyValueList []map[string]interface{}

// PriorityMap maps a value to its priority for sorted queues. Lower priorities
// are dispatched first.
type PriorityMap map[string]float64

func (p RawList) Sorted() bool      { return false }
func (p KeyValueList) Sorted() bool { return false }
func (p PriorityMap) Sorted() bool  { return true }

func (p RawList) Items() ([]queue.Item, error) {
	if len(p) == 0 {
		return nil, queue.ErrEmptyPayload
	}

	items := make([]queue.Item, 0, len(p))
	for i, entry := range p {
		var v interface{} = entry
		if len(entry) == 1 {
			v = entry[0]
		}
		it, err := encodeItem(v, 0)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

func (p KeyValueList) Items() ([]queue.Item, error) {
	if len(p) == 0 {
		return nil, queue.ErrEmptyPayload
	}

	items := make([]queue.Item, 0, len(p))
	for i, record := range p {
		it, err := encodeItem(record, 0)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Items returns entries ordered by value so submission is deterministic.
func (p PriorityMap) Items() ([]queue.Item, error) {
	if len(p) == 0 {
		return nil, queue.ErrEmptyPayload
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]queue.Item, 0, len(p))
	for _, k := range keys {
		it, err := encodeItem(k, p[k])
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", k, err)
		}
		items = append(items, it)
	}
	return items, nil
}

func encodeItem(v interface{}, priority float64) (queue.Item, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return queue.Item{}, fmt.Errorf("%w: %v", queue.ErrInvalidPayload, err)
	}
	canonical, err := queue.Canonicalize(data)
	if err != nil {
		return queue.Item{}, err
	}
	return queue.Item{Value: canonical, Priority: priority}, nil
}

// DecodePayload maps a JSON document onto a payload shape:
//   - an array of arrays or scalars becomes a RawList
//   - an array of objects becomes a KeyValueList
//   - an object of numbers becomes a PriorityMap
func DecodePayload(data []byte) (Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, queue.ErrEmptyPayload
	}

	switch data[0] {
	case '{':
		var raw map[string]*float64
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: priority map: %v", queue.ErrInvalidPayload, err)
		}
		if len(raw) == 0 {
			return nil, queue.ErrEmptyPayload
		}
		pm := make(PriorityMap, len(raw))
		for member, priority := range raw {
			if priority == nil {
				return nil, fmt.Errorf("%w: priority map: %q has no priority", queue.ErrInvalidPayload, member)
			}
			pm[member] = *priority
		}
		return pm, nil
	case '[':
		return decodeList(data)
	}
	return nil, fmt.Errorf("%w: expected a JSON array or object", queue.ErrInvalidPayload)
}

func decodeList(data []byte) (Payload, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", queue.ErrInvalidPayload, err)
	}
	if len(entries) == 0 {
		return nil, queue.ErrEmptyPayload
	}

	objects := 0
	for _, e := range entries {
		if e = bytes.TrimSpace(e); len(e) > 0 && e[0] == '{' {
			objects++
		}
	}

	switch objects {
	case len(entries):
		list := make(KeyValueList, len(entries))
		for i, e := range entries {
			if err := decodeNumbers(e, &list[i]); err != nil {
				return nil, fmt.Errorf("%w: record %d: %v", queue.ErrInvalidPayload, i, err)
			}
		}
		return list, nil
	case 0:
		list := make(RawList, len(entries))
		for i, e := range entries {
			var v interface{}
			if err := decodeNumbers(e, &v); err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", queue.ErrInvalidPayload, i, err)
			}
			if arr, ok := v.([]interface{}); ok {
				list[i] = arr
			} else {
				list[i] = []interface{}{v}
			}
		}
		return list, nil
	}
	return nil, fmt.Errorf("%w: list mixes records with other entries", queue.ErrInvalidPayload)
}

// decodeNumbers keeps numbers as json.Number so large integers survive.
func decodeNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
