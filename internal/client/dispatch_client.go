// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hive-dispatch/internal/jobs"
	"github.com/hive-dispatch/internal/queue"
)

// Client submits payloads to a dispatch server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dispatch server returned %d: %s", e.StatusCode, e.Message)
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit sends payload to the named queue and returns the server's receipt.
func (c *Client) Submit(ctx context.Context, queueName string, payload jobs.Payload) (jobs.Receipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return jobs.Receipt{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	return c.SubmitJSON(ctx, queueName, body)
}

// SubmitJSON sends an already encoded payload document to the named queue.
func (c *Client) SubmitJSON(ctx context.Context, queueName string, body []byte) (jobs.Receipt, error) {
	var receipt jobs.Receipt
	err := c.do(ctx, http.MethodPost, "/api/v1/queues/"+url.PathEscape(queueName)+"/jobs", body, &receipt)
	return receipt, err
}

// Queues lists the server's queues with their modes and pending lengths.
func (c *Client) Queues(ctx context.Context) ([]jobs.QueueStats, error) {
	var stats []jobs.QueueStats
	err := c.do(ctx, http.MethodGet, "/api/v1/queues", nil, &stats)
	return stats, err
}

// Pending returns the queue's pending items in dispatch order.
func (c *Client) Pending(ctx context.Context, queueName string) ([]queue.Item, error) {
	var resp struct {
		Items []queue.Item `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/queues/"+url.PathEscape(queueName)+"/jobs", nil, &resp)
	return resp.Items, err
}

// Health returns nil when the server reports its stores reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
