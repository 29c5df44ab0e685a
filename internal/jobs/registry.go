// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hive-dispatch/internal/logger"
	"github.com/hive-dispatch/internal/queue"
	"github.com/hive-dispatch/internal/worker"
)

// Registry routes jobs to the handler registered for their queue.
type Registry struct {
	handlers map[string]worker.HandlerFunc
	tasks    []*Task
}

// NewRegistry binds every queue in js to the task stub for its mode.
func NewRegistry(js *JobStore, pause time.Duration) *Registry {
	r := &Registry{handlers: make(map[string]worker.HandlerFunc)}
	for _, name := range js.Names() {
		store := js.stores[name]
		task := NewTaskForMode(store.Mode(), pause)
		r.tasks = append(r.tasks, task)
		r.Register(name, task.Handle)
	}
	return r
}

// Register sets the handler for a queue, replacing any previous one.
func (r *Registry) Register(queueName string, h worker.HandlerFunc) {
	r.handlers[queueName] = h
}

// SetPause updates the pause of every task stub created by NewRegistry.
func (r *Registry) SetPause(d time.Duration) {
	for _, t := range r.tasks {
		t.SetPause(d)
	}
}

// Handle dispatches job to its queue's handler. Jobs for queues without a
// handler are logged and dropped.
func (r *Registry) Handle(ctx context.Context, job queue.Job) error {
	h, ok := r.handlers[job.Queue]
	if !ok {
		logger.Warnf("Registry: no handler for queue %s, dropping job id=%s", job.Queue, job.ID)
		return nil
	}
	return h(ctx, job)
}

// Audited wraps h so every job leaves a PROCESS, FAIL or INTERRUPT audit entry.
func Audited(rec Recorder, h worker.HandlerFunc) worker.HandlerFunc {
	if rec == nil {
		return h
	}
	return func(ctx context.Context, job queue.Job) error {
		start := time.Now()
		err := h(ctx, job)

		action, details := ActionProcess, fmt.Sprintf("id=%s duration=%s", job.ID, time.Since(start).Round(time.Millisecond))
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			action, details = ActionInterrupt, fmt.Sprintf("id=%s", job.ID)
		default:
			action, details = ActionFail, fmt.Sprintf("id=%s error=%v", job.ID, err)
		}
		// The job's own context may already be cancelled at shutdown.
		if recErr := rec.Record(context.WithoutCancel(ctx), action, job.Queue, details); recErr != nil {
			logger.Warnf("Audited: failed to record %s for job id=%s: %v", action, job.ID, recErr)
		}
		return err
	}
}
