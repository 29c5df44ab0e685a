// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hive-dispatch/internal/logger"
	"github.com/hive-dispatch/internal/queue"
)

// DefaultPause stands in for real work in the task stubs.
const DefaultPause = time.Second

// Task is a placeholder unit of work: it logs the payload, pauses and returns.
type Task struct {
	label string
	pause atomic.Int64

	// Logf receives the single line written per job. Defaults to logger.Printf.
	Logf func(format string, v ...interface{})
}

func newTask(label string, pause time.Duration) *Task {
	t := &Task{label: label, Logf: logger.Printf}
	t.SetPause(pause)
	return t
}

// NewRawTask handles jobs from raw queues.
func NewRawTask(pause time.Duration) *Task { return newTask("Raw", pause) }

// NewSetTask handles jobs from set queues.
func NewSetTask(pause time.Duration) *Task { return newTask("Set", pause) }

// NewSortedTask handles jobs from sorted queues.
func NewSortedTask(pause time.Duration) *Task { return newTask("Sorted Set", pause) }

// NewTaskForMode picks the task stub matching a queue mode.
func NewTaskForMode(mode queue.Mode, pause time.Duration) *Task {
	switch mode {
	case queue.ModeSet:
		return NewSetTask(pause)
	case queue.ModeSorted:
		return NewSortedTask(pause)
	default:
		return NewRawTask(pause)
	}
}

// Label is the payload prefix written for each job.
func (t *Task) Label() string { return t.label + " Payload" }

// Pause returns the current pause duration.
func (t *Task) Pause() time.Duration { return time.Duration(t.pause.Load()) }

// SetPause changes the pause for subsequent jobs. Negative values count as zero.
func (t *Task) SetPause(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.pause.Store(int64(d))
}

// Handle logs the payload and pauses. It returns ctx.Err() if cancelled mid-pause.
func (t *Task) Handle(ctx context.Context, job queue.Job) error {
	logf := t.Logf
	if logf == nil {
		logf = logger.Printf
	}
	logf("%s %s", t.Label(), job.Payload)

	pause := t.Pause()
	if pause == 0 {
		return nil
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
