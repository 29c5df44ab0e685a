// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hive-dispatch/internal/logger"
	"github.com/hive-dispatch/internal/queue"
)

// HandlerFunc processes a job. It should return an error if processing fails.
type HandlerFunc func(ctx context.Context, job queue.Job) error

// Source yields jobs for a pool. Dequeue blocks until a job is available.
type Source interface {
	Dequeue(ctx context.Context) (queue.Job, error)
}

// errorBackoff is how long a worker waits after a failed dequeue.
var errorBackoff = time.Second

// StartWorkers starts a pool of workers that process jobs from src and
// blocks until ctx is cancelled and every worker has returned.
// ctx: context for cancellation (workers will stop when context is cancelled)
// src: the source to dequeue jobs from
// handler: function to process each job
// workerCount: number of worker goroutines to start
func StartWorkers(ctx context.Context, src Source, handler HandlerFunc, workerCount int) error {
	if workerCount < 1 {
		return fmt.Errorf("workerCount must be at least 1, got %d", workerCount)
	}

	logger.Printf("StartWorkers: workerCount=%d", workerCount)

	var wg sync.WaitGroup
	wg.Add(workerCount)

	for i := 0; i < workerCount; i++ {
		workerID := i + 1
		go func() {
			defer wg.Done()
			workerLoop(ctx, src, handler, workerID)
		}()
	}

	wg.Wait()
	logger.Printf("StartWorkers: all workers stopped")
	return nil
}

// workerLoop is the main loop for a single worker.
func workerLoop(ctx context.Context, src Source, handler HandlerFunc, workerID int) {
	logger.Debugf("workerLoop: workerID=%d started", workerID)

	for {
		if ctx.Err() != nil {
			logger.Debugf("workerLoop: workerID=%d context cancelled, stopping", workerID)
			return
		}

		job, err := src.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Debugf("workerLoop: workerID=%d context cancelled during dequeue", workerID)
				return
			}
			logger.Errorf("workerLoop: workerID=%d dequeue error: %v, retrying", workerID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}

		logger.Debugf("workerLoop: workerID=%d processing job id=%s queue=%s", workerID, job.ID, job.Queue)

		if err := handler(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				logger.Debugf("workerLoop: workerID=%d job id=%s queue=%s interrupted by shutdown", workerID, job.ID, job.Queue)
				return
			}
			logger.Errorf("workerLoop: workerID=%d handler error for job id=%s queue=%s: %v", workerID, job.ID, job.Queue, err)
			continue
		}
	}
}
