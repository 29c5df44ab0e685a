// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"context"
	"fmt"

	"github.com/hive-dispatch/internal/logger"
)

// Audit actions written by the dispatcher and the audited handler wrapper.
const (
	ActionSubmit  = "SUBMIT"
	ActionProcess = "PROCESS"
	ActionFail    = "FAIL"

	// ActionInterrupt marks a job whose handler was cut short by shutdown.
	ActionInterrupt = "INTERRUPT"
)

// Recorder persists audit entries. Implemented by database.AuditLogStore.
type Recorder interface {
	Record(ctx context.Context, action, queue, details string) error
}

// Dispatcher is the producer entry point.
type Dispatcher struct {
	store    *JobStore
	recorder Recorder
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(store *JobStore, recorder Recorder) *Dispatcher {
	return &Dispatcher{store: store, recorder: recorder}
}

// Submit requests enqueuing of payload on the named queue. The receipt
// confirms the store accepted the request; it says nothing about processing.
func (d *Dispatcher) Submit(ctx context.Context, queueName string, payload Payload) (Receipt, error) {
	receipt, err := d.store.Enqueue(ctx, queueName, payload)
	if err != nil {
		logger.Errorf("Submit: queue=%s failed: %v", queueName, err)
		return Receipt{}, err
	}

	logger.Printf("Job dispatched... queue=%s mode=%s submitted=%d accepted=%d",
		receipt.Queue, receipt.Mode, receipt.Submitted, receipt.Accepted)

	if d.recorder != nil {
		details := fmt.Sprintf("mode=%s submitted=%d accepted=%d", receipt.Mode, receipt.Submitted, receipt.Accepted)
		if err := d.recorder.Record(ctx, ActionSubmit, receipt.Queue, details); err != nil {
			logger.Warnf("Submit: failed to record audit entry: %v", err)
		}
	}
	return receipt, nil
}
