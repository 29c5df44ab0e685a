// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hive-dispatch/internal/jobs"
	"github.com/hive-dispatch/internal/logger"
)

// HealthReporter publishes store reachability through the standard gRPC
// health service: "" for the whole server plus one service name per queue.
type HealthReporter struct {
	health *health.Server
	store  *jobs.JobStore
}

// NewGRPCServer creates a gRPC server with the health service registered.
func NewGRPCServer(store *jobs.JobStore, opts ...grpc.ServerOption) (*grpc.Server, *HealthReporter) {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return srv, &HealthReporter{health: hs, store: store}
}

// Refresh pings every queue's store once and updates serving statuses.
func (h *HealthReporter) Refresh(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING

	for _, name := range h.store.Names() {
		status := healthpb.HealthCheckResponse_SERVING
		store, err := h.store.Store(name)
		if err == nil {
			err = store.Ping(ctx)
		}
		if err != nil {
			logger.Warnf("HealthReporter: queue %s not serving: %v", name, err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
		h.health.SetServingStatus(name, status)
	}

	h.health.SetServingStatus("", overall)
}

// Run refreshes statuses every interval until ctx is cancelled, then marks
// everything NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	h.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}
