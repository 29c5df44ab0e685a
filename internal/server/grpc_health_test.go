// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/hive-dispatch/internal/jobs"
	"github.com/hive-dispatch/internal/queue"
)

func dialHealth(t *testing.T, js *jobs.JobStore) (healthpb.HealthClient, *HealthReporter) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv, reporter := NewGRPCServer(js)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return healthpb.NewHealthClient(conn), reporter
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) failed: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthReporter_Serving(t *testing.T) {
	js, err := jobs.NewJobStore(testRoutes, jobs.MemoryBackend())
	if err != nil {
		t.Fatalf("NewJobStore failed: %v", err)
	}
	client, reporter := dialHealth(t, js)
	reporter.Refresh(context.Background())

	for _, service := range []string{"", "test_raw", "test_set", "test_sorted_set"} {
		if got := check(t, client, service); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("service %q: expected SERVING, got %s", service, got)
		}
	}
}

func TestHealthReporter_NotServingWhenStoreDown(t *testing.T) {
	js, err := jobs.NewJobStore(map[string]string{"q": "raw"}, func(name string, mode queue.Mode) (queue.Store, error) {
		return downStore{queue.NewMemoryList()}, nil
	})
	if err != nil {
		t.Fatalf("NewJobStore failed: %v", err)
	}
	client, reporter := dialHealth(t, js)
	reporter.Refresh(context.Background())

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING overall, got %s", got)
	}
	if got := check(t, client, "q"); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING for q, got %s", got)
	}
}
