// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/hive-dispatch/internal/config"
	"github.com/hive-dispatch/internal/database"
	"github.com/hive-dispatch/internal/jobs"
	"github.com/hive-dispatch/internal/logger"
	"github.com/hive-dispatch/internal/server"
	"github.com/hive-dispatch/internal/worker"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file")
	backend     = flag.String("backend", "", "Queue backend override: memory or redis")
	httpPort    = flag.Int("http-port", 0, "HTTP server port override")
	grpcPort    = flag.Int("grpc-port", 0, "gRPC health server port override")
	workerCount = flag.Int("worker-count", 0, "Workers per queue override")
)

func main() {
	flag.Parse()

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	logs, err := logger.Init(cfg.Log.File)
	if err != nil {
		logger.Fatalf("failed to open log file: %v", err)
	}
	defer logs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := jobs.MemoryBackend()
	if cfg.Backend == config.BackendRedis {
		redisClient, err := config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		factory = jobs.RedisBackend(redisClient, cfg.Redis.KeyPrefix)
	}

	store, err := jobs.NewJobStore(cfg.Queues, factory)
	if err != nil {
		logger.Fatalf("failed to create job store: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer db.Close()

	audit, err := database.NewAuditLogStore(db)
	if err != nil {
		logger.Fatalf("failed to init audit log: %v", err)
	}

	dispatcher := jobs.NewDispatcher(store, audit)
	registry := jobs.NewRegistry(store, cfg.Workers.Pause)
	handler := jobs.Audited(audit, registry.Handle)

	loader.Watch(func(next *config.Config) {
		logger.Printf("Config reloaded: worker pause %s -> %s", cfg.Workers.Pause, next.Workers.Pause)
		registry.SetPause(next.Workers.Pause)
	})

	var workers sync.WaitGroup
	for _, name := range store.Names() {
		src, err := store.Source(name)
		if err != nil {
			logger.Fatalf("failed to bind queue %s: %v", name, err)
		}
		workers.Add(1)
		go func(name string) {
			defer workers.Done()
			logger.Printf("Starting %d workers for queue %s", cfg.Workers.Concurrency, name)
			if err := worker.StartWorkers(ctx, src, handler, cfg.Workers.Concurrency); err != nil {
				logger.Errorf("worker error on queue %s: %v", name, err)
			}
		}(name)
	}

	grpcServer, healthReporter := server.NewGRPCServer(store)
	go healthReporter.Run(ctx, 10*time.Second)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
	if err != nil {
		logger.Fatalf("failed to listen on grpc port: %v", err)
	}

	go func() {
		logger.Printf("gRPC health server listening on %d", cfg.GRPC.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && err != grpc.ErrServerStopped {
			logger.Fatalf("gRPC server error: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           server.New(store, dispatcher, audit, logs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("HTTP server listening on %d (backend=%s queues=%v)", cfg.HTTP.Port, cfg.Backend, store.Names())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	waitForShutdown(grpcServer, httpServer, cancel)
	workers.Wait()
	logger.Printf("Shutdown complete")
}

func applyFlags(cfg *config.Config) {
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *httpPort != 0 {
		cfg.HTTP.Port = *httpPort
	}
	if *grpcPort != 0 {
		cfg.GRPC.Port = *grpcPort
	}
	if *workerCount != 0 {
		cfg.Workers.Concurrency = *workerCount
	}
}

func waitForShutdown(grpcServer *grpc.Server, httpServer *http.Server, workerCancel context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Printf("Shutting down servers...")

	workerCancel()

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}
}
