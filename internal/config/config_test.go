// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hive-dispatch/internal/logger"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("").WithEnvFile("").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != BackendRedis {
		t.Errorf("Expected backend %s, got %s", BackendRedis, cfg.Backend)
	}
	if cfg.Workers.Pause != time.Second {
		t.Errorf("Expected 1s pause, got %s", cfg.Workers.Pause)
	}
	if cfg.Queues["test_sorted_set"] != "sorted" {
		t.Errorf("Expected default sorted queue, got %v", cfg.Queues)
	}
	if cfg.HTTP.Port != 8080 || cfg.GRPC.Port != 50051 {
		t.Errorf("Unexpected ports http=%d grpc=%d", cfg.HTTP.Port, cfg.GRPC.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
backend: memory
queues:
  crawl: set
  ranked: sorted
workers:
  concurrency: 4
  pause: 250ms
http:
  port: 9000
`)

	cfg, err := NewLoader(path).WithEnvFile("").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != BackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.Backend)
	}
	if len(cfg.Queues) != 2 || cfg.Queues["crawl"] != "set" {
		t.Errorf("Expected only configured queues, got %v", cfg.Queues)
	}
	if cfg.Workers.Concurrency != 4 || cfg.Workers.Pause != 250*time.Millisecond {
		t.Errorf("Unexpected workers config %+v", cfg.Workers)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("Expected http port 9000, got %d", cfg.HTTP.Port)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DISPATCH_BACKEND", "memory")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")

	cfg, err := NewLoader("").WithEnvFile("").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != BackendMemory {
		t.Errorf("Expected memory backend from env, got %s", cfg.Backend)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Expected REDIS_ADDR to apply, got %s", cfg.Redis.Addr)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "DISPATCH_WORKERS_CONCURRENCY=7\n")
	t.Setenv("DISPATCH_WORKERS_CONCURRENCY", "")
	os.Unsetenv("DISPATCH_WORKERS_CONCURRENCY")

	cfg, err := NewLoader("").WithEnvFile(envFile).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers.Concurrency != 7 {
		t.Errorf("Expected concurrency 7 from .env, got %d", cfg.Workers.Concurrency)
	}
}

func TestLoad_RejectsInvalidMode(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
queues:
  broken: fifo
`)
	if _, err := NewLoader(path).WithEnvFile("").Load(); err == nil {
		t.Error("Expected error for invalid queue mode")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Backend: BackendMemory,
			Queues:  DefaultQueues(),
			Workers: WorkerConfig{Concurrency: 1, Pause: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad backend", mutate: func(c *Config) { c.Backend = "kafka" }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Workers.Concurrency = 0 }, wantErr: true},
		{name: "negative pause", mutate: func(c *Config) { c.Workers.Pause = -time.Second }, wantErr: true},
		{name: "zero pause", mutate: func(c *Config) { c.Workers.Pause = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_ReloadsAndLogs(t *testing.T) {
	var out lockedBuffer
	l := logger.New(&out)
	logger.SetDefault(l)
	defer l.Close()

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "backend: memory\nworkers:\n  pause: 1s\n")

	loader := NewLoader(path).WithEnvFile("")
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	changed := make(chan *Config, 4)
	loader.Watch(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	writeFile(t, dir, "config.yaml", "backend: memory\nworkers:\n  pause: 2s\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Workers.Pause != 2*time.Second {
				continue
			}
			if !strings.Contains(out.String(), "[INFO] Config file changed") {
				t.Errorf("Expected reload in the shared log, got:\n%s", out.String())
			}
			return
		case <-deadline:
			t.Fatal("config change was not picked up")
		}
	}
}
