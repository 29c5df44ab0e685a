// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hive-dispatch/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the dispatch server configuration
type Config struct {
	Backend  string            `mapstructure:"backend"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Queues   map[string]string `mapstructure:"queues"`
	Workers  WorkerConfig      `mapstructure:"workers"`
	HTTP     PortConfig        `mapstructure:"http"`
	GRPC     PortConfig        `mapstructure:"grpc"`
	Database DatabaseConfig    `mapstructure:"database"`
	Log      LogConfig         `mapstructure:"log"`
}

// WorkerConfig holds worker pool settings
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Pause       time.Duration `mapstructure:"pause"`
}

// PortConfig holds a listener port
type PortConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig holds the SQLite audit database location
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds the log file location; empty means stdout only
type LogConfig struct {
	File string `mapstructure:"file"`
}

// DefaultQueues mirrors the queue layout of the sample payloads.
func DefaultQueues() map[string]string {
	return map[string]string{
		"test_raw":        "raw",
		"test_set":        "set",
		"test_sorted_set": "sorted",
	}
}

// Loader reads configuration from an optional YAML file, a .env file and the
// environment, and can watch the file for changes.
type Loader struct {
	v       *viper.Viper
	path    string
	envFile string
	mu      sync.Mutex
}

// NewLoader creates a loader for the YAML file at path. An empty path uses
// defaults and the environment only.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("backend", BackendRedis)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.key_prefix", "dispatch:queue:")
	v.SetDefault("workers.concurrency", 2)
	v.SetDefault("workers.pause", time.Second)
	v.SetDefault("http.port", 8080)
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("database.path", "./dispatch.db")
	v.SetDefault("log.file", "dispatch-server.log")

	v.SetEnvPrefix("DISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keep the plain Redis variables working alongside DISPATCH_REDIS_*.
	v.BindEnv("redis.addr", "DISPATCH_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.db", "DISPATCH_REDIS_DB", "REDIS_DB")
	v.BindEnv("redis.password", "DISPATCH_REDIS_PASSWORD", "REDIS_PASSWORD")

	if path != "" {
		v.SetConfigFile(path)
	}

	return &Loader{v: v, path: path, envFile: ".env"}
}

// WithEnvFile overrides the .env file consulted before reading the environment.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.envFile != "" {
		if _, err := os.Stat(l.envFile); err == nil {
			if err := godotenv.Load(l.envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", l.envFile, err)
			}
		}
	}

	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Queues) == 0 {
		cfg.Queues = DefaultQueues()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch re-reads the file whenever it changes and hands valid results to
// onChange. Invalid edits are logged and ignored.
func (l *Loader) Watch(onChange func(*Config)) {
	if l.path == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		logger.Printf("Config file changed: %s (%s)", e.Name, e.Op)

		l.mu.Lock()
		cfg, err := l.decode()
		l.mu.Unlock()
		if err != nil {
			logger.Warnf("Ignoring invalid config change: %v", err)
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// Validate checks settings the server cannot run without.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid backend %q: want %q or %q", c.Backend, BackendMemory, BackendRedis)
	}

	for name, mode := range c.Queues {
		if name == "" {
			return fmt.Errorf("queue with empty name")
		}
		switch mode {
		case "raw", "set", "sorted":
		default:
			return fmt.Errorf("queue %s: invalid mode %q", name, mode)
		}
	}

	if c.Workers.Concurrency < 1 {
		return fmt.Errorf("workers.concurrency must be at least 1, got %d", c.Workers.Concurrency)
	}
	if c.Workers.Pause < 0 {
		return fmt.Errorf("workers.pause must not be negative, got %s", c.Workers.Pause)
	}
	return nil
}
