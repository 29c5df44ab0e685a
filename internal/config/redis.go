// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"context"
	"os"
	"strconv"

	"github.com/hive-dispatch/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	DB        int    `mapstructure:"db"`
	Password  string `mapstructure:"password"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DefaultRedisConfig reads REDIS_ADDR (default: 127.0.0.1:6379), REDIS_DB
// (default: 0) and REDIS_PASSWORD (optional) from the environment.
func DefaultRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		n, err := strconv.Atoi(dbStr)
		if err != nil {
			logger.Warnf("DefaultRedisConfig: invalid REDIS_DB value '%s', using default 0", dbStr)
		} else {
			db = n
		}
	}

	return RedisConfig{
		Addr:      addr,
		DB:        db,
		Password:  os.Getenv("REDIS_PASSWORD"),
		KeyPrefix: "dispatch:queue:",
	}
}

// NewRedisClient creates a Redis client and verifies the connection.
// Returns a ready-to-use Redis client or an error.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	logger.Printf("NewRedisClient: addr=%s db=%d passwordSet=%v", cfg.Addr, cfg.DB, cfg.Password != "")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Errorf("NewRedisClient: failed to ping Redis: %v", err)
		client.Close()
		return nil, err
	}

	logger.Printf("NewRedisClient: successfully connected to Redis")
	return client, nil
}
