// Package config loads roster settings from ~/.roster and the environment.
package config

import (
	"os"
	"strconv"
)

// Environment variables that override the YAML configuration.
const (
	EnvPort           = "ROSTER_PORT"
	EnvStorageBackend = "ROSTER_STORAGE_BACKEND"
	EnvDatabaseURL    = "ROSTER_DATABASE_URL"
	EnvRedisAddr      = "ROSTER_REDIS_ADDR"
	EnvAMQPURL        = "ROSTER_AMQP_URL"
	EnvDebug          = "ROSTER_DEBUG"
)

// ApplyEnv overrides cfg with any ROSTER_* variables that are set.
func ApplyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt(EnvPort, cfg.Daemon.Port)
	cfg.Storage.Backend = getEnv(EnvStorageBackend, cfg.Storage.Backend)
	cfg.Storage.Postgres.URL = getEnv(EnvDatabaseURL, cfg.Storage.Postgres.URL)
	cfg.Storage.Redis.Addr = getEnv(EnvRedisAddr, cfg.Storage.Redis.Addr)

	if url := getEnv(EnvAMQPURL, ""); url != "" {
		cfg.Events.AMQPURL = url
		cfg.Events.Enabled = true
	}
	if getEnvBool(EnvDebug, false) {
		cfg.Daemon.LogLevel = "debug"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
