/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dashboard-core-go/internal/models"
)

// Backend names accepted in STORE_BACKEND and RATE_LIMIT_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendStore  = "store"
	BackendRedis  = "redis"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	mongoConnectTimeout, err := getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	pollingInterval, err := getEnvDuration("ORACLE_POLLING_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := getEnvDuration("ORACLE_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	defaultWindow, err := getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Store: models.StoreConfig{
			Backend:          getEnvString("STORE_BACKEND", BackendSQLite),
			RateLimitBackend: getEnvString("RATE_LIMIT_BACKEND", BackendStore),
		},
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "dashboard.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Mongo: models.MongoConfig{
			URI:            getEnvString("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnvString("MONGO_DATABASE", "dashboard"),
			ConnectTimeout: mongoConnectTimeout,
		},
		Redis: models.RedisConfig{
			Addr:      getEnvString("REDIS_ADDR", "localhost:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnvString("REDIS_KEY_PREFIX", "dashboard:rl:"),
		},
		Oracle: models.OracleConfig{
			FeedURL:         getEnvString("ORACLE_FEED_URL", "https://hermes.pyth.network"),
			FeedsFile:       getEnvString("ORACLE_FEEDS_FILE", "feeds.yaml"),
			PollingInterval: pollingInterval,
			RequestTimeout:  requestTimeout,
		},
		RateLimit: models.RateLimitConfig{
			DefaultLimit:   getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 60),
			DefaultWindow:  defaultWindow,
			SweepEnabled:   getEnvBool("RATE_LIMIT_SWEEP_ENABLED", true),
			SweepInterval:  sweepInterval,
			SweepBatchSize: getEnvInt("RATE_LIMIT_SWEEP_BATCH_SIZE", 500),
		},
		Fees: models.FeeLedgerConfig{
			MaxTotalsRetries: getEnvInt("FEE_TOTALS_MAX_RETRIES", 8),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	switch cfg.Store.Backend {
	case BackendSQLite, BackendMongo:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: expected %s or %s", cfg.Store.Backend, BackendSQLite, BackendMongo)
	}

	switch cfg.Store.RateLimitBackend {
	case BackendStore, BackendRedis:
	default:
		return fmt.Errorf("invalid RATE_LIMIT_BACKEND %q: expected %s or %s", cfg.Store.RateLimitBackend, BackendStore, BackendRedis)
	}

	if cfg.Oracle.PollingInterval <= 0 {
		return fmt.Errorf("ORACLE_POLLING_INTERVAL must be positive, got %v", cfg.Oracle.PollingInterval)
	}
	if cfg.RateLimit.DefaultLimit < 1 {
		return fmt.Errorf("RATE_LIMIT_DEFAULT_LIMIT must be at least 1, got %d", cfg.RateLimit.DefaultLimit)
	}
	if cfg.RateLimit.DefaultWindow < time.Millisecond {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1ms, got %v", cfg.RateLimit.DefaultWindow)
	}
	if cfg.RateLimit.SweepInterval <= 0 {
		return fmt.Errorf("RATE_LIMIT_SWEEP_INTERVAL must be positive, got %v", cfg.RateLimit.SweepInterval)
	}
	if cfg.RateLimit.SweepBatchSize < 1 {
		return fmt.Errorf("RATE_LIMIT_SWEEP_BATCH_SIZE must be at least 1, got %d", cfg.RateLimit.SweepBatchSize)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
