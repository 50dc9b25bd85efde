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

package database

import (
	"context"
	"database/sql"
	"fmt"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Backend.
var _ store.Backend = (*Service)(nil)

// defaultTotalsRetries bounds the compare-and-swap loop on fee totals.
const defaultTotalsRetries = 8

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("%w: unable to ping database: %v", store.ErrUnavailable, err)
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	-- Latest two accepted prices per symbol
	CREATE TABLE IF NOT EXISTS price_states (
		symbol TEXT PRIMARY KEY,
		last_price TEXT NOT NULL,
		last_confidence TEXT NOT NULL,
		last_publish_time INTEGER NOT NULL,
		prev_price TEXT NOT NULL,
		prev_confidence TEXT NOT NULL,
		prev_publish_time INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	-- Append-only fee event log
	CREATE TABLE IF NOT EXISTS fee_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		signature TEXT NOT NULL,
		kind TEXT NOT NULL,
		tokens TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(signature, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_fee_events_user_id ON fee_events(user_id);

	-- Per-user, per-mint running totals (derived from fee_events)
	CREATE TABLE IF NOT EXISTS user_fee_totals (
		user_id TEXT NOT NULL,
		mint TEXT NOT NULL,
		amount_base TEXT NOT NULL DEFAULT '0',
		decimals INTEGER NOT NULL DEFAULT 0,
		symbol TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, mint)
	);

	-- Fixed-window rate limit counters
	CREATE TABLE IF NOT EXISTS rate_limit_windows (
		id TEXT PRIMARY KEY,
		bucket_key TEXT NOT NULL,
		window_start INTEGER NOT NULL,
		count INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		UNIQUE(bucket_key, window_start)
	);

	CREATE INDEX IF NOT EXISTS idx_rate_limit_windows_expires_at ON rate_limit_windows(expires_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
