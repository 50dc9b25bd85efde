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

package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dashboard-core-go/internal/metrics"
	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/store"

	"go.uber.org/zap"
)

const (
	resultAllowed  = "allowed"
	resultRejected = "rejected"
)

// Limiter is a fixed-window rate limiter over a shared WindowStore. It holds
// no per-key state of its own.
type Limiter struct {
	store   store.WindowStore
	metrics *metrics.Metrics
}

func NewLimiter(windowStore store.WindowStore, m *metrics.Metrics) *Limiter {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Limiter{store: windowStore, metrics: m}
}

// windowBounds returns the start of the window containing now, when it
// resets, and when it becomes eligible for deletion.
func windowBounds(now time.Time, window time.Duration) (start, resetAt, expiresAt time.Time) {
	windowMs := window.Milliseconds()
	nowMs := now.UnixMilli()

	startMs := nowMs / windowMs * windowMs
	if nowMs < 0 && nowMs%windowMs != 0 {
		startMs -= windowMs
	}

	start = time.UnixMilli(startMs).UTC()
	resetAt = start.Add(window)
	expiresAt = resetAt.Add(window)
	return start, resetAt, expiresAt
}

// Consume counts one request against key in the window containing now.
// Requests over the limit are rejected without being counted.
func (l *Limiter) Consume(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (models.RateDecision, error) {
	if strings.TrimSpace(key) == "" {
		return models.RateDecision{}, fmt.Errorf("%w: rate limit key is required", store.ErrInvalidArgument)
	}
	if limit < 1 {
		return models.RateDecision{}, fmt.Errorf("%w: limit must be positive, got %d", store.ErrInvalidArgument, limit)
	}
	if window < time.Millisecond {
		return models.RateDecision{}, fmt.Errorf("%w: window must be at least 1ms, got %v", store.ErrInvalidArgument, window)
	}

	start, resetAt, expiresAt := windowBounds(now, window)

	created, err := l.store.CreateWindow(ctx, key, start, expiresAt)
	if err != nil {
		return models.RateDecision{}, fmt.Errorf("%w: create window: %w", store.ErrUnavailable, err)
	}
	if created {
		return l.allow(key, limit-1, resetAt), nil
	}

	count, ok, err := l.store.IncrementWindow(ctx, key, start, limit)
	if err != nil {
		return models.RateDecision{}, fmt.Errorf("%w: increment window: %w", store.ErrUnavailable, err)
	}
	if ok {
		return l.allow(key, limit-count, resetAt), nil
	}

	zap.L().Debug("Rate limit exceeded",
		zap.String("key", key),
		zap.Int("limit", limit),
		zap.Time("reset_at", resetAt))
	l.metrics.RateDecisions.WithLabelValues(resultRejected).Inc()
	return models.RateDecision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
}

func (l *Limiter) allow(key string, remaining int, resetAt time.Time) models.RateDecision {
	if remaining < 0 {
		remaining = 0
	}
	l.metrics.RateDecisions.WithLabelValues(resultAllowed).Inc()
	return models.RateDecision{Allowed: true, Remaining: remaining, ResetAt: resetAt}
}

// Allow consumes one request for identity under rule.
func (l *Limiter) Allow(ctx context.Context, rule Rule, identity string, now time.Time) (models.RateDecision, error) {
	if strings.TrimSpace(identity) == "" {
		return models.RateDecision{}, fmt.Errorf("%w: identity is required", store.ErrInvalidArgument)
	}
	return l.Consume(ctx, rule.Key(identity), rule.Limit, rule.Window, now)
}

// Sweep deletes up to batchSize windows whose expiry is strictly before now.
func (l *Limiter) Sweep(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("%w: batch size must be positive, got %d", store.ErrInvalidArgument, batchSize)
	}

	deleted, err := l.store.DeleteExpiredWindows(ctx, now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired windows: %w", store.ErrUnavailable, err)
	}
	if deleted > 0 {
		l.metrics.WindowsSwept.Add(float64(deleted))
	}
	return deleted, nil
}
