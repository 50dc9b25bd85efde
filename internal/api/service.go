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

package api

import (
	"context"
	"fmt"

	"dashboard-core-go/internal/fees"
	"dashboard-core-go/internal/metrics"
	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/oracle"
	"dashboard-core-go/internal/ratelimit"
	"dashboard-core-go/internal/store"
)

// DashboardService bundles the fee ledger, rate limiter and price oracle over
// one set of stores.
type DashboardService struct {
	Fees    *fees.Service
	Limiter *ratelimit.Limiter
	Oracle  *oracle.Ingestor

	backend store.Backend
	windows store.WindowStore
}

func NewDashboardService(backend store.Backend, windows store.WindowStore, m *metrics.Metrics, cfg *models.Config) *DashboardService {
	if windows == nil {
		windows = backend
	}
	return &DashboardService{
		Fees:    fees.NewService(backend, m, cfg.Fees),
		Limiter: ratelimit.NewLimiter(windows, m),
		Oracle:  oracle.NewIngestor(backend, m),
		backend: backend,
		windows: windows,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *DashboardService) HealthCheck(ctx context.Context) error {
	if err := s.backend.Ping(ctx); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	if p, ok := s.windows.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("rate limit store health check failed: %w", err)
		}
	}
	return nil
}
