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

package fees

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dashboard-core-go/internal/metrics"
	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/money"
	"dashboard-core-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Submission outcomes used as metric labels.
const (
	outcomeRecorded        = "recorded"
	outcomeAggregateFailed = "aggregate_failed"
)

// Service records fee events and maintains the per-user totals cache.
type Service struct {
	store      store.FeeStore
	metrics    *metrics.Metrics
	maxRetries int
}

func NewService(feeStore store.FeeStore, m *metrics.Metrics, cfg models.FeeLedgerConfig) *Service {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Service{
		store:      feeStore,
		metrics:    m,
		maxRetries: cfg.MaxTotalsRetries,
	}
}

// RecordFees records the fees paid for one action. The (signature, kind) pair
// contributes to the user's totals at most once, however often it is submitted.
func (s *Service) RecordFees(ctx context.Context, userId, signature, kind string, tokens []models.FeeToken) (models.RecordResult, error) {
	userId = strings.TrimSpace(userId)
	signature = strings.TrimSpace(signature)
	kind = strings.TrimSpace(kind)
	if userId == "" || signature == "" || kind == "" {
		return models.RecordResult{}, fmt.Errorf("%w: user id, signature and kind are required", store.ErrInvalidArgument)
	}

	merged, err := mergeTokens(tokens)
	if err != nil {
		return models.RecordResult{}, err
	}
	if len(merged) == 0 {
		s.metrics.FeeSubmissions.WithLabelValues(models.ReasonZero).Inc()
		return models.RecordResult{Recorded: false, Reason: models.ReasonZero}, nil
	}

	event := &models.FeeEvent{
		UserId:    userId,
		Signature: signature,
		Kind:      kind,
		Tokens:    merged,
	}
	if err := s.store.InsertFeeEvent(ctx, event); err != nil {
		if errors.Is(err, store.ErrDuplicateFeeEvent) {
			zap.L().Debug("Fee event already recorded",
				zap.String("signature", signature),
				zap.String("kind", kind))
			s.metrics.FeeSubmissions.WithLabelValues(models.ReasonDuplicate).Inc()
			return models.RecordResult{Recorded: false, Reason: models.ReasonDuplicate}, nil
		}
		return models.RecordResult{}, fmt.Errorf("failed to insert fee event: %w", err)
	}

	// The event is durable from here on; a failed aggregate update only leaves
	// the totals cache behind, which Reconcile repairs.
	if err := s.store.AddFeeTotals(ctx, userId, totalsDeltas(merged), s.maxRetries); err != nil {
		zap.L().Error("Failed to update fee totals",
			zap.String("user_id", userId),
			zap.String("signature", signature),
			zap.String("kind", kind),
			zap.String("event_id", event.Id),
			zap.Error(err))
		s.metrics.FeeSubmissions.WithLabelValues(outcomeAggregateFailed).Inc()
	}

	zap.L().Info("Fee event recorded",
		zap.String("user_id", userId),
		zap.String("signature", signature),
		zap.String("kind", kind),
		zap.Int("tokens", len(merged)))
	s.metrics.FeeSubmissions.WithLabelValues(outcomeRecorded).Inc()
	return models.RecordResult{Recorded: true}, nil
}

// Totals returns the cached per-mint totals for a user.
func (s *Service) Totals(ctx context.Context, userId string) (models.FeeTotals, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrInvalidArgument)
	}
	return s.store.GetFeeTotals(ctx, userId)
}

// Reconcile rebuilds a user's totals from the fee event log and overwrites
// the cached aggregate.
func (s *Service) Reconcile(ctx context.Context, userId string) (models.FeeTotals, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrInvalidArgument)
	}

	events, err := s.store.ListFeeEvents(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee events: %w", err)
	}

	totals, err := sumEvents(events)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceFeeTotals(ctx, userId, totals); err != nil {
		return nil, fmt.Errorf("failed to replace fee totals: %w", err)
	}

	zap.L().Info("Fee totals reconciled",
		zap.String("user_id", userId),
		zap.Int("events", len(events)),
		zap.Int("mints", len(totals)))
	return totals, nil
}

type mergedToken struct {
	symbol   string
	decimals int
	amount   decimal.Decimal
}

// mergeTokens sums amounts per mint in first-seen order. Non-positive legs
// are dropped, decimals and symbol come from the first leg that sets them,
// and mints whose total rounds to zero base units are left out.
func mergeTokens(tokens []models.FeeToken) ([]models.FeeEventToken, error) {
	byMint := make(map[string]*mergedToken, len(tokens))
	var order []string

	for _, t := range tokens {
		mint := strings.TrimSpace(t.Mint)
		if mint == "" {
			return nil, fmt.Errorf("%w: token mint is required", store.ErrInvalidArgument)
		}
		if t.AmountUI.Sign() <= 0 {
			continue
		}

		m, ok := byMint[mint]
		if !ok {
			m = &mergedToken{}
			byMint[mint] = m
			order = append(order, mint)
		}
		m.amount = m.amount.Add(t.AmountUI)
		if m.decimals == 0 && t.Decimals != 0 {
			m.decimals = money.ClampDecimals(t.Decimals)
		}
		if m.symbol == "" {
			m.symbol = strings.TrimSpace(t.Symbol)
		}
	}

	merged := make([]models.FeeEventToken, 0, len(order))
	for _, mint := range order {
		m := byMint[mint]
		base := money.ToBaseUnits(m.amount, m.decimals)
		if !money.IsPositive(base) {
			continue
		}
		merged = append(merged, models.FeeEventToken{
			Mint:       mint,
			Symbol:     m.symbol,
			Decimals:   m.decimals,
			AmountUI:   m.amount.String(),
			AmountBase: base,
		})
	}
	return merged, nil
}

func totalsDeltas(tokens []models.FeeEventToken) []store.TotalsDelta {
	deltas := make([]store.TotalsDelta, 0, len(tokens))
	for _, t := range tokens {
		deltas = append(deltas, store.TotalsDelta{
			Mint:       t.Mint,
			Symbol:     t.Symbol,
			Decimals:   t.Decimals,
			AmountBase: t.AmountBase,
		})
	}
	return deltas
}

func sumEvents(events []models.FeeEvent) (models.FeeTotals, error) {
	totals := make(models.FeeTotals)
	for _, e := range events {
		for _, t := range e.Tokens {
			current := totals[t.Mint]
			sum, err := money.AddBaseUnits(current.AmountBase, t.AmountBase)
			if err != nil {
				return nil, fmt.Errorf("event %s mint %s: %w", e.Id, t.Mint, err)
			}
			current.AmountBase = sum
			if current.Decimals == 0 {
				current.Decimals = t.Decimals
			}
			if current.Symbol == "" {
				current.Symbol = t.Symbol
			}
			totals[t.Mint] = current
		}
	}
	return totals, nil
}
