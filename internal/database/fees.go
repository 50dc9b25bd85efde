package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/money"
	"dashboard-core-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InsertFeeEvent records the event unless (signature, kind) already exists.
// The unique constraint decides the race; there is no read beforehand.
func (s *Service) InsertFeeEvent(ctx context.Context, event *models.FeeEvent) error {
	if event.Id == "" {
		event.Id = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	tokens, err := json.Marshal(event.Tokens)
	if err != nil {
		return fmt.Errorf("failed to encode fee tokens: %w", err)
	}

	result, err := s.db.ExecContext(ctx, queryInsertFeeEvent,
		event.Id, event.UserId, event.Signature, event.Kind, string(tokens), event.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert fee event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: signature %s kind %s already exists", store.ErrDuplicateFeeEvent, event.Signature, event.Kind)
	}
	return nil
}

// AddFeeTotals adds each delta into the user's running total for its mint.
// Every mint is updated with a compare-and-swap on the previous amount so
// concurrent writers never lose an addition.
func (s *Service) AddFeeTotals(ctx context.Context, userId string, deltas []store.TotalsDelta, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = defaultTotalsRetries
	}
	for _, delta := range deltas {
		if err := s.addFeeTotal(ctx, userId, delta, maxRetries); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) addFeeTotal(ctx context.Context, userId string, delta store.TotalsDelta, maxRetries int) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		now := time.Now().UnixMilli()

		var current string
		err := s.db.QueryRowContext(ctx, queryGetFeeTotal, userId, delta.Mint).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			result, err := s.db.ExecContext(ctx, queryInsertFeeTotal,
				userId, delta.Mint, delta.AmountBase, delta.Decimals, delta.Symbol, now)
			if err != nil {
				return fmt.Errorf("failed to create fee total: %w", err)
			}
			if inserted, err := result.RowsAffected(); err != nil {
				return fmt.Errorf("failed to check rows affected: %w", err)
			} else if inserted == 1 {
				return nil
			}
			continue
		} else if err != nil {
			return fmt.Errorf("failed to get fee total: %w", err)
		}

		next, err := money.AddBaseUnits(current, delta.AmountBase)
		if err != nil {
			return fmt.Errorf("failed to add fee total for mint %s: %w", delta.Mint, err)
		}

		result, err := s.db.ExecContext(ctx, queryCompareAndSwapFeeTotal,
			next, delta.Decimals, delta.Symbol, now, userId, delta.Mint, current)
		if err != nil {
			return fmt.Errorf("failed to update fee total: %w", err)
		}
		swapped, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if swapped == 1 {
			return nil
		}

		zap.L().Debug("Fee total changed concurrently, retrying",
			zap.String("user_id", userId),
			zap.String("mint", delta.Mint),
			zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("%w: user %s mint %s", store.ErrTotalsContention, userId, delta.Mint)
}

func (s *Service) GetFeeTotals(ctx context.Context, userId string) (models.FeeTotals, error) {
	rows, err := s.db.QueryContext(ctx, queryGetFeeTotals, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee totals: %w", err)
	}
	defer rows.Close()

	totals := make(models.FeeTotals)
	for rows.Next() {
		var mint string
		var total models.TokenTotal
		if err := rows.Scan(&mint, &total.AmountBase, &total.Decimals, &total.Symbol); err != nil {
			return nil, fmt.Errorf("failed to scan fee total: %w", err)
		}
		totals[mint] = total
	}
	return totals, rows.Err()
}

func (s *Service) ListFeeEvents(ctx context.Context, userId string) ([]models.FeeEvent, error) {
	rows, err := s.db.QueryContext(ctx, queryListFeeEvents, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee events: %w", err)
	}
	defer rows.Close()

	var events []models.FeeEvent
	for rows.Next() {
		var event models.FeeEvent
		var tokens string
		var createdAtMs int64
		if err := rows.Scan(&event.Id, &event.UserId, &event.Signature, &event.Kind, &tokens, &createdAtMs); err != nil {
			return nil, fmt.Errorf("failed to scan fee event: %w", err)
		}
		if err := json.Unmarshal([]byte(tokens), &event.Tokens); err != nil {
			return nil, fmt.Errorf("failed to decode tokens of fee event %s: %w", event.Id, err)
		}
		event.CreatedAt = time.UnixMilli(createdAtMs).UTC()
		events = append(events, event)
	}
	return events, rows.Err()
}

// ReplaceFeeTotals overwrites every total of the user in one transaction.
func (s *Service) ReplaceFeeTotals(ctx context.Context, userId string, totals models.FeeTotals) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryDeleteFeeTotals, userId); err != nil {
		return fmt.Errorf("failed to clear fee totals: %w", err)
	}

	now := time.Now().UnixMilli()
	for mint, total := range totals {
		if _, err := tx.ExecContext(ctx, queryReplaceFeeTotal,
			userId, mint, total.AmountBase, total.Decimals, total.Symbol, now); err != nil {
			return fmt.Errorf("failed to write fee total for mint %s: %w", mint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
