package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/store"

	"github.com/shopspring/decimal"
)

// UpsertPrice creates or advances the symbol's price state in one statement.
// The conflict clause only fires when the incoming publish time is strictly
// newer, so stale or repeated updates change nothing.
func (s *Service) UpsertPrice(ctx context.Context, update models.PriceUpdate, now time.Time) (bool, error) {
	price := update.Price.String()
	conf := update.Confidence.String()

	result, err := s.db.ExecContext(ctx, queryUpsertPrice,
		update.Symbol, price, conf, update.PublishTime,
		price, conf, update.PublishTime, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to upsert price for %s: %w", update.Symbol, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (s *Service) GetPrice(ctx context.Context, symbol string) (*models.PriceState, error) {
	state, err := scanPriceState(s.db.QueryRowContext(ctx, queryGetPrice, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no price for %s", store.ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}
	return state, nil
}

func (s *Service) ListPrices(ctx context.Context) ([]models.PriceState, error) {
	rows, err := s.db.QueryContext(ctx, queryListPrices)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	defer rows.Close()

	var states []models.PriceState
	for rows.Next() {
		state, err := scanPriceState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPriceState(row rowScanner) (*models.PriceState, error) {
	var (
		state                                    models.PriceState
		lastPrice, lastConf, prevPrice, prevConf string
		updatedAtMs                              int64
	)
	err := row.Scan(&state.Symbol, &lastPrice, &lastConf, &state.LastPublishTime,
		&prevPrice, &prevConf, &state.PrevPublishTime, &updatedAtMs)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{lastPrice, &state.LastPrice},
		{lastConf, &state.LastConfidence},
		{prevPrice, &state.PrevPrice},
		{prevConf, &state.PrevConfidence},
	} {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored price '%s': %w", f.raw, err)
		}
		*f.dst = v
	}
	state.UpdatedAt = time.UnixMilli(updatedAtMs).UTC()
	return &state, nil
}
