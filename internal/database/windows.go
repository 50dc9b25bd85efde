package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Service) CreateWindow(ctx context.Context, key string, windowStart, expiresAt time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, queryCreateWindow,
		uuid.New().String(), key, windowStart.UnixMilli(), expiresAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to create rate limit window: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (s *Service) IncrementWindow(ctx context.Context, key string, windowStart time.Time, limit int) (int, bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, queryIncrementWindow, key, windowStart.UnixMilli(), limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment rate limit window: %w", err)
	}
	return count, true, nil
}

func (s *Service) DeleteExpiredWindows(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx, queryDeleteExpiredWindows, now.UnixMilli(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired windows: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(deleted), nil
}
