package store

import (
	"context"
	"errors"
	"time"

	"dashboard-core-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrDuplicateFeeEvent = errors.New("duplicate fee event")
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("store unavailable")
	ErrTotalsContention  = errors.New("fee totals update lost too many races")
)

// TotalsDelta is an amount to add to a user's running total for one mint.
type TotalsDelta struct {
	Mint       string
	Symbol     string
	Decimals   int
	AmountBase string
}

// PriceStore persists one PriceState per symbol.
type PriceStore interface {
	// UpsertPrice applies the update in a single conditional write: it creates the
	// state if the symbol is unseen, shifts last into prev when PublishTime is
	// strictly newer, and otherwise leaves the state untouched. It reports whether
	// the state changed.
	UpsertPrice(ctx context.Context, update models.PriceUpdate, now time.Time) (bool, error)
	GetPrice(ctx context.Context, symbol string) (*models.PriceState, error)
	ListPrices(ctx context.Context) ([]models.PriceState, error)
}

// FeeStore persists the append-only FeeEvent log and the per-user totals cache.
type FeeStore interface {
	// InsertFeeEvent creates the event only if no event with the same
	// (Signature, Kind) exists. It returns ErrDuplicateFeeEvent otherwise.
	InsertFeeEvent(ctx context.Context, event *models.FeeEvent) error
	// AddFeeTotals adds each delta into the user's total for that mint, one
	// single-document conditional write per mint.
	AddFeeTotals(ctx context.Context, userId string, deltas []TotalsDelta, maxRetries int) error
	GetFeeTotals(ctx context.Context, userId string) (models.FeeTotals, error)
	ListFeeEvents(ctx context.Context, userId string) ([]models.FeeEvent, error)
	// ReplaceFeeTotals overwrites the user's totals, used by reconciliation.
	ReplaceFeeTotals(ctx context.Context, userId string, totals models.FeeTotals) error
}

// WindowStore persists fixed-window rate limit counters.
type WindowStore interface {
	// CreateWindow inserts a window with count 1 if none exists for the key and
	// window start. created is false when the window already existed.
	CreateWindow(ctx context.Context, key string, windowStart, expiresAt time.Time) (created bool, err error)
	// IncrementWindow increments the window's count only while it is below
	// limit. ok is false when the limit has already been reached.
	IncrementWindow(ctx context.Context, key string, windowStart time.Time, limit int) (count int, ok bool, err error)
	// DeleteExpiredWindows removes at most batchSize windows whose expiry is
	// strictly before now.
	DeleteExpiredWindows(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// Backend bundles the stores a persistence backend provides.
type Backend interface {
	PriceStore
	FeeStore
	WindowStore
	Ping(ctx context.Context) error
	Close()
}
