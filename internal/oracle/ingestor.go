package oracle

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
	outcomeApplied = "applied"
	outcomeStale   = "stale"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// Ingestor keeps the last two accepted prices per symbol.
type Ingestor struct {
	store   store.PriceStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewIngestor(priceStore store.PriceStore, m *metrics.Metrics) *Ingestor {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Ingestor{store: priceStore, metrics: m, now: time.Now}
}

// ApplyUpdate records update for its symbol. The first update for a symbol
// becomes both prev and last; later ones are accepted only when their
// publish time is strictly newer. Stale updates return false with no error.
func (i *Ingestor) ApplyUpdate(ctx context.Context, update models.PriceUpdate) (bool, error) {
	update.Symbol = strings.TrimSpace(update.Symbol)
	if update.Symbol == "" {
		return false, fmt.Errorf("%w: symbol is required", store.ErrInvalidArgument)
	}
	if update.PublishTime <= 0 {
		return false, fmt.Errorf("%w: publish time must be positive, got %d", store.ErrInvalidArgument, update.PublishTime)
	}

	applied, err := i.store.UpsertPrice(ctx, update, i.now().UTC())
	if err != nil {
		i.metrics.PriceUpdates.WithLabelValues(outcomeFailed).Inc()
		return false, fmt.Errorf("failed to apply price for %s: %w", update.Symbol, err)
	}

	if applied {
		i.metrics.PriceUpdates.WithLabelValues(outcomeApplied).Inc()
	} else {
		zap.L().Debug("Discarded stale price update",
			zap.String("symbol", update.Symbol),
			zap.Int64("publish_time", update.PublishTime))
		i.metrics.PriceUpdates.WithLabelValues(outcomeStale).Inc()
	}
	return applied, nil
}

// Latest returns the current state for symbol, or store.ErrNotFound.
func (i *Ingestor) Latest(ctx context.Context, symbol string) (*models.PriceState, error) {
	return i.store.GetPrice(ctx, strings.TrimSpace(symbol))
}

// All returns every tracked symbol's state ordered by symbol.
func (i *Ingestor) All(ctx context.Context) ([]models.PriceState, error) {
	return i.store.ListPrices(ctx)
}
