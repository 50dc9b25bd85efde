package oracle

import (
	"context"
	"fmt"
	"time"

	"dashboard-core-go/internal/models"

	"go.uber.org/zap"
)

// PollerConfig contains configuration for Poller
type PollerConfig struct {
	Ingestor        *Ingestor
	Client          FeedClient
	Feeds           []models.FeedConfig
	PollingInterval time.Duration
}

// Poller fetches the configured feeds on an interval and applies each price.
type Poller struct {
	ingestor        *Ingestor
	client          FeedClient
	symbols         map[string]string // normalised feed id -> symbol
	ids             []string
	pollingInterval time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Ingestor == nil || cfg.Client == nil {
		return nil, fmt.Errorf("ingestor and feed client are required")
	}
	if cfg.PollingInterval <= 0 {
		return nil, fmt.Errorf("polling interval must be positive, got %v", cfg.PollingInterval)
	}

	symbols := make(map[string]string, len(cfg.Feeds))
	ids := make([]string, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		id := NormalizeFeedId(f.Id)
		if id == "" || f.Symbol == "" {
			return nil, fmt.Errorf("feed entries need both id and symbol")
		}
		if _, dup := symbols[id]; dup {
			return nil, fmt.Errorf("feed id %s configured twice", id)
		}
		symbols[id] = f.Symbol
		ids = append(ids, id)
	}

	return &Poller{
		ingestor:        cfg.Ingestor,
		client:          cfg.Client,
		symbols:         symbols,
		ids:             ids,
		pollingInterval: cfg.PollingInterval,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}, nil
}

// Start polls once immediately and then on every tick until Stop.
func (p *Poller) Start(ctx context.Context) error {
	if len(p.ids) == 0 {
		zap.L().Warn("No price feeds configured - make sure the feeds file lists at least one feed")
		return fmt.Errorf("no feeds to poll")
	}

	go p.pollLoop(ctx)

	zap.L().Info("Price poller started",
		zap.Int("feeds", len(p.ids)),
		zap.Duration("polling_interval", p.pollingInterval))
	return nil
}

// Stop gracefully stops the poller
func (p *Poller) Stop() {
	zap.L().Info("Stopping price poller")
	close(p.stopChan)
	<-p.doneChan
	zap.L().Info("Price poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	p.PollOnce(ctx)

	for {
		select {
		case <-ticker.C:
			p.PollOnce(ctx)
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// PollOnce runs a single fetch-and-apply pass and returns how many updates
// were accepted. A failed fetch leaves every stored price as it was.
func (p *Poller) PollOnce(ctx context.Context) int {
	started := time.Now()
	prices, err := p.client.LatestPrices(ctx, p.ids)
	p.ingestor.metrics.FeedPollDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		p.ingestor.metrics.FeedPollFailures.Inc()
		zap.L().Error("Failed to fetch latest prices", zap.Int("feeds", len(p.ids)), zap.Error(err))
		return 0
	}

	applied := 0
	for _, fp := range prices {
		symbol, ok := p.symbols[NormalizeFeedId(fp.Id)]
		if !ok {
			continue
		}
		if fp.PublishTime <= 0 {
			zap.L().Warn("Skipping price with invalid publish time",
				zap.String("symbol", symbol),
				zap.Int64("publish_time", fp.PublishTime))
			p.ingestor.metrics.PriceUpdates.WithLabelValues(outcomeSkipped).Inc()
			continue
		}

		accepted, err := p.ingestor.ApplyUpdate(ctx, models.PriceUpdate{
			Symbol:      symbol,
			Price:       fp.Price,
			Confidence:  fp.Confidence,
			PublishTime: fp.PublishTime,
		})
		if err != nil {
			zap.L().Error("Failed to apply price update", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if accepted {
			applied++
		}
	}

	zap.L().Debug("Price poll complete",
		zap.Int("received", len(prices)),
		zap.Int("applied", applied))
	return applied
}
