// Package mongo implements the price, fee and rate limit stores on MongoDB.
// Every write is a single-document operation; no multi-document
// transactions are used.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// Collection name constants.
const (
	colPriceStates   = "price_states"
	colFeeEvents     = "fee_events"
	colUserFeeTotals = "user_fee_totals"
	colRateWindows   = "rate_limit_windows"
)

const defaultTotalsRetries = 8

// compile-time interface check
var _ store.Backend = (*Store)(nil)

// Store implements store.Backend using the MongoDB driver.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a client, verifies connectivity and ensures indexes exist.
func Connect(ctx context.Context, cfg models.MongoConfig) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri cannot be empty")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo database cannot be empty")
	}

	zap.L().Info("Connecting to MongoDB", zap.String("database", cfg.Database))

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: store/mongo: connect: %v", store.ErrUnavailable, err)
	}

	s := New(client, cfg.Database)
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	zap.L().Info("MongoDB store initialized", zap.String("database", cfg.Database))
	return s, nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Migrate creates the uniqueness and sweep indexes.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colPriceStates: {
			{Keys: bson.D{{Key: "symbol", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colFeeEvents: {
			{Keys: bson.D{{Key: "signature", Value: 1}, {Key: "kind", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		colRateWindows: {
			{Keys: bson.D{{Key: "key", Value: 1}, {Key: "windowStart", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
		},
	}

	for col, idx := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("store/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: store/mongo: ping: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		zap.L().Warn("Failed to disconnect from MongoDB", zap.Error(err))
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
