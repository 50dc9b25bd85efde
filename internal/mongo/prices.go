package mongo

import (
	"context"
	"fmt"
	"time"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// priceUpsertPipeline shifts last* into prev* and writes the incoming values.
// On insert there is no last* yet, so prev* falls back to the incoming values.
func priceUpsertPipeline(update models.PriceUpdate, now time.Time) bson.A {
	price := bson.M{"$literal": update.Price.String()}
	conf := bson.M{"$literal": update.Confidence.String()}
	return bson.A{
		bson.M{"$set": bson.M{
			"prevPrice":       bson.M{"$ifNull": bson.A{"$lastPrice", price}},
			"prevConfidence":  bson.M{"$ifNull": bson.A{"$lastConfidence", conf}},
			"prevPublishTime": bson.M{"$ifNull": bson.A{"$lastPublishTime", update.PublishTime}},
		}},
		bson.M{"$set": bson.M{
			"lastPrice":       price,
			"lastConfidence":  conf,
			"lastPublishTime": update.PublishTime,
			"updatedAt":       now.UTC(),
		}},
	}
}

// UpsertPrice matches the symbol only while the stored publish time is older
// than the update. A newer-or-equal stored state makes the upsert attempt an
// insert, which the unique symbol index rejects; that is a stale update.
func (s *Store) UpsertPrice(ctx context.Context, update models.PriceUpdate, now time.Time) (bool, error) {
	filter := bson.M{
		"symbol":          update.Symbol,
		"lastPublishTime": bson.M{"$lt": update.PublishTime},
	}
	opts := options.UpdateOne().SetUpsert(true)

	res, err := s.db.Collection(colPriceStates).UpdateOne(ctx, filter, priceUpsertPipeline(update, now), opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("store/mongo: upsert price %s: %w", update.Symbol, err)
	}
	return res.UpsertedCount == 1 || res.ModifiedCount == 1, nil
}

func (s *Store) GetPrice(ctx context.Context, symbol string) (*models.PriceState, error) {
	var m priceStateModel
	err := s.db.Collection(colPriceStates).FindOne(ctx, bson.M{"symbol": symbol}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: no price for %s", store.ErrNotFound, symbol)
		}
		return nil, fmt.Errorf("store/mongo: get price %s: %w", symbol, err)
	}
	return fromPriceStateModel(&m)
}

func (s *Store) ListPrices(ctx context.Context) ([]models.PriceState, error) {
	cursor, err := s.db.Collection(colPriceStates).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "symbol", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store/mongo: list prices: %w", err)
	}

	var ms []priceStateModel
	if err := cursor.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("store/mongo: decode prices: %w", err)
	}

	states := make([]models.PriceState, 0, len(ms))
	for i := range ms {
		state, err := fromPriceStateModel(&ms[i])
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, nil
}
