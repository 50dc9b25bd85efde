package mongo

import (
	"context"
	"fmt"
	"time"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/money"
	"dashboard-core-go/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// InsertFeeEvent relies on the unique (signature, kind) index to reject
// duplicates.
func (s *Store) InsertFeeEvent(ctx context.Context, event *models.FeeEvent) error {
	if event.Id == "" {
		event.Id = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Collection(colFeeEvents).InsertOne(ctx, toFeeEventModel(event))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: signature %s kind %s already exists", store.ErrDuplicateFeeEvent, event.Signature, event.Kind)
		}
		return fmt.Errorf("store/mongo: insert fee event: %w", err)
	}
	return nil
}

// AddFeeTotals adds each delta with a compare-and-swap on the mint's previous
// amountBase inside the user's single totals document.
func (s *Store) AddFeeTotals(ctx context.Context, userId string, deltas []store.TotalsDelta, maxRetries int) error {
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

func (s *Store) currentTotal(ctx context.Context, userId, mint string) (*tokenTotalModel, error) {
	var m userTotalsModel
	opts := options.FindOne().SetProjection(bson.M{totalsField(mint): 1})
	err := s.db.Collection(colUserFeeTotals).FindOne(ctx, bson.M{"_id": userId}, opts).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store/mongo: get fee total: %w", err)
	}
	if t, ok := m.FeesPaidTotals[mint]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *Store) addFeeTotal(ctx context.Context, userId string, delta store.TotalsDelta, maxRetries int) error {
	col := s.db.Collection(colUserFeeTotals)

	for attempt := 0; attempt < maxRetries; attempt++ {
		now := time.Now().UTC()

		current, err := s.currentTotal(ctx, userId, delta.Mint)
		if err != nil {
			return err
		}

		if current == nil {
			// Initialise the mint entry only if it is still absent; the upsert
			// creates the user document when needed.
			filter := bson.M{"_id": userId, totalsField(delta.Mint): bson.M{"$exists": false}}
			update := bson.M{"$set": bson.M{
				totalsField(delta.Mint): tokenTotalModel{
					AmountBase: delta.AmountBase,
					Decimals:   delta.Decimals,
					Symbol:     delta.Symbol,
				},
				"updatedAt": now,
			}}
			res, err := col.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
			if err != nil {
				if mongo.IsDuplicateKeyError(err) {
					continue
				}
				return fmt.Errorf("store/mongo: create fee total: %w", err)
			}
			if res.MatchedCount == 1 || res.UpsertedCount == 1 {
				return nil
			}
			continue
		}

		next, err := money.AddBaseUnits(current.AmountBase, delta.AmountBase)
		if err != nil {
			return fmt.Errorf("store/mongo: add fee total for mint %s: %w", delta.Mint, err)
		}

		set := bson.M{
			totalsField(delta.Mint, "amountBase"): next,
			"updatedAt":                           now,
		}
		if current.Decimals == 0 && delta.Decimals != 0 {
			set[totalsField(delta.Mint, "decimals")] = delta.Decimals
		}
		if current.Symbol == "" && delta.Symbol != "" {
			set[totalsField(delta.Mint, "symbol")] = delta.Symbol
		}

		filter := bson.M{"_id": userId, totalsField(delta.Mint, "amountBase"): current.AmountBase}
		res, err := col.UpdateOne(ctx, filter, bson.M{"$set": set})
		if err != nil {
			return fmt.Errorf("store/mongo: update fee total: %w", err)
		}
		if res.MatchedCount == 1 {
			return nil
		}

		zap.L().Debug("Fee total changed concurrently, retrying",
			zap.String("user_id", userId),
			zap.String("mint", delta.Mint),
			zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("%w: user %s mint %s", store.ErrTotalsContention, userId, delta.Mint)
}

func (s *Store) GetFeeTotals(ctx context.Context, userId string) (models.FeeTotals, error) {
	var m userTotalsModel
	err := s.db.Collection(colUserFeeTotals).FindOne(ctx, bson.M{"_id": userId}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return models.FeeTotals{}, nil
		}
		return nil, fmt.Errorf("store/mongo: get fee totals: %w", err)
	}
	return fromUserTotalsModel(&m), nil
}

func (s *Store) ListFeeEvents(ctx context.Context, userId string) ([]models.FeeEvent, error) {
	cursor, err := s.db.Collection(colFeeEvents).Find(ctx, bson.M{"userId": userId},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("store/mongo: list fee events: %w", err)
	}

	var ms []feeEventModel
	if err := cursor.All(ctx, &ms); err != nil {
		return nil, fmt.Errorf("store/mongo: decode fee events: %w", err)
	}

	events := make([]models.FeeEvent, 0, len(ms))
	for i := range ms {
		events = append(events, fromFeeEventModel(&ms[i]))
	}
	return events, nil
}

// ReplaceFeeTotals overwrites the user's totals document.
func (s *Store) ReplaceFeeTotals(ctx context.Context, userId string, totals models.FeeTotals) error {
	doc := toUserTotalsModel(userId, totals, time.Now().UTC())
	_, err := s.db.Collection(colUserFeeTotals).ReplaceOne(ctx, bson.M{"_id": userId}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store/mongo: replace fee totals: %w", err)
	}
	return nil
}
