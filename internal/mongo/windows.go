package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *Store) CreateWindow(ctx context.Context, key string, windowStart, expiresAt time.Time) (bool, error) {
	_, err := s.db.Collection(colRateWindows).InsertOne(ctx, windowModel{
		ID:          uuid.New().String(),
		Key:         key,
		WindowStart: windowStart.UnixMilli(),
		Count:       1,
		ExpiresAt:   expiresAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("store/mongo: create window: %w", err)
	}
	return true, nil
}

func (s *Store) IncrementWindow(ctx context.Context, key string, windowStart time.Time, limit int) (int, bool, error) {
	filter := bson.M{
		"key":         key,
		"windowStart": windowStart.UnixMilli(),
		"count":       bson.M{"$lt": limit},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m windowModel
	err := s.db.Collection(colRateWindows).
		FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"count": 1}}, opts).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("store/mongo: increment window: %w", err)
	}
	return m.Count, true, nil
}

// DeleteExpiredWindows selects a batch of expired ids, then deletes them with
// the expiry condition repeated so a concurrently refreshed window survives.
func (s *Store) DeleteExpiredWindows(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, nil
	}
	col := s.db.Collection(colRateWindows)
	expired := bson.M{"expiresAt": bson.M{"$lt": now.UTC()}}

	cursor, err := col.Find(ctx, expired, options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "expiresAt", Value: 1}}).
		SetLimit(int64(batchSize)))
	if err != nil {
		return 0, fmt.Errorf("store/mongo: find expired windows: %w", err)
	}

	var ids []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &ids); err != nil {
		return 0, fmt.Errorf("store/mongo: decode expired windows: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	in := make(bson.A, 0, len(ids))
	for _, id := range ids {
		in = append(in, id.ID)
	}
	res, err := col.DeleteMany(ctx, bson.M{
		"_id":       bson.M{"$in": in},
		"expiresAt": bson.M{"$lt": now.UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("store/mongo: delete expired windows: %w", err)
	}
	return int(res.DeletedCount), nil
}
