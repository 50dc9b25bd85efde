// Package redis implements the rate limit window store on Redis. Window expiry
// is delegated to key TTLs, so there is nothing for a sweeper to delete.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/store"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "dashboard:rl:"

// incrementScript increments an existing window only while it is below the
// limit. It returns -1 when the window is missing or full. INCR keeps the TTL.
var incrementScript = goredis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])

local current = redis.call("GET", key)
if not current then
  return -1
end
if tonumber(current) >= limit then
  return -1
end
return redis.call("INCR", key)
`)

// compile-time interface check
var _ store.WindowStore = (*WindowStore)(nil)

// WindowStore keeps one counter key per bucket key and window start.
type WindowStore struct {
	client goredis.UniversalClient
	prefix string
}

// Connect creates a client from config and verifies connectivity.
func Connect(ctx context.Context, cfg models.RedisConfig) (*WindowStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr cannot be empty")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := NewWindowStore(client, cfg.KeyPrefix)
	if err := s.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	zap.L().Info("Redis window store initialized", zap.String("addr", cfg.Addr))
	return s, nil
}

func NewWindowStore(client goredis.UniversalClient, prefix string) *WindowStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &WindowStore{client: client, prefix: prefix}
}

func (s *WindowStore) windowKey(key string, windowStart time.Time) string {
	return s.prefix + key + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

func (s *WindowStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *WindowStore) Close() {
	if err := s.client.Close(); err != nil {
		zap.L().Warn("Failed to close redis client", zap.Error(err))
	}
}

func (s *WindowStore) CreateWindow(ctx context.Context, key string, windowStart, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	created, err := s.client.SetNX(ctx, s.windowKey(key, windowStart), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis create window: %w", err)
	}
	return created, nil
}

func (s *WindowStore) IncrementWindow(ctx context.Context, key string, windowStart time.Time, limit int) (int, bool, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{s.windowKey(key, windowStart)}, limit).Int64()
	if err != nil {
		return 0, false, fmt.Errorf("redis increment window: %w", err)
	}
	if res < 0 {
		return 0, false, nil
	}
	return int(res), true, nil
}

// DeleteExpiredWindows is a no-op: Redis evicts windows through their TTL.
func (s *WindowStore) DeleteExpiredWindows(_ context.Context, _ time.Time, _ int) (int, error) {
	return 0, nil
}
