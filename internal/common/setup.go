package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"dashboard-core-go/internal/config"
	"dashboard-core-go/internal/database"
	"dashboard-core-go/internal/metrics"
	"dashboard-core-go/internal/models"
	"dashboard-core-go/internal/mongo"
	"dashboard-core-go/internal/redis"
	"dashboard-core-go/internal/store"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services holds the stores selected by configuration. Windows is the
// backend itself unless RATE_LIMIT_BACKEND=redis.
type Services struct {
	Backend  store.Backend
	Windows  store.WindowStore
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	redis *redis.WindowStore
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	backend, err := InitializeStoreOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	services := &Services{
		Backend:  backend,
		Windows:  backend,
		Registry: registry,
		Metrics:  metrics.New(registry),
	}

	if cfg.Store.RateLimitBackend == config.BackendRedis {
		zap.L().Info("Using Redis for rate limit windows", zap.String("addr", cfg.Redis.Addr))
		windows, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			backend.Close()
			return nil, err
		}
		services.Windows = windows
		services.redis = windows
	}

	return services, nil
}

// InitializeStoreOnly opens just the configured backend, without metrics or
// a separate window store. Useful for one-shot CLI reads.
func InitializeStoreOnly(ctx context.Context, cfg *models.Config) (store.Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		dbService, err := database.NewService(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return dbService, nil
	case config.BackendMongo:
		mongoStore, err := mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return mongoStore, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func (cs *Services) Close() {
	if cs.redis != nil {
		cs.redis.Close()
	}
	if cs.Backend != nil {
		cs.Backend.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
