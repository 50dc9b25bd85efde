package models

import "time"

// Config represents the application configuration
type Config struct {
	Store     StoreConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Oracle    OracleConfig
	RateLimit RateLimitConfig
	Fees      FeeLedgerConfig
}

// StoreConfig selects the persistence backends
type StoreConfig struct {
	Backend          string // "sqlite" or "mongo"
	RateLimitBackend string // "store" or "redis"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// RedisConfig holds Redis connection settings for the rate limiter
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// OracleConfig holds price feed polling settings
type OracleConfig struct {
	FeedURL         string
	FeedsFile       string
	PollingInterval time.Duration
	RequestTimeout  time.Duration
}

// RateLimitConfig holds default limiter and sweeper settings
type RateLimitConfig struct {
	DefaultLimit   int
	DefaultWindow  time.Duration
	SweepEnabled   bool
	SweepInterval  time.Duration
	SweepBatchSize int
}

// FeeLedgerConfig holds fee ledger settings
type FeeLedgerConfig struct {
	MaxTotalsRetries int
}
