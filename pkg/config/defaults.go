package config

import "time"

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	ExpiryRedis  = "redis"
	ExpiryMemory = "memory"
)

const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultStoreDriver       = StoreMongo
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "spacedesk"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultPostgresURL       = "postgres://localhost:5432/spacedesk?sslmode=disable"

	DefaultExpiryDriver                = ExpiryRedis
	DefaultRedisAddr                   = "localhost:6379"
	DefaultRedisDB                     = 0
	DefaultRedisConfigureNotifications = true

	DefaultReservationTTL    = 30 * time.Second
	DefaultMaxReservationTTL = 24 * time.Hour
	DefaultExpiryWorkers     = 4
	DefaultExpiryQueueSize   = 1024

	DefaultEventsEnabled  = false
	DefaultEventsTopic    = "reservations.lifecycle"
	DefaultEventsDLQTopic = ""

	// Empty schedule disables the remediation job.
	DefaultRemediationSchedule  = ""
	DefaultRemediationGrace     = 1 * time.Minute
	DefaultRemediationBatchSize = 500

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
