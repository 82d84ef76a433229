package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvStoreDriver       = "STORE_DRIVER"
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvPostgresURL       = "POSTGRES_URL"

	EnvExpiryDriver                = "EXPIRY_DRIVER"
	EnvRedisAddr                   = "REDIS_ADDR"
	EnvRedisPassword               = "REDIS_PASSWORD"
	EnvRedisDB                     = "REDIS_DB"
	EnvRedisConfigureNotifications = "REDIS_CONFIGURE_NOTIFICATIONS"

	EnvReservationTTL    = "RESERVATION_TTL"
	EnvMaxReservationTTL = "MAX_RESERVATION_TTL"
	EnvExpiryWorkers     = "EXPIRY_WORKERS"
	EnvExpiryQueueSize   = "EXPIRY_QUEUE_SIZE"

	EnvEventsEnabled  = "EVENTS_ENABLED"
	EnvEventsTopic    = "EVENTS_TOPIC"
	EnvEventsDLQTopic = "EVENTS_DLQ_TOPIC"

	EnvRemediationSchedule  = "REMEDIATION_SCHEDULE"
	EnvRemediationGrace     = "REMEDIATION_GRACE"
	EnvRemediationBatchSize = "REMEDIATION_BATCH_SIZE"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
