package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"spacedesk/pkg/client"
	"spacedesk/pkg/logger"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Port     string
	LogLevel string

	StoreDriver       string
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	PostgresURL       string

	ExpiryDriver                string
	RedisAddr                   string
	RedisPassword               string
	RedisDB                     int
	RedisConfigureNotifications bool

	ReservationTTL    time.Duration
	MaxReservationTTL time.Duration
	ExpiryWorkers     int
	ExpiryQueueSize   int

	EventsEnabled  bool
	EventsTopic    string
	EventsDLQTopic string

	RemediationSchedule  string
	RemediationGrace     time.Duration
	RemediationBatchSize int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the configuration from the environment, after applying an optional
// .env file from the working directory. Invalid configuration is fatal.
func Load(serviceName string) *Config {
	envFileErr := godotenv.Load()

	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if envFileErr != nil && !errors.Is(envFileErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to load .env file", "error", envFileErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from environment variables without validating it or
// creating the logger and clients.
func FromEnv() *Config {
	return &Config{
		Port:     getEnvStr(EnvPort, DefaultPort),
		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),

		StoreDriver:       getEnvStr(EnvStoreDriver, DefaultStoreDriver),
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		PostgresURL:       getEnvStr(EnvPostgresURL, DefaultPostgresURL),

		ExpiryDriver:                getEnvStr(EnvExpiryDriver, DefaultExpiryDriver),
		RedisAddr:                   getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword:               getEnvStr(EnvRedisPassword, ""),
		RedisDB:                     getEnvNum(EnvRedisDB, DefaultRedisDB),
		RedisConfigureNotifications: getEnvBool(EnvRedisConfigureNotifications, DefaultRedisConfigureNotifications),

		ReservationTTL:    getEnvDuration(EnvReservationTTL, DefaultReservationTTL),
		MaxReservationTTL: getEnvDuration(EnvMaxReservationTTL, DefaultMaxReservationTTL),
		ExpiryWorkers:     getEnvNum(EnvExpiryWorkers, DefaultExpiryWorkers),
		ExpiryQueueSize:   getEnvNum(EnvExpiryQueueSize, DefaultExpiryQueueSize),

		EventsEnabled:  getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		EventsTopic:    getEnvStr(EnvEventsTopic, DefaultEventsTopic),
		EventsDLQTopic: getEnvStr(EnvEventsDLQTopic, DefaultEventsDLQTopic),

		RemediationSchedule:  getEnvStr(EnvRemediationSchedule, DefaultRemediationSchedule),
		RemediationGrace:     getEnvDuration(EnvRemediationGrace, DefaultRemediationGrace),
		RemediationBatchSize: getEnvNum(EnvRemediationBatchSize, DefaultRemediationBatchSize),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),
	}
}

// SetClients connects the clients required by the configured drivers.
func (cfg *Config) SetClients() {
	switch cfg.StoreDriver {
	case StoreMongo:
		cfg.SetMongo()
	case StorePostgres:
		cfg.SetPostgres()
	}
	if cfg.ExpiryDriver == ExpiryRedis {
		cfg.SetRedis()
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresURL, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StorePostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresURL) {
			errors = append(errors, fmt.Sprintf("PostgresURL must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresURL)))
		}
	case StoreMemory:
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be one of [%s, %s, %s], got: %s", StoreMongo, StorePostgres, StoreMemory, cfg.StoreDriver))
	}

	switch cfg.ExpiryDriver {
	case ExpiryRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty")
		}
		if cfg.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
		}
	case ExpiryMemory:
	default:
		errors = append(errors, fmt.Sprintf("ExpiryDriver must be one of [%s, %s], got: %s", ExpiryRedis, ExpiryMemory, cfg.ExpiryDriver))
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.ReservationTTL < time.Second {
		errors = append(errors, fmt.Sprintf("ReservationTTL must be at least 1s, got: %s", cfg.ReservationTTL))
	}
	if cfg.MaxReservationTTL < cfg.ReservationTTL {
		errors = append(errors, fmt.Sprintf("MaxReservationTTL (%s) must be >= ReservationTTL (%s)", cfg.MaxReservationTTL, cfg.ReservationTTL))
	}
	if cfg.ExpiryWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("ExpiryWorkers must be positive, got: %d", cfg.ExpiryWorkers))
	}
	if cfg.ExpiryQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("ExpiryQueueSize must be positive, got: %d", cfg.ExpiryQueueSize))
	}
	if cfg.EventsEnabled && cfg.EventsTopic == "" {
		errors = append(errors, "EventsTopic cannot be empty when events are enabled")
	}

	if cfg.RemediationSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RemediationSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("RemediationSchedule is not a valid cron expression: %v", err))
		}
	}
	if cfg.RemediationGrace < 0 {
		errors = append(errors, fmt.Sprintf("RemediationGrace cannot be negative, got: %s", cfg.RemediationGrace))
	}
	if cfg.RemediationBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("RemediationBatchSize must be positive, got: %d", cfg.RemediationBatchSize))
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"store_driver", cfg.StoreDriver,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_url", redactURI(cfg.PostgresURL),
		"expiry_driver", cfg.ExpiryDriver,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"redis_db", cfg.RedisDB,
		"redis_configure_notifications", cfg.RedisConfigureNotifications,
		"reservation_ttl", cfg.ReservationTTL,
		"max_reservation_ttl", cfg.MaxReservationTTL,
		"expiry_workers", cfg.ExpiryWorkers,
		"expiry_queue_size", cfg.ExpiryQueueSize,
		"events_enabled", cfg.EventsEnabled,
		"events_topic", cfg.EventsTopic,
		"remediation_schedule", cfg.RemediationSchedule,
		"remediation_grace", cfg.RemediationGrace,
		"remediation_batch_size", cfg.RemediationBatchSize,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

var credentialRegex = regexp.MustCompile(`^([a-z+]+://)[^:/@]+:[^@]+@`)

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
