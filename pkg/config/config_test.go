package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, ExpiryRedis, cfg.ExpiryDriver)
	assert.Equal(t, 30*time.Second, cfg.ReservationTTL)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvStoreDriver, StorePostgres)
	t.Setenv(EnvExpiryDriver, ExpiryMemory)
	t.Setenv(EnvReservationTTL, "45s")
	t.Setenv(EnvRedisDB, "3")
	t.Setenv(EnvEventsEnabled, "true")
	t.Setenv(EnvExpiryWorkers, "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, ExpiryMemory, cfg.ExpiryDriver)
	assert.Equal(t, 45*time.Second, cfg.ReservationTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, DefaultExpiryWorkers, cfg.ExpiryWorkers, "unparsable values fall back to the default")
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Port = "70000" }, "Port must be between"},
		{"unknown store", func(c *Config) { c.StoreDriver = "sqlite" }, "StoreDriver must be one of"},
		{"bad mongo uri", func(c *Config) { c.MongoURI = "http://localhost" }, "MongoURI must start with"},
		{"bad postgres url", func(c *Config) {
			c.StoreDriver = StorePostgres
			c.PostgresURL = "mysql://localhost"
		}, "PostgresURL must start with"},
		{"unknown expiry driver", func(c *Config) { c.ExpiryDriver = "etcd" }, "ExpiryDriver must be one of"},
		{"ttl too short", func(c *Config) { c.ReservationTTL = 500 * time.Millisecond }, "ReservationTTL must be at least 1s"},
		{"max below default", func(c *Config) { c.MaxReservationTTL = 10 * time.Second }, "MaxReservationTTL"},
		{"no workers", func(c *Config) { c.ExpiryWorkers = 0 }, "ExpiryWorkers must be positive"},
		{"events without topic", func(c *Config) {
			c.EventsEnabled = true
			c.EventsTopic = ""
		}, "EventsTopic cannot be empty"},
		{"bad cron", func(c *Config) { c.RemediationSchedule = "every minute" }, "RemediationSchedule is not a valid cron expression"},
		{"negative grace", func(c *Config) { c.RemediationGrace = -time.Second }, "RemediationGrace cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := FromEnv()
	cfg.Port = "0"
	cfg.ExpiryWorkers = 0
	cfg.RateLimitRequests = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, 3, strings.Count(err.Error(), "\n  "))
}

func TestValidate_AcceptsCronDescriptors(t *testing.T) {
	cfg := FromEnv()
	cfg.RemediationSchedule = "@every 30s"
	assert.NoError(t, cfg.Validate())

	cfg.RemediationSchedule = "*/5 * * * *"
	assert.NoError(t, cfg.Validate())
}

func TestRedactURI(t *testing.T) {
	assert.Equal(t, "mongodb://***:***@db:27017", redactURI("mongodb://admin:secret@db:27017"))
	assert.Equal(t, "postgres://***:***@pg/spacedesk", redactURI("postgres://app:pw@pg/spacedesk"))
	assert.Equal(t, "mongodb://localhost:27017", redactURI("mongodb://localhost:27017"))
}

func TestNormalizePagination(t *testing.T) {
	assert.Equal(t, 10, NormalizePaginationLimit(0))
	assert.Equal(t, 10, NormalizePaginationLimit(-4))
	assert.Equal(t, 25, NormalizePaginationLimit(25))
	assert.Equal(t, DefaultPaginationLimit, NormalizePaginationLimit(5000))
	assert.Equal(t, int64(0), NormalizeOffset(-3))
	assert.Equal(t, int64(7), NormalizeOffset(7))
}
